package tubestitch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swdee/go-tubestitch/tube"
	"go.uber.org/zap/zaptest"
)

// testConfig returns a valid configuration with a four frame window and two
// foreground classes
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.NumFrames = 4
	cfg.NumClasses = 3
	return cfg
}

// newTestEngine creates an engine logging through the test
func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()

	e, err := NewEngine(cfg, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)

	return e
}

// tubelet builds a tubelet of n frames starting at first with the same box
// on every frame
func tubelet(class int, conf float64, first, n int, box tube.BoundingBox) *tube.Track {

	states := make([]tube.TrackState, n)

	for i := range states {
		states[i] = tube.TrackState{
			FrameID: first + i,
			Detection: tube.Detection{
				Box:        box,
				ClassID:    class,
				Confidence: conf,
			},
		}
	}

	return tube.NewTubelet(states...)
}

var (
	boxA = tube.NewBoundingBox(10, 10, 110, 210)
	boxB = tube.NewBoundingBox(500, 500, 600, 700)
)

func TestEngineStitchesAcrossWindows(t *testing.T) {

	e := newTestEngine(t, testConfig())

	res := e.Step(Window{VideoID: "v1", Frame: 4, Tubelets: []*tube.Track{tubelet(1, 0.9, 0, 4, boxA)}})
	require.Len(t, res, 1)
	assert.Empty(t, res[0].Finished)
	assert.Equal(t, 1, res[0].Stats.Opened)
	assert.Equal(t, tube.SteadyState, e.State().Phase)
	assert.Equal(t, "v1", e.VideoID())

	res = e.Step(Window{VideoID: "v1", Frame: 8, Tubelets: []*tube.Track{tubelet(1, 0.8, 4, 4, boxA)}})
	require.Len(t, res, 1)
	assert.Empty(t, res[0].Finished)
	assert.Equal(t, 1, res[0].Stats.Continued)

	// no detections finishes the track
	res = e.Step(Window{VideoID: "v1", Frame: 12})
	require.Len(t, res, 1)
	require.Len(t, res[0].Finished, 1)

	track := res[0].Finished[0]
	assert.Equal(t, int64(1), track.ID)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, track.FrameIDs())
	assert.Equal(t, 0.9, track.Confidence())
	assert.Equal(t, tube.NoOpenTracks, e.State().Phase)
	assert.False(t, res[0].EndOfVideo)
}

func TestEngineEndOfVideoFlushes(t *testing.T) {

	e := newTestEngine(t, testConfig())

	e.Step(Window{VideoID: "v1", Frame: 4, TotalFrames: 8, Tubelets: []*tube.Track{
		tubelet(1, 0.9, 0, 4, boxA),
	}})

	res := e.Step(Window{VideoID: "v1", Frame: 8, TotalFrames: 8, Tubelets: []*tube.Track{
		tubelet(1, 0.9, 4, 4, boxA),
		tubelet(2, 0.7, 4, 4, boxB),
	}})

	require.Len(t, res, 1)
	assert.True(t, res[0].EndOfVideo)
	assert.Len(t, res[0].Finished, 2)
	assert.Empty(t, e.State().Open)
	assert.Equal(t, tube.Flushed, e.State().Phase)
	assert.Equal(t, "", e.VideoID())
}

func TestEngineVideoChangeFlushesPrevious(t *testing.T) {

	e := newTestEngine(t, testConfig())

	e.Step(Window{VideoID: "v1", Frame: 4, Tubelets: []*tube.Track{tubelet(1, 0.9, 0, 4, boxA)}})

	res := e.Step(Window{VideoID: "v2", Frame: 4, Tubelets: []*tube.Track{tubelet(2, 0.6, 0, 4, boxB)}})
	require.Len(t, res, 2)

	assert.Equal(t, "v1", res[0].VideoID)
	assert.True(t, res[0].EndOfVideo)
	require.Len(t, res[0].Finished, 1)
	assert.Equal(t, []int{0, 1, 2, 3}, res[0].Finished[0].FrameIDs())

	assert.Equal(t, "v2", res[1].VideoID)
	assert.False(t, res[1].EndOfVideo)
	assert.Empty(t, res[1].Finished)

	require.Len(t, e.State().Open, 1)
	class, ok := e.State().Open[0].Class()
	require.True(t, ok)
	assert.Equal(t, 2, class)

	// track IDs restart with the new video
	assert.Equal(t, []int64{1}, e.State().Open.IDs())
	assert.Equal(t, tube.SteadyState, e.State().Phase)
}

func TestEngineEmitOpen(t *testing.T) {

	cfg := testConfig()
	cfg.EmitOpen = true
	e := newTestEngine(t, cfg)

	res := e.Step(Window{VideoID: "v1", Frame: 4, Tubelets: []*tube.Track{
		tubelet(1, 0.9, 0, 4, boxA),
		tubelet(2, 0.9, 0, 4, boxB),
	}})

	require.Len(t, res, 1)
	assert.Equal(t, []int64{1, 2}, res[0].Open.IDs())

	// snapshot does not share the backing array with the engine state
	res[0].Open[0] = nil
	assert.NotNil(t, e.State().Open[0])
}

func TestEngineMinTrackScore(t *testing.T) {

	cfg := testConfig()
	cfg.MinTrackScore = 0.5
	e := newTestEngine(t, cfg)

	e.Step(Window{VideoID: "v1", Frame: 4, Tubelets: []*tube.Track{
		tubelet(1, 0.4, 0, 4, boxA),
		tubelet(2, 0.8, 0, 4, boxB),
	}})

	res := e.EndVideo()
	assert.True(t, res.EndOfVideo)
	assert.Equal(t, "v1", res.VideoID)
	require.Len(t, res.Finished, 1)
	assert.Equal(t, int64(2), res.Finished[0].ID)
	assert.Equal(t, tube.Flushed, e.State().Phase)
}

func TestEngineDecode(t *testing.T) {

	cfg := testConfig()
	cfg.NumFrames = 2
	cfg.Decode.ImageWidth = 100
	cfg.Decode.ImageHeight = 200
	cfg.Decode.MinScore = 0.1
	e := newTestEngine(t, cfg)

	rows := [][]float32{
		{0.1, 0.1, 0.5, 0.5, 0.2, 0.2, 0.6, 0.6, 0.05, 0.9, 0.05},
	}

	tubelets, err := e.Decode(rows, 10)
	require.NoError(t, err)
	require.Len(t, tubelets, 1)

	assert.Equal(t, []int{8, 9}, tubelets[0].FrameIDs())
	class, _ := tubelets[0].Class()
	assert.Equal(t, 1, class)

	_, err = e.Decode([][]float32{{0.1, 0.2}}, 10)
	assert.True(t, errors.Is(err, tube.ErrDecodeShape))
}

func TestEngineReset(t *testing.T) {

	e := newTestEngine(t, testConfig())

	e.Step(Window{VideoID: "v1", Frame: 4, Tubelets: []*tube.Track{tubelet(1, 0.9, 0, 4, boxA)}})
	e.Reset()

	assert.Empty(t, e.State().Open)
	assert.Equal(t, tube.NoOpenTracks, e.State().Phase)
	assert.Equal(t, "", e.VideoID())

	// a new video after a reset does not flush anything
	res := e.Step(Window{VideoID: "v2", Frame: 4, Tubelets: []*tube.Track{tubelet(2, 0.9, 0, 4, boxB)}})
	require.Len(t, res, 1)
	assert.Empty(t, res[0].Finished)
	assert.Equal(t, []int64{1}, e.State().Open.IDs())
}

func TestNewEngineInvalidConfig(t *testing.T) {

	cfg := testConfig()
	cfg.NumClasses = 1

	_, err := NewEngine(cfg)
	assert.True(t, errors.Is(err, ErrInvalidNumClasses))
}
