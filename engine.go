package tubestitch

import (
	"fmt"

	"github.com/swdee/go-tubestitch/tube"
	"go.uber.org/zap"
)

// Window is the output of the tubelet detector for one detection window
type Window struct {
	// VideoID identifies the video the window belongs to
	VideoID string
	// Frame is the index of the last frame covered by the window
	Frame int
	// TotalFrames is the number of frames in the video, when Frame reaches
	// it the video ends and all open tracks are flushed.  Zero means unknown
	TotalFrames int
	// Tubelets produced by the detector for this window
	Tubelets []*tube.Track
}

// Result is emitted by the Engine for every processed window and for every
// flushed video
type Result struct {
	// VideoID is the video the tracks belong to
	VideoID string
	// Frame is the frame of the window that produced the result
	Frame int
	// Finished are the tracks completed by this step
	Finished tube.TrackSet
	// Open is a snapshot of the open tracks, only set when Config.EmitOpen
	// is enabled
	Open tube.TrackSet
	// EndOfVideo is set when the result closes the video
	EndOfVideo bool
	// Stats of the stitching step
	Stats tube.StepStats
}

// Engine runs the tube stitcher over a stream of detection windows for one
// video at a time.  It is not safe for concurrent use, use one Engine per
// worker
type Engine struct {
	cfg      Config
	stitcher *tube.Stitcher
	state    tube.EngineState
	videoID  string
	log      *zap.Logger
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the logger used by the Engine
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// NewEngine validates the configuration and returns a new Engine
func NewEngine(cfg Config, opts ...Option) (*Engine, error) {

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	stitcher, err := tube.NewStitcher(cfg.StitcherConfig())

	if err != nil {
		return nil, fmt.Errorf("error creating stitcher: %w", err)
	}

	e := &Engine{
		cfg:      cfg,
		stitcher: stitcher,
		log:      zap.NewNop(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Config returns the engine configuration
func (e *Engine) Config() Config {
	return e.cfg
}

// State returns the current stitching state
func (e *Engine) State() tube.EngineState {
	return e.state
}

// VideoID returns the ID of the video being processed, empty when idle
func (e *Engine) VideoID() string {
	return e.videoID
}

// Decode converts raw detector rows for the window ending at lastFrame into
// tubelets using the configured window length and image size
func (e *Engine) Decode(rows [][]float32, lastFrame int) ([]*tube.Track, error) {
	return tube.Decode(rows, lastFrame, e.cfg.DecodeParams())
}

// Step processes one window.  When the window starts a different video than
// the one in progress the previous video is flushed first and its Result is
// returned ahead of the Result for the window, so a step returns one or two
// Results
func (e *Engine) Step(w Window) []Result {

	var results []Result

	if w.VideoID != e.videoID {

		if e.videoID != "" {
			e.log.Warn("video changed without end of video, flushing",
				zap.String("previous", e.videoID),
				zap.String("video", w.VideoID),
				zap.Int("open", len(e.state.Open)),
			)
			results = append(results, e.EndVideo())
		}

		e.videoID = w.VideoID
		e.log.Info("video started", zap.String("video", w.VideoID))
	}

	next, finished, stats := e.stitcher.Step(e.state, w.Tubelets)
	e.state = next

	e.log.Debug("window processed",
		zap.String("video", w.VideoID),
		zap.Int("frame", w.Frame),
		zap.Int("tubelets", stats.Tubelets),
		zap.Int("pruned", stats.Pruned),
		zap.Int("continued", stats.Continued),
		zap.Int("finished", stats.Finished),
		zap.Int("opened", stats.Opened),
		zap.String("phase", next.Phase.String()),
	)

	res := Result{
		VideoID:  w.VideoID,
		Frame:    w.Frame,
		Finished: finished,
		Stats:    stats,
	}

	if w.TotalFrames > 0 && w.Frame >= w.TotalFrames {
		flushed := e.EndVideo()
		res.Finished = append(res.Finished, flushed.Finished...)
		res.EndOfVideo = true
	} else if e.cfg.EmitOpen {
		res.Open = append(tube.TrackSet(nil), e.state.Open...)
	}

	res.Finished = res.Finished.FilterByScore(e.cfg.MinTrackScore)

	return append(results, res)
}

// EndVideo flushes all open tracks of the current video into a finished
// Result.  The engine is left in the Flushed phase and the next window starts
// a new video with track IDs numbered from 1
func (e *Engine) EndVideo() Result {

	state, finished := e.stitcher.Flush(e.state)

	res := Result{
		VideoID:    e.videoID,
		Finished:   finished.FilterByScore(e.cfg.MinTrackScore),
		EndOfVideo: true,
	}

	e.log.Info("video ended",
		zap.String("video", e.videoID),
		zap.Int("flushed", len(finished)),
		zap.String("phase", state.Phase.String()),
	)

	e.state = state
	e.videoID = ""
	e.stitcher.Reset()

	return res
}

// Reset discards all state without emitting open tracks
func (e *Engine) Reset() {
	e.state = tube.EngineState{}
	e.videoID = ""
	e.stitcher.Reset()
}
