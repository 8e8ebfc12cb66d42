/*
Example replaying recorded tubelet detector output through the stitching
engine and saving the finished activity tracks to SQLite.

The input file has one JSON encoded window per line, either with decoded
tubelets or with the raw detector rows.  Videos are processed in parallel
using a pool of engines.
*/
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sync"

	"github.com/swdee/go-tubestitch"
	"github.com/swdee/go-tubestitch/store"
	"github.com/swdee/go-tubestitch/tube"
	"go.uber.org/zap"
)

// jsonState is a single frame of a tubelet in the input file
type jsonState struct {
	Frame      int        `json:"frame"`
	Box        [4]float64 `json:"box"`
	Class      int        `json:"class"`
	Confidence float64    `json:"confidence"`
}

// jsonWindow is one line of the input file
type jsonWindow struct {
	VideoID     string        `json:"video_id"`
	Frame       int           `json:"frame"`
	TotalFrames int           `json:"total_frames"`
	Tubelets    [][]jsonState `json:"tubelets"`
	Rows        [][]float32   `json:"rows"`
}

// video holds the windows of one video in input order
type video struct {
	id      string
	windows []jsonWindow
}

// Replay runs the windows of each video through an engine from the pool
type Replay struct {
	pool  *tubestitch.Pool
	store *store.Store
	log   *zap.Logger
}

// readWindows reads the input file and groups windows by video
func readWindows(file string) ([]*video, error) {

	f, err := os.Open(file)

	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}

	defer f.Close()

	var videos []*video
	byID := make(map[string]*video)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 64*1024*1024)

	line := 0

	for scanner.Scan() {
		line++

		if len(scanner.Bytes()) == 0 {
			continue
		}

		var w jsonWindow

		if err := json.Unmarshal(scanner.Bytes(), &w); err != nil {
			return nil, fmt.Errorf("line %d: failed to unmarshal JSON: %w", line, err)
		}

		v, exists := byID[w.VideoID]

		if !exists {
			v = &video{id: w.VideoID}
			byID[w.VideoID] = v
			videos = append(videos, v)
		}

		v.windows = append(v.windows, w)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	return videos, nil
}

// tubelets converts the decoded tubelets of a window
func tubelets(w jsonWindow) []*tube.Track {

	out := make([]*tube.Track, 0, len(w.Tubelets))

	for _, states := range w.Tubelets {

		t := tube.NewTrack()

		for _, s := range states {
			t.Append(tube.TrackState{
				FrameID: s.Frame,
				Detection: tube.Detection{
					Box:        tube.NewBoundingBox(s.Box[0], s.Box[1], s.Box[2], s.Box[3]),
					ClassID:    s.Class,
					Confidence: s.Confidence,
				},
			})
		}

		out = append(out, t)
	}

	return out
}

// runVideo stitches all windows of a video and saves the finished tracks
func (r *Replay) runVideo(ctx context.Context, v *video) (int, error) {

	engine := r.pool.Get()
	defer r.pool.Return(engine)

	runID, err := r.store.StartRun(ctx, v.id)

	if err != nil {
		return 0, err
	}

	saved := 0

	save := func(results []tubestitch.Result) error {
		for _, res := range results {
			if err := r.store.SaveTracks(ctx, runID, res.Finished); err != nil {
				return err
			}
			saved += res.Finished.Len()
		}
		return nil
	}

	ended := false

	for _, w := range v.windows {

		window := tubestitch.Window{
			VideoID:     v.id,
			Frame:       w.Frame,
			TotalFrames: w.TotalFrames,
			Tubelets:    tubelets(w),
		}

		if len(w.Rows) > 0 {
			decoded, err := engine.Decode(w.Rows, w.Frame)

			if err != nil {
				return saved, fmt.Errorf("video %s frame %d: %w", v.id, w.Frame, err)
			}

			window.Tubelets = append(window.Tubelets, decoded...)
		}

		results := engine.Step(window)

		if err := save(results); err != nil {
			return saved, err
		}

		if results[len(results)-1].EndOfVideo {
			ended = true
			break
		}
	}

	// input without a known frame count ends with the file
	if !ended {
		if err := save([]tubestitch.Result{engine.EndVideo()}); err != nil {
			return saved, err
		}
	}

	r.log.Info("video replayed",
		zap.String("video", v.id),
		zap.String("run", runID.String()),
		zap.Int("windows", len(v.windows)),
		zap.Int("tracks", saved),
	)

	return saved, nil
}

func main() {
	// read in cli flags
	configFile := flag.String("c", "data/config.yaml", "YAML configuration file")
	inputFile := flag.String("i", "data/windows.jsonl", "JSON lines file of detection windows")
	dbFile := flag.String("db", "tracks.db", "SQLite database to save finished tracks to")
	poolSize := flag.Int("s", 2, "Number of videos to process in parallel")

	flag.Parse()

	cfg, err := tubestitch.LoadConfig(*configFile)

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger, err := tubestitch.NewLogger(cfg.Log.Mode)

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}

	defer logger.Sync()

	ctx := context.Background()

	db, err := store.Open(ctx, *dbFile, logger)

	if err != nil {
		logger.Fatal("error opening store", zap.Error(err))
	}

	defer db.Close()

	pool, err := tubestitch.NewPool(*poolSize, cfg, tubestitch.WithLogger(logger))

	if err != nil {
		logger.Fatal("error creating engine pool", zap.Error(err))
	}

	defer pool.Close()

	videos, err := readWindows(*inputFile)

	if err != nil {
		logger.Fatal("error reading windows", zap.Error(err))
	}

	replay := &Replay{
		pool:  pool,
		store: db,
		log:   logger,
	}

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int
	)

	for _, v := range videos {
		wg.Add(1)

		go func(v *video) {
			defer wg.Done()

			n, err := replay.runVideo(ctx, v)

			if err != nil {
				logger.Error("error replaying video", zap.String("video", v.id), zap.Error(err))
			}

			mu.Lock()
			total += n
			mu.Unlock()
		}(v)
	}

	wg.Wait()

	logger.Info("replay complete",
		zap.Int("videos", len(videos)),
		zap.Int("tracks", total),
		zap.String("db", *dbFile),
	)
}
