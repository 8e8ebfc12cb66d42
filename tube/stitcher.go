package tube

import (
	"fmt"
)

// StitcherConfig holds the parameters of a Stitcher
type StitcherConfig struct {
	// NumClasses is the size of the class universe including background at 0
	NumClasses int
	// NMS are the per class tubelet suppression parameters
	NMS NMSParams
	// ContinuityThreshold is the boundary frame IoU a tubelet must exceed to
	// continue an open track
	ContinuityThreshold float64
}

// Validate checks the configuration is usable
func (c StitcherConfig) Validate() error {

	if c.NumClasses < 2 {
		return fmt.Errorf("num classes %d: %w", c.NumClasses, ErrInvalidNumClasses)
	}

	if err := c.NMS.Validate(); err != nil {
		return err
	}

	if c.ContinuityThreshold < 0 || c.ContinuityThreshold >= 1 {
		return fmt.Errorf("continuity threshold %v: %w", c.ContinuityThreshold,
			ErrInvalidContinuityThreshold)
	}

	return nil
}

// StepStats counts what happened to tracks and tubelets during one step
type StepStats struct {
	// Tubelets is the number of tubelets received
	Tubelets int
	// Pruned is the number of tubelets surviving NMS
	Pruned int
	// Continued is the number of open tracks extended by a tubelet
	Continued int
	// Finished is the number of tracks emitted as finished
	Finished int
	// Opened is the number of new tracks started from unmatched tubelets
	Opened int
}

// Stitcher assembles tubelets into activity tracks using greedy first match
// on the IoU between the last frame of an open track and the first frame of
// a tubelet
type Stitcher struct {
	cfg StitcherConfig
	ids *IDGenerator
}

// NewStitcher returns a Stitcher for the given configuration
func NewStitcher(cfg StitcherConfig) (*Stitcher, error) {

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid stitcher config: %w", err)
	}

	return &Stitcher{
		cfg: cfg,
		ids: NewIDGenerator(),
	}, nil
}

// Config returns the stitcher configuration
func (s *Stitcher) Config() StitcherConfig {
	return s.cfg
}

// Reset restarts track ID numbering, call it before stitching a new video
func (s *Stitcher) Reset() {
	s.ids.Reset()
}

// Prune runs tubelet NMS for every foreground class
func (s *Stitcher) Prune(tubelets []*Track) []*Track {
	return PruneWindow(tubelets, s.cfg.NumClasses, s.cfg.NMS)
}

// Step processes the tubelets of one detection window.  The returned state
// replaces the given one and the returned TrackSet holds the tracks that
// finished during this step
func (s *Stitcher) Step(state EngineState, tubelets []*Track) (EngineState, TrackSet, StepStats) {

	pruned := s.Prune(tubelets)

	next, finished, stats := s.Stitch(state, pruned)
	stats.Tubelets = len(tubelets)

	return next, finished, stats
}

// Stitch reconciles already pruned tubelets against the open tracks of the
// state.  Open tracks are visited in the order they were opened and each
// takes the first unmatched tubelet of the same class whose boundary IoU is
// above the continuity threshold.  Tracks without a continuation finish and
// unmatched tubelets open new tracks.  Matched open tracks are extended in
// place
func (s *Stitcher) Stitch(state EngineState, pruned []*Track) (EngineState, TrackSet, StepStats) {

	stats := StepStats{
		Tubelets: len(pruned),
		Pruned:   len(pruned),
	}

	// drain tracks finished earlier but not yet emitted
	finished := make(TrackSet, 0, len(state.Finished))
	finished = append(finished, state.Finished...)

	open := make(TrackSet, 0, len(state.Open)+len(pruned))
	matched := make([]bool, len(pruned))

	for _, track := range state.Open {

		idx := s.match(track, pruned, matched)

		if idx < 0 {
			finished = append(finished, track)
			continue
		}

		matched[idx] = true
		Merge(track, pruned[idx])
		open = append(open, track)
		stats.Continued++
	}

	for i, tubelet := range pruned {

		if matched[i] || tubelet == nil || tubelet.Empty() {
			continue
		}

		open = append(open, s.open(tubelet))
		stats.Opened++
	}

	stats.Finished = len(finished)

	return EngineState{
		Open:  open,
		Phase: phaseFor(open),
	}, finished, stats
}

// Flush finishes every open track, used at the end of a video.  The returned
// state is empty and in the Flushed phase
func (s *Stitcher) Flush(state EngineState) (EngineState, TrackSet) {

	finished := make(TrackSet, 0, len(state.Finished)+len(state.Open))
	finished = append(finished, state.Finished...)
	finished = append(finished, state.Open...)

	return EngineState{Phase: Flushed}, finished
}

// match returns the index of the first unmatched tubelet continuing the
// track, or -1 if there is none
func (s *Stitcher) match(track *Track, pruned []*Track, matched []bool) int {

	for i, tubelet := range pruned {

		if matched[i] || tubelet == nil {
			continue
		}

		if BoundaryIoU(track, tubelet) > s.cfg.ContinuityThreshold {
			return i
		}
	}

	return -1
}

// open creates a new track from the tubelet states and assigns it an ID.  The
// tubelet itself is left untouched
func (s *Stitcher) open(tubelet *Track) *Track {

	track := NewTubelet(tubelet.states...)
	track.ID = s.ids.Next()

	return track
}

// BoundaryIoU is the IoU between the box on the last frame of track and the
// box on the first frame of next.  Tracks of different class, or empty
// tracks, have no overlap
func BoundaryIoU(track, next *Track) float64 {

	last, ok := track.LastState()
	if !ok {
		return 0
	}

	first, ok := next.FirstState()
	if !ok {
		return 0
	}

	trackClass, _ := track.Class()

	if trackClass != first.Detection.ClassID {
		return 0
	}

	return IoU2D(last.Detection.Box, first.Detection.Box)
}
