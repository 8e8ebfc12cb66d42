package tube

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Detection is a single per frame result produced by the external detector
type Detection struct {
	// Box is the bounding box of the actor in image pixels
	Box BoundingBox
	// ClassID is the activity class predicted, 0 is reserved for background
	ClassID int
	// Confidence is the detector score in the range [0,1]
	Confidence float64
}

// TrackState is the detection of a Track on a single frame
type TrackState struct {
	FrameID   int
	Detection Detection
}

// Track is a sequence of per frame detections for one actor.  States are kept
// in insertion order and indexed by frame ID, a frame can only appear once
type Track struct {
	// ID is a unique ID assigned when the track is opened by a Stitcher,
	// tubelets that have not been stitched yet have an ID of 0
	ID int64
	// states in order of insertion
	states []TrackState
	// index maps frame ID to position in states
	index map[int]int
}

// NewTrack creates an empty Track
func NewTrack() *Track {
	return &Track{
		index: make(map[int]int),
	}
}

// NewTubelet creates a Track from the given states, states with a frame ID
// already seen are dropped
func NewTubelet(states ...TrackState) *Track {

	t := NewTrack()

	for _, s := range states {
		t.Append(s)
	}

	return t
}

// Append adds the state to the end of the track.  It returns false and leaves
// the track unchanged if a state for the same frame already exists
func (t *Track) Append(s TrackState) bool {

	if t.index == nil {
		t.index = make(map[int]int)
	}

	if _, exists := t.index[s.FrameID]; exists {
		return false
	}

	t.index[s.FrameID] = len(t.states)
	t.states = append(t.states, s)

	return true
}

// Has returns true if the track has a state on the given frame
func (t *Track) Has(frameID int) bool {
	_, exists := t.index[frameID]
	return exists
}

// State returns the state recorded on the given frame
func (t *Track) State(frameID int) (TrackState, bool) {

	pos, exists := t.index[frameID]

	if !exists {
		return TrackState{}, false
	}

	return t.states[pos], true
}

// Len returns the number of states in the track
func (t *Track) Len() int {
	return len(t.states)
}

// Empty returns true if the track has no states
func (t *Track) Empty() bool {
	return len(t.states) == 0
}

// States returns a copy of the track states in insertion order
func (t *Track) States() []TrackState {
	out := make([]TrackState, len(t.states))
	copy(out, t.states)
	return out
}

// SortedStates returns a copy of the track states ordered by frame ID
func (t *Track) SortedStates() []TrackState {

	out := t.States()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FrameID < out[j].FrameID
	})

	return out
}

// FrameIDs returns the frame IDs covered by the track in ascending order
func (t *Track) FrameIDs() []int {

	ids := make([]int, 0, len(t.states))

	for _, s := range t.states {
		ids = append(ids, s.FrameID)
	}

	sort.Ints(ids)

	return ids
}

// FirstFrame returns the lowest frame ID in the track, or -1 if empty
func (t *Track) FirstFrame() int {

	first, ok := t.first()

	if !ok {
		return -1
	}

	return first.FrameID
}

// LastFrame returns the highest frame ID in the track, or -1 if empty
func (t *Track) LastFrame() int {

	last, ok := t.last()

	if !ok {
		return -1
	}

	return last.FrameID
}

// FirstState returns the state on the lowest frame ID
func (t *Track) FirstState() (TrackState, bool) {
	return t.first()
}

// LastState returns the state on the highest frame ID
func (t *Track) LastState() (TrackState, bool) {
	return t.last()
}

// Class returns the predicted class of the track which is taken from the
// detection on its first frame.  Returns false for an empty track
func (t *Track) Class() (int, bool) {

	first, ok := t.first()

	if !ok {
		return 0, false
	}

	return first.Detection.ClassID, true
}

// Confidence returns the confidence of the detection on the first frame,
// this is the anchor score used when ranking tubelets
func (t *Track) Confidence() float64 {

	first, ok := t.first()

	if !ok {
		return 0
	}

	return first.Detection.Confidence
}

// Score returns the mean detection confidence across all states of the track
func (t *Track) Score() float64 {

	if len(t.states) == 0 {
		return 0
	}

	conf := make([]float64, len(t.states))

	for i, s := range t.states {
		conf[i] = s.Detection.Confidence
	}

	return stat.Mean(conf, nil)
}

// first finds the state with the lowest frame ID
func (t *Track) first() (TrackState, bool) {

	if len(t.states) == 0 {
		return TrackState{}, false
	}

	first := t.states[0]

	for _, s := range t.states[1:] {
		if s.FrameID < first.FrameID {
			first = s
		}
	}

	return first, true
}

// last finds the state with the highest frame ID
func (t *Track) last() (TrackState, bool) {

	if len(t.states) == 0 {
		return TrackState{}, false
	}

	last := t.states[0]

	for _, s := range t.states[1:] {
		if s.FrameID > last.FrameID {
			last = s
		}
	}

	return last, true
}

// Merge appends every state of the tubelet to the track unless the track
// already holds a state on that frame.  The track is modified in place and
// returned
func Merge(track, tubelet *Track) *Track {

	for _, s := range tubelet.states {
		track.Append(s)
	}

	return track
}
