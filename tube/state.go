package tube

// Phase is the stitching phase of a video
type Phase int

const (
	// NoOpenTracks is the phase at video start or when every track finished
	NoOpenTracks Phase = 0
	// SteadyState is the phase while at least one track is open
	SteadyState Phase = 1
	// Flushed is the phase after the end of video flush
	Flushed Phase = 2
)

// String returns the phase name
func (p Phase) String() string {
	switch p {
	case NoOpenTracks:
		return "no_open_tracks"
	case SteadyState:
		return "steady_state"
	case Flushed:
		return "flushed"
	}

	return "unknown"
}

// EngineState is the per video stitching state.  It is passed into and
// returned from each Stitcher call, the caller keeps it between windows and
// must start a new video from an empty EngineState
type EngineState struct {
	// Open are the tracks still waiting for a continuation, in the order they
	// were opened
	Open TrackSet
	// Finished are completed tracks not yet emitted, they are drained into
	// the batch returned by the next Stitcher call
	Finished TrackSet
	// Phase of the video
	Phase Phase
}

// phaseFor returns the phase matching the number of open tracks
func phaseFor(open TrackSet) Phase {

	if len(open) == 0 {
		return NoOpenTracks
	}

	return SteadyState
}
