package tube

// TrackSet is a batch of tracks exchanged with the rest of the pipeline
type TrackSet []*Track

// Len returns the number of tracks in the set
func (ts TrackSet) Len() int {
	return len(ts)
}

// IDs returns the ID of every track in set order
func (ts TrackSet) IDs() []int64 {

	ids := make([]int64, 0, len(ts))

	for _, t := range ts {
		ids = append(ids, t.ID)
	}

	return ids
}

// FilterByScore returns the tracks whose mean confidence is above minScore.
// A minScore of zero or less returns the set unchanged
func (ts TrackSet) FilterByScore(minScore float64) TrackSet {

	if minScore <= 0 {
		return ts
	}

	out := make(TrackSet, 0, len(ts))

	for _, t := range ts {
		if t.Score() > minScore {
			out = append(out, t)
		}
	}

	return out
}
