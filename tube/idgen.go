package tube

import "sync/atomic"

// IDGenerator numbers the tracks opened by a Stitcher.  Numbering starts at 1
// and restarts with every video
type IDGenerator struct {
	last atomic.Int64
}

// NewIDGenerator returns a generator whose first ID is 1
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

// Next returns the next track ID
func (g *IDGenerator) Next() int64 {
	return g.last.Add(1)
}

// Reset restarts numbering so the next ID is 1
func (g *IDGenerator) Reset() {
	g.last.Store(0)
}
