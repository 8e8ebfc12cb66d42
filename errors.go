package tubestitch

import (
	"errors"

	"github.com/swdee/go-tubestitch/tube"
)

// configuration errors, re-exported from the tube package
var (
	ErrInvalidTopK                = tube.ErrInvalidTopK
	ErrInvalidIoUThreshold        = tube.ErrInvalidIoUThreshold
	ErrInvalidContinuityThreshold = tube.ErrInvalidContinuityThreshold
	ErrInvalidNumFrames           = tube.ErrInvalidNumFrames
	ErrInvalidNumClasses          = tube.ErrInvalidNumClasses
)

// ErrInvalidMinTrackScore is returned when the finished track score filter is
// outside [0,1)
var ErrInvalidMinTrackScore = errors.New("min track score must be in the range [0,1)")
