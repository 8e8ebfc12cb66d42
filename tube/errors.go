package tube

import "errors"

var (
	// ErrInvalidTopK is returned when the NMS top k is not positive
	ErrInvalidTopK = errors.New("top k must be greater than zero")
	// ErrInvalidIoUThreshold is returned when the NMS IoU threshold is outside (0,1]
	ErrInvalidIoUThreshold = errors.New("iou threshold must be in the range (0,1]")
	// ErrInvalidContinuityThreshold is returned when the stitching threshold
	// is outside [0,1)
	ErrInvalidContinuityThreshold = errors.New("continuity threshold must be in the range [0,1)")
	// ErrInvalidNumFrames is returned when the tubelet window length is not positive
	ErrInvalidNumFrames = errors.New("number of frames must be greater than zero")
	// ErrInvalidNumClasses is returned when the class universe has no
	// foreground class
	ErrInvalidNumClasses = errors.New("number of classes must include background and at least one activity")
	// ErrDecodeShape is returned when a detector output row does not match the
	// expected window length
	ErrDecodeShape = errors.New("detector output has unexpected length")
)
