package tube

import (
	"fmt"
)

// DecodeParams describe the layout of a tubelet detector output row
type DecodeParams struct {
	// NumFrames is the window length, each row starts with 4*NumFrames box
	// coordinates normalised to [0,1]
	NumFrames int
	// NumClasses is the number of class scores that follow the boxes,
	// including background at index 0
	NumClasses int
	// ImageWidth and ImageHeight are the source video dimensions used to
	// scale the normalised coordinates into pixels
	ImageWidth  int
	ImageHeight int
	// MinScore drops class tubelets whose score is not above it
	MinScore float32
}

// Decode converts the rows output by the tubelet detector for the window
// ending at lastFrame into tubelets.  One tubelet is created per row and per
// foreground class, the class score is used as the confidence of every frame.
// Frames are numbered lastFrame-NumFrames up to lastFrame-1
func Decode(rows [][]float32, lastFrame int, p DecodeParams) ([]*Track, error) {

	boxLen := 4 * p.NumFrames
	rowLen := boxLen + p.NumClasses

	w := float64(p.ImageWidth)
	h := float64(p.ImageHeight)

	var tubelets []*Track

	for r, row := range rows {

		if len(row) != rowLen {
			return nil, fmt.Errorf("row %d has %d values, expected %d: %w",
				r, len(row), rowLen, ErrDecodeShape)
		}

		boxes := make([]BoundingBox, p.NumFrames)

		for i := 0; i < p.NumFrames; i++ {
			boxes[i] = NewBoundingBox(
				float64(row[4*i])*w,
				float64(row[4*i+1])*h,
				float64(row[4*i+2])*w,
				float64(row[4*i+3])*h,
			).Clamp(w, h)
		}

		for classID, score := range row[boxLen:] {

			// ignore background
			if classID == 0 || score <= p.MinScore {
				continue
			}

			tubelet := NewTrack()

			for i, box := range boxes {
				tubelet.Append(TrackState{
					FrameID: lastFrame - p.NumFrames + i,
					Detection: Detection{
						Box:        box,
						ClassID:    classID,
						Confidence: float64(score),
					},
				})
			}

			tubelets = append(tubelets, tubelet)
		}
	}

	return tubelets, nil
}
