package tube

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// NMSParams are the parameters for tubelet Non-Maximum Suppression
type NMSParams struct {
	// NumFrames is the tubelet window length
	NumFrames int
	// IoUThreshold is the tube IoU above which a lower scoring tubelet is
	// suppressed, must be in the range (0,1]
	IoUThreshold float64
	// TopK is the maximum number of tubelets kept per class
	TopK int
}

// Validate checks the parameters are usable
func (p NMSParams) Validate() error {

	if p.NumFrames <= 0 {
		return fmt.Errorf("nms num frames %d: %w", p.NumFrames, ErrInvalidNumFrames)
	}

	if p.IoUThreshold <= 0 || p.IoUThreshold > 1 {
		return fmt.Errorf("nms iou threshold %v: %w", p.IoUThreshold, ErrInvalidIoUThreshold)
	}

	if p.TopK <= 0 {
		return fmt.Errorf("nms top k %d: %w", p.TopK, ErrInvalidTopK)
	}

	return nil
}

// NMSTubelets performs greedy Non-Maximum Suppression over the tubelets of a
// single class.  The indices of the surviving tubelets within the given slice
// are returned, highest confidence first, with at most TopK entries
func NMSTubelets(tubelets []*Track, classID int, p NMSParams) []int {

	// filter tubelets down to the requested class
	var ids []int

	for i, t := range tubelets {

		if t == nil || t.Empty() {
			continue
		}

		if class, _ := t.Class(); class == classID {
			ids = append(ids, i)
		}
	}

	if len(ids) == 0 || p.NumFrames <= 0 || p.TopK <= 0 {
		return []int{}
	}

	dets := scoreMatrix(tubelets, ids, p.NumFrames)
	confCol := 4 * p.NumFrames

	// order rows by confidence descending, equal scores keep input order
	order := make([]int, len(ids))
	for i := range order {
		order[i] = i
	}

	sort.SliceStable(order, func(a, b int) bool {
		return dets.At(order[a], confCol) > dets.At(order[b], confCol)
	})

	suppressed := make([]bool, len(ids))
	keep := make([]int, 0, min(p.TopK, len(ids)))

	for i, n := range order {

		if suppressed[n] {
			continue
		}

		keep = append(keep, ids[n])

		if len(keep) >= p.TopK {
			break
		}

		for _, m := range order[i+1:] {

			if suppressed[m] {
				continue
			}

			if tubeIoU(dets, n, m, p.NumFrames) > p.IoUThreshold {
				suppressed[m] = true
			}
		}
	}

	return keep
}

// PruneWindow runs NMSTubelets for every foreground class in the range
// [1,numClasses) and returns the surviving tubelets in class order.  Class 0
// is background and always skipped
func PruneWindow(tubelets []*Track, numClasses int, p NMSParams) []*Track {

	var pruned []*Track

	for classID := 1; classID < numClasses; classID++ {
		for _, idx := range NMSTubelets(tubelets, classID, p) {
			pruned = append(pruned, tubelets[idx])
		}
	}

	return pruned
}

// scoreMatrix builds one row per tubelet holding the frame relative box
// coordinates (min x, min y, max x, max y) for each window position followed
// by the tubelet confidence in the last column.  Positions without a state are
// left as a zero box
func scoreMatrix(tubelets []*Track, ids []int, numFrames int) *mat.Dense {

	cols := 4*numFrames + 1
	dets := mat.NewDense(len(ids), cols, nil)

	for row, id := range ids {

		t := tubelets[id]
		first := t.FirstFrame()

		for _, s := range t.states {

			pos := s.FrameID - first

			// states outside the window do not take part in suppression
			if pos >= numFrames {
				continue
			}

			box := s.Detection.Box
			dets.Set(row, 4*pos, box.MinX)
			dets.Set(row, 4*pos+1, box.MinY)
			dets.Set(row, 4*pos+2, box.MaxX)
			dets.Set(row, 4*pos+3, box.MaxY)
		}

		dets.Set(row, cols-1, t.Confidence())
	}

	return dets
}

// tubeIoU is the mean IoU2D of the frame aligned boxes of two rows of the
// score matrix.  A position filled in only one row has a zero box in the other
// and so contributes no overlap
func tubeIoU(dets *mat.Dense, a, b, numFrames int) float64 {

	var sum float64

	for pos := 0; pos < numFrames; pos++ {
		sum += IoU2D(rowBox(dets, a, pos), rowBox(dets, b, pos))
	}

	return sum / float64(numFrames)
}

// rowBox reads the box at the window position of a score matrix row
func rowBox(dets *mat.Dense, row, pos int) BoundingBox {
	return NewBoundingBox(
		dets.At(row, 4*pos),
		dets.At(row, 4*pos+1),
		dets.At(row, 4*pos+2),
		dets.At(row, 4*pos+3),
	)
}
