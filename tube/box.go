package tube

import (
	"math"
)

// BoundingBox is an axis aligned box in image pixel coordinates
type BoundingBox struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// NewBoundingBox creates a new BoundingBox from its corner coordinates
func NewBoundingBox(minX, minY, maxX, maxY float64) BoundingBox {
	return BoundingBox{
		MinX: minX,
		MinY: minY,
		MaxX: maxX,
		MaxY: maxY,
	}
}

// Width returns the width of the box
func (b BoundingBox) Width() float64 {
	return b.MaxX - b.MinX
}

// Height returns the height of the box
func (b BoundingBox) Height() float64 {
	return b.MaxY - b.MinY
}

// Area returns the area of the box.  Inverted boxes are not corrected so the
// result can be negative
func (b BoundingBox) Area() float64 {
	return b.Width() * b.Height()
}

// Clamp restricts the box coordinates to the image dimensions given
func (b BoundingBox) Clamp(width, height float64) BoundingBox {
	return BoundingBox{
		MinX: clamp(b.MinX, 0, width),
		MinY: clamp(b.MinY, 0, height),
		MaxX: clamp(b.MaxX, 0, width),
		MaxY: clamp(b.MaxY, 0, height),
	}
}

// IoU2D calculates the Intersection over Union of two boxes.  Boxes that do
// not overlap, and degenerate boxes with a zero sized union, return 0
func IoU2D(a, b BoundingBox) float64 {

	minX := math.Max(a.MinX, b.MinX)
	minY := math.Max(a.MinY, b.MinY)
	maxX := math.Min(a.MaxX, b.MaxX)
	maxY := math.Min(a.MaxY, b.MaxY)

	iw := maxX - minX
	ih := maxY - minY

	if iw <= 0 || ih <= 0 {
		return 0
	}

	intersection := iw * ih
	union := a.Area() + b.Area() - intersection

	if union <= 0 {
		return 0
	}

	return intersection / union
}

// clamp restricts val to be within the range min and max
func clamp(val, min, max float64) float64 {

	if val < min {
		return min
	}

	if val > max {
		return max
	}

	return val
}
