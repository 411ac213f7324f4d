package model

import "math"

// BoundingBox is an axis-aligned box in pixel coordinates, X1<X2 and Y1<Y2.
type BoundingBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

func (b BoundingBox) Width() float64 {
	return math.Max(0, b.X2-b.X1)
}

func (b BoundingBox) Height() float64 {
	return math.Max(0, b.Y2-b.Y1)
}

// Area is width times height in square pixels.
func (b BoundingBox) Area() float64 {
	return b.Width() * b.Height()
}

// IoU returns the intersection over union of two boxes, 0 when disjoint.
func (b BoundingBox) IoU(other BoundingBox) float64 {
	ix1 := math.Max(b.X1, other.X1)
	iy1 := math.Max(b.Y1, other.Y1)
	ix2 := math.Min(b.X2, other.X2)
	iy2 := math.Min(b.Y2, other.Y2)

	inter := math.Max(0, ix2-ix1) * math.Max(0, iy2-iy1)
	if inter == 0 {
		return 0
	}
	union := b.Area() + other.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// Detection is one object found by the detector. Values are treated as
// immutable once produced.
type Detection struct {
	Label      string      `json:"label"`
	Confidence float64     `json:"confidence"`
	Box        BoundingBox `json:"box"`
}
