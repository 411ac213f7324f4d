// Package correction relabels detections the model is known to confuse.
package correction

import "ecoscanner/internal/model"

// Corrector rewrites ClosureLabel to ContainerLabel when the box is larger than
// AreaThreshold square pixels.
type Corrector struct {
	ClosureLabel   string
	ContainerLabel string
	AreaThreshold  float64
}

// Default returns the corrector for the stock label set.
func Default() Corrector {
	return Corrector{
		ClosureLabel:   "Bottle cap",
		ContainerLabel: "Plastic container",
		AreaThreshold:  10000,
	}
}

// Correct returns a new slice of the same length and order. Only the label of
// a matching detection changes. Applying it twice gives the same result as
// applying it once.
func (c Corrector) Correct(detections []model.Detection) []model.Detection {
	out := make([]model.Detection, len(detections))
	for i, d := range detections {
		if d.Label == c.ClosureLabel && d.Box.Area() > c.AreaThreshold {
			d.Label = c.ContainerLabel
		}
		out[i] = d
	}
	return out
}
