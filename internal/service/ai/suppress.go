package ai

import (
	"sort"

	"ecoscanner/internal/model"
)

// Filter keeps detections whose confidence is at least min.
func Filter(detections []model.Detection, min float64) []model.Detection {
	out := make([]model.Detection, 0, len(detections))
	for _, d := range detections {
		if d.Confidence >= min {
			out = append(out, d)
		}
	}
	return out
}

// Suppress performs greedy non-maximum suppression per label. A box whose IoU
// with a kept box of the same label is at least iouThreshold is dropped; boxes
// that do not overlap at all are always kept. The result is ordered by
// confidence descending; equal confidences keep input order.
func Suppress(detections []model.Detection, iouThreshold float64) []model.Detection {
	sorted := make([]model.Detection, len(detections))
	copy(sorted, detections)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	kept := make([]model.Detection, 0, len(sorted))
	for _, candidate := range sorted {
		suppressed := false
		for _, k := range kept {
			if k.Label != candidate.Label {
				continue
			}
			if iou := k.Box.IoU(candidate.Box); iou > 0 && iou >= iouThreshold {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, candidate)
		}
	}
	return kept
}
