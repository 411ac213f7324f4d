package dto

import (
	"math"
	"strings"

	"ecoscanner/internal/model"
)

// ScanRecord is one impact record as shown to the user.
type ScanRecord struct {
	Index             int               `json:"index"`
	Label             string            `json:"label"`
	Material          string            `json:"material"` // upper case, e.g. PLASTIC
	ConfidencePercent float64           `json:"confidencePercent"`
	CO2SavedKg        float64           `json:"co2SavedKg"`
	Box               model.BoundingBox `json:"box"`
}

// ScanResult is the response payload for POST /api/scan.
type ScanResult struct {
	ScanID         string       `json:"scanId,omitempty"`
	Records        []ScanRecord `json:"records"`
	AnnotatedImage string       `json:"annotatedImage,omitempty"` // base64 JPEG
	InferenceMs    int64        `json:"inferenceMs"`
	Message        string       `json:"message,omitempty"`
}

// NewScanRecords pairs records with the detections they came from.
func NewScanRecords(records []model.ImpactRecord, detections []model.Detection) []ScanRecord {
	out := make([]ScanRecord, 0, len(records))
	for i, r := range records {
		rec := ScanRecord{
			Index:             i,
			Label:             r.Label,
			Material:          strings.ToUpper(string(r.Material)),
			ConfidencePercent: math.Round(r.Confidence*1000) / 10,
			CO2SavedKg:        r.CO2SavedKg,
		}
		if i < len(detections) {
			rec.Box = detections[i].Box
		}
		out = append(out, rec)
	}
	return out
}

// CommitResult is the response payload for POST /api/scan/commit.
type CommitResult struct {
	ID         int64   `json:"id"`
	Label      string  `json:"label"`
	Material   string  `json:"material"`
	CO2SavedKg float64 `json:"co2SavedKg"`
}
