package model

import "ecoscanner/internal/catalog"

// ImpactRecord is the environmental estimate for a single retained detection.
type ImpactRecord struct {
	Label      string           `json:"label"`
	Material   catalog.Category `json:"material"`
	Confidence float64          `json:"confidence"`
	CO2SavedKg float64          `json:"co2SavedKg"`
}
