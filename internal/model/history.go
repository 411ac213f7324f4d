package model

import (
	"math"
	"sort"
	"time"

	"ecoscanner/internal/catalog"
)

// HistoryEntry is one committed impact record.
type HistoryEntry struct {
	ID         int64            `json:"id"`
	Username   string           `json:"username"`
	Material   catalog.Category `json:"material"`
	CO2SavedKg float64          `json:"co2SavedKg"`
	Timestamp  time.Time        `json:"timestamp"`
}

// LeaderboardEntry is a user's lifetime CO2 total.
type LeaderboardEntry struct {
	Username        string  `json:"username"`
	TotalCO2SavedKg float64 `json:"totalCo2SavedKg"`
}

// HistorySummary aggregates a user's history for the dashboard.
type HistorySummary struct {
	TotalCO2SavedKg   float64                      `json:"totalCo2SavedKg"`
	ItemCount         int                          `json:"itemCount"`
	MostFrequent      catalog.Category             `json:"mostFrequent,omitempty"`
	AverageCO2SavedKg float64                      `json:"averageCo2SavedKg"`
	PerMaterialCO2Kg  map[catalog.Category]float64 `json:"perMaterialCo2SavedKg"`
}

// Summarize computes totals over entries. Ties for the most frequent material
// go to the alphabetically first category so the result is deterministic.
func Summarize(entries []HistoryEntry) HistorySummary {
	summary := HistorySummary{
		PerMaterialCO2Kg: make(map[catalog.Category]float64),
	}
	if len(entries) == 0 {
		return summary
	}

	counts := make(map[catalog.Category]int)
	for _, e := range entries {
		summary.TotalCO2SavedKg += e.CO2SavedKg
		summary.PerMaterialCO2Kg[e.Material] += e.CO2SavedKg
		counts[e.Material]++
	}
	summary.ItemCount = len(entries)
	summary.TotalCO2SavedKg = Round4(summary.TotalCO2SavedKg)
	summary.AverageCO2SavedKg = Round4(summary.TotalCO2SavedKg / float64(len(entries)))
	for m, v := range summary.PerMaterialCO2Kg {
		summary.PerMaterialCO2Kg[m] = Round4(v)
	}

	materials := make([]catalog.Category, 0, len(counts))
	for m := range counts {
		materials = append(materials, m)
	}
	sort.Slice(materials, func(i, j int) bool {
		if counts[materials[i]] != counts[materials[j]] {
			return counts[materials[i]] > counts[materials[j]]
		}
		return materials[i] < materials[j]
	})
	summary.MostFrequent = materials[0]

	return summary
}

// Round4 rounds to four decimal places, half away from zero.
func Round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
