package dto

import (
	"encoding/json"
	"time"

	"ecoscanner/internal/model"
)

// HistoryItem is a committed record in the history view.
type HistoryItem struct {
	Material   string    `json:"material"`
	CO2SavedKg float64   `json:"co2SavedKg"`
	Timestamp  time.Time `json:"timestamp"`
}

// MarshalJSON adds display date and time-of-day fields next to the timestamp.
func (h HistoryItem) MarshalJSON() ([]byte, error) {
	type Alias HistoryItem
	return json.Marshal(&struct {
		Date      string `json:"date"`
		TimeOfDay string `json:"timeOfDay"`
		Alias
	}{
		Date:      h.Timestamp.Format("02-01-2006"),
		TimeOfDay: h.Timestamp.Format("15:04"),
		Alias:     (Alias)(h),
	})
}

// HistoryData is the response payload for GET /api/history.
type HistoryData struct {
	Entries []HistoryItem        `json:"entries"`
	Summary model.HistorySummary `json:"summary"`
}

// NewHistoryData builds the payload; entries keep their newest-first order.
func NewHistoryData(entries []model.HistoryEntry) HistoryData {
	items := make([]HistoryItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, HistoryItem{
			Material:   string(e.Material),
			CO2SavedKg: e.CO2SavedKg,
			Timestamp:  e.Timestamp,
		})
	}
	return HistoryData{Entries: items, Summary: model.Summarize(entries)}
}
