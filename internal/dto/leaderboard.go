package dto

import "ecoscanner/internal/model"

var medals = []string{"Gold", "Silver", "Bronze"}

// LeaderboardRow is a ranked leaderboard entry. The top three carry a medal.
type LeaderboardRow struct {
	Rank            int     `json:"rank"`
	Username        string  `json:"username"`
	TotalCO2SavedKg float64 `json:"totalCo2SavedKg"`
	Medal           string  `json:"medal,omitempty"`
}

// NewLeaderboard ranks entries in the order given.
func NewLeaderboard(entries []model.LeaderboardEntry) []LeaderboardRow {
	rows := make([]LeaderboardRow, 0, len(entries))
	for i, e := range entries {
		row := LeaderboardRow{
			Rank:            i + 1,
			Username:        e.Username,
			TotalCO2SavedKg: e.TotalCO2SavedKg,
		}
		if i < len(medals) {
			row.Medal = medals[i]
		}
		rows = append(rows, row)
	}
	return rows
}
