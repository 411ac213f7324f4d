package sqlite

import (
	"context"
	"fmt"

	"ecoscanner/internal/catalog"
	"ecoscanner/internal/model"
)

// HistoryRepository implements repository.HistoryRepository for SQLite.
type HistoryRepository struct {
	db *DB
}

// NewHistoryRepository creates a new SQLite history repository.
func NewHistoryRepository(db *DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Append records one committed impact record and returns its row id.
func (r *HistoryRepository) Append(ctx context.Context, username string, material catalog.Category, co2SavedKg float64) (int64, error) {
	if co2SavedKg < 0 {
		return 0, fmt.Errorf("co2 saved must not be negative, got %v", co2SavedKg)
	}

	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().ExecContext(ctx, `
		INSERT INTO history (username, material, co2_saved)
		VALUES (?, ?, ?)
	`, username, string(material), co2SavedKg)
	if err != nil {
		return 0, fmt.Errorf("failed to insert history entry: %w", err)
	}

	return result.LastInsertId()
}

// GetByUsername returns a user's entries, newest first.
func (r *HistoryRepository) GetByUsername(ctx context.Context, username string) ([]model.HistoryEntry, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().QueryContext(ctx, `
		SELECT id, username, material, co2_saved, timestamp
		FROM history
		WHERE username = ?
		ORDER BY timestamp DESC, id DESC
	`, username)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	entries := []model.HistoryEntry{}
	for rows.Next() {
		var e model.HistoryEntry
		var material string
		if err := rows.Scan(&e.ID, &e.Username, &material, &e.CO2SavedKg, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		e.Material = catalog.Category(material)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history: %w", err)
	}

	return entries, nil
}

// CountByUsername returns how many entries a user has committed.
func (r *HistoryRepository) CountByUsername(ctx context.Context, username string) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var count int
	if err := r.db.Conn().QueryRowContext(ctx, `SELECT COUNT(*) FROM history WHERE username = ?`, username).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count history: %w", err)
	}
	return count, nil
}

// Leaderboard sums CO2 per user, highest first. Ties are ordered by username.
func (r *HistoryRepository) Leaderboard(ctx context.Context) ([]model.LeaderboardEntry, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().QueryContext(ctx, `
		SELECT username, SUM(co2_saved) AS total
		FROM history
		GROUP BY username
		ORDER BY total DESC, username ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	entries := []model.LeaderboardEntry{}
	for rows.Next() {
		var e model.LeaderboardEntry
		if err := rows.Scan(&e.Username, &e.TotalCO2SavedKg); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		e.TotalCO2SavedKg = model.Round4(e.TotalCO2SavedKg)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate leaderboard: %w", err)
	}

	return entries, nil
}
