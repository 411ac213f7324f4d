package repository

import (
	"context"
	"errors"

	"ecoscanner/internal/catalog"
	"ecoscanner/internal/model"
)

// ErrDuplicateUser is returned by UserRepository.Create when the username is taken.
var ErrDuplicateUser = errors.New("username already exists")

// UserRepository defines the interface for user account operations.
type UserRepository interface {
	// Create operations
	Create(ctx context.Context, user *model.UserAccount) error

	// Read operations; a missing user yields (nil, nil)
	GetByUsername(ctx context.Context, username string) (*model.UserAccount, error)
}

// HistoryRepository defines the interface for the append-only impact history.
type HistoryRepository interface {
	// Create operations
	Append(ctx context.Context, username string, material catalog.Category, co2SavedKg float64) (int64, error)

	// Read operations
	GetByUsername(ctx context.Context, username string) ([]model.HistoryEntry, error)
	CountByUsername(ctx context.Context, username string) (int, error)
	Leaderboard(ctx context.Context) ([]model.LeaderboardEntry, error)
}
