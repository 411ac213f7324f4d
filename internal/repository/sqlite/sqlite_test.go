package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"ecoscanner/internal/catalog"
	"ecoscanner/internal/model"
	"ecoscanner/internal/repository"
)

var (
	_ repository.UserRepository    = (*UserRepository)(nil)
	_ repository.HistoryRepository = (*HistoryRepository)(nil)
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

// ========================================
// Database Tests
// ========================================

func TestDatabase_Connection(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "test.db")
	db, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file should exist")
	}
	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestDatabase_MigrationIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	first, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	if _, err := NewHistoryRepository(first).Append(context.Background(), "alice", catalog.Glass, 0.0125); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	first.Close()

	second, err := New(dbPath)
	if err != nil {
		t.Fatalf("Reopening database failed: %v", err)
	}
	defer second.Close()

	count, err := NewHistoryRepository(second).CountByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected data to survive reopen, got %d rows", count)
	}
}

// ========================================
// User Repository Tests
// ========================================

func TestUserRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := &model.UserAccount{Username: "alice", PasswordHash: "hash", Email: "alice@example.com"}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := repo.GetByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("GetByUsername failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected user, got nil")
	}
	if got.PasswordHash != "hash" || got.Email != "alice@example.com" {
		t.Errorf("Unexpected user: %+v", got)
	}
}

func TestUserRepository_GetMissing(t *testing.T) {
	repo := NewUserRepository(setupTestDB(t))

	got, err := repo.GetByUsername(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got != nil {
		t.Errorf("Expected nil user, got %+v", got)
	}
}

func TestUserRepository_Duplicate(t *testing.T) {
	repo := NewUserRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Create(ctx, &model.UserAccount{Username: "bob", PasswordHash: "first"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	err := repo.Create(ctx, &model.UserAccount{Username: "bob", PasswordHash: "second"})
	if err != repository.ErrDuplicateUser {
		t.Fatalf("Expected ErrDuplicateUser, got %v", err)
	}

	got, _ := repo.GetByUsername(ctx, "bob")
	if got.PasswordHash != "first" {
		t.Errorf("Original account was modified: %+v", got)
	}
}

func TestUserRepository_DuplicateEmailAllowed(t *testing.T) {
	repo := NewUserRepository(setupTestDB(t))
	ctx := context.Background()

	for _, name := range []string{"carol", "dave"} {
		if err := repo.Create(ctx, &model.UserAccount{Username: name, PasswordHash: "h", Email: "shared@example.com"}); err != nil {
			t.Fatalf("Create %s failed: %v", name, err)
		}
	}
}

// ========================================
// History Repository Tests
// ========================================

func TestHistoryRepository_NewestFirst(t *testing.T) {
	repo := NewHistoryRepository(setupTestDB(t))
	ctx := context.Background()

	values := []float64{1.0, 2.5, 0.25}
	for _, v := range values {
		if _, err := repo.Append(ctx, "alice", catalog.Plastic, v); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	entries, err := repo.GetByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("GetByUsername failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}

	for i, want := range []float64{0.25, 2.5, 1.0} {
		if entries[i].CO2SavedKg != want {
			t.Errorf("Entry %d: expected %v, got %v", i, want, entries[i].CO2SavedKg)
		}
		if entries[i].Timestamp.IsZero() {
			t.Errorf("Entry %d has no timestamp", i)
		}
	}

	summary := model.Summarize(entries)
	if summary.TotalCO2SavedKg != 3.75 {
		t.Errorf("Expected total 3.75, got %v", summary.TotalCO2SavedKg)
	}
}

func TestHistoryRepository_Isolation(t *testing.T) {
	repo := NewHistoryRepository(setupTestDB(t))
	ctx := context.Background()

	repo.Append(ctx, "alice", catalog.Glass, 0.0125)
	repo.Append(ctx, "bob", catalog.Metal, 0.1625)

	entries, err := repo.GetByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("GetByUsername failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Material != catalog.Glass {
		t.Errorf("Unexpected entries for alice: %+v", entries)
	}

	empty, err := repo.GetByUsername(ctx, "nobody")
	if err != nil {
		t.Fatalf("GetByUsername failed: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("Expected empty non-nil slice, got %#v", empty)
	}
}

func TestHistoryRepository_RejectsNegative(t *testing.T) {
	repo := NewHistoryRepository(setupTestDB(t))

	if _, err := repo.Append(context.Background(), "alice", catalog.Other, -0.1); err == nil {
		t.Error("Expected error for negative co2")
	}
}

func TestHistoryRepository_Leaderboard(t *testing.T) {
	repo := NewHistoryRepository(setupTestDB(t))
	ctx := context.Background()

	inserts := []struct {
		user string
		co2  float64
	}{
		{"alice", 1.0}, {"alice", 2.5}, {"alice", 0.25},
		{"bob", 5.0},
		{"carol", 0.5}, {"carol", 0.5},
	}
	for _, in := range inserts {
		if _, err := repo.Append(ctx, in.user, catalog.Plastic, in.co2); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	board, err := repo.Leaderboard(ctx)
	if err != nil {
		t.Fatalf("Leaderboard failed: %v", err)
	}

	expected := []model.LeaderboardEntry{
		{Username: "bob", TotalCO2SavedKg: 5.0},
		{Username: "alice", TotalCO2SavedKg: 3.75},
		{Username: "carol", TotalCO2SavedKg: 1.0},
	}
	if len(board) != len(expected) {
		t.Fatalf("Expected %d entries, got %d", len(expected), len(board))
	}
	for i := range expected {
		if board[i] != expected[i] {
			t.Errorf("Rank %d: expected %+v, got %+v", i+1, expected[i], board[i])
		}
	}
}

func TestHistoryRepository_ConcurrentAppends(t *testing.T) {
	repo := NewHistoryRepository(setupTestDB(t))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			if _, err := repo.Append(ctx, fmt.Sprintf("user%d", idx%3), catalog.Paper, 0.0225); err != nil {
				t.Errorf("Concurrent append %d failed: %v", idx, err)
			}
		}(i)
	}
	wg.Wait()

	board, err := repo.Leaderboard(ctx)
	if err != nil {
		t.Fatalf("Leaderboard failed: %v", err)
	}
	var total int
	for _, e := range board {
		n, _ := repo.CountByUsername(ctx, e.Username)
		total += n
	}
	if total != 10 {
		t.Errorf("Expected 10 rows, got %d", total)
	}
}
