package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"ecoscanner/internal/model"
	"ecoscanner/internal/repository"
)

// UserRepository implements repository.UserRepository for SQLite.
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new SQLite user repository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a user. A taken username yields repository.ErrDuplicateUser.
func (r *UserRepository) Create(ctx context.Context, user *model.UserAccount) error {
	r.db.Lock()
	defer r.db.Unlock()

	_, err := r.db.Conn().ExecContext(ctx, `
		INSERT INTO users (username, password_hash, email)
		VALUES (?, ?, ?)
	`, user.Username, user.PasswordHash, user.Email)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) &&
			(sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey || sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique) {
			return repository.ErrDuplicateUser
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetByUsername retrieves a user, or nil when none exists.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*model.UserAccount, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var user model.UserAccount
	var email sql.NullString
	err := r.db.Conn().QueryRowContext(ctx, `
		SELECT username, password_hash, email
		FROM users WHERE username = ?
	`, username).Scan(&user.Username, &user.PasswordHash, &email)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	user.Email = email.String
	return &user, nil
}
