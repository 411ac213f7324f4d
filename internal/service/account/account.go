// Package account creates and verifies user credentials. Plaintext passwords
// never leave this package.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"ecoscanner/internal/model"
	"ecoscanner/internal/repository"
)

// ErrInvalidCredentials is a validation failure on signup input.
var ErrInvalidCredentials = errors.New("username and password are required")

// ErrPasswordTooLong matches ErrInvalidCredentials. bcrypt only accepts up to
// 72 bytes.
var ErrPasswordTooLong = fmt.Errorf("%w: password must be at most %d bytes", ErrInvalidCredentials, maxPasswordBytes)

const maxPasswordBytes = 72

// Service hashes and checks passwords against a UserRepository.
type Service struct {
	users     repository.UserRepository
	cost      int
	dummyHash []byte
}

// NewService uses bcrypt.DefaultCost when cost is zero.
func NewService(users repository.UserRepository, cost int) (*Service, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	// Compared against when the user does not exist so both paths cost one
	// bcrypt comparison.
	dummy, err := bcrypt.GenerateFromPassword([]byte("ecoscanner-dummy-password"), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare dummy hash: %w", err)
	}
	return &Service{users: users, cost: cost, dummyHash: dummy}, nil
}

// NormalizeUsername returns the form under which a username is stored and
// carried in sessions.
func NormalizeUsername(username string) string {
	return strings.TrimSpace(username)
}

// CreateUser registers a user. It returns false and a nil error when the
// username is already taken.
func (s *Service) CreateUser(ctx context.Context, username, password, email string) (bool, error) {
	username = NormalizeUsername(username)
	if username == "" || password == "" {
		return false, ErrInvalidCredentials
	}
	if len(password) > maxPasswordBytes {
		return false, ErrPasswordTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return false, fmt.Errorf("failed to hash password: %w", err)
	}

	err = s.users.Create(ctx, &model.UserAccount{
		Username:     username,
		PasswordHash: string(hash),
		Email:        strings.TrimSpace(email),
	})
	if errors.Is(err, repository.ErrDuplicateUser) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create user: %w", err)
	}
	return true, nil
}

// VerifyUser reports whether password matches the stored hash for username.
// Unknown users return false with a nil error.
func (s *Service) VerifyUser(ctx context.Context, username, password string) (bool, error) {
	user, err := s.users.GetByUsername(ctx, NormalizeUsername(username))
	if err != nil {
		return false, fmt.Errorf("failed to load user: %w", err)
	}

	hash := s.dummyHash
	if user != nil {
		hash = []byte(user.PasswordHash)
	}

	match := bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
	return user != nil && match, nil
}
