package account

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"ecoscanner/internal/repository/sqlite"
)

func newService(t *testing.T) (*Service, *sqlite.UserRepository) {
	t.Helper()
	db, err := sqlite.New(filepath.Join(t.TempDir(), "accounts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	users := sqlite.NewUserRepository(db)
	svc, err := NewService(users, bcrypt.MinCost)
	require.NoError(t, err)
	return svc, users
}

func TestCreateAndVerify(t *testing.T) {
	svc, users := newService(t)
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, "alice", "s3cret", "alice@example.com")
	require.NoError(t, err)
	assert.True(t, created)

	stored, err := users.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", stored.PasswordHash)

	ok, err := svc.VerifyUser(ctx, "alice", "s3cret")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.VerifyUser(ctx, "alice", "wrong")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCreateUser_Duplicate(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, "bob", "original", "")
	require.NoError(t, err)
	require.True(t, created)

	created, err = svc.CreateUser(ctx, "bob", "replacement", "")
	require.NoError(t, err)
	assert.False(t, created)

	ok, err := svc.VerifyUser(ctx, "bob", "original")
	require.NoError(t, err)
	assert.True(t, ok, "original password still verifies")

	ok, err = svc.VerifyUser(ctx, "bob", "replacement")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCreateUser_Validation(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.CreateUser(context.Background(), "  ", "pw", "")
	assert.True(t, errors.Is(err, ErrInvalidCredentials))

	_, err = svc.CreateUser(context.Background(), "eve", "", "")
	assert.True(t, errors.Is(err, ErrInvalidCredentials))

	_, err = svc.CreateUser(context.Background(), "eve", strings.Repeat("x", 73), "")
	assert.True(t, errors.Is(err, ErrInvalidCredentials))
	assert.True(t, errors.Is(err, ErrPasswordTooLong))

	created, err := svc.CreateUser(context.Background(), "eve", strings.Repeat("x", 72), "")
	require.NoError(t, err)
	assert.True(t, created)
}

func TestVerifyUser_Unknown(t *testing.T) {
	svc, _ := newService(t)

	ok, err := svc.VerifyUser(context.Background(), "ghost", "anything")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.VerifyUser(context.Background(), "ghost", "ecoscanner-dummy-password")
	require.NoError(t, err)
	assert.False(t, ok, "dummy hash never authenticates")
}
