package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"habits-backend/internal/models"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(context.Background(), Config{
		Driver: DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "nested", "habits.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpen_MigrationsAreIdempotent(t *testing.T) {
	db := setupDB(t)
	require.NoError(t, Migrate(context.Background(), db, DriverSQLite))

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('users', 'sessions')`).Scan(&n))
	assert.Equal(t, 2, n)
}

func TestOpen_InMemory(t *testing.T) {
	db, err := Open(context.Background(), Config{Driver: DriverSQLite, Path: ":memory:"})
	require.NoError(t, err)
	defer db.Close()

	repo := NewUserRepo(db)
	require.NoError(t, repo.Create(context.Background(), &models.User{Username: "alice", PasswordHash: "h"}))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "mysql"})
	assert.Error(t, err)
}

func TestUserRepo(t *testing.T) {
	db := setupDB(t)
	repo := NewUserRepo(db)
	ctx := context.Background()

	user := &models.User{Username: "alice", PasswordHash: "hash-1"}
	require.NoError(t, repo.Create(ctx, user))
	assert.NotEmpty(t, user.ID)
	assert.False(t, user.CreatedAt.IsZero())

	got, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "hash-1", got.PasswordHash)

	got, err = repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	_, err = repo.GetByUsername(ctx, "ALICE")
	assert.ErrorIs(t, err, ErrUserNotFound, "lookup is case sensitive")

	err = repo.Create(ctx, &models.User{Username: "alice", PasswordHash: "x"})
	assert.ErrorIs(t, err, ErrUserAlreadyExists)

	require.NoError(t, repo.UpdatePasswordHash(ctx, user.ID, "hash-2"))
	got, err = repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "hash-2", got.PasswordHash)

	assert.ErrorIs(t, repo.UpdatePasswordHash(ctx, "missing", "h"), ErrUserNotFound)
	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestSessionRepo(t *testing.T) {
	db := setupDB(t)
	users := NewUserRepo(db)
	repo := NewSessionRepo(db)
	ctx := context.Background()

	user := &models.User{Username: "alice", PasswordHash: "h"}
	require.NoError(t, users.Create(ctx, user))

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	session := &models.Session{
		ID:        "s-1",
		UserID:    user.ID,
		TokenHash: "digest-1",
		CSRFToken: "csrf-1",
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
	require.NoError(t, repo.Create(ctx, session))

	got, err := repo.GetByTokenHash(ctx, "digest-1")
	require.NoError(t, err)
	assert.Equal(t, "s-1", got.ID)
	assert.Equal(t, user.ID, got.UserID)
	assert.Equal(t, "csrf-1", got.CSRFToken)
	assert.True(t, got.ExpiresAt.Equal(session.ExpiresAt))

	dup := *session
	dup.ID = "s-2"
	assert.ErrorIs(t, repo.Create(ctx, &dup), ErrSessionConflict)

	_, err = repo.GetByTokenHash(ctx, "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, repo.DeleteByTokenHash(ctx, "digest-1"))
	require.NoError(t, repo.DeleteByTokenHash(ctx, "digest-1"))
	require.NoError(t, repo.Delete(ctx, "s-1"))

	_, err = repo.GetByTokenHash(ctx, "digest-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionRepo_DeleteExpired(t *testing.T) {
	db := setupDB(t)
	users := NewUserRepo(db)
	repo := NewSessionRepo(db)
	ctx := context.Background()

	user := &models.User{Username: "alice", PasswordHash: "h"}
	require.NoError(t, users.Create(ctx, user))

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, ttl := range []time.Duration{-time.Hour, 0, time.Hour} {
		require.NoError(t, repo.Create(ctx, &models.Session{
			ID:        string(rune('a' + i)),
			UserID:    user.ID,
			TokenHash: string(rune('A' + i)),
			CSRFToken: "c",
			CreatedAt: now.Add(-2 * time.Hour),
			ExpiresAt: now.Add(ttl),
		}))
	}

	// expiry exactly at now counts as expired
	n, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	_, err = repo.GetByTokenHash(ctx, "C")
	assert.NoError(t, err)
}

func TestSessionRepo_CascadeOnUserDelete(t *testing.T) {
	db := setupDB(t)
	users := NewUserRepo(db)
	repo := NewSessionRepo(db)
	ctx := context.Background()

	user := &models.User{Username: "alice", PasswordHash: "h"}
	require.NoError(t, users.Create(ctx, user))

	now := time.Now().UTC()
	require.NoError(t, repo.Create(ctx, &models.Session{
		ID: "s-1", UserID: user.ID, TokenHash: "d", CSRFToken: "c", CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	}))

	_, err := db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, user.ID)
	require.NoError(t, err)

	_, err = repo.GetByTokenHash(ctx, "d")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
