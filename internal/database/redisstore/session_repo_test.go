package redisstore

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"habits-backend/internal/database"
	"habits-backend/internal/models"
)

func newTestRepo(t *testing.T) (*SessionRepo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionRepo(client), mr
}

func newSession(id, digest string, ttl time.Duration) *models.Session {
	now := time.Now().UTC().Truncate(time.Second)
	return &models.Session{
		ID:        id,
		UserID:    "u-1",
		TokenHash: digest,
		CSRFToken: "csrf-" + id,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

func TestSessionRepo_CreateAndGet(t *testing.T) {
	repo, mr := newTestRepo(t)
	ctx := context.Background()

	session := newSession("s-1", "digest-1", time.Hour)
	require.NoError(t, repo.Create(ctx, session))

	got, err := repo.GetByTokenHash(ctx, "digest-1")
	require.NoError(t, err)
	assert.Equal(t, "s-1", got.ID)
	assert.Equal(t, "u-1", got.UserID)
	assert.Equal(t, "digest-1", got.TokenHash)
	assert.Equal(t, "csrf-s-1", got.CSRFToken)
	assert.True(t, got.ExpiresAt.Equal(session.ExpiresAt))

	assert.Equal(t, time.Hour, mr.TTL(sessionKeyPrefix+"digest-1"))
	assert.Equal(t, time.Hour, mr.TTL(sessionIDPrefix+"s-1"))

	_, err = repo.GetByTokenHash(ctx, "missing")
	assert.ErrorIs(t, err, database.ErrSessionNotFound)
}

func TestSessionRepo_Conflict(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newSession("s-1", "digest", time.Hour)))
	err := repo.Create(ctx, newSession("s-2", "digest", time.Hour))
	assert.ErrorIs(t, err, database.ErrSessionConflict)

	// the original is intact
	got, err := repo.GetByTokenHash(ctx, "digest")
	require.NoError(t, err)
	assert.Equal(t, "s-1", got.ID)
}

func TestSessionRepo_RejectsNoLifetime(t *testing.T) {
	repo, _ := newTestRepo(t)
	assert.Error(t, repo.Create(context.Background(), newSession("s-1", "digest", 0)))
}

func TestSessionRepo_Delete(t *testing.T) {
	repo, mr := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newSession("s-1", "digest-1", time.Hour)))
	require.NoError(t, repo.Create(ctx, newSession("s-2", "digest-2", time.Hour)))

	require.NoError(t, repo.Delete(ctx, "s-1"))
	require.NoError(t, repo.Delete(ctx, "s-1"))
	assert.False(t, mr.Exists(sessionKeyPrefix+"digest-1"))
	assert.False(t, mr.Exists(sessionIDPrefix+"s-1"))

	require.NoError(t, repo.DeleteByTokenHash(ctx, "digest-2"))
	require.NoError(t, repo.DeleteByTokenHash(ctx, "digest-2"))
	assert.False(t, mr.Exists(sessionKeyPrefix+"digest-2"))
	assert.False(t, mr.Exists(sessionIDPrefix+"s-2"))
}

func TestSessionRepo_ExpiresOnItsOwn(t *testing.T) {
	repo, mr := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newSession("s-1", "digest", time.Minute)))
	mr.FastForward(time.Minute)

	_, err := repo.GetByTokenHash(ctx, "digest")
	assert.ErrorIs(t, err, database.ErrSessionNotFound)

	n, err := repo.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSessionRepo_StorageError(t *testing.T) {
	repo, mr := newTestRepo(t)
	mr.Close()

	_, err := repo.GetByTokenHash(context.Background(), "digest")
	require.Error(t, err)
	assert.NotErrorIs(t, err, database.ErrSessionNotFound)
}

// failIndexWrites fails every SET on a session_id: key
type failIndexWrites struct{}

func (failIndexWrites) DialHook(next redis.DialHook) redis.DialHook { return next }

func (failIndexWrites) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		args := cmd.Args()
		if cmd.Name() == "set" && len(args) > 1 {
			if key, ok := args[1].(string); ok && strings.HasPrefix(key, sessionIDPrefix) {
				err := errors.New("index write refused")
				cmd.SetErr(err)
				return err
			}
		}
		return next(ctx, cmd)
	}
}

func (failIndexWrites) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func TestSessionRepo_CreateRollsBackOnIndexFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	client.AddHook(failIndexWrites{})
	repo := NewSessionRepo(client)
	ctx := context.Background()

	err := repo.Create(ctx, newSession("s-1", "digest-1", time.Hour))
	require.Error(t, err)
	assert.NotErrorIs(t, err, database.ErrSessionConflict)

	assert.False(t, mr.Exists(sessionKeyPrefix+"digest-1"), "token key must not outlive a failed index write")
	assert.False(t, mr.Exists(sessionIDPrefix+"s-1"))

	_, err = repo.GetByTokenHash(ctx, "digest-1")
	assert.ErrorIs(t, err, database.ErrSessionNotFound)
}
