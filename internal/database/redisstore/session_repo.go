// Package redisstore keeps sessions in Redis.
//
// Each session is stored twice: the record itself under its token hash and a
// small index entry under its ID, so that both lookup paths are a single GET.
// Both keys carry the session lifetime as TTL, which means Redis removes
// expired sessions on its own and DeleteExpired has nothing to do.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"habits-backend/internal/database"
	"habits-backend/internal/models"
)

const (
	sessionKeyPrefix = "session:"
	sessionIDPrefix  = "session_id:"
)

// record is the JSON document stored per session
type record struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CSRFToken string    `json:"csrf_token"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionRepo stores sessions in Redis
type SessionRepo struct {
	client *redis.Client
}

// NewSessionRepo creates a new Redis session repository
func NewSessionRepo(client *redis.Client) *SessionRepo {
	return &SessionRepo{client: client}
}

// Create stores the session. SET NX guards the token hash against collisions.
func (r *SessionRepo) Create(ctx context.Context, session *models.Session) error {
	ttl := session.ExpiresAt.Sub(session.CreatedAt)
	if ttl <= 0 {
		return fmt.Errorf("session %s has no lifetime left", session.ID)
	}

	payload, err := json.Marshal(record{
		ID:        session.ID,
		UserID:    session.UserID,
		CSRFToken: session.CSRFToken,
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	})
	if err != nil {
		return err
	}

	ok, err := r.client.SetNX(ctx, sessionKeyPrefix+session.TokenHash, payload, ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	if !ok {
		return database.ErrSessionConflict
	}

	if err := r.client.Set(ctx, sessionIDPrefix+session.ID, session.TokenHash, ttl).Err(); err != nil {
		// an unindexed token could not be evicted by ID
		if delErr := r.client.Del(context.WithoutCancel(ctx), sessionKeyPrefix+session.TokenHash).Err(); delErr != nil {
			return fmt.Errorf("failed to index session: %w", errors.Join(err, delErr))
		}
		return fmt.Errorf("failed to index session: %w", err)
	}
	return nil
}

// GetByTokenHash retrieves a session by its token hash
func (r *SessionRepo) GetByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error) {
	payload, err := r.client.Get(ctx, sessionKeyPrefix+tokenHash).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, database.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session by token: %w", err)
	}

	var rec record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("corrupt session record: %w", err)
	}

	return &models.Session{
		ID:        rec.ID,
		UserID:    rec.UserID,
		TokenHash: tokenHash,
		CSRFToken: rec.CSRFToken,
		CreatedAt: rec.CreatedAt,
		ExpiresAt: rec.ExpiresAt,
	}, nil
}

// Delete removes a session by ID
func (r *SessionRepo) Delete(ctx context.Context, id string) error {
	tokenHash, err := r.client.Get(ctx, sessionIDPrefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to resolve session id: %w", err)
	}

	return r.del(ctx, sessionKeyPrefix+tokenHash, sessionIDPrefix+id)
}

// DeleteByTokenHash removes a session by token hash
func (r *SessionRepo) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	session, err := r.GetByTokenHash(ctx, tokenHash)
	if errors.Is(err, database.ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	return r.del(ctx, sessionKeyPrefix+tokenHash, sessionIDPrefix+session.ID)
}

// DeleteExpired is a no-op: Redis expires session keys itself
func (r *SessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

func (r *SessionRepo) del(ctx context.Context, keys ...string) error {
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
