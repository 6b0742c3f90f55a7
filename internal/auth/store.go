package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"habits-backend/internal/database"
	"habits-backend/internal/models"
)

// DefaultSessionTTL is used when no TTL is configured
const DefaultSessionTTL = 30 * 24 * time.Hour

// createAttempts bounds retries when a fresh token digest collides
const createAttempts = 3

// SessionRepository persists sessions keyed by token digest.
// Implementations must enforce digest uniqueness and report a collision
// as database.ErrSessionConflict.
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteByTokenHash(ctx context.Context, tokenHash string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// IssuedSession holds the raw values handed to the client. This is the
// only place the raw bearer token exists server side.
type IssuedSession struct {
	ID        string
	Token     string
	CSRFToken string
	ExpiresAt time.Time
}

// SessionStore owns session creation, lookup and revocation
type SessionStore struct {
	repo   SessionRepository
	tokens *TokenGenerator
	clock  Clock
	ttl    time.Duration
}

// NewSessionStore creates a session store. A non-positive ttl falls back
// to DefaultSessionTTL.
func NewSessionStore(repo SessionRepository, tokens *TokenGenerator, clock Clock, ttl time.Duration) *SessionStore {
	if tokens == nil {
		tokens = NewTokenGenerator(nil)
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{repo: repo, tokens: tokens, clock: clock, ttl: ttl}
}

// Digest maps a raw token to its storage key
func (s *SessionStore) Digest(token string) string {
	return s.tokens.Digest(token)
}

// Create mints and persists a new session for userID
func (s *SessionStore) Create(ctx context.Context, userID string) (*IssuedSession, error) {
	var lastErr error
	for i := 0; i < createAttempts; i++ {
		issued, err := s.create(ctx, userID)
		if err == nil {
			return issued, nil
		}
		if !errors.Is(err, database.ErrSessionConflict) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("failed to create session: %w", lastErr)
}

func (s *SessionStore) create(ctx context.Context, userID string) (*IssuedSession, error) {
	token, err := s.tokens.RandomToken(SessionTokenBytes)
	if err != nil {
		return nil, err
	}
	csrf, err := s.tokens.RandomToken(CSRFTokenBytes)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC().Truncate(time.Second)
	session := &models.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		TokenHash: s.tokens.Digest(token),
		CSRFToken: csrf,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	if err := s.repo.Create(ctx, session); err != nil {
		return nil, err
	}

	return &IssuedSession{
		ID:        session.ID,
		Token:     token,
		CSRFToken: csrf,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// FindByTokenDigest returns the session stored under digest, expired or
// not. database.ErrSessionNotFound when absent.
func (s *SessionStore) FindByTokenDigest(ctx context.Context, digest string) (*models.Session, error) {
	return s.repo.GetByTokenHash(ctx, digest)
}

// DeleteByTokenDigest revokes the session stored under digest, if any
func (s *SessionStore) DeleteByTokenDigest(ctx context.Context, digest string) error {
	return s.repo.DeleteByTokenHash(ctx, digest)
}

// DeleteByID removes a session by ID, if any
func (s *SessionStore) DeleteByID(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// Prune deletes every expired session and returns how many were removed
func (s *SessionStore) Prune(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx, s.clock.Now().UTC())
}

// RunSweeper calls Prune every interval until ctx is done
func (s *SessionStore) RunSweeper(ctx context.Context, interval time.Duration, onError func(error)) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Prune(ctx); err != nil && onError != nil {
				onError(err)
			}
		}
	}
}
