package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"habits-backend/internal/database"
	"habits-backend/internal/logging"
)

// Identity is the result of a successful verification
type Identity struct {
	UserID    string
	SessionID string
	CSRFToken string
	ExpiresAt time.Time
}

// Verifier decides whether a session token (and optional CSRF header)
// authenticates a request.
type Verifier struct {
	store *SessionStore
	clock Clock
}

// NewVerifier creates a verifier over store
func NewVerifier(store *SessionStore, clock Clock) *Verifier {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Verifier{store: store, clock: clock}
}

// Verify checks rawToken against the store.
//
// A missing, unknown or revoked token yields ErrNoSession. A token found
// at or past its expiry is deleted and yields ErrSessionExpired. When
// csrfHeader is non-empty it must equal the stored CSRF token, otherwise
// the result is ErrNoSession. An empty header is not checked here; routes
// that mutate state enforce it themselves.
func (v *Verifier) Verify(ctx context.Context, rawToken, csrfHeader string) (*Identity, error) {
	if rawToken == "" {
		return nil, ErrNoSession
	}

	session, err := v.store.FindByTokenDigest(ctx, v.store.Digest(rawToken))
	if err != nil {
		if errors.Is(err, database.ErrSessionNotFound) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("failed to look up session: %w", err)
	}

	if !v.clock.Now().Before(session.ExpiresAt) {
		if err := v.store.DeleteByID(ctx, session.ID); err != nil {
			return nil, fmt.Errorf("failed to evict expired session: %w", err)
		}
		logging.FromContext(ctx).Debug(ctx, "evicted expired session", "session_id", session.ID)
		return nil, ErrSessionExpired
	}

	if csrfHeader != "" && subtle.ConstantTimeCompare([]byte(csrfHeader), []byte(session.CSRFToken)) != 1 {
		return nil, ErrNoSession
	}

	return &Identity{
		UserID:    session.UserID,
		SessionID: session.ID,
		CSRFToken: session.CSRFToken,
		ExpiresAt: session.ExpiresAt,
	}, nil
}
