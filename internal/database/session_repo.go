package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"habits-backend/internal/models"
)

// SessionRepo handles session database operations
type SessionRepo struct {
	db *sql.DB
}

// NewSessionRepo creates a new session repository
func NewSessionRepo(db *sql.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// Create stores a new session row. The token hash must be unique.
func (r *SessionRepo) Create(ctx context.Context, session *models.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, token_hash, csrf_token, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, session.ID, session.UserID, session.TokenHash, session.CSRFToken, session.CreatedAt.UTC(), session.ExpiresAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSessionConflict
		}
		return err
	}
	return nil
}

// GetByTokenHash retrieves a session by its hashed token.
// Expiry is not checked here; that decision belongs to the caller.
func (r *SessionRepo) GetByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error) {
	session := &models.Session{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, token_hash, csrf_token, created_at, expires_at
		FROM sessions WHERE token_hash = ?
	`, tokenHash).Scan(
		&session.ID, &session.UserID, &session.TokenHash, &session.CSRFToken,
		&session.CreatedAt, &session.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	return session, nil
}

// Delete deletes a session by ID. Deleting a missing session is not an error.
func (r *SessionRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	return err
}

// DeleteByTokenHash deletes a session by its hashed token. Idempotent.
func (r *SessionRepo) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE token_hash = ?", tokenHash)
	return err
}

// DeleteExpired removes all sessions whose expiry is at or before now
func (r *SessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", now.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
