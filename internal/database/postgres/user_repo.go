package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"habits-backend/internal/database"
	"habits-backend/internal/models"
)

// UserRepo stores users in PostgreSQL
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo creates a new PostgreSQL user repository
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// Create inserts a new user and fills in its ID and timestamps
func (r *UserRepo) Create(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	row := *user
	row.ID = uuid.NewString()
	row.CreatedAt = now
	row.UpdatedAt = now

	query := `
		INSERT INTO users (id, username, password_hash, created_at, updated_at)
		VALUES (:id, :username, :password_hash, :created_at, :updated_at)`

	if _, err := r.db.NamedExecContext(ctx, query, &row); err != nil {
		if isUniqueViolation(err) {
			return database.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	*user = row
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.get(ctx, `
		SELECT id, username, password_hash, created_at, updated_at
		FROM users
		WHERE id = $1`, id)
}

// GetByUsername retrieves a user by exact username
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.get(ctx, `
		SELECT id, username, password_hash, created_at, updated_at
		FROM users
		WHERE username = $1`, username)
}

func (r *UserRepo) get(ctx context.Context, query string, arg any) (*models.User, error) {
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// UpdatePasswordHash replaces the stored password hash
func (r *UserRepo) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`,
		passwordHash, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return database.ErrUserNotFound
	}
	return nil
}
