package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"

	"habits-backend/internal/database"
	"habits-backend/internal/logging"
	"habits-backend/internal/models"
)

// UserRepository is the user persistence the service depends on
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error
}

// AuthResult is returned by Register and Login. The caller turns Session
// into cookies.
type AuthResult struct {
	User    *models.User
	Session *IssuedSession
}

// Service handles registration, login, logout and password changes
type Service struct {
	users    UserRepository
	store    *SessionStore
	verifier *Verifier
	hasher   *PasswordHasher
	validate *validator.Validate

	dummyOnce sync.Once
	dummyHash string
}

// NewService creates a new auth service
func NewService(users UserRepository, store *SessionStore, verifier *Verifier, hasher *PasswordHasher) *Service {
	return &Service{
		users:    users,
		store:    store,
		verifier: verifier,
		hasher:   hasher,
		validate: newValidator(),
	}
}

// Verifier returns the verifier used by the service
func (s *Service) Verifier() *Verifier {
	return s.verifier
}

// Register creates an account and logs it in
func (s *Service) Register(ctx context.Context, username, password string) (*AuthResult, error) {
	user, err := s.CreateUser(ctx, username, password)
	if err != nil {
		return nil, err
	}

	// A failure here leaves the user without a session; logging in again is safe.
	return s.issue(ctx, user)
}

// CreateUser validates and stores a new user without creating a session
func (s *Service) CreateUser(ctx context.Context, username, password string) (*models.User, error) {
	req := models.CredentialsRequest{Username: username, Password: password}
	if err := validateStruct(s.validate, req); err != nil {
		return nil, err
	}

	_, err := s.users.GetByUsername(ctx, username)
	if err == nil {
		return nil, ErrUsernameTaken
	}
	if !errors.Is(err, database.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{Username: username, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		// lost a race with a concurrent registration
		if errors.Is(err, database.ErrUserAlreadyExists) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logging.FromContext(ctx).Info(ctx, "user registered", "user_id", user.ID)
	return user, nil
}

// Login authenticates a user and creates a session.
// Unknown users and wrong passwords both yield ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			// same argon2 cost as a real check
			s.hasher.Verify(password, s.dummy())
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	if s.hasher.NeedsRehash(user.PasswordHash) {
		s.rehash(ctx, user, password)
	}

	return s.issue(ctx, user)
}

// Logout revokes the session for rawToken. Succeeds when there is none.
func (s *Service) Logout(ctx context.Context, rawToken string) error {
	if rawToken == "" {
		return nil
	}
	if err := s.store.DeleteByTokenDigest(ctx, s.store.Digest(rawToken)); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// ChangePassword replaces the password of the session's user.
// Other sessions of the user stay valid.
func (s *Service) ChangePassword(ctx context.Context, rawToken, csrfHeader, currentPassword, newPassword string) error {
	identity, err := s.verifier.Verify(ctx, rawToken, csrfHeader)
	if err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			return ErrInvalidCredentials
		}
		return err
	}

	req := models.ChangePasswordRequest{CurrentPassword: currentPassword, NewPassword: newPassword}
	if err := validateStruct(s.validate, req); err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	if !s.hasher.Verify(currentPassword, user.PasswordHash) {
		return ErrInvalidCredentials
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	if err := s.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	logging.FromContext(ctx).Info(ctx, "password changed", "user_id", user.ID)
	return nil
}

// CurrentUser loads the user behind a verified identity
func (s *Service) CurrentUser(ctx context.Context, identity *Identity) (*models.User, error) {
	user, err := s.users.GetByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *Service) issue(ctx context.Context, user *models.User) (*AuthResult, error) {
	session, err := s.store.Create(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info(ctx, "session created", "user_id", user.ID, "session_id", session.ID)
	return &AuthResult{User: user, Session: session}, nil
}

// rehash upgrades a hash made with old parameters. Failure only costs the
// upgrade, the login itself goes through.
func (s *Service) rehash(ctx context.Context, user *models.User, password string) {
	log := logging.FromContext(ctx)

	hash, err := s.hasher.Hash(password)
	if err != nil {
		log.Warn(ctx, "password rehash failed", "user_id", user.ID, "error", err)
		return
	}
	if err := s.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		log.Warn(ctx, "password rehash failed", "user_id", user.ID, "error", err)
		return
	}
	user.PasswordHash = hash
}

func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("habits-dummy-password")
		if err != nil {
			// still a well-formed string, so Verify does comparable work
			hash = "$argon2id$v=19$m=65536,t=3,p=2$c29tZXNhbHRzb21lc2FsdA$c29tZWtleXNvbWVrZXlzb21la2V5c29tZWtleXM"
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}
