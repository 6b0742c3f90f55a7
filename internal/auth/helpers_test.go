package auth

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"habits-backend/internal/database"
	"habits-backend/internal/models"
)

// cheap parameters so tests don't spend seconds in argon2
var testArgon2Params = Argon2Params{
	Memory:      64,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

type testEnv struct {
	users    *database.UserRepo
	sessions *database.SessionRepo
	store    *SessionStore
	verifier *Verifier
	service  *Service
	clock    *fakeClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.Open(context.Background(), database.Config{
		Driver: database.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "habits.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	clock := newFakeClock()
	users := database.NewUserRepo(db)
	sessions := database.NewSessionRepo(db)
	store := NewSessionStore(sessions, NewTokenGenerator(nil), clock, time.Hour)
	verifier := NewVerifier(store, clock)

	return &testEnv{
		users:    users,
		sessions: sessions,
		store:    store,
		verifier: verifier,
		service:  NewService(users, store, verifier, NewPasswordHasher(testArgon2Params)),
		clock:    clock,
	}
}

// createUser inserts a user directly, bypassing the service
func (e *testEnv) createUser(t *testing.T, username string) *models.User {
	t.Helper()
	user := &models.User{Username: username, PasswordHash: "x"}
	require.NoError(t, e.users.Create(context.Background(), user))
	return user
}
