package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_BlocksAfterMax(t *testing.T) {
	clock := newFakeClock()
	rl := NewRateLimiter(3, time.Minute, 5*time.Minute, clock)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("1.2.3.4"), "attempt %d", i+1)
	}
	assert.False(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("5.6.7.8"), "other keys are independent")

	assert.Equal(t, clock.Now().Add(5*time.Minute), rl.BlockedUntil("1.2.3.4"))

	clock.Advance(5*time.Minute - time.Second)
	assert.False(t, rl.Allow("1.2.3.4"), "still blocked")

	clock.Advance(time.Second)
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.BlockedUntil("1.2.3.4").IsZero())
}

func TestRateLimiter_WindowResets(t *testing.T) {
	clock := newFakeClock()
	rl := NewRateLimiter(2, time.Minute, time.Hour, clock)

	assert.True(t, rl.Allow("k"))
	assert.True(t, rl.Allow("k"))

	clock.Advance(2 * time.Minute)
	assert.True(t, rl.Allow("k"))
	assert.True(t, rl.Allow("k"))
	assert.False(t, rl.Allow("k"))
}

func TestRateLimiter_RecordSuccess(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute, time.Hour, newFakeClock())

	assert.True(t, rl.Allow("k"))
	rl.RecordSuccess("k")
	assert.True(t, rl.Allow("k"))
}

func TestRateLimiter_Cleanup(t *testing.T) {
	clock := newFakeClock()
	rl := NewRateLimiter(1, time.Minute, time.Minute, clock)

	rl.Allow("a")
	rl.Allow("a") // blocked
	rl.Allow("b")

	clock.Advance(2 * time.Minute)
	rl.cleanup()
	assert.Empty(t, rl.attempts)
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute, time.Minute, newFakeClock())

	e := echo.New()
	e.POST("/login", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}, rl.Middleware())

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, do().Code)

	rec := do()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"too many login attempts","retry_after":60}`, rec.Body.String())
}
