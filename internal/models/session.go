package models

import "time"

// Session represents an authenticated user session.
// The raw bearer token is never stored, only its digest.
type Session struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	TokenHash string    `json:"-" db:"token_hash"` // Never expose in JSON
	CSRFToken string    `json:"-" db:"csrf_token"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
}

// AuthResponse is returned after a successful register or login
type AuthResponse struct {
	User      UserResponse `json:"user"`
	CSRFToken string       `json:"csrf_token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// MeResponse is returned by the "who am I" endpoint
type MeResponse struct {
	UserResponse
	CSRFToken string `json:"csrf_token"`
}
