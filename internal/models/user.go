package models

import "time"

// User represents a registered account
type User struct {
	ID           string    `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"` // Never expose in JSON
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// UserResponse is the public view of a user returned by the API
type UserResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Public strips everything but the identity fields
func (u *User) Public() UserResponse {
	return UserResponse{ID: u.ID, Username: u.Username}
}

// CredentialsRequest is the request body for register and login
type CredentialsRequest struct {
	Username string `json:"username" validate:"min=3,max=64"`
	Password string `json:"password" validate:"min=8,max=256"`
}

// ChangePasswordRequest is the request body for changing the current user's password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password" validate:"min=8,max=256"`
}
