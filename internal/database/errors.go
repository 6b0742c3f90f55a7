package database

import "errors"

// Repository errors shared by every storage backend
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionConflict   = errors.New("session token hash already exists")
)
