package service

import "errors"

// Sentinel errors for the service layer. The api package maps each of them
// to an HTTP status.
var (
	ErrMissingCredentials  = errors.New("username and password are required")
	ErrInvalidCredentials  = errors.New("invalid username or password")
	ErrUsernameTaken       = errors.New("username already exists")
	ErrNoFile              = errors.New("no file selected")
	ErrExtensionNotAllowed = errors.New("file type not allowed")
	ErrInvalidMessage      = errors.New("invalid message")
	ErrInvalidSeconds      = errors.New("invalid seconds value")
	ErrNotFound            = errors.New("image not found")
	ErrProcessingFailed    = errors.New("file operation failed")
)
