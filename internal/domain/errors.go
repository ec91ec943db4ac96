package domain

import "errors"

// Sentinel errors for the application. Handlers map these to HTTP statuses.
var (
	ErrNotFound         = errors.New("resource not found")
	ErrUnauthorized     = errors.New("unauthorized access")
	ErrConflict         = errors.New("resource already exists")
	ErrValidation       = errors.New("invalid input")
	ErrStoreUnavailable = errors.New("persistence layer unavailable")
	ErrMediaUpload      = errors.New("media upload failed")
)
