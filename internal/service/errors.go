package service

import "errors"

// Sentinel errors the handlers translate into client-facing error codes.
// Anything not wrapping one of these is reported as a persistence failure.
var (
	ErrAccessDenied = errors.New("access denied: user is not a participant")
	ErrNotFound     = errors.New("resource not found")
	ErrValidation   = errors.New("validation failed")
)
