package db

import "errors"

// Sentinel errors returned by the store. Handlers map these onto HTTP
// status codes; anything else is a 500.
var (
	ErrJobNotFound     = errors.New("export job not found")
	ErrPaymentNotFound = errors.New("payment not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionClosed   = errors.New("session already closed")
	ErrCourseNotFound  = errors.New("course not found")
	ErrInvalidAPIKey   = errors.New("invalid API key")
	ErrBadTransition   = errors.New("invalid job status transition")
)
