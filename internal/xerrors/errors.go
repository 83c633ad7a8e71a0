package xerrors

import "errors"

// Generic
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input provided")
)

// Token
var (
	ErrMissingToken = errors.New("missing bearer token")
)

// Client pipeline
var (
	ErrNotConnected  = errors.New("transport session not connected")
	ErrSessionClosed = errors.New("transport session closed")
)
