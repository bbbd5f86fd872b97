package authcore

import "errors"

var (
	// ErrUserRequired is returned by token issuance when the user argument is nil.
	ErrUserRequired = errors.New("user cannot be nil")
	// ErrTokenSigningFailed wraps failures of the underlying sign operation.
	// It is recoverable: the caller decides whether to retry or fail the
	// enclosing request.
	ErrTokenSigningFailed = errors.New("token signing failed")
	// ErrEngineNotReady is returned when an Engine method is called on a
	// nil or incompletely built engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
