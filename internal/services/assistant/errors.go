package assistant

import "errors"

var (
	ErrNotConfigured       = errors.New("assistant is not configured")                 // 503
	ErrProviderUnavailable = errors.New("assistant provider is currently unavailable") // 503
	ErrSafetyViolation     = errors.New("generated content violated safety policies")  // 400
	ErrRateLimitExceeded   = errors.New("rate limit exceeded")                         // 429
	ErrInvalidInput        = errors.New("message is required")                         // 400
)
