package constants

import "errors"

var (
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
	ErrCircuitBreakerOpen = errors.New("circuit breaker is open")
	ErrNonSuccessStatus   = errors.New("non-2xx response")
	ErrInvalidConfig      = errors.New("invalid config")
	ErrDecode             = errors.New("cannot decode response body")
)
