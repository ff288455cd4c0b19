package interceptors

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter delays requests until limiter grants a token. A cancelled
// request context aborts the wait.
type RateLimiter struct {
	limiter *rate.Limiter
}

func NewRateLimiter(limiter *rate.Limiter) *RateLimiter {
	if limiter == nil {
		panic("limiter should not be nil")
	}
	return &RateLimiter{limiter: limiter}
}

func (r *RateLimiter) BeforeRequest(data InterceptorData) (InterceptorData, error) {
	ctx := data.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return data, err
	}
	return data, nil
}

func (r *RateLimiter) AfterResponse(data InterceptorData) (InterceptorData, error) {
	return data, nil
}
