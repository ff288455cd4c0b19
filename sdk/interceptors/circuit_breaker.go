package interceptors

import (
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/crf-service/crf-sdk-go/sdk/constants"
)

type CircuitBreakerInterceptor struct {
	abortOnFailure bool
	cb             *gobreaker.CircuitBreaker
}

// NewBreakerFor429 returns a breaker that opens on the first 429 and stays open
// for twenty seconds. Every other status counts as a success.
func NewBreakerFor429() *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "crf-429",
		MaxRequests: 0,
		Interval:    10 * time.Second,
		Timeout:     20 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 0
		},
		IsSuccessful: func(err error) bool {
			return err == nil || err.Error() != "429"
		},
	})
}

// NewCircuitBreakerInterceptor gates requests on cb. Every observed status
// code (2xx included) is fed to cb as an error whose text is the bare code, so
// Settings.IsSuccessful decides what counts as a failure.
func NewCircuitBreakerInterceptor(cb *gobreaker.CircuitBreaker, abortOnFailure bool) *CircuitBreakerInterceptor {
	if cb == nil {
		panic("cb should not be nil")
	}

	return &CircuitBreakerInterceptor{
		abortOnFailure: abortOnFailure,
		cb:             cb,
	}
}

func (c *CircuitBreakerInterceptor) BeforeRequest(data InterceptorData) (InterceptorData, error) {
	if c.cb.State() != gobreaker.StateOpen {
		return data, nil
	}
	if c.abortOnFailure {
		return data, constants.ErrCircuitBreakerOpen
	}
	data.Error = constants.ErrCircuitBreakerOpen
	return data, nil
}

func (c *CircuitBreakerInterceptor) AfterResponse(data InterceptorData) (InterceptorData, error) {
	if data.Response == nil {
		return data, nil
	}

	_, _ = c.cb.Execute(func() (interface{}, error) {
		return nil, statusCode(data.Response.StatusCode)
	})

	if data.Error != nil && c.abortOnFailure {
		return data, data.Error
	}
	return data, nil
}

type statusCode int

func (s statusCode) Error() string {
	return strconv.Itoa(int(s))
}
