package interceptors

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/crf-service/crf-sdk-go/sdk/constants"
)

var errBodyNotReplayable = errors.New("request body cannot be replayed")

type BackoffTimer interface {
	TimeToWait(iteration int) time.Duration
}

type RetryDecider interface {
	// ShouldRetry determines whether a failed HTTP request should be retried.
	// It receives the HTTP response (if any), the error (if any), and retry metadata.
	// A non-nil error stops retrying and becomes the round trip's error.
	ShouldRetry(*http.Response, error, RetryInternalData) (bool, error)
}

type RetryInternalData struct {
	// RetryCount is the 1-based number of the retry about to be attempted.
	RetryCount int
}

// RetryInterceptor replays failed requests against next. It is never part of
// the default chain; callers opt in explicitly. Install it after
// TreatAsErrorInterceptor so that 4xx/5xx responses already carry an error.
type RetryInterceptor struct {
	next            http.RoundTripper
	backoffStrategy BackoffTimer
	retryDecider    RetryDecider
	errorDetector   ErrorDetector
}

func NewRetryInterceptor(next http.RoundTripper, backoffStrategy BackoffTimer, retryDecider RetryDecider) *RetryInterceptor {
	if next == nil {
		next = http.DefaultTransport
	}
	return &RetryInterceptor{
		next:            next,
		backoffStrategy: backoffStrategy,
		retryDecider:    retryDecider,
		errorDetector:   NewErrorDetectorAll(),
	}
}

func (e *RetryInterceptor) BeforeRequest(data InterceptorData) (InterceptorData, error) {
	return data, nil
}

func (e *RetryInterceptor) AfterResponse(data InterceptorData) (InterceptorData, error) {
	for retry := 1; ; retry++ {
		shouldRetry, err := e.retryDecider.ShouldRetry(data.Response, data.Error, RetryInternalData{RetryCount: retry})
		if err != nil {
			return data, err
		}
		if !shouldRetry {
			return data, nil
		}

		if err := sleep(data.Ctx, e.backoffStrategy.TimeToWait(retry)); err != nil {
			return data, err
		}

		req, err := rewind(data.InitialRequest)
		if err != nil {
			return data, err
		}
		closeBody(data.Response)

		data.Request = req
		data.Response, data.Error = e.next.RoundTrip(req)
		if data.Error == nil {
			data.Error = e.errorDetector.IsError(data)
		}
	}
}

func rewind(req *http.Request) (*http.Request, error) {
	clone := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return clone, nil
	}
	if req.GetBody == nil {
		return nil, errBodyNotReplayable
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	clone.Body = body
	return clone, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type ExponentialBackoff struct {
	baseDuration time.Duration
	maxBackoff   time.Duration
}

func NewExponentialBackoff(baseDuration, maxBackoff time.Duration) ExponentialBackoff {
	return ExponentialBackoff{
		baseDuration: baseDuration,
		maxBackoff:   maxBackoff,
	}
}

func (b ExponentialBackoff) TimeToWait(iteration int) time.Duration {
	return exponentialBackoff(iteration, b.baseDuration, b.maxBackoff)
}

// exponentialBackoff doubles initialBackoff per retry, adds up to 50% jitter
// and caps the result at maxBackoff when maxBackoff is positive.
func exponentialBackoff(retry int, initialBackoff, maxBackoff time.Duration) time.Duration {
	if retry <= 0 || initialBackoff <= 0 {
		return initialBackoff
	}

	backoff := initialBackoff * time.Duration(1<<uint(retry-1))
	if half := int64(backoff) / 2; half > 0 {
		backoff += time.Duration(rand.Int63n(half))
	}

	if maxBackoff > 0 && backoff > maxBackoff {
		backoff = maxBackoff
	}
	return backoff
}

type ConstantBackoff struct {
	baseDuration time.Duration
}

func NewConstantBackoff(baseDuration time.Duration) ConstantBackoff {
	return ConstantBackoff{
		baseDuration: baseDuration,
	}
}

func (b ConstantBackoff) TimeToWait(int) time.Duration {
	return b.baseDuration
}

// RetryDeciderAll retries every transport error and every 4xx/5xx response.
type RetryDeciderAll struct {
	maxRetries int
}

func NewRetryDeciderAll(maxRetries int) RetryDeciderAll {
	return RetryDeciderAll{
		maxRetries: maxRetries,
	}
}

func (r RetryDeciderAll) ShouldRetry(response *http.Response, err error, retryData RetryInternalData) (bool, error) {
	failed := err != nil || (response != nil && response.StatusCode >= 400)
	if !failed {
		return false, nil
	}

	if retryData.RetryCount > r.maxRetries {
		if err != nil {
			return false, fmt.Errorf("%w: %w", constants.ErrMaxRetriesExceeded, err)
		}
		return false, constants.ErrMaxRetriesExceeded
	}
	return true, nil
}
