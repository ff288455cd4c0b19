package interceptors

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// InterceptorTransport is an http.RoundTripper running every request through
// an ordered interceptor chain. The chain must be fully assembled before the
// transport serves its first request.
type InterceptorTransport struct {
	rt           http.RoundTripper
	interceptors []Interceptor
}

// NewDefaultInterceptorTransport wraps http.DefaultTransport with a chain that
// rejects 4xx and 5xx responses.
func NewDefaultInterceptorTransport() *InterceptorTransport {
	return NewInterceptorTransport(http.DefaultTransport, []Interceptor{
		NewTreatAsErrorInterceptor(NewErrorDetectorAll()),
	})
}

func NewInterceptorTransport(rt http.RoundTripper, interceptors []Interceptor) *InterceptorTransport {
	if rt == nil {
		rt = http.DefaultTransport
	}
	return &InterceptorTransport{
		rt:           rt,
		interceptors: interceptors,
	}
}

func (it *InterceptorTransport) AddInterceptors(interceptors ...Interceptor) {
	it.interceptors = append(it.interceptors, interceptors...)
}

// Interceptors returns a copy of the chain in execution order.
func (it *InterceptorTransport) Interceptors() []Interceptor {
	out := make([]Interceptor, len(it.interceptors))
	copy(out, it.interceptors)
	return out
}

// Next returns the round tripper the chain delegates to.
func (it *InterceptorTransport) Next() http.RoundTripper {
	return it.rt
}

func (it *InterceptorTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return it.RoundTripWithID(req, uuid.NewString())
}

func (it *InterceptorTransport) RoundTripWithID(req *http.Request, id string) (*http.Response, error) {
	data := InterceptorData{
		ID:             id,
		Ctx:            req.Context(),
		StartedAt:      time.Now(),
		InitialRequest: req.Clone(req.Context()),
		Request:        req,
	}

	var err error
	shortCircuited := false
	for _, interceptor := range it.interceptors {
		data, err = interceptor.BeforeRequest(data)
		if err != nil {
			closeRequestBody(req)
			return nil, err
		}
		if data.Response != nil {
			shortCircuited = true
			break
		}
	}
	if data.Error != nil {
		closeRequestBody(req)
		return nil, data.Error
	}

	// A failed round trip still runs the after chain so interceptors such as
	// retry can act on data.Error.
	var rtErr error
	if !shortCircuited {
		data.Response, rtErr = it.rt.RoundTrip(data.Request)
		if rtErr != nil {
			data.Response = nil
			data.Error = rtErr
		}
	}

	for _, interceptor := range it.interceptors {
		data, err = interceptor.AfterResponse(data)
		if err != nil {
			closeBody(data.Response)
			return nil, err
		}
	}
	if data.Error != nil {
		closeBody(data.Response)
		return nil, data.Error
	}
	if data.Response == nil {
		if rtErr == nil {
			rtErr = errNoResponse
		}
		return nil, rtErr
	}
	return data.Response, nil
}

var errNoResponse = errors.New("interceptor chain produced no response")

func closeRequestBody(req *http.Request) {
	if req.Body != nil {
		req.Body.Close()
	}
}

func closeBody(resp *http.Response) {
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
}
