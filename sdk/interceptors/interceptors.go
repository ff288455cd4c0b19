package interceptors

import (
	"context"
	"net/http"
	"time"
)

// InterceptorData travels through every interceptor of a single round trip.
// Setting Response in BeforeRequest short-circuits the network call; setting
// Error makes the transport reject the round trip once the chain finishes.
type InterceptorData struct {
	ID             string
	Ctx            context.Context
	StartedAt      time.Time
	InitialRequest *http.Request
	Request        *http.Request
	Response       *http.Response
	Error          error
}

// Interceptor observes or rewrites HTTP traffic at the transport level.
type Interceptor interface {
	BeforeRequest(data InterceptorData) (InterceptorData, error)
	AfterResponse(data InterceptorData) (InterceptorData, error)
}

// Funcs adapts plain functions to Interceptor. Nil fields pass data through.
type Funcs struct {
	Before func(data InterceptorData) (InterceptorData, error)
	After  func(data InterceptorData) (InterceptorData, error)
}

func (f Funcs) BeforeRequest(data InterceptorData) (InterceptorData, error) {
	if f.Before == nil {
		return data, nil
	}
	return f.Before(data)
}

func (f Funcs) AfterResponse(data InterceptorData) (InterceptorData, error) {
	if f.After == nil {
		return data, nil
	}
	return f.After(data)
}
