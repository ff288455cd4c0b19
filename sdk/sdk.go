// Package crf is the entry point of the CRF service SDK.
package crf

import (
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/crf-service/crf-sdk-go/sdk/config"
	"github.com/crf-service/crf-sdk-go/sdk/constants"
	"github.com/crf-service/crf-sdk-go/sdk/interceptors"
	"github.com/crf-service/crf-sdk-go/sdk/request"
)

const (
	serverAddress  = constants.DefaultServerAddress
	defaultTimeout = constants.DefaultTimeoutMillis * time.Millisecond
)

// Default is the process-wide client with the stock settings.
var Default = request.MustNew(DefaultClientConfig())

// DefaultClientConfig returns the stock settings: the local CRF service, a
// five minute timeout and identity hooks.
func DefaultClientConfig() request.ClientConfig {
	return request.ClientConfig{
		BaseURL: serverAddress,
		Timeout: defaultTimeout,
		Interceptors: &request.Interceptors{
			OnRequest:  func(cfg request.Config) (request.Config, error) { return cfg, nil },
			OnResponse: func(result any) (any, error) { return result, nil },
		},
	}
}

type SDK struct {
	Request *request.Client
}

type settings struct {
	config       request.ClientConfig
	interceptors []interceptors.Interceptor
	logger       zerolog.Logger
	token        string
}

type SDKOption func(*settings)

func NewSDK(opts ...SDKOption) (*SDK, error) {
	s := settings{
		config: DefaultClientConfig(),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&s)
	}

	chain := make([]interceptors.Interceptor, 0, len(s.interceptors)+1)
	if s.token != "" {
		chain = append(chain, interceptors.NewAuthenticator(s.token))
	}
	chain = append(chain, s.interceptors...)

	client, err := request.New(s.config,
		request.WithInterceptors(chain...),
		request.WithLogger(s.logger),
	)
	if err != nil {
		return nil, err
	}
	return &SDK{Request: client}, nil
}

func WithBaseURL(baseURL string) SDKOption {
	return func(s *settings) {
		s.config.BaseURL = baseURL
	}
}

func WithTimeout(timeout time.Duration) SDKOption {
	return func(s *settings) {
		s.config.Timeout = timeout
	}
}

// WithHooks replaces the client-wide request and response hooks.
func WithHooks(hooks *request.Interceptors) SDKOption {
	return func(s *settings) {
		s.config.Interceptors = hooks
	}
}

// WithInterceptor appends transport-level interceptors.
func WithInterceptor(list ...interceptors.Interceptor) SDKOption {
	return func(s *settings) {
		s.interceptors = append(s.interceptors, list...)
	}
}

func WithLogger(logger zerolog.Logger) SDKOption {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithToken authenticates every request with a bearer token.
func WithToken(token string) SDKOption {
	return func(s *settings) {
		s.token = token
	}
}

// WithConfig applies loaded settings: base URL, timeout, token and, when
// RateLimit is positive, a rate limiting interceptor.
func WithConfig(cfg config.Config) SDKOption {
	return func(s *settings) {
		s.config.BaseURL = cfg.BaseURL
		s.config.Timeout = cfg.Timeout
		if cfg.Token != "" {
			s.token = cfg.Token
		}
		if cfg.RateLimit > 0 {
			burst := cfg.RateBurst
			if burst < 1 {
				burst = 1
			}
			limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
			s.interceptors = append(s.interceptors, interceptors.NewRateLimiter(limiter))
		}
	}
}
