// Package request implements the CRF service request client: a configured
// HTTP client with global and call-scoped interceptors, GET/POST parameter
// fallback and JSON or form body negotiation.
package request

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/crf-service/crf-sdk-go/sdk/constants"
	"github.com/crf-service/crf-sdk-go/sdk/interceptors"
)

// Client owns one HTTP transport and a fixed interceptor chain. It is safe for
// concurrent use; nothing in it changes after New returns.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	transport  *interceptors.InterceptorTransport
	chain      chain
	logger     zerolog.Logger
}

type options struct {
	roundTripper http.RoundTripper
	interceptors []interceptors.Interceptor
	logger       zerolog.Logger
}

type Option func(*options)

// WithRoundTripper sets the round tripper underneath the interceptor chain.
func WithRoundTripper(rt http.RoundTripper) Option {
	return func(o *options) {
		o.roundTripper = rt
	}
}

// WithInterceptors appends transport-level interceptors after the built-in
// status check.
func WithInterceptors(list ...interceptors.Interceptor) Option {
	return func(o *options) {
		o.interceptors = append(o.interceptors, list...)
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// New builds a client. The chain is registered in a fixed order: a
// pass-through request hook, the envelope unwrapping response hook, then the
// request and response hooks from cfg.Interceptors. Response hooks from cfg
// therefore see the body, never the envelope.
func New(cfg ClientConfig, opts ...Option) (*Client, error) {
	o := options{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	if cfg.BaseURL != "" {
		if _, err := url.Parse(cfg.BaseURL); err != nil {
			return nil, fmt.Errorf("%w: base url: %w", constants.ErrInvalidConfig, err)
		}
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("%w: negative timeout %s", constants.ErrInvalidConfig, cfg.Timeout)
	}

	transport := interceptors.NewInterceptorTransport(o.roundTripper, []interceptors.Interceptor{
		interceptors.NewTreatAsErrorInterceptor(interceptors.NewErrorDetectorAll()),
	})
	transport.AddInterceptors(o.interceptors...)

	c := &Client{
		config: cfg,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		transport: transport,
		logger:    o.logger,
	}

	c.chain.useRequest(func(cfg Config) (Config, error) { return cfg, nil }, nil, false)
	c.chain.useResponse(unwrapEnvelope, nil, false)

	var global Interceptors
	if cfg.Interceptors != nil {
		global = *cfg.Interceptors
	}
	c.chain.useRequest(global.OnRequest, global.OnRequestError, true)
	c.chain.useResponse(global.OnResponse, global.OnResponseError, true)

	return c, nil
}

// MustNew is like New but panics on error.
func MustNew(cfg ClientConfig, opts ...Option) *Client {
	c, err := New(cfg, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Client) Config() ClientConfig {
	return c.config
}

func (c *Client) Transport() *interceptors.InterceptorTransport {
	return c.transport
}

func unwrapEnvelope(result any) (any, error) {
	if resp, ok := result.(*Response); ok {
		return resp.Body, nil
	}
	return result, nil
}

// Request issues one call and returns the unwrapped response body.
func (c *Client) Request(ctx context.Context, cfg Config) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg = cfg.clone()

	// A failing call-scoped OnRequest rejects the call; only the call-scoped
	// OnRequestError may recover it, never the client's.
	if scoped := cfg.Interceptors; scoped != nil && scoped.OnRequest != nil {
		next, err := scoped.OnRequest(cfg)
		if err != nil {
			if scoped.OnRequestError == nil {
				return nil, err
			}
			if err = scoped.OnRequestError(err); err != nil {
				return nil, err
			}
		} else {
			cfg = next
		}
	}
	scoped := cfg.Interceptors

	cfg, err := normalize(cfg)
	if err != nil {
		return nil, err
	}

	cfg, err = c.chain.runRequest(cfg, scoped)
	if err != nil {
		c.logger.Debug().Err(err).Str("method", cfg.Method).Str("url", cfg.URL).Msg("request rejected before dispatch")
		return nil, err
	}

	var result any
	envelope, err := c.dispatch(ctx, cfg)
	if envelope != nil {
		result = envelope
	}
	result, err = c.chain.runResponse(result, err, scoped)
	if err != nil {
		c.logger.Debug().Err(err).Str("method", cfg.Method).Str("url", cfg.URL).Msg("request failed")
		return nil, err
	}

	if scoped != nil && scoped.OnResponse != nil {
		return scoped.OnResponse(result)
	}
	return result, nil
}

// Get issues cfg as GET unless cfg names a method itself.
func (c *Client) Get(ctx context.Context, cfg Config) (any, error) {
	if cfg.Method == "" {
		cfg.Method = http.MethodGet
	}
	return c.Request(ctx, cfg)
}

// Post issues cfg as POST unless cfg names a method itself.
func (c *Client) Post(ctx context.Context, cfg Config) (any, error) {
	if cfg.Method == "" {
		cfg.Method = http.MethodPost
	}
	return c.Request(ctx, cfg)
}

func (c *Client) dispatch(ctx context.Context, cfg Config) (*Response, error) {
	query, err := encodeValues(cfg.Params)
	if err != nil {
		return nil, err
	}
	target := appendQuery(joinURL(c.config.BaseURL, cfg.URL), query)

	var body io.Reader
	if cfg.Method != http.MethodGet && cfg.Method != http.MethodHead {
		if body, err = encodeBody(cfg.Data); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, cfg.Method, target, body)
	if err != nil {
		return nil, err
	}
	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}

	c.logger.Debug().Str("method", cfg.Method).Str("url", target).Msg("dispatching request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       parseBody(raw),
		Config:     cfg,
	}, nil
}

// Do issues cfg and decodes the body into T.
func Do[T any](ctx context.Context, c *Client, cfg Config) (T, error) {
	v, err := c.Request(ctx, cfg)
	if err != nil {
		var zero T
		return zero, err
	}
	return As[T](v)
}

func Get[T any](ctx context.Context, c *Client, cfg Config) (T, error) {
	if cfg.Method == "" {
		cfg.Method = http.MethodGet
	}
	return Do[T](ctx, c, cfg)
}

func Post[T any](ctx context.Context, c *Client, cfg Config) (T, error) {
	if cfg.Method == "" {
		cfg.Method = http.MethodPost
	}
	return Do[T](ctx, c, cfg)
}
