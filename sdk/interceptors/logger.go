package interceptors

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LoggerOptions defines configuration options for the logger interceptor
type LoggerOptions struct {
	Logger zerolog.Logger

	LogBasicInfo bool // method, URL, status code, duration
	LogHeaders   bool
	LogBody      bool

	// MaxBodyLogSize caps logged bodies in bytes. Default is 1024.
	MaxBodyLogSize int
	// SkipHeaders are excluded from logs, compared case-insensitively.
	SkipHeaders []string
	// SkipPaths are URL path prefixes that are never logged.
	SkipPaths []string
}

// Logger is an interceptor that logs HTTP requests and responses
type Logger struct {
	opts LoggerOptions
}

func NewLogger(opts LoggerOptions) *Logger {
	if opts.MaxBodyLogSize == 0 {
		opts.MaxBodyLogSize = 1024
	}
	skip := make([]string, len(opts.SkipHeaders))
	for i, header := range opts.SkipHeaders {
		skip[i] = strings.ToLower(header)
	}
	opts.SkipHeaders = skip

	return &Logger{opts: opts}
}

func (l *Logger) BeforeRequest(data InterceptorData) (InterceptorData, error) {
	if l.skipped(data.Request) {
		return data, nil
	}

	event := l.opts.Logger.Debug().Str("id", data.ID)
	if l.opts.LogBasicInfo {
		event = event.Str("method", data.Request.Method).Str("url", data.Request.URL.String())
	}
	if l.opts.LogHeaders {
		event = event.Dict("headers", l.headerDict(data.Request.Header))
	}
	if l.opts.LogBody && data.Request.Body != nil && data.Request.Body != http.NoBody {
		body, err := io.ReadAll(data.Request.Body)
		data.Request.Body.Close()
		if err != nil {
			event = event.AnErr("body_error", err)
		} else {
			data.Request.Body = io.NopCloser(bytes.NewReader(body))
			event = l.withBody(event, body)
		}
	}
	event.Msg("-->")

	return data, nil
}

func (l *Logger) AfterResponse(data InterceptorData) (InterceptorData, error) {
	if data.Response == nil || l.skipped(data.Request) {
		return data, nil
	}

	event := l.opts.Logger.Debug().Str("id", data.ID)
	if l.opts.LogBasicInfo {
		event = event.Int("status", data.Response.StatusCode).
			Str("status_text", http.StatusText(data.Response.StatusCode)).
			Dur("elapsed", time.Since(data.StartedAt))
	}
	if l.opts.LogHeaders {
		event = event.Dict("headers", l.headerDict(data.Response.Header))
	}
	if l.opts.LogBody && data.Response.Body != nil {
		body, err := io.ReadAll(data.Response.Body)
		data.Response.Body.Close()
		if err != nil {
			event = event.AnErr("body_error", err)
		} else {
			data.Response.Body = io.NopCloser(bytes.NewReader(body))
			event = l.withBody(event, body)
		}
	}
	if data.Error != nil {
		event = event.Err(data.Error)
	}
	event.Msg("<--")

	return data, nil
}

func (l *Logger) withBody(event *zerolog.Event, body []byte) *zerolog.Event {
	truncated := len(body) > l.opts.MaxBodyLogSize
	if truncated {
		body = body[:l.opts.MaxBodyLogSize]
	}
	return event.Bytes("body", body).Bool("truncated", truncated)
}

func (l *Logger) skipped(req *http.Request) bool {
	if req == nil {
		return true
	}
	for _, path := range l.opts.SkipPaths {
		if strings.HasPrefix(req.URL.Path, path) {
			return true
		}
	}
	return false
}

func (l *Logger) headerDict(headers http.Header) *zerolog.Event {
	dict := zerolog.Dict()
	for name, values := range headers {
		if l.shouldSkipHeader(name) {
			continue
		}
		dict = dict.Strs(name, values)
	}
	return dict
}

func (l *Logger) shouldSkipHeader(name string) bool {
	lowerName := strings.ToLower(name)
	for _, skip := range l.opts.SkipHeaders {
		if skip == lowerName {
			return true
		}
	}
	return false
}
