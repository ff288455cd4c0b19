package request

import (
	"net/http"
	"strings"
	"time"
)

// DataType selects how a request body is encoded. Any value other than
// DataTypeJSON (compared case-insensitively) means form encoding.
type DataType string

const (
	DataTypeJSON DataType = "JSON"
	DataTypeForm DataType = "FORM"
)

// IsJSON reports whether d selects a JSON body. The zero value does.
func (d DataType) IsJSON() bool {
	return d == "" || strings.EqualFold(string(d), string(DataTypeJSON))
}

// Interceptors holds the optional hooks of a client or of a single call.
//
// OnRequest replaces the outgoing config. OnRequestError sees failures raised
// by request hooks of its own scope: a client hook never sees a failing
// call-scoped OnRequest. Returning nil recovers and the call continues with
// the config as it was before the failure.
// OnResponse transforms the unwrapped body. OnResponseError sees transport
// failures; returning a nil error recovers with the returned value.
type Interceptors struct {
	OnRequest       func(cfg Config) (Config, error)
	OnRequestError  func(err error) error
	OnResponse      func(result any) (any, error)
	OnResponseError func(err error) (any, error)
}

// ClientConfig holds construction-time settings.
type ClientConfig struct {
	BaseURL      string
	Timeout      time.Duration
	Interceptors *Interceptors
}

// Config describes a single call.
//
// A GET without Params sends Data as its query string. A POST without Data
// sends Params as its body instead and drops them from the query string.
//
// Params and Data accept nil, url.Values, maps and structs (structs are
// flattened through their JSON tags). Data may also be a string, []byte or
// io.Reader, which are sent as-is.
type Config struct {
	URL     string
	Method  string
	Headers map[string]string
	// Params is the query. On a POST without Data it becomes the body and no
	// query string is sent.
	Params   any
	Data     any
	DataType DataType

	// Interceptors are call-scoped. Each hook set here replaces the client's
	// hook of the same kind for this call only.
	Interceptors *Interceptors
}

// Response is the envelope produced by the transport. Callers never receive
// it; the client's first response hook reduces it to Body.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       any
	Config     Config
}

func (c Config) clone() Config {
	out := c
	if c.Headers != nil {
		out.Headers = make(map[string]string, len(c.Headers))
		for k, v := range c.Headers {
			out.Headers[k] = v
		}
	}
	return out
}
