package interceptors

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/crf-service/crf-sdk-go/sdk/constants"
)

type ErrorDetector interface {
	// IsError returns a non-nil error when the response must be treated as a failure.
	IsError(data InterceptorData) error
}

type TreatAsErrorInterceptor struct {
	ErrorDetector ErrorDetector
}

func NewTreatAsErrorInterceptor(errorDetector ErrorDetector) *TreatAsErrorInterceptor {
	return &TreatAsErrorInterceptor{
		ErrorDetector: errorDetector,
	}
}

func (a *TreatAsErrorInterceptor) BeforeRequest(data InterceptorData) (InterceptorData, error) {
	return data, nil
}

func (a *TreatAsErrorInterceptor) AfterResponse(data InterceptorData) (InterceptorData, error) {
	if data.Response == nil {
		return data, nil
	}
	if err := a.ErrorDetector.IsError(data); err != nil {
		data.Error = err
	}
	return data, nil
}

// StatusError is returned for 4xx and 5xx responses.
type StatusError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %d", constants.ErrNonSuccessStatus, e.StatusCode)
	}
	return fmt.Sprintf("%s: %d: %s", constants.ErrNonSuccessStatus, e.StatusCode, e.Message)
}

func (e *StatusError) Unwrap() error {
	return constants.ErrNonSuccessStatus
}

type errorDetectorAll struct{}

type errorTemplate struct {
	Details string `json:"details"`
	Reason  string `json:"reason"`
	Message any    `json:"message"`
	Msg     string `json:"msg"`
	Error   string `json:"error"`
}

// message picks the first populated field among the shapes services commonly use.
func (t errorTemplate) message() string {
	switch m := t.Message.(type) {
	case string:
		if m != "" {
			return m
		}
	case map[string]any:
		if d, ok := m["detail"].(string); ok && d != "" {
			return d
		}
	}
	for _, s := range []string{t.Msg, t.Reason, t.Details, t.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

func (errorDetectorAll) IsError(data InterceptorData) error {
	resp := data.Response
	// 3xx still has to reach http.Client so redirects can be followed.
	if resp.StatusCode < 400 {
		return nil
	}

	statusErr := &StatusError{StatusCode: resp.StatusCode}
	if resp.Body == nil {
		return statusErr
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("read error response body: %w", err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	statusErr.Body = body

	var tmpl errorTemplate
	if json.Unmarshal(body, &tmpl) == nil {
		statusErr.Message = tmpl.message()
	}
	return statusErr
}

// NewErrorDetectorAll treats every 4xx and 5xx response as an error.
func NewErrorDetectorAll() ErrorDetector {
	return errorDetectorAll{}
}
