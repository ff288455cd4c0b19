package request

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crf-service/crf-sdk-go/sdk/constants"
	"github.com/crf-service/crf-sdk-go/sdk/interceptors"
)

type captured struct {
	Method      string
	Path        string
	RawQuery    string
	ContentType string
	Header      http.Header
	Body        string
}

type recorder struct {
	mu     sync.Mutex
	last   captured
	status int
	reply  string
}

func (r *recorder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	body, _ := io.ReadAll(req.Body)
	r.mu.Lock()
	r.last = captured{
		Method:      req.Method,
		Path:        req.URL.Path,
		RawQuery:    req.URL.RawQuery,
		ContentType: req.Header.Get("Content-Type"),
		Header:      req.Header.Clone(),
		Body:        string(body),
	}
	status, reply := r.status, r.reply
	r.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, reply)
}

func (r *recorder) seen() captured {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

func newTestClient(t *testing.T, rec *recorder, hooks *Interceptors, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(rec)
	t.Cleanup(server.Close)

	client, err := New(ClientConfig{BaseURL: server.URL + "/crf-service/", Interceptors: hooks}, opts...)
	require.NoError(t, err)
	return client
}

type user struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func TestClient_GetUsesDataAsQuery(t *testing.T) {
	rec := &recorder{reply: `{"users":[{"id":1,"name":"ada"}]}`}
	client := newTestClient(t, rec, nil)

	result, err := client.Get(context.Background(), Config{
		URL:  "/users",
		Data: map[string]any{"page": 2},
	})
	require.NoError(t, err)

	seen := rec.seen()
	assert.Equal(t, http.MethodGet, seen.Method)
	assert.Equal(t, "/crf-service/users", seen.Path)
	assert.Equal(t, "page=2", seen.RawQuery)
	assert.Empty(t, seen.Body)
	assert.JSONEq(t, `{"users":[{"id":1,"name":"ada"}]}`, string(result.(json.RawMessage)))
}

func TestClient_PostMovesParamsIntoBody(t *testing.T) {
	rec := &recorder{reply: `{"ok":true}`}
	client := newTestClient(t, rec, nil)

	out, err := Post[map[string]bool](context.Background(), client, Config{
		URL:    "records",
		Params: map[string]any{"x": 1},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"ok": true}, out)

	seen := rec.seen()
	assert.Equal(t, http.MethodPost, seen.Method)
	assert.Empty(t, seen.RawQuery)
	assert.JSONEq(t, `{"x":1}`, seen.Body)
	assert.Equal(t, constants.ContentTypeJSON, seen.ContentType)
}

func TestClient_PostWithoutPayloadSendsEmptyObject(t *testing.T) {
	rec := &recorder{reply: `{}`}
	client := newTestClient(t, rec, nil)

	_, err := client.Post(context.Background(), Config{URL: "/ping"})
	require.NoError(t, err)
	assert.Equal(t, "{}", rec.seen().Body)
}

func TestClient_JSONContentTypeOverridesCallerHeader(t *testing.T) {
	rec := &recorder{reply: `{}`}
	client := newTestClient(t, rec, nil)

	_, err := client.Post(context.Background(), Config{
		URL:     "/records",
		Headers: map[string]string{"content-type": "text/plain", "X-Trace": "abc"},
		Data:    map[string]any{"a": "b"},
	})
	require.NoError(t, err)

	seen := rec.seen()
	assert.Equal(t, constants.ContentTypeJSON, seen.ContentType)
	assert.Equal(t, "abc", seen.Header.Get("X-Trace"))
	assert.Len(t, seen.Header.Values("Content-Type"), 1)
}

func TestClient_FormEncodingRepeatsArrayKeys(t *testing.T) {
	rec := &recorder{reply: `{}`}
	client := newTestClient(t, rec, nil)

	_, err := client.Post(context.Background(), Config{
		URL:      "/records",
		Data:     map[string]any{"a": []int{1, 2}},
		DataType: "form",
	})
	require.NoError(t, err)

	seen := rec.seen()
	assert.Equal(t, constants.ContentTypeForm, seen.ContentType)
	assert.Equal(t, "a=1&a=2", seen.Body)
}

func TestClient_FormEncodingOfEmptyBody(t *testing.T) {
	rec := &recorder{reply: `{}`}
	client := newTestClient(t, rec, nil)

	_, err := client.Post(context.Background(), Config{URL: "/records", DataType: DataTypeForm})
	require.NoError(t, err)
	assert.Equal(t, "{}", rec.seen().Body)
}

func TestClient_ShorthandKeepsExplicitMethod(t *testing.T) {
	rec := &recorder{reply: `{}`}
	client := newTestClient(t, rec, nil)

	_, err := client.Get(context.Background(), Config{URL: "/records/1", Method: "delete"})
	require.NoError(t, err)
	assert.Equal(t, http.MethodDelete, rec.seen().Method)

	_, err = client.Request(context.Background(), Config{URL: "/records", Method: "post"})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, rec.seen().Method)
}

func TestClient_DefaultMethodIsGet(t *testing.T) {
	rec := &recorder{reply: `{}`}
	client := newTestClient(t, rec, nil)

	_, err := client.Request(context.Background(), Config{URL: "/records"})
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, rec.seen().Method)
}

func TestClient_CallScopedRequestHookReplacesGlobal(t *testing.T) {
	rec := &recorder{reply: `{}`}
	global := &Interceptors{
		OnRequest: func(cfg Config) (Config, error) {
			cfg.Headers["X-Global"] = "1"
			return cfg, nil
		},
	}
	client := newTestClient(t, rec, global)

	_, err := client.Get(context.Background(), Config{URL: "/a"})
	require.NoError(t, err)
	assert.Equal(t, "1", rec.seen().Header.Get("X-Global"))

	_, err = client.Get(context.Background(), Config{
		URL: "/a",
		Interceptors: &Interceptors{
			OnRequest: func(cfg Config) (Config, error) {
				cfg.Headers = map[string]string{"X-Call": "1"}
				return cfg, nil
			},
		},
	})
	require.NoError(t, err)
	seen := rec.seen()
	assert.Equal(t, "1", seen.Header.Get("X-Call"))
	assert.Empty(t, seen.Header.Get("X-Global"))
	assert.Equal(t, constants.ContentTypeJSON, seen.ContentType)
}

func TestClient_GlobalResponseHookSeesUnwrappedBody(t *testing.T) {
	rec := &recorder{reply: `{"id":7,"name":"grace"}`}
	var observed any
	global := &Interceptors{
		OnResponse: func(result any) (any, error) {
			observed = result
			return result, nil
		},
	}
	client := newTestClient(t, rec, global)

	u, err := Get[user](context.Background(), client, Config{URL: "/users/7"})
	require.NoError(t, err)
	assert.Equal(t, user{ID: 7, Name: "grace"}, u)

	_, isEnvelope := observed.(*Response)
	assert.False(t, isEnvelope)
	assert.JSONEq(t, `{"id":7,"name":"grace"}`, string(observed.(json.RawMessage)))
}

func TestClient_CallScopedResponseHookReplacesGlobal(t *testing.T) {
	rec := &recorder{reply: `{"id":1}`}
	globalCalls := 0
	global := &Interceptors{
		OnResponse: func(result any) (any, error) {
			globalCalls++
			return "global", nil
		},
	}
	client := newTestClient(t, rec, global)

	result, err := client.Get(context.Background(), Config{
		URL: "/users/1",
		Interceptors: &Interceptors{
			OnResponse: func(result any) (any, error) {
				return "scoped", nil
			},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "scoped", result)
	assert.Zero(t, globalCalls)
}

func TestClient_NonSuccessStatusIsAnError(t *testing.T) {
	rec := &recorder{status: http.StatusNotFound, reply: `{"message":"no such user"}`}
	client := newTestClient(t, rec, nil)

	_, err := client.Get(context.Background(), Config{URL: "/users/404"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, constants.ErrNonSuccessStatus))

	var statusErr *interceptors.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Equal(t, "no such user", statusErr.Message)
}

func TestClient_ResponseErrorHookCanRecover(t *testing.T) {
	rec := &recorder{status: http.StatusInternalServerError, reply: `{}`}
	var seen error
	global := &Interceptors{
		OnResponseError: func(err error) (any, error) {
			seen = err
			return []user{}, nil
		},
	}
	client := newTestClient(t, rec, global)

	users, err := Get[[]user](context.Background(), client, Config{URL: "/users"})
	require.NoError(t, err)
	assert.Empty(t, users)
	assert.ErrorIs(t, seen, constants.ErrNonSuccessStatus)
}

func TestClient_CallScopedResponseErrorHookReplacesGlobal(t *testing.T) {
	rec := &recorder{status: http.StatusBadGateway, reply: `{}`}
	global := &Interceptors{
		OnResponseError: func(err error) (any, error) {
			return "global", nil
		},
	}
	client := newTestClient(t, rec, global)

	sentinel := errors.New("upstream down")
	_, err := client.Get(context.Background(), Config{
		URL: "/users",
		Interceptors: &Interceptors{
			OnResponseError: func(err error) (any, error) {
				return nil, fmt.Errorf("%w: %w", sentinel, err)
			},
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
	assert.ErrorIs(t, err, constants.ErrNonSuccessStatus)
}

func TestClient_FailingRequestHook(t *testing.T) {
	rec := &recorder{reply: `{"ok":true}`}
	boom := errors.New("boom")

	t.Run("rejects without an error hook", func(t *testing.T) {
		client := newTestClient(t, rec, nil)
		_, err := client.Get(context.Background(), Config{
			URL: "/a",
			Interceptors: &Interceptors{
				OnRequest: func(cfg Config) (Config, error) { return cfg, boom },
			},
		})
		assert.ErrorIs(t, err, boom)
		assert.Empty(t, rec.seen().Method)
	})

	t.Run("client error hook does not see it", func(t *testing.T) {
		rec := &recorder{reply: `{"ok":true}`}
		var handled error
		client := newTestClient(t, rec, &Interceptors{
			OnRequestError: func(err error) error {
				handled = err
				return nil
			},
		})
		_, err := client.Get(context.Background(), Config{
			URL: "/b",
			Interceptors: &Interceptors{
				OnRequest: func(cfg Config) (Config, error) { return cfg, boom },
			},
		})
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, handled)
		assert.Empty(t, rec.seen().Method)
	})

	t.Run("call-scoped error hook recovers", func(t *testing.T) {
		rec := &recorder{reply: `{"ok":true}`}
		var handled error
		client := newTestClient(t, rec, nil)
		result, err := client.Get(context.Background(), Config{
			URL: "/c",
			Interceptors: &Interceptors{
				OnRequest: func(cfg Config) (Config, error) { return cfg, boom },
				OnRequestError: func(err error) error {
					handled = err
					return nil
				},
			},
		})
		require.NoError(t, err)
		assert.ErrorIs(t, handled, boom)
		assert.Equal(t, "/crf-service/c", rec.seen().Path)
		assert.JSONEq(t, `{"ok":true}`, string(result.(json.RawMessage)))
	})

	t.Run("call-scoped error hook can keep the failure", func(t *testing.T) {
		rec := &recorder{reply: `{"ok":true}`}
		wrapped := errors.New("wrapped")
		client := newTestClient(t, rec, nil)
		_, err := client.Get(context.Background(), Config{
			URL: "/d",
			Interceptors: &Interceptors{
				OnRequest:      func(cfg Config) (Config, error) { return cfg, boom },
				OnRequestError: func(err error) error { return fmt.Errorf("%w: %w", wrapped, err) },
			},
		})
		assert.ErrorIs(t, err, wrapped)
		assert.ErrorIs(t, err, boom)
		assert.Empty(t, rec.seen().Method)
	})
}

func TestClient_TransportInterceptorsRun(t *testing.T) {
	rec := &recorder{reply: `{}`}
	client := newTestClient(t, rec, nil, WithInterceptors(interceptors.NewAuthenticator("secret")))

	_, err := client.Get(context.Background(), Config{URL: "/me"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", rec.seen().Header.Get("Authorization"))
}

func TestClient_ConcurrentCallsAreIndependent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"page":%s}`, r.URL.Query().Get("page"))
	}))
	defer server.Close()

	client, err := New(ClientConfig{BaseURL: server.URL})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(page int) {
			defer wg.Done()
			out, err := Get[map[string]int](context.Background(), client, Config{
				URL:  "/items",
				Data: map[string]any{"page": page},
			})
			if err != nil {
				errs <- err
				return
			}
			if out["page"] != page {
				errs <- fmt.Errorf("page %d answered with %d", page, out["page"])
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestClient_ContextCancellation(t *testing.T) {
	rec := &recorder{reply: `{}`}
	client := newTestClient(t, rec, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.Get(ctx, Config{URL: "/a"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	_, err := New(ClientConfig{Timeout: -1})
	assert.ErrorIs(t, err, constants.ErrInvalidConfig)

	_, err = New(ClientConfig{BaseURL: "http://[::1"})
	assert.ErrorIs(t, err, constants.ErrInvalidConfig)
}
