package interceptors

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"
)

type cachedResponse struct {
	statusCode int
	header     http.Header
	body       []byte
}

// Cache answers repeated GET requests from memory. Only 2xx responses are
// stored, keyed by the full request URL.
type Cache struct {
	store *cache.Cache
}

func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		store: cache.New(ttl, 2*ttl),
	}
}

func (c *Cache) BeforeRequest(data InterceptorData) (InterceptorData, error) {
	if data.Request.Method != http.MethodGet {
		return data, nil
	}
	hit, found := c.store.Get(data.Request.URL.String())
	if !found {
		return data, nil
	}
	cached := hit.(cachedResponse)
	data.Response = &http.Response{
		Status:        http.StatusText(cached.statusCode),
		StatusCode:    cached.statusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        cached.header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(cached.body)),
		ContentLength: int64(len(cached.body)),
		Request:       data.Request,
	}
	return data, nil
}

func (c *Cache) AfterResponse(data InterceptorData) (InterceptorData, error) {
	resp := data.Response
	if data.Error != nil || resp == nil || resp.Body == nil || data.Request.Method != http.MethodGet {
		return data, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return data, nil
	}
	key := data.Request.URL.String()
	if _, found := c.store.Get(key); found {
		return data, nil
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return data, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	c.store.SetDefault(key, cachedResponse{
		statusCode: resp.StatusCode,
		header:     resp.Header.Clone(),
		body:       body,
	})
	return data, nil
}

// Flush drops every stored response.
func (c *Cache) Flush() {
	c.store.Flush()
}
