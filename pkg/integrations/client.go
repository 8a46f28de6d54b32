package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/matzehuels/archflow/pkg/cache"
	"github.com/matzehuels/archflow/pkg/errors"
	"github.com/matzehuels/archflow/pkg/observability"
)

// Client provides shared HTTP functionality for external API clients.
// It handles caching, status mapping, and common request headers.
type Client struct {
	http    *http.Client
	cache   cache.Cache
	headers map[string]string
}

// NewClient creates a Client with the given cache, timeout and default
// headers. Headers are applied to all requests made through this client.
// Pass nil for headers if no default headers are needed, and nil for the
// cache to disable caching.
func NewClient(c cache.Cache, timeout time.Duration, headers map[string]string) *Client {
	if c == nil {
		c = cache.NewNullCache()
	}
	return &Client{
		http:    NewHTTPClient(timeout),
		cache:   c,
		headers: headers,
	}
}

// SetHTTPClient replaces the underlying HTTP client.
func (c *Client) SetHTTPClient(h *http.Client) {
	if h != nil {
		c.http = h
	}
}

// Cached retrieves a value from cache or executes fetch and caches the result.
// If refresh is true, the cache is bypassed and fetch is always called.
// The fetch function should populate v; on success, v is stored in the cache.
func (c *Client) Cached(ctx context.Context, keyType, key string, ttl time.Duration, refresh bool, v any, fetch func() error) error {
	if !refresh && cache.GetJSON(ctx, c.cache, keyType, key, v) {
		return nil
	}
	if err := fetch(); err != nil {
		return err
	}
	_ = cache.SetJSON(ctx, c.cache, keyType, key, v, ttl)
	return nil
}

// PostJSON sends body as JSON and decodes a 2xx JSON response into v.
// Request-specific headers override client defaults for the same key.
func (c *Client) PostJSON(ctx context.Context, url string, headers map[string]string, body, v any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	rc, err := c.do(req, headers)
	if err != nil {
		return err
	}
	defer rc.Close()

	if err := json.NewDecoder(rc).Decode(v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidResponse, err, "decode response")
	}
	return nil
}

func (c *Client) do(req *http.Request, headers map[string]string) (io.ReadCloser, error) {
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	ctx := req.Context()
	host, path := req.URL.Host, req.URL.Path
	hooks := observability.HTTP()
	hooks.OnRequest(ctx, req.Method, host, path)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, host, path, err)
		return nil, transportError(err)
	}
	hooks.OnResponse(ctx, req.Method, host, path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}

func transportError(err error) error {
	var ne net.Error
	if stderrors.Is(err, context.DeadlineExceeded) || (stderrors.As(err, &ne) && ne.Timeout()) {
		return errors.Wrap(errors.ErrCodeTimeout, err, "request timed out")
	}
	return errors.Wrap(errors.ErrCodeNetwork, err, "request failed")
}

// checkStatus maps non-2xx responses to coded errors. A JSON "message" or
// "error" field in the body becomes the error message.
func checkStatus(resp *http.Response) error {
	code := resp.StatusCode
	if code >= 200 && code < 300 {
		return nil
	}

	msg := http.StatusText(code)
	if m := errorMessage(resp.Body); m != "" {
		msg = m
	}

	switch {
	case code == http.StatusUnauthorized:
		return errors.New(errors.ErrCodeUnauthorized, "%s", msg)
	case code == http.StatusForbidden:
		return errors.New(errors.ErrCodeForbidden, "%s", msg)
	case code == http.StatusNotFound:
		return errors.New(errors.ErrCodeNotFound, "%s", msg)
	case code == http.StatusBadRequest || code == http.StatusUnprocessableEntity:
		return errors.New(errors.ErrCodeInvalidInput, "%s", msg)
	case code == http.StatusGatewayTimeout:
		return errors.New(errors.ErrCodeTimeout, "status %d: %s", code, msg)
	case code >= 500:
		return errors.New(errors.ErrCodeNetwork, "status %d: %s", code, msg)
	default:
		return errors.New(errors.ErrCodeInvalidResponse, "status %d: %s", code, msg)
	}
}

func errorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil || len(data) == 0 {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
		Error   any    `json:"error"`
	}
	if json.Unmarshal(data, &payload) != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	if s, ok := payload.Error.(string); ok {
		return s
	}
	return ""
}
