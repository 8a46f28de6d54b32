package integrations

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/archflow/pkg/cache"
	"github.com/matzehuels/archflow/pkg/errors"
	"github.com/matzehuels/archflow/pkg/observability"
)

func TestNewClient(t *testing.T) {
	c, _ := cache.NewFileCache(t.TempDir())
	defer c.Close()

	headers := map[string]string{"X-Client": "archflow"}
	client := NewClient(c, time.Second, headers)

	if client.http == nil {
		t.Error("NewClient() http client is nil")
	}
	if client.http.Timeout != time.Second {
		t.Errorf("NewClient() timeout = %v", client.http.Timeout)
	}
	if client.cache != c {
		t.Error("NewClient() cache not set correctly")
	}
	if client.headers["X-Client"] != "archflow" {
		t.Error("NewClient() headers not set correctly")
	}
}

func TestNewClientDefaults(t *testing.T) {
	client := NewClient(nil, 0, nil)
	if _, ok := client.cache.(cache.NullCache); !ok {
		t.Errorf("nil cache should become NullCache, got %T", client.cache)
	}
	if client.http.Timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", client.http.Timeout, DefaultTimeout)
	}
}

func TestPostJSON(t *testing.T) {
	type request struct {
		Idea string `json:"idea"`
	}
	type response struct {
		Message string `json:"message"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		if got := r.Header.Get("X-Default"); got != "d" {
			t.Errorf("default header = %q", got)
		}
		if got := r.Header.Get("X-Override"); got != "request" {
			t.Errorf("request header should override default, got %q", got)
		}
		var req request
		_ = json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(response{Message: "got " + req.Idea})
	}))
	defer server.Close()

	client := NewClient(nil, time.Second, map[string]string{"X-Default": "d", "X-Override": "default"})
	client.SetHTTPClient(server.Client())

	var resp response
	err := client.PostJSON(context.Background(), server.URL, map[string]string{"X-Override": "request"}, request{Idea: "x"}, &resp)
	if err != nil {
		t.Fatalf("PostJSON() error: %v", err)
	}
	if resp.Message != "got x" {
		t.Errorf("PostJSON() message = %q", resp.Message)
	}
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		status  int
		body    string
		want    errors.Code
		message string
	}{
		{http.StatusUnauthorized, `{"message":"token expired"}`, errors.ErrCodeUnauthorized, "token expired"},
		{http.StatusForbidden, ``, errors.ErrCodeForbidden, "Forbidden"},
		{http.StatusNotFound, ``, errors.ErrCodeNotFound, "Not Found"},
		{http.StatusBadRequest, `{"error":"idea is required"}`, errors.ErrCodeInvalidInput, "idea is required"},
		{http.StatusInternalServerError, `oops`, errors.ErrCodeNetwork, "status 500: Internal Server Error"},
		{http.StatusBadGateway, ``, errors.ErrCodeNetwork, "status 502: Bad Gateway"},
		{http.StatusGatewayTimeout, ``, errors.ErrCodeTimeout, "status 504: Gateway Timeout"},
		{http.StatusTeapot, ``, errors.ErrCodeInvalidResponse, "status 418: I'm a teapot"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(nil, time.Second, nil)
			var v any
			err := client.PostJSON(context.Background(), server.URL, nil, struct{}{}, &v)
			if got := errors.GetCode(err); got != tt.want {
				t.Fatalf("code = %s, want %s (err=%v)", got, tt.want, err)
			}
			if got := errors.UserMessage(err); got != tt.message {
				t.Errorf("message = %q, want %q", got, tt.message)
			}
		})
	}
}

func TestPostJSONMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	var v map[string]any
	err := NewClient(nil, time.Second, nil).PostJSON(context.Background(), server.URL, nil, struct{}{}, &v)
	if !errors.Is(err, errors.ErrCodeInvalidResponse) {
		t.Errorf("error = %v, want INVALID_RESPONSE", err)
	}
}

func TestPostJSONNetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	var v any
	err := NewClient(nil, time.Second, nil).PostJSON(context.Background(), url, nil, struct{}{}, &v)
	if !errors.Is(err, errors.ErrCodeNetwork) {
		t.Errorf("error = %v, want NETWORK_ERROR", err)
	}
}

func TestPostJSONTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	var v any
	err := NewClient(nil, time.Minute, nil).PostJSON(ctx, server.URL, nil, struct{}{}, &v)
	if !errors.Is(err, errors.ErrCodeTimeout) {
		t.Errorf("error = %v, want TIMEOUT", err)
	}
}

func TestCached(t *testing.T) {
	c, _ := cache.NewFileCache(t.TempDir())
	client := NewClient(c, time.Second, nil)
	ctx := context.Background()

	calls := 0
	fetch := func(v *string) func() error {
		return func() error {
			calls++
			*v = "fresh"
			return nil
		}
	}

	var v1 string
	if err := client.Cached(ctx, cache.KeyTypeIdea, "k", time.Hour, false, &v1, fetch(&v1)); err != nil {
		t.Fatal(err)
	}
	var v2 string
	if err := client.Cached(ctx, cache.KeyTypeIdea, "k", time.Hour, false, &v2, fetch(&v2)); err != nil {
		t.Fatal(err)
	}
	if calls != 1 || v2 != "fresh" {
		t.Errorf("second call should hit cache: calls=%d v=%q", calls, v2)
	}

	var v3 string
	_ = client.Cached(ctx, cache.KeyTypeIdea, "k", time.Hour, true, &v3, fetch(&v3))
	if calls != 2 {
		t.Errorf("refresh should bypass cache: calls=%d", calls)
	}

	failing := func() error { return errors.New(errors.ErrCodeNetwork, "down") }
	var v4 string
	if err := client.Cached(ctx, cache.KeyTypeIdea, "other", time.Hour, false, &v4, failing); err == nil {
		t.Error("fetch errors should propagate")
	}
	if _, hit, _ := c.Get(ctx, "other"); hit {
		t.Error("failed fetches must not be cached")
	}
}

type recordingHTTPHooks struct {
	observability.NoopHTTPHooks
	mu     sync.Mutex
	events []string
}

func (h *recordingHTTPHooks) OnRequest(_ context.Context, method, _, path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, "request "+method+" "+path)
}

func (h *recordingHTTPHooks) OnResponse(_ context.Context, _, _, _ string, status int, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, "response "+http.StatusText(status))
}

func TestHTTPHooks(t *testing.T) {
	hooks := &recordingHTTPHooks{}
	observability.SetHTTPHooks(hooks)
	defer observability.Reset()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	var v any
	_ = NewClient(nil, time.Second, nil).PostJSON(context.Background(), server.URL+"/idea", nil, struct{}{}, &v)

	if len(hooks.events) != 2 || hooks.events[0] != "request POST /idea" || hooks.events[1] != "response OK" {
		t.Errorf("hook events = %v", hooks.events)
	}
}

func TestBearerHeader(t *testing.T) {
	if BearerHeader("") != nil {
		t.Error("empty token should produce no header")
	}
	if got := BearerHeader("abc")["Authorization"]; got != "Bearer abc" {
		t.Errorf("BearerHeader = %q", got)
	}
}
