package ideas

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/matzehuels/archflow/pkg/arch"
	"github.com/matzehuels/archflow/pkg/cache"
	"github.com/matzehuels/archflow/pkg/errors"
)

const okResponse = `{
  "success": true,
  "data": {
    "projectName": "Todo",
    "architecture": {
      "nodes": [
        {"id": "web", "label": "Web", "type": "frontend", "service": "React", "provider": "Vercel"},
        {"id": "api", "label": "API", "type": "backend", "service": "Go", "provider": "Fly"}
      ],
      "edges": [{"source": "web", "target": "api"}]
    },
    "cloudEstimation": {"Compute": "$10", "Database": "$0", "Storage": "$1", "OtherServices": "$0", "EstimatedMonthlyCost": "$11"}
  }
}`

type fakeService struct {
	*httptest.Server
	calls    atomic.Int32
	lastAuth atomic.Value
	lastIdea atomic.Value
}

func newFakeService(t *testing.T, status int, body string) *fakeService {
	t.Helper()
	f := &fakeService{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		if r.Method != http.MethodPost || r.URL.Path != "/api/idea" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		f.lastAuth.Store(r.Header.Get("Authorization"))
		var req arch.IdeaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		f.lastIdea.Store(req.Idea)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(f.Close)
	return f
}

func newTestClient(t *testing.T, base string, opts Options) *Client {
	t.Helper()
	opts.BaseURL = base + "/api/"
	c, err := NewClient(opts)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestGenerate(t *testing.T) {
	svc := newFakeService(t, http.StatusOK, okResponse)
	c := newTestClient(t, svc.URL, Options{Tokens: StaticToken("secret")})

	a, err := c.Generate(context.Background(), "  a todo app \n", false)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	if a.ProjectName != "Todo" || len(a.Nodes) != 2 || len(a.Edges) != 1 {
		t.Errorf("Generate() = %s", a)
	}
	if a.CloudEstimation.EstimatedMonthlyCost != "$11" {
		t.Errorf("cost = %+v", a.CloudEstimation)
	}
	if got := svc.lastAuth.Load(); got != "Bearer secret" {
		t.Errorf("Authorization = %q", got)
	}
	if got := svc.lastIdea.Load(); got != "a todo app" {
		t.Errorf("idea sent = %q, want trimmed text", got)
	}
}

func TestGenerateAnonymous(t *testing.T) {
	svc := newFakeService(t, http.StatusOK, okResponse)
	c := newTestClient(t, svc.URL, Options{Tokens: StaticToken("")})

	if _, err := c.Generate(context.Background(), "x", false); err != nil {
		t.Fatal(err)
	}
	if got := svc.lastAuth.Load(); got != "" {
		t.Errorf("Authorization should be absent, got %q", got)
	}
}

func TestGenerateContextToken(t *testing.T) {
	svc := newFakeService(t, http.StatusOK, okResponse)
	c := newTestClient(t, svc.URL, Options{Tokens: StaticToken("static")})

	ctx := WithToken(context.Background(), "per-request")
	if _, err := c.Generate(ctx, "x", false); err != nil {
		t.Fatal(err)
	}
	if got := svc.lastAuth.Load(); got != "Bearer per-request" {
		t.Errorf("Authorization = %q", got)
	}
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   errors.Code
	}{
		{"service failure", http.StatusOK, `{"success": false, "message": "model overloaded"}`, errors.ErrCodeInvalidResponse},
		{"malformed", http.StatusOK, `{"success": tru`, errors.ErrCodeInvalidResponse},
		{"unauthorized", http.StatusUnauthorized, `{"message": "sign in"}`, errors.ErrCodeUnauthorized},
		{"forbidden", http.StatusForbidden, ``, errors.ErrCodeForbidden},
		{"server error", http.StatusInternalServerError, ``, errors.ErrCodeNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeService(t, tt.status, tt.body)
			c := newTestClient(t, svc.URL, Options{})

			_, err := c.Generate(context.Background(), "idea", false)
			if got := errors.GetCode(err); got != tt.want {
				t.Errorf("code = %s, want %s (err=%v)", got, tt.want, err)
			}
		})
	}
}

func TestGenerateFailureMessage(t *testing.T) {
	svc := newFakeService(t, http.StatusOK, `{"success": false, "message": "model overloaded"}`)
	c := newTestClient(t, svc.URL, Options{})

	_, err := c.Generate(context.Background(), "idea", false)
	if errors.UserMessage(err) != "model overloaded" {
		t.Errorf("message = %q", errors.UserMessage(err))
	}
}

func TestGenerateInvalidIdea(t *testing.T) {
	svc := newFakeService(t, http.StatusOK, okResponse)
	c := newTestClient(t, svc.URL, Options{})

	for _, idea := range []string{"", "   \n\t", "bad\x00idea"} {
		_, err := c.Generate(context.Background(), idea, false)
		if !errors.Is(err, errors.ErrCodeInvalidInput) {
			t.Errorf("Generate(%q) error = %v, want INVALID_INPUT", idea, err)
		}
	}
	if svc.calls.Load() != 0 {
		t.Errorf("invalid ideas should not reach the service (%d calls)", svc.calls.Load())
	}
}

func TestGenerateTokenSourceError(t *testing.T) {
	svc := newFakeService(t, http.StatusOK, okResponse)
	failing := TokenFunc(func(context.Context) (string, error) {
		return "", fmt.Errorf("session expired")
	})
	c := newTestClient(t, svc.URL, Options{Tokens: failing})

	_, err := c.Generate(context.Background(), "idea", false)
	if !errors.Is(err, errors.ErrCodeUnauthorized) {
		t.Errorf("error = %v, want UNAUTHORIZED", err)
	}
	if svc.calls.Load() != 0 {
		t.Error("request should not be sent without a token")
	}
}

func TestGenerateCaching(t *testing.T) {
	svc := newFakeService(t, http.StatusOK, okResponse)
	fc, _ := cache.NewFileCache(t.TempDir())
	c := newTestClient(t, svc.URL, Options{Cache: fc})
	ctx := context.Background()

	first, err := c.Generate(ctx, "chat app", false)
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.Generate(ctx, " chat app ", false)
	if err != nil {
		t.Fatal(err)
	}
	if svc.calls.Load() != 1 {
		t.Errorf("calls = %d, want 1 (cached)", svc.calls.Load())
	}
	if second.ProjectName != first.ProjectName || len(second.Nodes) != len(first.Nodes) {
		t.Errorf("cached result differs: %s vs %s", second, first)
	}

	if _, err := c.Generate(ctx, "chat app", true); err != nil {
		t.Fatal(err)
	}
	if svc.calls.Load() != 2 {
		t.Errorf("refresh should bypass the cache (calls=%d)", svc.calls.Load())
	}

	// A different caller does not see the anonymous entry.
	if _, err := c.Generate(WithToken(ctx, "alice"), "chat app", false); err != nil {
		t.Fatal(err)
	}
	if svc.calls.Load() != 3 {
		t.Errorf("per-caller scope should miss (calls=%d)", svc.calls.Load())
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Options{BaseURL: "ftp://example.com"}); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("error = %v, want INVALID_CONFIG", err)
	}

	c, err := NewClient(Options{})
	if err != nil {
		t.Fatal(err)
	}
	if c.BaseURL() != DefaultBaseURL {
		t.Errorf("BaseURL() = %q", c.BaseURL())
	}
}
