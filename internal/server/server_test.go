package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/archflow/pkg/arch"
	"github.com/matzehuels/archflow/pkg/diagram"
	"github.com/matzehuels/archflow/pkg/integrations/ideas"
	"github.com/matzehuels/archflow/pkg/layout/repulsion"
	"github.com/matzehuels/archflow/pkg/observability"
	"github.com/matzehuels/archflow/pkg/pipeline"
)

const generatedBody = `{
  "success": true,
  "data": {
    "projectName": "Generated",
    "architecture": {
      "nodes": [
        {"id": "web", "label": "Web", "type": "frontend"},
        {"id": "api", "label": "API", "type": "backend"}
      ],
      "edges": [{"source": "web", "target": "api"}]
    },
    "cloudEstimation": {"estimatedMonthlyCost": "$42"}
  }
}`

// overlapping places web (frontend, y=0) and cdn (cloud, y=150) 150 apart,
// inside the default 180 radius.
func overlapping() *arch.Architecture {
	return &arch.Architecture{
		ProjectName: "Overlap",
		Nodes: []arch.Node{
			{ID: "web", Label: "Web", Type: arch.TypeFrontend},
			{ID: "cdn", Label: "CDN", Type: arch.TypeCloud},
		},
		Edges: []arch.Edge{{Source: "cdn", Target: "web"}},
	}
}

type testEnv struct {
	srv  *Server
	http *httptest.Server

	mu   sync.Mutex
	auth string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{}

	svc := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.mu.Lock()
		env.auth = r.Header.Get("Authorization")
		env.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, generatedBody)
	}))
	t.Cleanup(svc.Close)

	client, err := ideas.NewClient(ideas.Options{BaseURL: svc.URL})
	if err != nil {
		t.Fatal(err)
	}
	logger := log.NewWithOptions(io.Discard, log.Options{})
	runner := pipeline.NewRunner(nil, nil, client, logger)

	env.srv = New(Options{
		Runner: runner,
		Logger: logger,
		Frames: func() repulsion.Frames { return repulsion.ImmediateFrames{} },
	})
	env.http = httptest.NewServer(env.srv.Handler())
	t.Cleanup(func() {
		env.http.Close()
		env.srv.Close()
	})
	return env
}

// lastAuth returns the Authorization header the generation service saw last.
func (e *testEnv) lastAuth() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.auth
}

func (e *testEnv) do(t *testing.T, method, path string, body any, header http.Header) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.http.URL+path, r)
	if err != nil {
		t.Fatal(err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("decode %T: %v\n%s", v, err, data)
	}
	return v
}

func wantError(t *testing.T, resp *http.Response, data []byte, status int, code string) {
	t.Helper()
	if resp.StatusCode != status {
		t.Errorf("status = %d, want %d (%s)", resp.StatusCode, status, data)
	}
	got := decode[errorResponse](t, data)
	if got.Error.Code != code {
		t.Errorf("code = %q, want %q", got.Error.Code, code)
	}
}

// settle polls a canvas until its first run has started and finished.
func (e *testEnv) settle(t *testing.T, id string) canvasResponse {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, data := e.do(t, http.MethodGet, "/api/canvases/"+id, nil, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET canvas: %d %s", resp.StatusCode, data)
		}
		st := decode[canvasResponse](t, data)
		if st.Token > 0 && !st.Running {
			return st
		}
		if time.Now().After(deadline) {
			t.Fatalf("canvas %s did not settle: %+v", id, st)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func nodePos(t *testing.T, st canvasResponse, id string) (float64, float64) {
	t.Helper()
	for _, n := range st.Layout.Nodes {
		if n.ID == id {
			return n.Position.X, n.Position.Y
		}
	}
	t.Fatalf("node %s not in canvas", id)
	return 0, 0
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	resp, data := env.do(t, http.MethodGet, "/healthz", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	got := decode[healthResponse](t, data)
	if got.Status != "ok" || got.Build.Version == "" {
		t.Errorf("health = %+v", got)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestLayoutEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp, data := env.do(t, http.MethodPost, "/api/layouts", arch.Sample(), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, data)
	}
	l := decode[diagram.Layout](t, data)
	if len(l.Nodes) != 17 || len(l.Edges) != 24 {
		t.Errorf("layout = %d nodes, %d edges", len(l.Nodes), len(l.Edges))
	}
	if l.Simulation.Steps > l.Simulation.Config.MaxSteps {
		t.Errorf("steps %d exceed budget %d", l.Simulation.Steps, l.Simulation.Config.MaxSteps)
	}
}

func TestLayoutEndpointErrors(t *testing.T) {
	env := newTestEnv(t)
	dup := &arch.Architecture{Nodes: []arch.Node{{ID: "a"}, {ID: "a"}}}

	tests := []struct {
		name   string
		path   string
		body   any
		status int
		code   string
	}{
		{"malformed", "/api/layouts", `{"nodes": [`, http.StatusBadRequest, "INVALID_ARCHITECTURE"},
		{"duplicate ids validated", "/api/layouts?validate=true", dup, http.StatusBadRequest, "INVALID_ARCHITECTURE"},
		{"bad validate flag", "/api/layouts?validate=maybe", dup, http.StatusBadRequest, "INVALID_INPUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, data := env.do(t, http.MethodPost, tt.path, tt.body, nil)
			wantError(t, resp, data, tt.status, tt.code)
		})
	}

	t.Run("duplicate ids tolerated", func(t *testing.T) {
		resp, data := env.do(t, http.MethodPost, "/api/layouts?validate=false", dup, nil)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("status = %d: %s", resp.StatusCode, data)
		}
	})
}

func TestIdeaEndpoint(t *testing.T) {
	env := newTestEnv(t)

	hdr := http.Header{"Authorization": {"Bearer user-token"}}
	resp, data := env.do(t, http.MethodPost, "/api/ideas", map[string]string{"idea": "a shop"}, hdr)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, data)
	}
	l := decode[diagram.Layout](t, data)
	if l.ProjectName != "Generated" || len(l.Nodes) != 2 {
		t.Errorf("layout = %q with %d nodes", l.ProjectName, len(l.Nodes))
	}
	if l.Cost.EstimatedMonthlyCost != "$42" {
		t.Errorf("cost = %+v", l.Cost)
	}
	if env.lastAuth() != "Bearer user-token" {
		t.Errorf("forwarded Authorization = %q", env.lastAuth())
	}
}

func TestIdeaEndpointErrors(t *testing.T) {
	env := newTestEnv(t)

	resp, data := env.do(t, http.MethodPost, "/api/ideas", map[string]string{"idea": "  "}, nil)
	wantError(t, resp, data, http.StatusBadRequest, "INVALID_INPUT")

	resp, data = env.do(t, http.MethodPost, "/api/ideas", `not json`, nil)
	wantError(t, resp, data, http.StatusBadRequest, "INVALID_INPUT")
}

// separationTolerance covers the gap left when damping reaches zero just
// short of full separation.
const separationTolerance = 0.5

func TestCanvasLifecycle(t *testing.T) {
	env := newTestEnv(t)

	resp, data := env.do(t, http.MethodPost, "/api/canvases", createCanvasRequest{Architecture: overlapping()}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: %d %s", resp.StatusCode, data)
	}
	created := decode[canvasResponse](t, data)
	if created.ID == "" || created.Generation != 1 {
		t.Fatalf("created = %+v", created)
	}

	st := env.settle(t, created.ID)
	wx, wy := nodePos(t, st, "web")
	cx, cy := nodePos(t, st, "cdn")
	if d := math.Hypot(wx-cx, wy-cy); d < repulsion.DefaultRadius-separationTolerance {
		t.Errorf("web-cdn distance = %.2f, want >= %v", d, repulsion.DefaultRadius-separationTolerance)
	}

	// Same ID set: data refreshes, simulation does not restart.
	same := overlapping()
	same.Nodes[0].Label = "Storefront"
	resp, data = env.do(t, http.MethodPut, "/api/canvases/"+created.ID+"/architecture", same, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("replace: %d %s", resp.StatusCode, data)
	}
	replaced := decode[canvasResponse](t, data)
	if replaced.Restarted == nil || *replaced.Restarted {
		t.Errorf("Restarted = %v, want false", replaced.Restarted)
	}
	if replaced.Generation != st.Generation {
		t.Errorf("generation = %d, want %d", replaced.Generation, st.Generation)
	}
	if replaced.Layout.Nodes[0].Data.Label != "Storefront" {
		t.Errorf("label = %q, want refreshed", replaced.Layout.Nodes[0].Data.Label)
	}
	if x, y := nodePos(t, replaced, "web"); x != wx || y != wy {
		t.Errorf("web moved on same-set replace: (%v,%v) -> (%v,%v)", wx, wy, x, y)
	}

	// New ID set: restart at a new generation.
	grown := overlapping()
	grown.Nodes = append(grown.Nodes, arch.Node{ID: "api", Type: arch.TypeBackend})
	resp, data = env.do(t, http.MethodPut, "/api/canvases/"+created.ID+"/architecture", grown, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("replace: %d %s", resp.StatusCode, data)
	}
	replaced = decode[canvasResponse](t, data)
	if replaced.Restarted == nil || !*replaced.Restarted {
		t.Errorf("Restarted = %v, want true", replaced.Restarted)
	}
	if replaced.Generation != st.Generation+1 {
		t.Errorf("generation = %d, want %d", replaced.Generation, st.Generation+1)
	}
	env.settle(t, created.ID)

	resp, _ = env.do(t, http.MethodDelete, "/api/canvases/"+created.ID, nil, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d", resp.StatusCode)
	}
	resp, data = env.do(t, http.MethodGet, "/api/canvases/"+created.ID, nil, nil)
	wantError(t, resp, data, http.StatusNotFound, "NOT_FOUND")
	resp, data = env.do(t, http.MethodDelete, "/api/canvases/"+created.ID, nil, nil)
	wantError(t, resp, data, http.StatusNotFound, "NOT_FOUND")
}

func TestCanvasDrag(t *testing.T) {
	env := newTestEnv(t)

	resp, data := env.do(t, http.MethodPost, "/api/canvases", createCanvasRequest{Architecture: overlapping()}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: %d %s", resp.StatusCode, data)
	}
	id := decode[canvasResponse](t, data).ID
	env.settle(t, id)

	resp, data = env.do(t, http.MethodPost, "/api/canvases/"+id+"/drag",
		map[string]any{"node": "web", "x": 1000.0, "y": -40.0, "dragging": true}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("drag: %d %s", resp.StatusCode, data)
	}
	st := decode[canvasResponse](t, data)
	if x, y := nodePos(t, st, "web"); x != 1000 || y != -40 {
		t.Errorf("web = (%v,%v), want (1000,-40)", x, y)
	}
	if !st.Layout.Nodes[0].Dragging {
		t.Error("web should be flagged as dragging")
	}
	if st.Generation != 1 {
		t.Errorf("drag changed generation to %d", st.Generation)
	}

	resp, data = env.do(t, http.MethodPost, "/api/canvases/"+id+"/drag",
		map[string]any{"node": "web", "dragging": false}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("release: %d %s", resp.StatusCode, data)
	}
	if decode[canvasResponse](t, data).Layout.Nodes[0].Dragging {
		t.Error("web should be released")
	}

	resp, data = env.do(t, http.MethodPost, "/api/canvases/"+id+"/drag",
		map[string]any{"node": "ghost", "x": 1.0}, nil)
	wantError(t, resp, data, http.StatusNotFound, "NOT_FOUND")
}

func TestCanvasFromIdea(t *testing.T) {
	env := newTestEnv(t)

	resp, data := env.do(t, http.MethodPost, "/api/canvases", createCanvasRequest{Idea: "a shop"},
		http.Header{"Authorization": {"Bearer abc"}})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: %d %s", resp.StatusCode, data)
	}
	st := decode[canvasResponse](t, data)
	if st.Layout.ProjectName != "Generated" || len(st.Layout.Nodes) != 2 {
		t.Errorf("canvas layout = %+v", st.Layout)
	}
	if env.lastAuth() != "Bearer abc" {
		t.Errorf("forwarded Authorization = %q", env.lastAuth())
	}

	resp, data = env.do(t, http.MethodPost, "/api/canvases", createCanvasRequest{}, nil)
	wantError(t, resp, data, http.StatusBadRequest, "INVALID_INPUT")
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t)
	resp, data := env.do(t, http.MethodGet, "/api/nope", nil, nil)
	wantError(t, resp, data, http.StatusNotFound, "NOT_FOUND")
}

type simRecorder struct {
	observability.NoopSimulationHooks
	mu     sync.Mutex
	starts map[string]int
	ends   map[string]int
}

func (r *simRecorder) OnSimulationStart(canvas string, _ uint64, _ int) {
	r.mu.Lock()
	r.starts[canvas]++
	r.mu.Unlock()
}

func (r *simRecorder) OnSimulationEnd(canvas string, _ uint64, _ int, _, _ bool, _ time.Duration) {
	r.mu.Lock()
	r.ends[canvas]++
	r.mu.Unlock()
}

func (r *simRecorder) counts(canvas string) (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.starts[canvas], r.ends[canvas]
}

func TestSimulationHooks(t *testing.T) {
	rec := &simRecorder{starts: map[string]int{}, ends: map[string]int{}}
	observability.SetSimulationHooks(rec)
	t.Cleanup(observability.Reset)

	env := newTestEnv(t)
	_, data := env.do(t, http.MethodPost, "/api/canvases", createCanvasRequest{Architecture: overlapping()}, nil)
	id := decode[canvasResponse](t, data).ID
	env.settle(t, id)

	deadline := time.Now().Add(5 * time.Second)
	for {
		starts, ends := rec.counts(id)
		if starts >= 1 && ends >= 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("hooks for %s: starts=%d ends=%d", id, starts, ends)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestCloseStopsCanvases(t *testing.T) {
	env := newTestEnv(t)
	_, data := env.do(t, http.MethodPost, "/api/canvases", createCanvasRequest{Architecture: arch.Sample()}, nil)
	id := decode[canvasResponse](t, data).ID

	env.srv.Close()
	if env.srv.canvases.len() != 0 {
		t.Errorf("canvases after Close = %d", env.srv.canvases.len())
	}
	resp, body := env.do(t, http.MethodGet, "/api/canvases/"+id, nil, nil)
	wantError(t, resp, body, http.StatusNotFound, "NOT_FOUND")
}

func TestListenAndServeShutsDown(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- env.srv.ListenAndServe(ctx, "127.0.0.1:0") }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("ListenAndServe after cancel = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("ListenAndServe did not return after cancel")
	}
}

func TestListenAndServeBadAddr(t *testing.T) {
	env := newTestEnv(t)
	if err := env.srv.ListenAndServe(context.Background(), "256.0.0.1:bad"); err == nil {
		t.Error("expected an error for an invalid address")
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc", "abc"},
		{"bearer  abc ", "abc"},
		{"Basic abc", ""},
		{"", ""},
		{"Bearer", ""},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			r.Header.Set("Authorization", tt.header)
		}
		if got := bearerToken(r); got != tt.want {
			t.Errorf("bearerToken(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}
