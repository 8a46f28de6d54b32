package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/matzehuels/archflow/pkg/arch"
	"github.com/matzehuels/archflow/pkg/diagram"
	"github.com/matzehuels/archflow/pkg/layout/repulsion"
	"github.com/matzehuels/archflow/pkg/observability"
)

// =============================================================================
// Canvas
// =============================================================================

// canvas is a live board: the diagram data the UI renders plus the board and
// simulator that own node positions. One Watch goroutine per canvas restarts
// the simulation whenever the node ID set changes.
type canvas struct {
	id      string
	created time.Time

	mu      sync.Mutex
	project string
	cost    arch.CloudCost
	diagram diagram.Diagram

	board  *repulsion.Board
	sim    *repulsion.Simulator
	cancel context.CancelFunc
	done   chan struct{}
}

func (s *Server) newCanvas(a *arch.Architecture) *canvas {
	c := &canvas{
		id:      uuid.NewString(),
		created: time.Now(),
		done:    make(chan struct{}),
	}
	c.setArchitecture(a)
	c.board = repulsion.NewBoard(diagram.Entities(c.diagram))

	hooks := observability.Simulation()
	logger := s.logger.With("canvas", c.id)
	c.sim = repulsion.NewSimulator(s.layout, s.frames(),
		repulsion.WithLogger(logger),
		repulsion.WithStartObserver(func(token uint64, entities int) {
			hooks.OnSimulationStart(c.id, token, entities)
		}),
		repulsion.WithObserver(func(st repulsion.RunStats) {
			hooks.OnSimulationEnd(c.id, st.Token, st.Steps, st.Converged, st.Cancelled, st.Duration)
		}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	go func() {
		defer close(c.done)
		repulsion.Watch(ctx, c.board, c.sim)
	}()
	return c
}

// setArchitecture refreshes the diagram data. Positions stay with the board.
func (c *canvas) setArchitecture(a *arch.Architecture) {
	d := diagram.Map(a)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.diagram = d
	c.project, c.cost = "", arch.CloudCost{}
	if a != nil {
		c.project, c.cost = a.ProjectName, a.CloudEstimation
	}
}

// replace swaps the architecture and reports whether the simulation
// restarted.
func (c *canvas) replace(a *arch.Architecture) bool {
	c.setArchitecture(a)
	c.mu.Lock()
	entities := diagram.Entities(c.diagram)
	c.mu.Unlock()
	return c.board.Replace(entities)
}

func (c *canvas) close() {
	c.cancel()
	<-c.done
}

type canvasResponse struct {
	ID         string         `json:"id"`
	Generation uint64         `json:"generation"`
	Token      uint64         `json:"token"`
	Running    bool           `json:"running"`
	Restarted  *bool          `json:"restarted,omitempty"`
	Layout     diagram.Layout `json:"layout"`
}

func (c *canvas) state() canvasResponse {
	entities, gen := c.board.Snapshot()
	c.mu.Lock()
	l := layoutOf(c.diagram.WithPositions(entities), c.project, c.cost)
	c.mu.Unlock()
	l.Simulation.Config = c.sim.Config()
	return canvasResponse{
		ID:         c.id,
		Generation: gen,
		Token:      c.sim.Token(),
		Running:    c.sim.Running(),
		Layout:     l,
	}
}

// =============================================================================
// Registry
// =============================================================================

type registry struct {
	mu       sync.RWMutex
	canvases map[string]*canvas
}

func newRegistry() *registry {
	return &registry{canvases: make(map[string]*canvas)}
}

func (r *registry) add(c *canvas) {
	r.mu.Lock()
	r.canvases[c.id] = c
	r.mu.Unlock()
}

func (r *registry) get(id string) (*canvas, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.canvases[id]
	return c, ok
}

func (r *registry) remove(id string) (*canvas, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.canvases[id]
	delete(r.canvases, id)
	return c, ok
}

func (r *registry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.canvases)
}

// drain removes and returns every canvas.
func (r *registry) drain() []*canvas {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*canvas, 0, len(r.canvases))
	for id, c := range r.canvases {
		out = append(out, c)
		delete(r.canvases, id)
	}
	return out
}

// =============================================================================
// Handlers
// =============================================================================

type createCanvasRequest struct {
	Idea         string             `json:"idea,omitempty"`
	Refresh      bool               `json:"refresh,omitempty"`
	Architecture *arch.Architecture `json:"architecture,omitempty"`
}

type dragRequest struct {
	Node     string   `json:"node"`
	X        *float64 `json:"x,omitempty"`
	Y        *float64 `json:"y,omitempty"`
	Dragging *bool    `json:"dragging,omitempty"`
}

func (s *Server) handleCreateCanvas(w http.ResponseWriter, r *http.Request) {
	var req createCanvasRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	a := req.Architecture
	if a == nil {
		var err error
		if a, err = s.generate(r, ideaRequest{Idea: req.Idea, Refresh: req.Refresh}); err != nil {
			writeError(w, r, s.logger, err)
			return
		}
	}
	if err := validateIfRequested(r, a); err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	c := s.newCanvas(a)
	s.canvases.add(c)
	logFor(s.logger, c).Info("canvas created", "nodes", a.NodeCount())
	writeJSON(w, http.StatusCreated, c.state())
}

func (s *Server) handleGetCanvas(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, c.state())
}

func (s *Server) handleReplaceArchitecture(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lookup(w, r)
	if !ok {
		return
	}
	a, err := s.readArchitecture(r)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	restarted := c.replace(a)
	logFor(s.logger, c).Debug("architecture replaced", "nodes", a.NodeCount(), "restarted", restarted)

	resp := c.state()
	resp.Restarted = &restarted
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDrag(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req dragRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	// Flag first so the simulator leaves the node alone before it moves.
	if req.Dragging != nil && *req.Dragging {
		if !c.board.SetDragging(req.Node, true) {
			writeError(w, r, s.logger, errNotFound("node %q", req.Node))
			return
		}
	}
	if req.X != nil || req.Y != nil {
		x, y, found := c.position(req.Node)
		if !found {
			writeError(w, r, s.logger, errNotFound("node %q", req.Node))
			return
		}
		if req.X != nil {
			x = *req.X
		}
		if req.Y != nil {
			y = *req.Y
		}
		c.board.Move(req.Node, x, y)
	}
	if req.Dragging != nil && !*req.Dragging {
		if !c.board.SetDragging(req.Node, false) {
			writeError(w, r, s.logger, errNotFound("node %q", req.Node))
			return
		}
	}
	writeJSON(w, http.StatusOK, c.state())
}

func (s *Server) handleDeleteCanvas(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, ok := s.canvases.remove(id)
	if !ok {
		writeError(w, r, s.logger, errNotFound("canvas %s", id))
		return
	}
	c.close()
	logFor(s.logger, c).Info("canvas closed", "age", time.Since(c.created).Round(time.Second))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*canvas, bool) {
	id := chi.URLParam(r, "id")
	c, ok := s.canvases.get(id)
	if !ok {
		writeError(w, r, s.logger, errNotFound("canvas %s", id))
	}
	return c, ok
}

func (c *canvas) position(id string) (x, y float64, ok bool) {
	entities, _ := c.board.Snapshot()
	for _, e := range entities {
		if e.ID == id {
			return e.X, e.Y, true
		}
	}
	return 0, 0, false
}

func logFor(l *log.Logger, c *canvas) *log.Logger {
	return l.With("canvas", c.id)
}
