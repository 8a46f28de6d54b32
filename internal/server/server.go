// Package server implements the archflow HTTP API.
//
// The API exposes the pipeline (idea → relaxed layout) and live canvases:
// server-side boards whose repulsion simulation runs on ticker frames while
// clients replace the architecture, drag nodes and poll positions.
//
// # Routes
//
//	GET    /healthz
//	POST   /api/ideas                      {idea}         → layout
//	POST   /api/layouts?validate=true      architecture   → layout
//	POST   /api/canvases                   {idea|architecture}
//	GET    /api/canvases/{id}
//	PUT    /api/canvases/{id}/architecture architecture
//	POST   /api/canvases/{id}/drag         {node, x, y, dragging}
//	DELETE /api/canvases/{id}
//
// Errors are returned as {"error": {"code": ..., "message": ...}} with a
// status derived from the error code.
package server

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/felixge/httpsnoop"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/archflow/pkg/layout/repulsion"
	"github.com/matzehuels/archflow/pkg/pipeline"
)

const (
	// maxBodyBytes bounds request bodies.
	maxBodyBytes = 1 << 20

	shutdownTimeout = 5 * time.Second
)

// Options configures a Server.
type Options struct {
	// Runner executes generation and layout. Required.
	Runner *pipeline.Runner

	// Logger receives request and canvas logs. Defaults to log.Default().
	Logger *log.Logger

	// Layout holds the simulation parameters for every layout and canvas.
	Layout repulsion.Config

	// FPS is the live-canvas frame rate. Ignored when Frames is set.
	FPS int

	// Frames creates the frame source for each new canvas. Defaults to
	// ticker frames at FPS.
	Frames func() repulsion.Frames
}

// Server is the HTTP API. Create it with New.
type Server struct {
	runner   *pipeline.Runner
	logger   *log.Logger
	layout   repulsion.Config
	frames   func() repulsion.Frames
	canvases *registry
}

// New creates a server.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	frames := opts.Frames
	if frames == nil {
		fps := opts.FPS
		frames = func() repulsion.Frames { return repulsion.NewTickerFrames(fps) }
	}
	return &Server{
		runner:   opts.Runner,
		logger:   logger,
		layout:   opts.Layout.WithDefaults(),
		frames:   frames,
		canvases: newRegistry(),
	}
}

// Handler returns the router with all routes and middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/ideas", s.handleIdea)
		r.Post("/layouts", s.handleLayout)

		r.Route("/canvases", func(r chi.Router) {
			r.Post("/", s.handleCreateCanvas)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetCanvas)
				r.Delete("/", s.handleDeleteCanvas)
				r.Put("/architecture", s.handleReplaceArchitecture)
				r.Post("/drag", s.handleDrag)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, s.logger, errNotFound("route %s %s", r.Method, r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("METHOD_NOT_ALLOWED", r.Method+" not allowed"))
	})
	return r
}

// ListenAndServe serves the API on addr until ctx is cancelled, then shuts
// down gracefully and stops every live canvas. A clean shutdown returns nil.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	defer s.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); !stderrors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Close stops every live canvas.
func (s *Server) Close() {
	for _, c := range s.canvases.drain() {
		c.close()
	}
}

func requestLogger(l *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m := httpsnoop.CaptureMetrics(next, w, r)
			l.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", m.Code,
				"bytes", m.Written,
				"duration", m.Duration,
				"request_id", middleware.GetReqID(r.Context()))
		})
	}
}
