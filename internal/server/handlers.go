package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/archflow/pkg/arch"
	"github.com/matzehuels/archflow/pkg/buildinfo"
	"github.com/matzehuels/archflow/pkg/diagram"
	"github.com/matzehuels/archflow/pkg/errors"
	"github.com/matzehuels/archflow/pkg/integrations/ideas"
	"github.com/matzehuels/archflow/pkg/pipeline"
)

// =============================================================================
// Health
// =============================================================================

type healthResponse struct {
	Status   string         `json:"status"`
	Build    buildinfo.Info `json:"build"`
	Canvases int            `json:"canvases"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:   "ok",
		Build:    buildinfo.Get(),
		Canvases: s.canvases.len(),
	})
}

// =============================================================================
// Pipeline
// =============================================================================

type ideaRequest struct {
	Idea    string `json:"idea"`
	Refresh bool   `json:"refresh,omitempty"`
}

func (s *Server) handleIdea(w http.ResponseWriter, r *http.Request) {
	var req ideaRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	a, err := s.generate(r, req)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	l, err := s.runner.Layout(r.Context(), a, s.layoutOptions())
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	a, err := s.readArchitecture(r)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	l, err := s.runner.Layout(r.Context(), a, s.layoutOptions())
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// generate forwards the caller's bearer token to the generation service.
func (s *Server) generate(r *http.Request, req ideaRequest) (*arch.Architecture, error) {
	if err := errors.ValidateIdea(req.Idea); err != nil {
		return nil, err
	}
	ctx := r.Context()
	if tok := bearerToken(r); tok != "" {
		ctx = ideas.WithToken(ctx, tok)
	}
	return s.runner.Generate(ctx, pipeline.Options{Idea: req.Idea, Refresh: req.Refresh})
}

func (s *Server) layoutOptions() pipeline.Options {
	return pipeline.Options{
		Radius:        s.layout.Radius,
		Strength:      s.layout.Strength,
		MaxSteps:      s.layout.MaxSteps,
		Amplification: s.layout.Amplification,
		Logger:        s.logger,
	}
}

// readArchitecture decodes an architecture body and, with ?validate=true,
// enforces its integrity.
func (s *Server) readArchitecture(r *http.Request) (*arch.Architecture, error) {
	a, err := arch.Read(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if err := validateIfRequested(r, a); err != nil {
		return nil, err
	}
	return a, nil
}

func validateIfRequested(r *http.Request, a *arch.Architecture) error {
	v := r.URL.Query().Get("validate")
	if v == "" {
		return nil
	}
	on, err := strconv.ParseBool(v)
	if err != nil {
		return errors.New(errors.ErrCodeInvalidInput, "validate: %q is not a boolean", v)
	}
	if !on {
		return nil
	}
	return a.Validate()
}

// =============================================================================
// JSON Helpers
// =============================================================================

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

func errorBody(code, message string) errorResponse {
	return errorResponse{Error: errorPayload{Code: code, Message: message}}
}

func errNotFound(format string, args ...any) error {
	return errors.New(errors.ErrCodeNotFound, format, args...)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps coded errors to their status. Uncoded errors are logged
// and reported as INTERNAL_ERROR without their detail.
func writeError(w http.ResponseWriter, r *http.Request, l *log.Logger, err error) {
	code := errors.GetCode(err)
	msg := errors.UserMessage(err)
	if code == "" {
		code = errors.ErrCodeInternal
		msg = "internal error"
	}
	status := errors.HTTPStatus(code)
	if status >= http.StatusInternalServerError {
		l.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorBody(string(code), msg))
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, tok, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(tok)
}

func layoutOf(d diagram.Diagram, project string, cost arch.CloudCost) diagram.Layout {
	return diagram.Layout{ProjectName: project, Diagram: d, Cost: cost}
}
