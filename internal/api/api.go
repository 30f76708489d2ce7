// Package api serves the syllabus and teacher flows over HTTP.
package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/p-n-ai/minerva/internal/platform/metrics"
	"github.com/p-n-ai/minerva/internal/tutor"
)

const maxBodyBytes = 1 << 20

// Check is a named readiness dependency such as the database or cache.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// Config holds the handler's dependencies.
type Config struct {
	Service *tutor.Service
	Metrics *metrics.Metrics // optional
	Checks  []Check
	// ModelChecks run only on readiness requests that also exercise the
	// model, such as provider reachability.
	ModelChecks []Check
	// RequestTimeout bounds each generation request; zero means no limit.
	RequestTimeout time.Duration
}

// Handler is the HTTP surface.
type Handler struct {
	svc     *tutor.Service
	metrics *metrics.Metrics
	checks  []Check
	model   []Check
	timeout time.Duration
	schemas schemas
	mux     *http.ServeMux
}

// NewHandler builds the handler and its routes.
func NewHandler(cfg Config) (*Handler, error) {
	if cfg.Service == nil {
		return nil, fmt.Errorf("api: service is required")
	}
	s, err := loadSchemas()
	if err != nil {
		return nil, fmt.Errorf("api: %w", err)
	}

	h := &Handler{
		svc:     cfg.Service,
		metrics: cfg.Metrics,
		checks:  cfg.Checks,
		model:   cfg.ModelChecks,
		timeout: cfg.RequestTimeout,
		schemas: s,
		mux:     http.NewServeMux(),
	}
	h.routes()
	return h, nil
}

func (h *Handler) routes() {
	h.handle("POST /api/syllabus", h.handleSyllabus)
	h.handle("POST /api/teach", h.handleTeach)
	h.handle("GET /api/teach/stream", h.handleTeachStream)
	h.handle("POST /api/topics", h.handleTopics)
	h.handle("POST /api/topics/export", h.handleExport)
	h.handle("POST /api/reflow", h.handleReflow)
	h.handle("GET /api/levels", h.handleLevels)

	h.handle("GET /healthz", handleHealthz)
	h.handle("GET /readyz", h.handleReadyz)
	h.mux.Handle("GET /metrics", h.metrics.Handler())
}

// handle registers fn under pattern and counts its responses by route.
func (h *Handler) handle(pattern string, fn http.HandlerFunc) {
	h.mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := newStatusRecorder(w)
		fn(rec, r)
		h.metrics.ObserveRequest(pattern, rec.status)
	}))
}

// ServeHTTP applies the request id, logging and recovery middleware.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	chain(h.mux, recoverPanics, logRequests, withRequestID).ServeHTTP(w, r)
}

// generationContext applies the request timeout.
func (h *Handler) generationContext(r *http.Request) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), h.timeout)
}

// readBody reads a size limited body and validates it against schema.
func (h *Handler) readBody(w http.ResponseWriter, r *http.Request, schema string) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, errInvalidJSON
	}
	if err := h.schemas.check(schema, body); err != nil {
		return nil, err
	}
	return body, nil
}
