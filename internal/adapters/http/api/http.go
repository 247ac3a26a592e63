// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	json "github.com/goccy/go-json"
	"github.com/rs/cors"

	"github.com/okian/correlate/internal/adapters/http/swagger"
	"github.com/okian/correlate/internal/adapters/repository"
	service "github.com/okian/correlate/internal/app"
	"github.com/okian/correlate/internal/domain/grouping"
	"github.com/okian/correlate/internal/domain/model"
	"github.com/okian/correlate/internal/domain/similarity"
	"github.com/okian/correlate/pkg/logger"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 10 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	StatsProvider

	// Correlate groups caller-supplied events synchronously.
	Correlate(ctx context.Context, events []model.Event, opts ...grouping.Option) (model.Run, error)

	// Explain returns the per-component score of a against b.
	Explain(a, b model.Event, w similarity.Weights) similarity.Breakdown

	// Submit queues a correlation of a window. Returns service.ErrBackpressure
	// when the queue is full.
	Submit(ctx context.Context, q model.Query) (string, error)

	// Runs and Run expose recent run history.
	Runs(limit int) ([]model.Run, error)
	Run(id string) (model.Run, error)
}

// Server wires HTTP routes for the correlation API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	correlateHandler *CorrelateHandler
	runsHandler      *RunsHandler

	corsOrigins []string
	logger      logger.Logger
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithCORSOrigins allows browser clients from origins. Without it CORS
// headers are not sent.
func WithCORSOrigins(origins ...string) ServerOption {
	return func(s *Server) {
		s.corsOrigins = append(s.corsOrigins, origins...)
	}
}

// WithRunsLimit caps the number of runs GET /runs returns.
func WithRunsLimit(n int) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.runsHandler.maxLimit = n
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...ServerOption) *Server {
	s := &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(deps),
		correlateHandler: NewCorrelateHandler(deps),
		runsHandler:      NewRunsHandler(deps, defaultRunsLimit),
		logger:           logger.Named("api"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns a router with every route and the middleware stack.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.loggingMiddleware)
	if len(s.corsOrigins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins: s.corsOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}).Handler)
	}
	s.Register(r)
	swagger.Register(r)
	return r
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(r chi.Router) {
	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	r.Post("/correlate", MetricsMiddleware(s.correlateHandler.HandleCorrelate, "correlate"))
	r.Post("/explain", MetricsMiddleware(s.correlateHandler.HandleExplain, "explain"))
	r.Post("/runs", MetricsMiddleware(s.runsHandler.HandleSubmit, "runs_submit"))
	r.Get("/runs", MetricsMiddleware(s.runsHandler.HandleList, "runs_list"))
	r.Get("/runs/{id}", MetricsMiddleware(s.runsHandler.HandleGet, "runs_get"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps err onto a status code and error code.
func writeFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, model.ErrInvalidWindow),
		errors.Is(err, grouping.ErrThresholdOutOfRange),
		errors.Is(err, similarity.ErrUnknownLabel),
		errors.Is(err, similarity.ErrInvalidWeight),
		errors.Is(err, similarity.ErrZeroWeights),
		errors.Is(err, repository.ErrInvalidLimit):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, ErrNotFound), errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, ErrBackpressure), errors.Is(err, service.ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", err)
	case errors.Is(err, ErrUnavailable),
		errors.Is(err, service.ErrNotStarted),
		errors.Is(err, service.ErrNoSource):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// decodeBody reads a JSON body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return err
	}
	return nil
}
