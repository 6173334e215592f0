// ABOUTME: HTTP server exposing infrastructures: import, edits, integrity errors, auto-fixes and route queries.
// ABOUTME: Routes are served by chi; caches are shared through a Registry and loaded from the store on demand.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/2389-research/infracache/autofix"
	"github.com/2389-research/infracache/cache"
	"github.com/2389-research/infracache/logging"
	"github.com/2389-research/infracache/schema"
	"github.com/2389-research/infracache/store"
)

// InfraStore is the persistence the server needs.
type InfraStore interface {
	cache.ObjectSource
	CreateInfra(ctx context.Context, name string) (store.Infra, error)
	GetInfra(ctx context.Context, infraID ulid.ULID) (store.Infra, error)
	ListInfras(ctx context.Context) ([]store.Infra, error)
	ImportRailJSON(ctx context.Context, infraID ulid.ULID, doc *schema.RailJSON) (int, error)
	ApplyOperations(ctx context.Context, infraID ulid.ULID, ops []schema.Operation) ([]cache.CacheOperation, error)
	GetRoutesFromWaypoint(ctx context.Context, infraID ulid.ULID, w schema.Waypoint) (store.RoutesFromWaypoint, error)
}

// ServerConfig holds the dependencies of a Server.
type ServerConfig struct {
	Addr      string
	AuthToken string
	Store     InfraStore
	// Registry defaults to a new empty registry.
	Registry *cache.Registry
	// Metrics defaults to a new prometheus registry served on /metrics.
	Metrics *prometheus.Registry
}

// Server serves the infra API.
type Server struct {
	store    InfraStore
	registry *cache.Registry
	engine   *autofix.Engine
	metrics  *prometheus.Registry
	router   chi.Router
	addr     string
	token    string
	log      *logrus.Entry

	// preview runs auto-fix for reports without recording metrics.
	preview *autofix.Engine
}

// NewServer wires the router, the auto-fix engine and the metrics.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.New("server: Store must not be nil")
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:7780"
	}
	if cfg.Registry == nil {
		cfg.Registry = cache.NewRegistry()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = prometheus.NewRegistry()
	}

	reg := cfg.Registry
	cfg.Metrics.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "infracache_cached_infras",
		Help: "Infrastructures currently held in memory",
	}, func() float64 { return float64(reg.Len()) }))

	s := &Server{
		store:    cfg.Store,
		registry: cfg.Registry,
		engine:   autofix.NewEngine(autofix.WithMetrics(autofix.NewMetrics(cfg.Metrics))),
		metrics:  cfg.Metrics,
		addr:     cfg.Addr,
		token:    cfg.AuthToken,
		log:      logging.Component("server"),
		preview:  autofix.NewEngine(),
	}
	s.router = s.buildRouter()
	return s, nil
}

// ServeHTTP delegates to the chi router, satisfying http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.WithFields(logrus.Fields{"action": "listen", "addr": s.addr}).Info("server started")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)
	r.Use(AuthMiddleware(s.token))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics, promhttp.HandlerOpts{}))

	r.Route("/infra", func(r chi.Router) {
		r.Get("/", s.handleInfraList)
		r.Post("/", s.handleInfraCreate)

		r.Route("/{infra_id}", func(r chi.Router) {
			r.Get("/", s.handleInfraGet)
			r.Post("/", s.handleApplyOperations)
			r.Post("/railjson", s.handleImportRailJSON)
			r.Get("/errors", s.handleErrors)
			r.Get("/auto_fixes", s.handleAutoFixes)
			r.Get("/report", s.handleReport)

			r.Get("/routes/track_ranges", s.handleRouteTrackRanges)
			r.Post("/routes/nodes", s.handleRoutesNodes)
			r.Get("/routes/{waypoint_type}/{waypoint_id}", s.handleRoutesFromWaypoint)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorBody struct {
	Error string `json:"error"`
	Type  string `json:"type,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var (
		notFound     *cache.ObjectNotFoundError
		duplicate    *cache.DuplicateIDsProvidedError
		conflicting  *autofix.ConflictingFixesError
		trialFailure *autofix.FixTrialFailureError
		missingObj   *autofix.MissingErrorObjectError
	)
	status, kind := http.StatusInternalServerError, "internal"
	// Auto-fix failures wrap cache errors and stay server errors.
	switch {
	case errors.Is(err, autofix.ErrMaximumIterationReached):
		kind = "maximum_iteration_reached"
	case errors.As(err, &conflicting):
		kind = "conflicting_fixes_on_same_object"
	case errors.As(err, &trialFailure):
		kind = "fix_trial_failure"
	case errors.As(err, &missingObj):
		kind = "missing_error_object"
	case errors.Is(err, store.ErrInfraNotFound):
		status, kind = http.StatusNotFound, "infra_not_found"
	case errors.As(err, &notFound):
		status, kind = http.StatusNotFound, "object_not_found"
	case errors.As(err, &duplicate):
		status, kind = http.StatusConflict, "duplicate_ids_provided"
	case errors.Is(err, schema.ErrModifyID):
		status, kind = http.StatusBadRequest, "modify_id"
	case errors.Is(err, schema.ErrInvalidPatch):
		status, kind = http.StatusBadRequest, "invalid_patch"
	}
	if status >= http.StatusInternalServerError {
		s.log.WithError(err).WithField("type", kind).Error("request failed")
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Type: kind})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg, Type: "bad_request"})
}

// infraFromPath parses {infra_id} and checks the infrastructure exists.
func (s *Server) infraFromPath(w http.ResponseWriter, r *http.Request) (store.Infra, bool) {
	id, err := ulid.Parse(chi.URLParam(r, "infra_id"))
	if err != nil {
		badRequest(w, "invalid infra id")
		return store.Infra{}, false
	}
	infra, err := s.store.GetInfra(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return store.Infra{}, false
	}
	return infra, true
}
