// Package server exposes the canonicalization pipeline over HTTP.
//
// Routes:
//
//	POST /v1/canonical  body is a graph file; returns canonical text
//	POST /v1/render     body is a graph file; returns SVG (or DOT)
//	GET  /healthz       liveness and build version
//	GET  /metrics       Prometheus metrics, when a collector is set
//
// Both POST routes take the query parameters format (mtx or edges), name
// (the original file name, used for format detection and patches),
// ordering, min_order and max_order. Rejected or malformed graphs get a 422
// with a JSON body {"code", "message"}.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tahmid-khan/cvc-approximation/pkg/buildinfo"
	errs "github.com/tahmid-khan/cvc-approximation/pkg/errors"
	"github.com/tahmid-khan/cvc-approximation/pkg/observability"
	"github.com/tahmid-khan/cvc-approximation/pkg/pipeline"
)

// DefaultMaxBodySize bounds an uploaded graph file.
const DefaultMaxBodySize = 64 << 20

// DefaultMaxParseOrder bounds the order a Matrix Market size line may
// declare in an upload.
const DefaultMaxParseOrder = 1 << 16

// Config configures a Server.
type Config struct {
	Runner  *pipeline.Runner
	Options pipeline.Options // defaults for every request

	// Collector, when set, records request metrics and serves /metrics.
	Collector   *observability.Collector
	Logger      *log.Logger
	MaxBodySize int64
	// MaxParseOrder overrides Options.MaxParseOrder. When both are zero
	// DefaultMaxParseOrder applies.
	MaxParseOrder int
}

// Server handles HTTP requests.
type Server struct {
	runner    *pipeline.Runner
	opts      pipeline.Options
	collector *observability.Collector
	logger    *log.Logger
	maxBody   int64
	router    chi.Router
}

// New creates a Server. A nil Runner gets an uncached one.
func New(cfg Config) (*Server, error) {
	opts := cfg.Options
	opts.Logger = nil
	if cfg.MaxParseOrder > 0 {
		opts.MaxParseOrder = cfg.MaxParseOrder
	}
	if opts.MaxParseOrder == 0 {
		opts.MaxParseOrder = DefaultMaxParseOrder
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	s := &Server{
		runner:    cfg.Runner,
		opts:      opts,
		collector: cfg.Collector,
		logger:    cfg.Logger,
		maxBody:   cfg.MaxBodySize,
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard)
	}
	if s.runner == nil {
		s.runner = pipeline.NewRunner(nil, nil, s.logger)
	}
	if s.maxBody <= 0 {
		s.maxBody = DefaultMaxBodySize
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.logger))
	if s.collector != nil {
		r.Use(s.collector.Middleware)
		r.Method(http.MethodGet, "/metrics", s.collector.Handler())
	}

	r.Get("/healthz", s.health)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/canonical", s.canonical)
		r.Post("/render", s.render)
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Version,
	})
}

func requestLogger(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status: format and input problems are 422,
// everything else is 500.
func writeError(w http.ResponseWriter, err error) {
	code := errs.GetCode(err)
	status := http.StatusInternalServerError
	switch code {
	case errs.ErrCodeInvalidFormat, errs.ErrCodeUnsupportedFormat, errs.ErrCodeInvalidInput, errs.ErrCodeInvalidConfig:
		status = http.StatusUnprocessableEntity
	}
	if code == "" {
		code = errs.ErrCodeInternal
	}
	writeJSON(w, status, errorBody{Code: string(code), Message: errs.UserMessage(err)})
}
