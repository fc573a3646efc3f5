// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

package toolserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/jonathanscholtes/contract-risk-mcp-foundry/shared/logger"
)

// Options configures a tool server.
type Options struct {
	// Name identifies the service in health responses and logs.
	Name string
	// JWTSecret enables bearer auth on tool routes when non-empty.
	JWTSecret string
	// RateLimiter enables per-client limiting when non-nil.
	RateLimiter *RateLimiter
	// Logger defaults to a logger named after the service.
	Logger *logger.Logger
}

// Server hosts a tool registry over HTTP.
type Server struct {
	name     string
	registry *Registry
	router   *mux.Router
	log      *logger.Logger
	auth     *authMiddleware
	limiter  *RateLimiter
	ready    atomic.Bool

	metrics *serverMetrics
}

type serverMetrics struct {
	registry *prometheus.Registry
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newServerMetrics(service string) *serverMetrics {
	reg := prometheus.NewRegistry()
	m := &serverMetrics{
		registry: reg,
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "tool_calls_total",
				Help:        "Total tool invocations by tool and outcome",
				ConstLabels: prometheus.Labels{"service": service},
			},
			[]string{"tool", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "tool_call_duration_milliseconds",
				Help:        "Tool execution time in milliseconds",
				Buckets:     []float64{1, 2, 5, 10, 20, 50, 100, 200, 500, 1000, 5000},
				ConstLabels: prometheus.Labels{"service": service},
			},
			[]string{"tool"},
		),
	}
	reg.MustRegister(m.calls, m.duration)
	return m
}

// CallRequest is the envelope accepted by POST /mcp/call.
type CallRequest struct {
	Tool      string                 `json:"tool"`
	Arguments map[string]interface{} `json:"arguments"`
}

// CallResponse is the envelope returned by every tool route.
type CallResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ToolInfo describes a registered tool for GET /mcp/tools.
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Method      string `json:"method,omitempty"`
	Path        string `json:"path,omitempty"`
}

// NewServer assembles a tool server around a registry.
func NewServer(opts Options, registry *Registry) *Server {
	log := opts.Logger
	if log == nil {
		log = logger.New(opts.Name)
	}

	s := &Server{
		name:     opts.Name,
		registry: registry,
		router:   mux.NewRouter(),
		log:      log,
		limiter:  opts.RateLimiter,
		metrics:  newServerMetrics(opts.Name),
	}
	if opts.JWTSecret != "" {
		s.auth = newAuthMiddleware([]byte(opts.JWTSecret))
	}

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	protected := s.router.NewRoute().Subrouter()
	protected.Use(s.guard)
	protected.HandleFunc("/mcp/call", s.handleCall).Methods(http.MethodPost)
	protected.HandleFunc("/mcp/tools", s.handleListTools).Methods(http.MethodGet)
	for _, t := range registry.List() {
		if t.Method != "" && t.Path != "" {
			protected.HandleFunc(t.Path, s.restHandler(t)).Methods(t.Method)
		}
	}
	return s
}

// Handler returns the fully wired HTTP handler including CORS and
// request tracing.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	return c.Handler(s.trace(s.router))
}

// trace assigns a request ID, echoes it on the response, and logs the
// request once served. Health and metrics probes are left out of the log.
func (s *Server) trace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		r = r.WithContext(context.WithValue(r.Context(), ctxKeyRequestID, requestID))

		if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		s.log.InfoWithDuration("", "", "request served", float64(time.Since(start).Milliseconds()), map[string]interface{}{
			"request_id": requestID,
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     rec.status,
		})
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

type contextKey string

const ctxKeyRequestID contextKey = "request_id"

// RequestID returns the request ID assigned by the server, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID).(string)
	return id
}

// SetReady flips the health endpoint from "starting" to "healthy".
// Services call this once their broker and store connections are up,
// while health probes pass immediately on boot.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// ListenAndServe runs the server until ctx is cancelled, then drains
// in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.log.Info("", "", "tool server listening", map[string]interface{}{"port": port})

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// guard applies auth and rate limiting to tool routes.
func (s *Server) guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := "anonymous"
		if s.auth != nil {
			id, err := s.auth.authenticate(r)
			if err != nil {
				writeEnvelope(w, http.StatusUnauthorized, CallResponse{Success: false, Error: err.Error()})
				return
			}
			clientID = id
		} else if hdr := r.Header.Get("X-Client-ID"); hdr != "" {
			clientID = hdr
		}

		if s.limiter != nil {
			if err := s.limiter.Allow(r.Context(), clientID); err != nil {
				writeEnvelope(w, http.StatusTooManyRequests, CallResponse{Success: false, Error: err.Error()})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "starting"
	if s.ready.Load() {
		status = "healthy"
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    status,
		"service":   s.name,
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	tools := s.registry.List()
	infos := make([]ToolInfo, 0, len(tools))
	for _, t := range tools {
		infos = append(infos, ToolInfo{Name: t.Name, Description: t.Description, Method: t.Method, Path: t.Path})
	}
	writeEnvelope(w, http.StatusOK, CallResponse{Success: true, Data: map[string]interface{}{
		"tools": infos,
		"count": len(infos),
	}})
}

func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	var req CallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeEnvelope(w, http.StatusBadRequest, CallResponse{Success: false, Error: "invalid call envelope: " + err.Error()})
		return
	}
	tool, ok := s.registry.Get(req.Tool)
	if !ok {
		s.metrics.calls.WithLabelValues(req.Tool, "unknown").Inc()
		writeEnvelope(w, http.StatusNotFound, CallResponse{Success: false, Error: "unknown tool " + req.Tool})
		return
	}
	args := req.Arguments
	if args == nil {
		args = map[string]interface{}{}
	}
	// The /mcp/call envelope reports failures in-band with HTTP 200.
	resp, _ := s.execute(r.Context(), tool, args)
	writeEnvelope(w, http.StatusOK, resp)
}

// restHandler adapts a tool to its REST route: path variables, query
// parameters, and an optional JSON body are merged into the arguments.
func (s *Server) restHandler(t Tool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		args := map[string]interface{}{}
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&args); err != nil {
				writeEnvelope(w, http.StatusBadRequest, CallResponse{Success: false, Error: "invalid request body: " + err.Error()})
				return
			}
		}
		for k, vals := range r.URL.Query() {
			if len(vals) > 0 {
				args[k] = vals[0]
			}
		}
		for k, v := range mux.Vars(r) {
			args[k] = v
		}

		resp, status := s.execute(r.Context(), t, args)
		writeEnvelope(w, status, resp)
	}
}

func (s *Server) execute(ctx context.Context, t Tool, args map[string]interface{}) (CallResponse, int) {
	start := time.Now()
	data, err := t.Handler(ctx, args)
	elapsed := float64(time.Since(start).Microseconds()) / 1000.0
	s.metrics.duration.WithLabelValues(t.Name).Observe(elapsed)

	if err != nil {
		status := http.StatusInternalServerError
		var te *ToolError
		if errors.As(err, &te) && te.Status != 0 {
			status = te.Status
		}
		s.metrics.calls.WithLabelValues(t.Name, "error").Inc()
		s.log.ErrorWithErr("", "", "tool call failed", err, map[string]interface{}{"tool": t.Name})
		return CallResponse{Success: false, Error: err.Error()}, status
	}

	s.metrics.calls.WithLabelValues(t.Name, "ok").Inc()
	s.log.InfoWithDuration("", "", "tool call", elapsed, map[string]interface{}{"tool": t.Name})
	return CallResponse{Success: true, Data: data}, http.StatusOK
}

func writeEnvelope(w http.ResponseWriter, status int, resp CallResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
