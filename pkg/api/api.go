// Package api serves traces and trace history over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/switchtrace/switchtrace/pkg/history"
	"github.com/switchtrace/switchtrace/pkg/trace"
	"github.com/switchtrace/switchtrace/pkg/util"
)

// Runner runs a single trace. *trace.Tracer implements it.
type Runner interface {
	Trace(ctx context.Context, root, target string) (*trace.Result, error)
}

// Config configures a Server.
type Config struct {
	Runner  Runner
	History history.Store

	// Gatherer backs /metrics. When nil the endpoint is not mounted.
	Gatherer prometheus.Gatherer

	// DefaultRoot is used when a request names no root switch.
	DefaultRoot string
}

// Server is the HTTP front end.
type Server struct {
	cfg    Config
	router chi.Router
}

// maxRequestBody caps the size of a POST /v1/traces body.
const maxRequestBody = 64 << 10

// TraceRequest is the body of POST /v1/traces.
type TraceRequest struct {
	Root   string `json:"root"`
	Target string `json:"target"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewServer builds the router for cfg.
func NewServer(cfg Config) *Server {
	if cfg.History == nil {
		cfg.History = history.NopStore{}
	}
	s := &Server{cfg: cfg}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1/traces", func(r chi.Router) {
		r.Post("/", s.handleTrace)
		r.Get("/", s.handleHistory)
	})
	if cfg.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		util.Logger.Infof("Listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleTrace(w http.ResponseWriter, r *http.Request) {
	var req TraceRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		code := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			code = http.StatusRequestEntityTooLarge
		}
		writeError(w, code, fmt.Errorf("decoding request: %w", err))
		return
	}
	root := strings.TrimSpace(req.Root)
	if root == "" {
		root = s.cfg.DefaultRoot
	}

	res, err := s.cfg.Runner.Trace(r.Context(), root, req.Target)
	if res == nil {
		if errors.Is(err, util.ErrInvalidTarget) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err == nil {
			err = errors.New("trace returned no result")
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	rec := history.NewRecord("", "api", res)
	if err := s.cfg.History.Append(r.Context(), rec); err != nil {
		util.Logger.Warnf("Failed to record trace %s: %v", rec.ID, err)
	}

	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	records, err := s.cfg.History.Query(r.Context(), f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if records == nil {
		records = []*history.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func parseFilter(r *http.Request) (history.Filter, error) {
	q := r.URL.Query()
	f := history.Filter{
		Target: q.Get("target"),
		Device: q.Get("device"),
	}

	if v := q.Get("status"); v != "" {
		st, err := trace.ParseStatus(v)
		if err != nil {
			return f, err
		}
		f.Status = st
	}
	for _, p := range []struct {
		key string
		dst *time.Time
	}{{"since", &f.StartTime}, {"until", &f.EndTime}} {
		v := q.Get(p.key)
		if v == "" {
			continue
		}
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, fmt.Errorf("invalid %s: %w", p.key, err)
		}
		*p.dst = ts
	}
	for _, p := range []struct {
		key string
		dst *int
	}{{"limit", &f.Limit}, {"offset", &f.Offset}} {
		v := q.Get(p.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, fmt.Errorf("invalid %s %q", p.key, v)
		}
		*p.dst = n
	}
	return f, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		util.Logger.Warnf("Failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, errorResponse{Error: err.Error()})
}

// requestLogger logs one line per request with its request ID.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		util.WithFields(map[string]interface{}{
			"request_id": middleware.GetReqID(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"elapsed":    time.Since(start).String(),
		}).Debug("request")
	})
}
