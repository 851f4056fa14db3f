package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ValentinKolb/dRing/rpc/delivery"
	"github.com/ValentinKolb/dRing/rpc/node"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("server")

// NewAdminServer creates the admin HTTP server of a node.
// With debug set every request is logged.
//
// Usage:
//
//	s := server.NewAdminServer(":8080", n, false)
//	go func() {
//		if err := s.Serve(); err != nil {
//			panic(err)
//		}
//	}()
//	defer s.Shutdown(context.Background())
func NewAdminServer(endpoint string, n IRingNode, debug bool) *AdminServer {
	s := &AdminServer{node: n}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /ring", s.handleRing)
	mux.HandleFunc("POST /ring/check", s.handleCheck)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.HandleFunc("GET /stats", s.handleStats)

	var handler http.Handler = mux
	if debug {
		handler = loggerMiddleware(mux)
	}
	s.handler = handler
	s.srv = &http.Server{
		Addr:              endpoint,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// AdminServer serves the ring view, liveness checks and metrics of one node
type AdminServer struct {
	node    IRingNode
	handler http.Handler
	srv     *http.Server
}

// Handler returns the HTTP handler of the server
func (s *AdminServer) Handler() http.Handler {
	return s.handler
}

// Serve listens on the configured endpoint until Shutdown is called
func (s *AdminServer) Serve() error {
	Logger.Infof("Starting admin server on %s", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server, waiting for running requests until ctx is done
func (s *AdminServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// --------------------------------------------------------------------------
// Handler
// --------------------------------------------------------------------------

func (s *AdminServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *AdminServer) handleRing(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.node.View())
}

// checkResponse is the body of POST /ring/check
type checkResponse struct {
	Report node.NeighborReport `json:"report"`
	Error  string              `json:"error,omitempty"`
}

// handleCheck runs a liveness check. A failed neighbor is answered with 503,
// a node without neighbors counts as healthy.
func (s *AdminServer) handleCheck(w http.ResponseWriter, r *http.Request) {
	report, err := s.node.CheckNeighbors(r.Context())
	resp := checkResponse{Report: report}

	var failure *node.NeighborFailureError
	status := http.StatusOK
	switch {
	case err == nil:
	case errors.Is(err, node.ErrNoNeighbors):
		resp.Error = err.Error()
	case errors.As(err, &failure):
		resp.Error = err.Error()
		status = http.StatusServiceUnavailable
	default:
		resp.Error = err.Error()
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, resp)
}

// handleMetrics writes the node metrics followed by the process metrics
func (s *AdminServer) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	s.node.WritePrometheus(w)
	metrics.WritePrometheus(w, true)
}

// statsResponse is the body of GET /stats
type statsResponse struct {
	Pending  int                               `json:"pending"`
	Delivery delivery.Snapshot                 `json:"delivery"`
	Timers   map[string]map[string]interface{} `json:"timers"`
}

func (s *AdminServer) handleStats(w http.ResponseWriter, _ *http.Request) {
	m := s.node.Delivery()
	writeJSON(w, http.StatusOK, statsResponse{
		Pending:  s.node.Pending(),
		Delivery: m.Snapshot(),
		Timers:   m.Registry().GetAll(),
	})
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		Logger.Errorf("Failed to write response: %v", err)
	}
}

// --------------------------------------------------------------------------
// Middleware (logging)
// --------------------------------------------------------------------------

// responseWriter captures the status code of a response
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// loggerMiddleware logs method, path, status and duration of every request
func loggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		Logger.Debugf("%s %s => %d took %s", r.Method, r.URL.Path, rw.statusCode, time.Since(start))
	})
}
