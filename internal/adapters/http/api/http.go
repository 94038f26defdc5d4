// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	service "github.com/okian/vesselsnap/internal/app"
	"github.com/okian/vesselsnap/internal/domain/model"
	"github.com/okian/vesselsnap/pkg/metrics"
)

// Content types the API can answer with.
const (
	contentTypeJSON    = "application/json; charset=utf-8"
	contentTypeMsgpack = "application/msgpack"
)

// Dependencies required by HTTP handlers. Using an interface keeps the
// handler layer loosely coupled to the service implementation.
type Dependencies interface {
	// Snapshot collects vessel positions inside box for about window.
	// A zero window means the service default.
	Snapshot(ctx context.Context, box model.BoundingBox, window time.Duration) (service.Snapshot, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	snapshotHandler *SnapshotHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, defaultBox model.BoundingBox) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		snapshotHandler: NewSnapshotHandler(deps, defaultBox),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	snapshot := CORSMiddleware(MetricsMiddleware(s.snapshotHandler.HandleSnapshot, "snapshot"))

	mux.HandleFunc("/healthz", CORSMiddleware(MetricsMiddleware(s.healthHandler.HandleHealth, "healthz")))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/snapshot", snapshot)
	mux.HandleFunc("/ais-snapshot", snapshot)
	mux.Handle("/metrics", MetricsHandler())
}

type errorResponse struct {
	OK    bool   `json:"ok" msgpack:"ok"`
	Code  string `json:"code" msgpack:"code"`
	Error string `json:"error" msgpack:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// respond encodes v as msgpack when the client asks for it, JSON otherwise.
func respond(w http.ResponseWriter, r *http.Request, status int, v any) {
	if !wantsMsgpack(r) {
		writeJSON(w, status, v)
		return
	}
	body, err := msgpack.Marshal(v)
	if err != nil {
		metrics.RecordErrorByComponent("api", "encode")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Code: "internal_error", Error: err.Error()})
		return
	}
	w.Header().Set("Content-Type", contentTypeMsgpack)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	respond(w, r, status, errorResponse{OK: false, Code: code, Error: msg})
}

func wantsMsgpack(r *http.Request) bool {
	accept := strings.ToLower(r.Header.Get("Accept"))
	return strings.Contains(accept, "application/msgpack") || strings.Contains(accept, "application/x-msgpack")
}
