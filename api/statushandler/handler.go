package statushandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/shard-integrity-enforcer/enforcer"
	"github.com/ruteri/shard-integrity-enforcer/interfaces"
)

// EnforcerControl is the subset of the enforcement loop the HTTP surface
// needs. The production implementation is *enforcer.Enforcer.
type EnforcerControl interface {
	Status() interfaces.EnforcerStatus
	RecentAlerts(n int) []interfaces.Alert
	CheckNow(ctx context.Context) error
}

// Handler exposes the enforcement loop state over HTTP. All endpoints are
// read-only except for the manual check trigger, which never reveals shard
// material; responses carry observations and alert records only.
type Handler struct {
	enforcer EnforcerControl
	log      *slog.Logger
}

// NewHandler creates a new HTTP request handler backed by the given enforcer.
func NewHandler(enforcer EnforcerControl, log *slog.Logger) *Handler {
	return &Handler{
		enforcer: enforcer,
		log:      log,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/v1/status", h.HandleStatus)
	r.Get("/api/v1/alerts", h.HandleAlerts)
	r.Get("/api/v1/shards", h.HandleShards)
	r.Post("/api/v1/check", h.HandleCheck)
}

// HandleStatus returns a point-in-time snapshot of the enforcement loop.
//
// URL format: GET /api/v1/status
//
// Response: JSON-encoded EnforcerStatus with the loop state, the adaptive
// temperature baseline, cycle counters and per-shard observations.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	status := h.enforcer.Status()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		h.log.Error("Failed to encode response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
}

// HandleAlerts returns recorded alerts, newest first.
//
// URL format: GET /api/v1/alerts?limit=n
// The optional limit query parameter caps the number of returned alerts;
// when absent, all retained alerts are returned. The retention window is
// bounded, so old alerts age out of this endpoint even though the lifetime
// counter in /api/v1/status keeps growing.
//
// Response: JSON array of alert records.
func (h *Handler) HandleAlerts(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			http.Error(w, fmt.Sprintf("invalid limit %q", raw), http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	alerts := h.enforcer.RecentAlerts(limit)
	if alerts == nil {
		alerts = []interfaces.Alert{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(alerts); err != nil {
		h.log.Error("Failed to encode response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
}

// HandleShards returns the per-shard observations from the latest snapshot.
//
// URL format: GET /api/v1/shards
//
// Response: JSON array of shard states in configuration order.
func (h *Handler) HandleShards(w http.ResponseWriter, r *http.Request) {
	status := h.enforcer.Status()
	shards := status.Shards
	if shards == nil {
		shards = []interfaces.ShardState{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(shards); err != nil {
		h.log.Error("Failed to encode response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
}

// HandleCheck triggers an enforcement cycle outside the regular schedule.
// While the loop is running the check is handed to it; on a stopped
// enforcer the cycle runs inline before the response is written.
//
// URL format: POST /api/v1/check
//
// Response: 202 with a JSON status once the cycle has completed.
func (h *Handler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.enforcer.CheckNow(r.Context()); err != nil {
		if errors.Is(err, enforcer.ErrNotRunning) {
			http.Error(w, fmt.Errorf("could not run check: %w", err).Error(), http.StatusConflict)
			return
		}
		http.Error(w, fmt.Errorf("could not run check: %w", err).Error(), http.StatusInternalServerError)
		return
	}

	h.log.Info("Manual enforcement check completed", "remoteAddr", r.RemoteAddr)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	w.Write([]byte(`{"status":"check completed"}`))
}
