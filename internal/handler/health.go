package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// pingTimeout bounds one health probe so a hung store can't hang the check.
const pingTimeout = 2 * time.Second

// Pinger is satisfied by both store backends.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports whether the store still answers.
type HealthHandler struct {
	store  Pinger
	logger *slog.Logger
}

func NewHealthHandler(store Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{store: store, logger: logger}
}

// HandleHealth pings the store.
//
// HTTP: GET /health
// 200 → {"message": "OK"}
// 503 → {"message": "Store unavailable", "error": "store_unavailable"}
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.logger.Error("health check failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, Envelope{
			Message: "Store unavailable",
			Error:   "store_unavailable",
		})
		return
	}
	writeJSON(w, http.StatusOK, Envelope{Message: "OK"})
}
