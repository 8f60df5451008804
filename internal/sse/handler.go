// Package sse serves the per-account server-sent events channel.
package sse

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/panelkit/panel/internal/gate"
	"github.com/panelkit/panel/internal/platform/httpx"
	"github.com/panelkit/panel/internal/shared"
)

// DefaultHeartbeat is the interval between heartbeat events.
const DefaultHeartbeat = 30 * time.Second

// Heartbeat is the payload of a heartbeat event.
type Heartbeat struct {
	AccountID int64     `json:"uid"`
	Time      time.Time `json:"time"`
}

// Handler streams heartbeats to one account until the client goes away.
type Handler struct {
	logger   *slog.Logger
	interval time.Duration
	now      func() time.Time
}

// NewHandler constructs a Handler. A non-positive interval selects DefaultHeartbeat.
func NewHandler(logger *slog.Logger, interval time.Duration) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = DefaultHeartbeat
	}
	return &Handler{logger: logger, interval: interval, now: time.Now}
}

// Stream handles GET /api/sse/{uid}. The gate has already matched uid to the token.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	id := gate.IdentityFromContext(r.Context())
	if id == nil {
		httpx.RespondError(w, h.logger, shared.ErrUnauthorized)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	_, _ = w.Write([]byte(": stream started\n\n"))
	flusher.Flush()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.logger.Debug("sse connected", slog.Int64("account_id", id.AccountID))
	defer h.logger.Debug("sse disconnected", slog.Int64("account_id", id.AccountID))

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			payload, err := json.Marshal(Heartbeat{AccountID: id.AccountID, Time: h.now().UTC()})
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "event: heartbeat\ndata: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
