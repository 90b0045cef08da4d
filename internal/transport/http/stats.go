package http

import (
	"context"
	"log/slog"
	"net/http"

	"promoreg/internal/registration/store"
	"promoreg/pkg/platform/httputil"
)

// StatsStore exposes store usage numbers.
type StatsStore interface {
	Stats(ctx context.Context) (*store.Stats, error)
}

// QueueInspector exposes the recorder's queue depths.
type QueueInspector interface {
	QueueDepths() (pending, failed int)
}

// StatsResponse is the GET /stats payload.
type StatsResponse struct {
	Store  *store.Stats `json:"store"`
	Queues QueueStats   `json:"queues"`
}

// QueueStats reports the retry pipeline state.
type QueueStats struct {
	Pending int `json:"pending"`
	Failed  int `json:"failed"`
}

// StatsHandler serves the operator statistics surface.
type StatsHandler struct {
	store  StatsStore
	queues QueueInspector
	logger *slog.Logger
}

// NewStatsHandler constructs the handler. queues may be nil when the process
// hosts no recorder.
func NewStatsHandler(statsStore StatsStore, queues QueueInspector, logger *slog.Logger) *StatsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatsHandler{store: statsStore, queues: queues, logger: logger}
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "stats collection failed", "error", err)
		httputil.WriteErrorJSON(w, http.StatusInternalServerError, "internal_error", "failed to collect statistics")
		return
	}

	resp := StatsResponse{Store: stats}
	if h.queues != nil {
		resp.Queues.Pending, resp.Queues.Failed = h.queues.QueueDepths()
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
