package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"promoreg/internal/tracking/destinations"
	trackingmetrics "promoreg/internal/tracking/metrics"
)

// Tracker records a destination selection event.
type Tracker interface {
	Select(ctx context.Context, userID string, dest destinations.Destination) error
}

// RedirectHandler serves GET /go?house=&uid=: it resolves the destination,
// kicks off tracking, and 302s the visitor to the destination URL.
type RedirectHandler struct {
	dests        destinations.Map
	tracker      Tracker
	metrics      *trackingmetrics.Metrics
	logger       *slog.Logger
	trackTimeout time.Duration

	// trackDone, when set, is closed once the tracking goroutine finishes.
	// Tests only.
	trackDone chan struct{}
}

// NewRedirectHandler constructs the handler.
func NewRedirectHandler(dests destinations.Map, tracker Tracker, m *trackingmetrics.Metrics, logger *slog.Logger) *RedirectHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = trackingmetrics.New(nil)
	}
	return &RedirectHandler{
		dests:        dests,
		tracker:      tracker,
		metrics:      m,
		logger:       logger,
		trackTimeout: 15 * time.Second,
	}
}

// ServeHTTP implements the redirect. The visitor's redirect never waits on
// the store: tracking runs on its own goroutine with a detached context, and
// a tracking failure still redirects.
func (h *RedirectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	house := r.URL.Query().Get("house")
	uid := r.URL.Query().Get("uid")

	if house == "" || uid == "" {
		http.Error(w, "Missing parameters", http.StatusBadRequest)
		return
	}

	dest, ok := h.dests.Resolve(house)
	if !ok {
		http.Error(w, "Unknown house", http.StatusBadRequest)
		return
	}

	if h.tracker != nil {
		trackCtx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.trackTimeout)
		done := h.trackDone
		go func() {
			defer cancel()
			if err := h.tracker.Select(trackCtx, uid, dest); err != nil {
				h.logger.WarnContext(trackCtx, "selection tracking failed",
					"user_id", uid,
					"destination", dest.Code,
					"error", err,
				)
			}
			if done != nil {
				close(done)
			}
		}()
	}

	h.metrics.Redirects.WithLabelValues(dest.Code).Inc()
	http.Redirect(w, r, dest.URL, http.StatusFound)
}
