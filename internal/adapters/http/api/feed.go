package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/okian/grouprank/internal/domain/model"
)

// FeedDependencies defines the live feed read operation.
type FeedDependencies interface {
	LiveFeed(ctx context.Context, viewerID string) []model.LiveEvent
}

// LiveFeedHandler serves the rolling live feed to polling clients.
type LiveFeedHandler struct {
	deps         FeedDependencies
	pollInterval time.Duration
}

// NewLiveFeedHandler creates a new live feed handler.
func NewLiveFeedHandler(deps FeedDependencies, pollInterval time.Duration) *LiveFeedHandler {
	return &LiveFeedHandler{deps: deps, pollInterval: pollInterval}
}

// HandleLiveFeed handles GET /live-feed?userId=ID requests.
func (h *LiveFeedHandler) HandleLiveFeed(w http.ResponseWriter, r *http.Request) {
	viewer := strings.TrimSpace(r.URL.Query().Get("userId"))
	events := h.deps.LiveFeed(r.Context(), viewer)
	if events == nil {
		events = []model.LiveEvent{}
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, liveFeedResponse{
		Events:         events,
		PollIntervalMS: h.pollInterval.Milliseconds(),
	})
}
