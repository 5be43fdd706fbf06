package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/okian/grouprank/internal/domain/model"
	"github.com/okian/grouprank/pkg/logger"
)

// QueryDependencies defines the read operations exposed over HTTP.
type QueryDependencies interface {
	Leaderboard(ctx context.Context, viewerID string) ([]model.RankedGroup, error)
	History(ctx context.Context, groupID string) ([]model.Rating, error)
	Members(ctx context.Context, groupID string) ([]model.Member, error)
}

// GroupsHandler handles leaderboard, history and member listings.
type GroupsHandler struct {
	deps   QueryDependencies
	logger logger.Logger
}

// NewGroupsHandler creates a new groups handler.
func NewGroupsHandler(deps QueryDependencies, log logger.Logger) *GroupsHandler {
	return &GroupsHandler{deps: deps, logger: log}
}

// HandleListGroups handles GET /groups?userId=ID requests.
func (h *GroupsHandler) HandleListGroups(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_groups"
	viewer := strings.TrimSpace(r.URL.Query().Get("userId"))
	rows, err := h.deps.Leaderboard(r.Context(), viewer)
	if err != nil {
		writeFailure(r.Context(), w, h.logger, op, err)
		return
	}
	out := groupsResponse{
		Groups:      make([]groupView, 0, len(rows)),
		GeneratedAt: time.Now().UTC(),
	}
	for _, row := range rows {
		out.Groups = append(out.Groups, newGroupView(row))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleRatings handles GET /groups/{id}/ratings requests.
func (h *GroupsHandler) HandleRatings(w http.ResponseWriter, r *http.Request) {
	const op = "api.group_ratings"
	groupID := r.PathValue("id")
	list, err := h.deps.History(r.Context(), groupID)
	if err != nil {
		writeFailure(r.Context(), w, h.logger, op, err)
		return
	}
	out := ratingsResponse{GroupID: groupID, Ratings: make([]ratingView, 0, len(list))}
	for _, rt := range list {
		out.Ratings = append(out.Ratings, newRatingView(rt))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleMembers handles GET /groups/{id}/members requests.
func (h *GroupsHandler) HandleMembers(w http.ResponseWriter, r *http.Request) {
	const op = "api.group_members"
	groupID := r.PathValue("id")
	members, err := h.deps.Members(r.Context(), groupID)
	if err != nil {
		writeFailure(r.Context(), w, h.logger, op, err)
		return
	}
	if members == nil {
		members = []model.Member{}
	}
	writeJSON(w, http.StatusOK, membersResponse{GroupID: groupID, Members: members})
}
