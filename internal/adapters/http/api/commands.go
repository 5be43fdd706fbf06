package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/okian/grouprank/internal/domain/model"
	"github.com/okian/grouprank/pkg/logger"
)

// CommandDependencies defines the mutating operations exposed over HTTP.
type CommandDependencies interface {
	Join(ctx context.Context, user model.User, groupID string) error
	Leave(ctx context.Context, userID, groupID string) error
	Rate(ctx context.Context, user model.User, groupID string, scores model.Scores, comment string) (model.Rating, error)
	RemoveRating(ctx context.Context, userID, groupID string) error
}

// CommandHandler handles join, leave, rate and remove-rating requests.
type CommandHandler struct {
	deps   CommandDependencies
	logger logger.Logger
}

// NewCommandHandler creates a new command handler.
func NewCommandHandler(deps CommandDependencies, log logger.Logger) *CommandHandler {
	return &CommandHandler{deps: deps, logger: log}
}

type membershipRequest struct {
	identity
	GroupID string `json:"groupId"`
}

func (m membershipRequest) validate() error {
	switch {
	case strings.TrimSpace(m.UserID) == "":
		return errors.New("missing userId")
	case strings.TrimSpace(m.GroupID) == "":
		return errors.New("missing groupId")
	}
	return nil
}

// scoresInput keeps each category as raw JSON so wrong types, fractions and
// missing values surface as invalid scores rather than decode failures.
type scoresInput struct {
	Communication     json.RawMessage `json:"communication"`
	Presentation      json.RawMessage `json:"presentation"`
	Content           json.RawMessage `json:"content"`
	HelpfulForCompany json.RawMessage `json:"helpfulForCompany"`
	HelpfulForInterns json.RawMessage `json:"helpfulForInterns"`
	Participation     json.RawMessage `json:"participation"`
}

// parseScores converts the raw scores object into category scores.
func parseScores(raw json.RawMessage) (model.Scores, error) {
	if isAbsent(raw) {
		return model.Scores{}, fmt.Errorf("%w: scores are missing", model.ErrInvalidScore)
	}
	var in scoresInput
	if err := json.Unmarshal(raw, &in); err != nil {
		return model.Scores{}, fmt.Errorf("%w: scores must be an object", model.ErrInvalidScore)
	}
	return in.scores()
}

func isAbsent(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

func (in scoresInput) scores() (model.Scores, error) {
	var out model.Scores
	fields := []struct {
		name string
		src  json.RawMessage
		dst  *int
	}{
		{"communication", in.Communication, &out.Communication},
		{"presentation", in.Presentation, &out.Presentation},
		{"content", in.Content, &out.Content},
		{"helpfulForCompany", in.HelpfulForCompany, &out.HelpfulForCompany},
		{"helpfulForInterns", in.HelpfulForInterns, &out.HelpfulForInterns},
		{"participation", in.Participation, &out.Participation},
	}
	for _, f := range fields {
		if isAbsent(f.src) {
			return model.Scores{}, fmt.Errorf("%w: %s is missing", model.ErrInvalidScore, f.name)
		}
		var v float64
		if err := json.Unmarshal(f.src, &v); err != nil {
			return model.Scores{}, fmt.Errorf("%w: %s must be a number, got %s", model.ErrInvalidScore, f.name, f.src)
		}
		if v != math.Trunc(v) {
			return model.Scores{}, fmt.Errorf("%w: %s must be an integer, got %v", model.ErrInvalidScore, f.name, v)
		}
		if math.Abs(v) > math.MaxInt32 {
			return model.Scores{}, fmt.Errorf("%w: %s must be between %d and %d, got %v",
				model.ErrInvalidScore, f.name, model.MinCategoryScore, model.MaxCategoryScore, v)
		}
		// Range is enforced by the rating store.
		*f.dst = int(v)
	}
	return out, nil
}

type rateRequest struct {
	membershipRequest
	Scores  json.RawMessage `json:"scores"`
	Comment string          `json:"comment"`
}

type statusResponse struct {
	Status  string `json:"status"`
	GroupID string `json:"groupId"`
}

// HandleJoin handles POST /join requests.
func (h *CommandHandler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	const op = "api.join"
	req, ok := h.decodeMembership(w, r, op)
	if !ok {
		return
	}
	if err := h.deps.Join(r.Context(), req.user(), req.GroupID); err != nil {
		writeFailure(r.Context(), w, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "joined", GroupID: req.GroupID})
}

// HandleLeave handles POST /leave requests.
func (h *CommandHandler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	const op = "api.leave"
	req, ok := h.decodeMembership(w, r, op)
	if !ok {
		return
	}
	if err := h.deps.Leave(r.Context(), req.UserID, req.GroupID); err != nil {
		writeFailure(r.Context(), w, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "left", GroupID: req.GroupID})
}

// HandleRate handles POST /rate requests.
func (h *CommandHandler) HandleRate(w http.ResponseWriter, r *http.Request) {
	const op = "api.rate"
	var req rateRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	scores, err := parseScores(req.Scores)
	if err != nil {
		writeFailure(r.Context(), w, h.logger, op, err)
		return
	}
	rating, err := h.deps.Rate(r.Context(), req.user(), req.GroupID, scores, req.Comment)
	if err != nil {
		writeFailure(r.Context(), w, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, newRatingView(rating))
}

// HandleRemoveRating handles DELETE /rating requests.
func (h *CommandHandler) HandleRemoveRating(w http.ResponseWriter, r *http.Request) {
	const op = "api.remove_rating"
	req, ok := h.decodeMembership(w, r, op)
	if !ok {
		return
	}
	if err := h.deps.RemoveRating(r.Context(), req.UserID, req.GroupID); err != nil {
		writeFailure(r.Context(), w, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "removed", GroupID: req.GroupID})
}

func (h *CommandHandler) decodeMembership(w http.ResponseWriter, r *http.Request, op string) (membershipRequest, bool) {
	var req membershipRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return req, false
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return req, false
	}
	return req, true
}
