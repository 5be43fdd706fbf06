// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/grouprank/internal/domain/model"
	"github.com/okian/grouprank/pkg/logger"
)

// Default API configuration constants.
const (
	defaultPollInterval = 5 * time.Second
	maxBodyBytes        = 64 << 10
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	CommandDependencies
	QueryDependencies
	FeedDependencies
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithPollInterval sets the live feed poll interval advertised to clients.
func WithPollInterval(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithLogger sets the logger used for server-side failures.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	commandHandler *CommandHandler
	groupsHandler  *GroupsHandler
	feedHandler    *LiveFeedHandler

	pollInterval time.Duration
	logger       logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{pollInterval: defaultPollInterval}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("api")
	}
	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(statsProvider)
	s.commandHandler = NewCommandHandler(deps, s.logger)
	s.groupsHandler = NewGroupsHandler(deps, s.logger)
	s.feedHandler = NewLiveFeedHandler(deps, s.pollInterval)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("POST /join", MetricsMiddleware(s.commandHandler.HandleJoin, "join"))
	mux.HandleFunc("POST /leave", MetricsMiddleware(s.commandHandler.HandleLeave, "leave"))
	mux.HandleFunc("POST /rate", MetricsMiddleware(s.commandHandler.HandleRate, "rate"))
	mux.HandleFunc("DELETE /rating", MetricsMiddleware(s.commandHandler.HandleRemoveRating, "rating"))

	mux.HandleFunc("GET /groups", MetricsMiddleware(s.groupsHandler.HandleListGroups, "groups"))
	mux.HandleFunc("GET /groups/{id}/ratings", MetricsMiddleware(s.groupsHandler.HandleRatings, "group_ratings"))
	mux.HandleFunc("GET /groups/{id}/members", MetricsMiddleware(s.groupsHandler.HandleMembers, "group_members"))

	mux.HandleFunc("GET /live-feed", MetricsMiddleware(s.feedHandler.HandleLiveFeed, "live_feed"))
}

// identity is the caller identity carried by every command body.
type identity struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	UserName    string `json:"userName"`
	Branch      string `json:"branch"`
}

func (id identity) user() model.User {
	name := id.DisplayName
	if name == "" {
		name = id.UserName
	}
	return model.User{ID: id.UserID, DisplayName: name, Branch: id.Branch}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps err onto a status, logging server-side failures.
func writeFailure(ctx context.Context, w http.ResponseWriter, log logger.Logger, op string, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error(ctx, "request failed",
			logger.String("op", op),
			logger.Int("status", status),
			logger.Error(err),
		)
		// Infrastructure details stay in the log.
		err = NewKind(op, kindFor(status))
	}
	writeError(w, status, code, err)
}

func kindFor(status int) error {
	if status == http.StatusServiceUnavailable {
		return ErrUnavailable
	}
	return ErrInternal
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, op string, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return WrapKind(op, ErrBadRequest, fmt.Errorf("body exceeds %d bytes", tooLarge.Limit))
		}
		return WrapKind(op, ErrBadRequest, err)
	}
	return nil
}
