// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/okian/grouprank/internal/adapters/repository"
	"github.com/okian/grouprank/internal/domain/aggregate"
	"github.com/okian/grouprank/internal/domain/eligibility"
	"github.com/okian/grouprank/internal/domain/feed"
	"github.com/okian/grouprank/internal/domain/membership"
	"github.com/okian/grouprank/internal/domain/model"
	"github.com/okian/grouprank/internal/domain/ranking"
	"github.com/okian/grouprank/internal/domain/ratings"
	"github.com/okian/grouprank/pkg/logger"
	"github.com/okian/grouprank/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultResetPeriod = 7 * 24 * time.Hour
	defaultResetCheck  = time.Minute
)

// Service orchestrates membership, ratings, statistics and the live feed.
//
// Mutating commands hold the keyed lock of the user and then of the group,
// always in that order. They also hold resetMu for reading so a periodic
// reset never interleaves with a half-applied command.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   repository.Store
	members *membership.Registry
	ratings *ratings.Store
	gate    *eligibility.Gate
	stats   *aggregate.Cache
	feed    *feed.Publisher

	userLocks  *keyedLocks
	groupLocks *keyedLocks
	resetMu    sync.RWMutex

	// Configuration
	policy       eligibility.Policy
	feedCapacity int
	maxComment   int
	resetPeriod  time.Duration
	resetCheck   time.Duration
	seed         []model.Group
	now          func() time.Time

	// State
	started   bool
	lastReset time.Time
	stopCh    chan struct{}
	doneCh    chan struct{}

	// Logging
	logger logger.Logger
}

// New constructs a Service over store.
func New(store repository.Store, opts ...Option) *Service {
	s := &Service{
		store:        store,
		policy:       eligibility.PolicyStrict,
		feedCapacity: feed.DefaultCapacity,
		maxComment:   model.MaxCommentLength,
		resetPeriod:  defaultResetPeriod,
		resetCheck:   defaultResetCheck,
		now:          time.Now,
		userLocks:    newKeyedLocks(),
		groupLocks:   newKeyedLocks(),
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}

	s.members = membership.NewRegistry(store, membership.WithClock(s.now))
	s.ratings = ratings.New(store,
		ratings.WithClock(s.now),
		ratings.WithMaxCommentLength(s.maxComment),
	)
	s.gate = eligibility.New(s.policy)
	s.stats = aggregate.NewCache(s.ratings.ListFor)
	s.feed = feed.NewPublisher(
		feed.WithCapacity(s.feedCapacity),
		feed.WithClock(s.now),
	)
	s.lastReset = s.now()
	return s
}

// Start seeds the configured groups and launches the reset loop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting rating service...")

	for _, g := range s.seed {
		if err := s.store.EnsureGroup(ctx, g); err != nil {
			return fmt.Errorf("seed group %s: %w", g.ID, err)
		}
	}

	s.lastReset = s.now()
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	if s.resetPeriod > 0 {
		go s.resetLoop(s.stopCh, s.doneCh)
	} else {
		close(s.doneCh)
	}

	s.started = true
	s.logger.Info(ctx, "rating service started",
		logger.Int("seededGroups", len(s.seed)),
		logger.String("policy", string(s.gate.Policy())),
		logger.Int("feedCapacity", s.feed.Capacity()),
		logger.Duration("resetPeriod", s.resetPeriod),
	)
	return nil
}

// Stop halts the reset loop and closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping rating service...")

	close(s.stopCh)
	<-s.doneCh

	if err := s.store.Close(); err != nil {
		s.logger.Warn(context.Background(), "closing store", logger.Error(err))
	}

	s.started = false
	s.logger.Info(context.Background(), "rating service stopped")
}

func (s *Service) resetLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.resetCheck)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if _, err := s.ResetIfDue(context.Background()); err != nil {
				s.logger.Error(context.Background(), "periodic rating reset failed", logger.Error(err))
			}
		}
	}
}

// lockCommand serializes a command on the user and then the group.
func (s *Service) lockCommand(userID, groupID string) func() {
	s.resetMu.RLock()
	unlockUser := s.userLocks.lock(userID)
	unlockGroup := s.groupLocks.lock(groupID)
	return func() {
		unlockGroup()
		unlockUser()
		s.resetMu.RUnlock()
	}
}

// Join adds the user to the group.
func (s *Service) Join(ctx context.Context, user model.User, groupID string) (err error) {
	user.ID = strings.TrimSpace(user.ID)
	if user.ID == "" {
		return ErrMissingUser
	}
	defer func() { s.finish(ctx, "join", user.ID, groupID, err) }()

	unlock := s.lockCommand(user.ID, groupID)
	defer unlock()

	if _, err := s.group(ctx, groupID); err != nil {
		return err
	}
	facts, err := s.facts(ctx, user.ID, groupID, false)
	if err != nil {
		return err
	}
	if err := s.gate.Check(eligibility.ActionJoin, groupID, facts); err != nil {
		return err
	}
	return s.members.Join(ctx, user, groupID)
}

// Leave removes the user from the group.
func (s *Service) Leave(ctx context.Context, userID, groupID string) (err error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrMissingUser
	}
	defer func() { s.finish(ctx, "leave", userID, groupID, err) }()

	unlock := s.lockCommand(userID, groupID)
	defer unlock()

	if _, err := s.group(ctx, groupID); err != nil {
		return err
	}
	facts, err := s.facts(ctx, userID, groupID, false)
	if err != nil {
		return err
	}
	if err := s.gate.Check(eligibility.ActionLeave, groupID, facts); err != nil {
		return err
	}
	return s.members.Leave(ctx, userID, groupID)
}

// Rate records the user's rating of the group and publishes a live event.
// An unknown group is reported first, then malformed input, then eligibility.
func (s *Service) Rate(ctx context.Context, user model.User, groupID string, scores model.Scores, comment string) (r model.Rating, err error) {
	user.ID = strings.TrimSpace(user.ID)
	if user.ID == "" {
		return model.Rating{}, ErrMissingUser
	}
	defer func() { s.finish(ctx, "rate", user.ID, groupID, err) }()

	// Groups are never removed, so the lookup does not need the command lock.
	g, err := s.group(ctx, groupID)
	if err != nil {
		return model.Rating{}, err
	}
	if err := s.ratings.Validate(groupID, user.ID, scores, comment); err != nil {
		return model.Rating{}, err
	}

	unlock := s.lockCommand(user.ID, groupID)
	defer unlock()

	facts, err := s.facts(ctx, user.ID, groupID, true)
	if err != nil {
		return model.Rating{}, err
	}
	if err := s.gate.Check(eligibility.ActionRate, groupID, facts); err != nil {
		return model.Rating{}, err
	}
	r, err = s.ratings.Submit(ctx, groupID, user.ID, raterName(user), scores, comment)
	if err != nil {
		return model.Rating{}, err
	}
	s.stats.Invalidate(groupID)
	s.feed.Record(r, g.Name)
	metrics.RecordRatingSubmitted()
	return r, nil
}

// RemoveRating deletes the user's rating of the group.
func (s *Service) RemoveRating(ctx context.Context, userID, groupID string) (err error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrMissingUser
	}
	defer func() { s.finish(ctx, "remove_rating", userID, groupID, err) }()

	unlock := s.lockCommand(userID, groupID)
	defer unlock()

	if _, err := s.group(ctx, groupID); err != nil {
		return err
	}
	facts, err := s.facts(ctx, userID, groupID, true)
	if err != nil {
		return err
	}
	if err := s.gate.Check(eligibility.ActionRemoveRating, groupID, facts); err != nil {
		return err
	}
	if err := s.ratings.Remove(ctx, groupID, userID); err != nil {
		return err
	}
	s.stats.Invalidate(groupID)
	metrics.RecordRatingRemoved()
	return nil
}

// Leaderboard ranks every group by total rating. A non-empty viewerID
// annotates each row with that user's flags.
func (s *Service) Leaderboard(ctx context.Context, viewerID string) ([]model.RankedGroup, error) {
	groups, err := s.store.Groups(ctx)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	rows := make([]model.RankedGroup, 0, len(groups))
	for _, g := range groups {
		st, err := s.stats.Stats(ctx, g.ID)
		if err != nil {
			return nil, fmt.Errorf("leaderboard: %w", err)
		}
		members, err := s.members.Members(ctx, g.ID)
		if err != nil {
			return nil, fmt.Errorf("leaderboard: %w", err)
		}
		rows = append(rows, model.RankedGroup{Group: g, Stats: st, MemberCount: len(members)})
	}
	ranked := ranking.Rank(rows)

	viewerID = strings.TrimSpace(viewerID)
	if viewerID == "" {
		return ranked, nil
	}
	for i, row := range ranked {
		facts, err := s.facts(ctx, viewerID, row.Group.ID, true)
		if err != nil {
			return nil, fmt.Errorf("leaderboard: %w", err)
		}
		ranked[i].Viewer = &model.ViewerFlags{
			IsMember: facts.CurrentGroup == row.Group.ID,
			HasRated: facts.HasRating,
			CanRate:  s.gate.Allowed(eligibility.ActionRate, row.Group.ID, facts),
		}
	}
	return ranked, nil
}

// History returns the group's ratings, most recent first.
func (s *Service) History(ctx context.Context, groupID string) ([]model.Rating, error) {
	return s.ratings.ListFor(ctx, groupID)
}

// Members lists the group's members in join order.
func (s *Service) Members(ctx context.Context, groupID string) ([]model.Member, error) {
	return s.members.Members(ctx, groupID)
}

// LiveFeed returns the retained live events, newest last.
func (s *Service) LiveFeed(_ context.Context, viewerID string) []model.LiveEvent {
	return s.feed.Poll(strings.TrimSpace(viewerID))
}

// ResetRatings clears every rating, the stats cache and the live feed.
// Memberships are kept.
func (s *Service) ResetRatings(ctx context.Context) error {
	s.resetMu.Lock()
	defer s.resetMu.Unlock()
	return s.resetLocked(ctx)
}

// ResetIfDue resets ratings once the reset period has elapsed since the
// last reset. It reports whether a reset happened.
func (s *Service) ResetIfDue(ctx context.Context) (bool, error) {
	if s.resetPeriod <= 0 {
		return false, nil
	}
	s.resetMu.Lock()
	defer s.resetMu.Unlock()
	if s.now().Sub(s.lastReset) < s.resetPeriod {
		return false, nil
	}
	if err := s.resetLocked(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// resetLocked must be called with resetMu held for writing.
func (s *Service) resetLocked(ctx context.Context) error {
	n, err := s.store.ClearRatings(ctx)
	if err != nil {
		return fmt.Errorf("reset ratings: %w", err)
	}
	s.stats.InvalidateAll()
	s.feed.Clear()
	s.lastReset = s.now()
	metrics.RecordRatingReset(n)
	s.logger.Info(ctx, "ratings reset", logger.Int("cleared", n))
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":        s.started,
		"policy":         string(s.gate.Policy()),
		"feedCapacity":   s.feed.Capacity(),
		"feedLength":     s.feed.Len(),
		"resetPeriod":    s.resetPeriod.String(),
		"cachedStats":    s.stats.Len(),
		"maxCommentSize": s.maxComment,
	}

	s.resetMu.RLock()
	stats["lastReset"] = s.lastReset.UTC()
	s.resetMu.RUnlock()

	if !s.started {
		return stats
	}

	groups, err := s.store.Groups(ctx)
	if err != nil {
		stats["storeError"] = err.Error()
		return stats
	}
	totalMembers := 0
	for _, g := range groups {
		members, err := s.store.Members(ctx, g.ID)
		if err != nil {
			continue
		}
		totalMembers += len(members)
	}
	stats["totalGroups"] = len(groups)
	stats["totalMembers"] = totalMembers

	// Update metrics
	metrics.UpdateGroupsTotal(len(groups))
	metrics.UpdateMembersTotal(totalMembers)
	metrics.UpdateLiveFeedSize(s.feed.Len())

	return stats
}

func (s *Service) group(ctx context.Context, groupID string) (model.Group, error) {
	g, err := s.store.Group(ctx, groupID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Group{}, model.ErrNotFound
	}
	if err != nil {
		return model.Group{}, fmt.Errorf("load group %s: %w", groupID, err)
	}
	return g, nil
}

// facts gathers the eligibility inputs. The rating lookup is skipped for
// membership commands.
func (s *Service) facts(ctx context.Context, userID, groupID string, withRating bool) (eligibility.Facts, error) {
	var f eligibility.Facts
	current, ok, err := s.members.GroupOf(ctx, userID)
	if err != nil {
		return f, err
	}
	if ok {
		f.CurrentGroup = current
	}
	if withRating {
		_, has, err := s.ratings.Get(ctx, groupID, userID)
		if err != nil {
			return f, err
		}
		f.HasRating = has
	}
	return f, nil
}

// finish records the outcome of a command.
func (s *Service) finish(ctx context.Context, command, userID, groupID string, err error) {
	outcome := Outcome(err)
	metrics.RecordCommand(command, outcome)
	fields := []logger.Field{
		logger.String("command", command),
		logger.String("userId", userID),
		logger.String("groupId", groupID),
		logger.String("outcome", outcome),
	}
	switch {
	case err == nil:
		s.logger.Debug(ctx, "command applied", fields...)
	case outcome == outcomeError:
		s.logger.Error(ctx, "command failed", append(fields, logger.Error(err))...)
	default:
		s.logger.Info(ctx, "command rejected", append(fields, logger.Error(err))...)
	}
}

const outcomeError = "error"

// Outcome classifies a command error for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrMissingUser):
		return "missing_user"
	case errors.Is(err, model.ErrAlreadyMember):
		return "already_member"
	case errors.Is(err, model.ErrNotMember):
		return "not_member"
	case errors.Is(err, model.ErrNotEligible):
		return "not_eligible"
	case errors.Is(err, model.ErrDuplicateRating):
		return "duplicate_rating"
	case errors.Is(err, model.ErrInvalidScore):
		return "invalid_score"
	case errors.Is(err, model.ErrNotFound):
		return "not_found"
	default:
		return outcomeError
	}
}

func raterName(u model.User) string {
	if name := strings.TrimSpace(u.DisplayName); name != "" {
		return name
	}
	return u.ID
}
