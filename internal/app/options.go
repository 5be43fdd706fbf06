package service

import (
	"time"

	"github.com/okian/grouprank/internal/domain/eligibility"
	"github.com/okian/grouprank/internal/domain/model"
	"github.com/okian/grouprank/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPolicy selects the eligibility rule for rate commands.
func WithPolicy(p eligibility.Policy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

// WithFeedCapacity sets the number of retained live events.
func WithFeedCapacity(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.feedCapacity = n
		}
	}
}

// WithMaxCommentLength sets the rating comment limit in characters.
func WithMaxCommentLength(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxComment = n
		}
	}
}

// WithResetPeriod sets how often every rating is cleared. Zero disables it.
func WithResetPeriod(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.resetPeriod = d
		}
	}
}

// WithResetCheckInterval sets how often the reset deadline is checked.
func WithResetCheckInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.resetCheck = d
		}
	}
}

// WithSeedGroups sets the groups ensured to exist on Start.
func WithSeedGroups(groups []model.Group) Option {
	return func(s *Service) {
		s.seed = append([]model.Group(nil), groups...)
	}
}

// WithClock overrides the service time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
