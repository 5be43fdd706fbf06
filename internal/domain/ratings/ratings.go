// Package ratings is the rating record store: validated, immutable rating
// submissions keyed by (group, rater).
package ratings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/okian/grouprank/internal/adapters/repository"
	"github.com/okian/grouprank/internal/domain/model"
)

// Backend is the slice of the persistence gateway the record store needs.
type Backend interface {
	Group(ctx context.Context, groupID string) (model.Group, error)
	Rating(ctx context.Context, groupID, raterID string) (model.Rating, error)
	Ratings(ctx context.Context, groupID string) ([]model.Rating, error)
	PutRating(ctx context.Context, r model.Rating) error
	DeleteRating(ctx context.Context, groupID, raterID string) error
}

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithClock overrides the time source used for createdAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides rating id generation.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// WithMaxCommentLength sets the comment limit in characters.
func WithMaxCommentLength(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxComment = n
		}
	}
}

type submission struct {
	GroupID string `validate:"required"`
	RaterID string `validate:"required"`
	Scores  model.Scores
}

// Store validates and records ratings.
type Store struct {
	backend    Backend
	validate   *validator.Validate
	now        func() time.Time
	newID      func() string
	maxComment int
}

// New creates a record store backed by backend.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend:    backend,
		validate:   validator.New(),
		now:        time.Now,
		newID:      uuid.NewString,
		maxComment: model.MaxCommentLength,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Validate checks scores and comment without touching the backend.
// Out-of-range values are rejected, never clamped.
func (s *Store) Validate(groupID, raterID string, scores model.Scores, comment string) error {
	err := s.validate.Struct(submission{GroupID: groupID, RaterID: raterID, Scores: scores})
	if err != nil {
		return invalid(err)
	}
	if err := s.validate.Var(comment, fmt.Sprintf("max=%d", s.maxComment)); err != nil {
		return fmt.Errorf("%w: comment exceeds %d characters", model.ErrInvalidScore, s.maxComment)
	}
	return nil
}

// Submit records a new rating. It fails with model.ErrInvalidScore on bad
// input and model.ErrDuplicateRating if the rater already rated the group.
func (s *Store) Submit(ctx context.Context, groupID, raterID, raterName string, scores model.Scores, comment string) (model.Rating, error) {
	if err := s.Validate(groupID, raterID, scores, comment); err != nil {
		return model.Rating{}, err
	}
	if _, err := s.backend.Group(ctx, groupID); err != nil {
		return model.Rating{}, storeErr("submit", err, model.ErrNotFound)
	}
	r := model.Rating{
		ID:          s.newID(),
		GroupID:     groupID,
		RaterUserID: raterID,
		RaterName:   raterName,
		Scores:      scores,
		Comment:     comment,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.backend.PutRating(ctx, r); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return model.Rating{}, model.ErrDuplicateRating
		}
		return model.Rating{}, storeErr("submit", err, model.ErrNotFound)
	}
	return r, nil
}

// Remove deletes the rater's rating for the group, or fails with model.ErrNotFound.
func (s *Store) Remove(ctx context.Context, groupID, raterID string) error {
	if err := s.backend.DeleteRating(ctx, groupID, raterID); err != nil {
		return storeErr("remove", err, model.ErrNotFound)
	}
	return nil
}

// Get returns the rater's rating for the group, if present.
func (s *Store) Get(ctx context.Context, groupID, raterID string) (model.Rating, bool, error) {
	r, err := s.backend.Rating(ctx, groupID, raterID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Rating{}, false, nil
	}
	if err != nil {
		return model.Rating{}, false, fmt.Errorf("ratings get: %w", err)
	}
	return r, true, nil
}

// ListFor returns the group's ratings, most recent first.
func (s *Store) ListFor(ctx context.Context, groupID string) ([]model.Rating, error) {
	list, err := s.backend.Ratings(ctx, groupID)
	if err != nil {
		return nil, storeErr("list", err, model.ErrNotFound)
	}
	return list, nil
}

func invalid(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", model.ErrInvalidScore, err)
	}
	reasons := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "min", "max":
			reasons = append(reasons, fmt.Sprintf("%s must be between %d and %d, got %v",
				lowerFirst(fe.Field()), model.MinCategoryScore, model.MaxCategoryScore, fe.Value()))
		default:
			reasons = append(reasons, fmt.Sprintf("%s is %s", lowerFirst(fe.Field()), fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", model.ErrInvalidScore, strings.Join(reasons, "; "))
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func storeErr(op string, err, notFound error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound
	}
	return fmt.Errorf("ratings %s: %w", op, err)
}
