// Package membership tracks which user belongs to which group and enforces
// that a user belongs to at most one group at a time.
package membership

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/okian/grouprank/internal/adapters/repository"
	"github.com/okian/grouprank/internal/domain/model"
)

// Store is the slice of the persistence gateway the registry needs.
type Store interface {
	Group(ctx context.Context, groupID string) (model.Group, error)
	MemberOf(ctx context.Context, userID string) (string, bool, error)
	Members(ctx context.Context, groupID string) ([]model.Member, error)
	PutMember(ctx context.Context, groupID string, m model.Member) error
	DeleteMember(ctx context.Context, groupID, userID string) error
}

// Option applies a configuration option to the Registry.
type Option func(*Registry)

// WithClock overrides the time source used for join timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// Registry implements join/leave/groupOf over a Store.
type Registry struct {
	store Store
	now   func() time.Time
}

// NewRegistry creates a registry backed by store.
func NewRegistry(store Store, opts ...Option) *Registry {
	r := &Registry{store: store, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Join adds the user to the group. It fails with model.ErrAlreadyMember if
// the user belongs to any group, including the target.
func (r *Registry) Join(ctx context.Context, user model.User, groupID string) error {
	if _, err := r.store.Group(ctx, groupID); err != nil {
		return storeErr("join", err, model.ErrNotFound)
	}
	branch := strings.TrimSpace(user.Branch)
	if branch == "" {
		branch = model.DefaultBranch
	}
	m := model.Member{
		UserID:      user.ID,
		DisplayName: user.DisplayName,
		Branch:      branch,
		JoinedAt:    r.now().UTC(),
	}
	if err := r.store.PutMember(ctx, groupID, m); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return model.ErrAlreadyMember
		}
		return storeErr("join", err, model.ErrNotFound)
	}
	return nil
}

// Leave removes the user from the group. It fails with model.ErrNotMember if
// the user is not currently a member of that group.
func (r *Registry) Leave(ctx context.Context, userID, groupID string) error {
	if _, err := r.store.Group(ctx, groupID); err != nil {
		return storeErr("leave", err, model.ErrNotFound)
	}
	if err := r.store.DeleteMember(ctx, groupID, userID); err != nil {
		return storeErr("leave", err, model.ErrNotMember)
	}
	return nil
}

// GroupOf returns the user's current group, if any.
func (r *Registry) GroupOf(ctx context.Context, userID string) (string, bool, error) {
	groupID, ok, err := r.store.MemberOf(ctx, userID)
	if err != nil {
		return "", false, fmt.Errorf("membership group of: %w", err)
	}
	return groupID, ok, nil
}

// Members lists the group's members in join order.
func (r *Registry) Members(ctx context.Context, groupID string) ([]model.Member, error) {
	members, err := r.store.Members(ctx, groupID)
	if err != nil {
		return nil, storeErr("members", err, model.ErrNotFound)
	}
	return members, nil
}

// storeErr maps repository.ErrNotFound to notFound and wraps anything else.
func storeErr(op string, err, notFound error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound
	}
	return fmt.Errorf("membership %s: %w", op, err)
}
