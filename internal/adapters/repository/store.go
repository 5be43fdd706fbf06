// Package repository defines the persistence gateway for groups, memberships
// and ratings, with in-memory and SQLite implementations.
package repository

import (
	"context"

	"github.com/okian/grouprank/internal/domain/model"
)

// Store provides get/put/delete access to engine state. Implementations must
// make PutMember and PutRating atomic conditional writes.
type Store interface {
	// EnsureGroup creates the group if it does not exist yet. Existing groups
	// keep their original creation position.
	EnsureGroup(ctx context.Context, g model.Group) error
	// Group returns ErrNotFound if the group is unknown.
	Group(ctx context.Context, groupID string) (model.Group, error)
	// Groups returns all groups in creation order.
	Groups(ctx context.Context) ([]model.Group, error)

	// MemberOf returns the group the user currently belongs to, if any.
	MemberOf(ctx context.Context, userID string) (string, bool, error)
	// Members returns the group's members in join order.
	Members(ctx context.Context, groupID string) ([]model.Member, error)
	// PutMember adds m to the group. Returns ErrConflict if the user is a
	// member of any group.
	PutMember(ctx context.Context, groupID string, m model.Member) error
	// DeleteMember returns ErrNotFound if the user is not in the group.
	DeleteMember(ctx context.Context, groupID, userID string) error

	// Rating returns ErrNotFound if the rater has no rating for the group.
	Rating(ctx context.Context, groupID, raterID string) (model.Rating, error)
	// Ratings returns the group's ratings, most recent first.
	Ratings(ctx context.Context, groupID string) ([]model.Rating, error)
	// PutRating stores r. Returns ErrConflict if the rater already rated the group.
	PutRating(ctx context.Context, r model.Rating) error
	// DeleteRating returns ErrNotFound if no rating exists.
	DeleteRating(ctx context.Context, groupID, raterID string) error
	// ClearRatings removes every rating and returns how many were removed.
	ClearRatings(ctx context.Context) (int, error)

	Close() error
}
