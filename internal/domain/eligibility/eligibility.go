// Package eligibility decides whether a user may join, leave, rate or
// un-rate a group. Decisions are pure functions of the supplied Facts and
// are re-evaluated on every command.
package eligibility

import (
	"fmt"
	"strings"

	"github.com/okian/grouprank/internal/domain/model"
)

// Action is a command subject to the gate.
type Action int

// Gated actions.
const (
	ActionJoin Action = iota
	ActionLeave
	ActionRate
	ActionRemoveRating
)

func (a Action) String() string {
	switch a {
	case ActionJoin:
		return "join"
	case ActionLeave:
		return "leave"
	case ActionRate:
		return "rate"
	case ActionRemoveRating:
		return "remove_rating"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Policy selects the rule applied to rate actions.
type Policy string

const (
	// PolicyStrict forbids members of any group from rating.
	PolicyStrict Policy = "strict"
	// PolicyOwnGroup only forbids rating the group the user belongs to.
	PolicyOwnGroup Policy = "own_group"
)

// ParsePolicy parses a policy name. The empty string selects PolicyStrict.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyStrict:
		return PolicyStrict, nil
	case PolicyOwnGroup:
		return PolicyOwnGroup, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// Facts is the state snapshot a decision is made from.
type Facts struct {
	// CurrentGroup is the group the user belongs to, empty when none.
	CurrentGroup string
	// HasRating reports whether the user already rated the target group.
	HasRating bool
}

// IsMember reports whether the user belongs to any group.
func (f Facts) IsMember() bool { return f.CurrentGroup != "" }

// Gate applies the eligibility rules.
type Gate struct {
	policy Policy
}

// New returns a gate enforcing policy. Unknown policies fall back to strict.
func New(policy Policy) *Gate {
	if policy != PolicyOwnGroup {
		policy = PolicyStrict
	}
	return &Gate{policy: policy}
}

// Policy returns the active rate policy.
func (g *Gate) Policy() Policy { return g.policy }

// Check returns nil if the action is permitted, or the domain error that
// explains the refusal.
func (g *Gate) Check(action Action, groupID string, f Facts) error {
	switch action {
	case ActionJoin:
		if f.IsMember() {
			return model.ErrAlreadyMember
		}
	case ActionLeave:
		if f.CurrentGroup != groupID {
			return model.ErrNotMember
		}
	case ActionRate:
		if g.blocksMember(groupID, f) {
			return model.ErrNotEligible
		}
		if f.HasRating {
			return model.ErrDuplicateRating
		}
	case ActionRemoveRating:
		if !f.HasRating {
			return model.ErrNotFound
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}
	return nil
}

// Allowed is Check reduced to a boolean.
func (g *Gate) Allowed(action Action, groupID string, f Facts) bool {
	return g.Check(action, groupID, f) == nil
}

func (g *Gate) blocksMember(groupID string, f Facts) bool {
	if !f.IsMember() {
		return false
	}
	if g.policy == PolicyOwnGroup {
		return f.CurrentGroup == groupID
	}
	return true
}
