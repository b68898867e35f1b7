// Package policy holds the object-level authorization rule shared by the
// profile and feed resources: anyone may read, only the owner may change.
package policy

import (
	"net/http"

	"github.com/sakif/profiles-api/internal/apperror"
	"github.com/sakif/profiles-api/internal/model"
)

// Action is what a caller wants to do with a record.
type Action int

const (
	ActionRead Action = iota
	ActionUpdate
	ActionDelete
)

// Safe reports whether the action leaves state untouched.
func (a Action) Safe() bool {
	return a == ActionRead
}

func (a Action) String() string {
	switch a {
	case ActionRead:
		return "read"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// ActionForMethod maps an HTTP method to an Action. GET, HEAD and OPTIONS
// are reads; DELETE deletes; every other method counts as an update.
func ActionForMethod(method string) Action {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return ActionRead
	case http.MethodDelete:
		return ActionDelete
	default:
		return ActionUpdate
	}
}

// Rule decides whether an actor may perform an action on a target.
type Rule[T any] interface {
	Authorize(actorID int64, action Action, target T) error
}

// OwnerRule permits reads to everyone and mutations only to the record's
// owner. The owner accessor is what makes one rule serve several resources.
type OwnerRule[T any] struct {
	owner func(T) int64
	// denyMsg is returned to a non-owner.
	denyMsg string
}

// NewOwnerRule builds a rule from an owner accessor.
func NewOwnerRule[T any](owner func(T) int64, denyMsg string) OwnerRule[T] {
	return OwnerRule[T]{owner: owner, denyMsg: denyMsg}
}

// Authorize returns nil when actorID may perform action on target.
// actorID 0 is an anonymous caller: it may read, and anything else fails
// with an authentication error rather than a permission error.
func (r OwnerRule[T]) Authorize(actorID int64, action Action, target T) error {
	if action.Safe() {
		return nil
	}
	if actorID == 0 {
		return apperror.Unauthenticated("Authentication credentials were not provided.")
	}
	if r.owner(target) != actorID {
		return apperror.Forbidden(r.denyMsg)
	}
	return nil
}

// UpdateOwnProfile lets an account change only itself.
var UpdateOwnProfile = NewOwnerRule(
	func(a *model.Account) int64 { return a.ID },
	"You can only edit your own profile.",
)

// UpdateOwnFeed lets an account change only the posts it owns.
var UpdateOwnFeed = NewOwnerRule(
	func(p *model.FeedPost) int64 { return p.OwnerID },
	"You can only edit your own feed items.",
)
