// Package rbac decides who may edit or delete content and accounts. Admins moderate
// (delete anything, delete accounts); only owners edit. Admins never gain edit rights.
package rbac

import (
	"context"
	"errors"

	accountdomain "qna-platform/backend/internal/account/domain"
)

var (
	ErrNotOwner        = errors.New("only the owner can edit this resource")
	ErrNotOwnerOrAdmin = errors.New("only the owner or an admin can delete this resource")
	ErrNotAdmin        = errors.New("admin role required")
)

// Action names a guarded operation kind.
type Action string

const (
	ActionEdit          Action = "edit"
	ActionDelete        Action = "delete"
	ActionDeleteAccount Action = "delete_account"
)

// Principal is the authenticated caller of a guarded operation.
type Principal struct {
	AccountID string
	Role      accountdomain.Role
}

// Authorizer applies the edit/delete/account-deletion rules. Implementations return
// nil when allowed and one of ErrNotOwner, ErrNotOwnerOrAdmin or ErrNotAdmin when denied.
type Authorizer interface {
	AuthorizeEdit(ctx context.Context, p Principal, ownerID string) error
	AuthorizeDelete(ctx context.Context, p Principal, ownerID string) error
	AuthorizeAccountDeletion(ctx context.Context, p Principal) error
}

// Policy is the built-in Authorizer. It is stateless and safe for concurrent use.
type Policy struct{}

var _ Authorizer = Policy{}

// NewPolicy returns the built-in policy.
func NewPolicy() Policy {
	return Policy{}
}

// CanModerate reports whether p may delete any content or account.
func (Policy) CanModerate(p Principal) bool {
	return p.Role == accountdomain.RoleAdmin
}

// IsOwner reports whether p owns a resource owned by ownerID.
func (Policy) IsOwner(p Principal, ownerID string) bool {
	return p.AccountID != "" && p.AccountID == ownerID
}

// AuthorizeEdit allows only the owner. Admins get ErrNotOwner like any other non-owner.
func (pol Policy) AuthorizeEdit(_ context.Context, p Principal, ownerID string) error {
	if pol.IsOwner(p, ownerID) {
		return nil
	}
	return ErrNotOwner
}

// AuthorizeDelete allows the owner or an admin, otherwise ErrNotOwnerOrAdmin.
func (pol Policy) AuthorizeDelete(_ context.Context, p Principal, ownerID string) error {
	if pol.IsOwner(p, ownerID) || pol.CanModerate(p) {
		return nil
	}
	return ErrNotOwnerOrAdmin
}

// AuthorizeAccountDeletion allows admins only, otherwise ErrNotAdmin.
func (pol Policy) AuthorizeAccountDeletion(_ context.Context, p Principal) error {
	if pol.CanModerate(p) {
		return nil
	}
	return ErrNotAdmin
}

// DeniedError returns the sentinel used when action is denied.
func DeniedError(action Action) error {
	switch action {
	case ActionEdit:
		return ErrNotOwner
	case ActionDelete:
		return ErrNotOwnerOrAdmin
	default:
		return ErrNotAdmin
	}
}
