package rbac

import (
	"context"
	"errors"

	"github.com/oris-services/servicedesk/internal/shared"
)

// ErrNotFound indicates that the requested account does not exist or is inactive.
var ErrNotFound = errors.New("rbac: not found")

// Account is the slice of a user row needed for authorization.
type Account struct {
	ID       int64
	Name     string
	Role     shared.Role
	IsActive bool
}

// AccountStore loads accounts by id.
type AccountStore interface {
	FindAccount(ctx context.Context, userID int64) (Account, error)
}

// RoleMatrix lists the permissions granted to a role.
type RoleMatrix struct {
	Role        shared.Role `json:"role"`
	Permissions []string    `json:"permissions"`
}
