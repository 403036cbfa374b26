package users

import (
	"fmt"
	"time"

	"github.com/oris-services/servicedesk/internal/platform/httpx"
	"github.com/oris-services/servicedesk/internal/shared"
)

var (
	ErrNotFound   = fmt.Errorf("%w: user not found", httpx.ErrNotFound)
	ErrEmailTaken = fmt.Errorf("%w: email already registered", httpx.ErrDuplicate)
	// ErrSelfChange blocks admins from demoting or deactivating their own account.
	ErrSelfChange = fmt.Errorf("%w: cannot change your own role or status", httpx.ErrConflict)
)

// User represents a user account for management.
type User struct {
	ID        int64       `json:"id"`
	Email     string      `json:"email"`
	Name      string      `json:"name"`
	Role      shared.Role `json:"role"`
	IsActive  bool        `json:"is_active"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// ListFilter narrows List results.
type ListFilter struct {
	Role     shared.Role
	IsActive *bool
	Search   string
	Page     int
	PerPage  int
}

type CreateInput struct {
	Email    string `json:"email" validate:"required,email,max=200"`
	Name     string `json:"name" validate:"required,max=200"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"required,oneof=admin technician"`
}

type RoleInput struct {
	Role string `json:"role" validate:"required,oneof=admin technician"`
}

type PasswordInput struct {
	Password string `json:"password" validate:"required,min=8,max=72"`
}
