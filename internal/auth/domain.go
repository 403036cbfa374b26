package auth

import (
	"time"

	"github.com/oris-services/servicedesk/internal/shared"
)

// User represents an authenticated user account.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	Role         shared.Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type loginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type sessionView struct {
	User        shared.Actor `json:"user"`
	Permissions []string     `json:"permissions"`
	CSRFToken   string       `json:"csrf_token,omitempty"`
}
