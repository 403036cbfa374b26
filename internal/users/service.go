package users

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/oris-services/servicedesk/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	List(ctx context.Context, filter ListFilter) ([]User, int, error)
	Get(ctx context.Context, id int64) (User, error)
	Create(ctx context.Context, user User, passwordHash string) (User, error)
	UpdateRole(ctx context.Context, id int64, role shared.Role) error
	SetActive(ctx context.Context, id int64, active bool) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	DeleteSessions(ctx context.Context, id int64) error
}

// AuditPort records audit entries.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles user business logic.
type Service struct {
	repo   RepositoryPort
	audit  AuditPort
	logger *slog.Logger
	cost   int
}

// NewService builds Service instance. audit may be nil.
func NewService(repo RepositoryPort, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger, cost: bcrypt.DefaultCost}
}

// List returns users matching filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]User, int, error) {
	filter.Page, filter.PerPage = shared.NormalizePage(filter.Page, filter.PerPage)
	filter.Search = strings.TrimSpace(filter.Search)
	return s.repo.List(ctx, filter)
}

// Technicians lists the active technicians available for assignment.
func (s *Service) Technicians(ctx context.Context) ([]User, error) {
	active := true
	users, _, err := s.repo.List(ctx, ListFilter{Role: shared.RoleTechnician, IsActive: &active, Page: 1, PerPage: shared.MaxPerPage})
	return users, err
}

func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.Get(ctx, id)
}

// Create registers a new account with a bcrypt password hash.
func (s *Service) Create(ctx context.Context, actor shared.Actor, in CreateInput) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return User{}, err
	}
	user, err := s.repo.Create(ctx, User{
		Email: strings.ToLower(strings.TrimSpace(in.Email)),
		Name:  strings.TrimSpace(in.Name),
		Role:  shared.Role(in.Role),
	}, string(hash))
	if err != nil {
		return User{}, err
	}
	s.record(ctx, actor, "user.create", user.ID, map[string]any{"role": user.Role})
	return user, nil
}

func (s *Service) ChangeRole(ctx context.Context, actor shared.Actor, id int64, role shared.Role) (User, error) {
	if actor.ID == id {
		return User{}, ErrSelfChange
	}
	if err := s.repo.UpdateRole(ctx, id, role); err != nil {
		return User{}, err
	}
	s.record(ctx, actor, "user.role", id, map[string]any{"role": role})
	return s.repo.Get(ctx, id)
}

// SetActive toggles the account. Deactivation also drops persisted sessions.
func (s *Service) SetActive(ctx context.Context, actor shared.Actor, id int64, active bool) (User, error) {
	if actor.ID == id && !active {
		return User{}, ErrSelfChange
	}
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return User{}, err
	}
	if !active {
		if err := s.repo.DeleteSessions(ctx, id); err != nil {
			return User{}, fmt.Errorf("users: drop sessions of %d: %w", id, err)
		}
	}
	action := "user.activate"
	if !active {
		action = "user.deactivate"
	}
	s.record(ctx, actor, action, id, nil)
	return s.repo.Get(ctx, id)
}

func (s *Service) ResetPassword(ctx context.Context, actor shared.Actor, id int64, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, id, string(hash)); err != nil {
		return err
	}
	s.record(ctx, actor, "user.password_reset", id, nil)
	return nil
}

func (s *Service) record(ctx context.Context, actor shared.Actor, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.ID,
		Action:   action,
		Entity:   "user",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit user", slog.String("action", action), slog.Any("error", err))
	}
}
