package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oris-services/servicedesk/internal/shared"
)

// Service resolves actors and their effective permissions.
type Service struct {
	store AccountStore
}

// NewService constructs a Service backed by the provided store.
func NewService(store AccountStore) *Service {
	return &Service{store: store}
}

// Actor loads the active account for userID.
func (s *Service) Actor(ctx context.Context, userID int64) (shared.Actor, error) {
	account, err := s.store.FindAccount(ctx, userID)
	if err != nil {
		return shared.Actor{}, err
	}
	if !account.IsActive || !account.Role.Valid() {
		return shared.Actor{}, ErrNotFound
	}
	return shared.Actor{ID: account.ID, Name: account.Name, Role: account.Role}, nil
}

// EffectivePermissions returns the permissions granted to userID.
func (s *Service) EffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	actor, err := s.Actor(ctx, userID)
	if err != nil {
		return nil, err
	}
	return shared.PermissionsForRole(actor.Role), nil
}

// Matrix returns every role with its permissions.
func (s *Service) Matrix() []RoleMatrix {
	roles := []shared.Role{shared.RoleAdmin, shared.RoleTechnician}
	out := make([]RoleMatrix, 0, len(roles))
	for _, role := range roles {
		out = append(out, RoleMatrix{Role: role, Permissions: shared.PermissionsForRole(role)})
	}
	return out
}

// PGStore reads accounts from the users table.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore constructs the store.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// FindAccount implements AccountStore.
func (s *PGStore) FindAccount(ctx context.Context, userID int64) (Account, error) {
	var acc Account
	var role string
	err := s.pool.QueryRow(ctx, `SELECT id, name, role, is_active FROM users WHERE id = $1`, userID).
		Scan(&acc.ID, &acc.Name, &role, &acc.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, fmt.Errorf("rbac: find account: %w", err)
	}
	acc.Role = shared.Role(role)
	return acc, nil
}
