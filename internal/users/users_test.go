package users

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/oris-services/servicedesk/internal/platform/httpx"
	"github.com/oris-services/servicedesk/internal/rbac"
	"github.com/oris-services/servicedesk/internal/shared"
	_ "github.com/oris-services/servicedesk/testing"
)

type memoryRepo struct {
	users       []User
	hashes      map[int64]string
	sessions    map[int64]int
	sessionsErr error
}

// firstUserID keeps created accounts clear of the fixture actors' ids.
const firstUserID = 100

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{hashes: map[int64]string{}, sessions: map[int64]int{}}
}

func (m *memoryRepo) List(_ context.Context, filter ListFilter) ([]User, int, error) {
	var out []User
	for _, u := range m.users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.IsActive != nil && u.IsActive != *filter.IsActive {
			continue
		}
		if filter.Search != "" && !strings.Contains(u.Name, filter.Search) {
			continue
		}
		out = append(out, u)
	}
	return out, len(out), nil
}

func (m *memoryRepo) Get(_ context.Context, id int64) (User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (m *memoryRepo) Create(_ context.Context, user User, hash string) (User, error) {
	for _, u := range m.users {
		if u.Email == user.Email {
			return User{}, ErrEmailTaken
		}
	}
	user.ID = firstUserID + int64(len(m.users))
	user.IsActive = true
	m.users = append(m.users, user)
	m.hashes[user.ID] = hash
	return user, nil
}

func (m *memoryRepo) update(id int64, fn func(*User)) error {
	for i := range m.users {
		if m.users[i].ID == id {
			fn(&m.users[i])
			return nil
		}
	}
	return ErrNotFound
}

func (m *memoryRepo) UpdateRole(_ context.Context, id int64, role shared.Role) error {
	return m.update(id, func(u *User) { u.Role = role })
}

func (m *memoryRepo) SetActive(_ context.Context, id int64, active bool) error {
	return m.update(id, func(u *User) { u.IsActive = active })
}

func (m *memoryRepo) UpdatePassword(_ context.Context, id int64, hash string) error {
	return m.update(id, func(*User) { m.hashes[id] = hash })
}

func (m *memoryRepo) DeleteSessions(_ context.Context, id int64) error {
	if m.sessionsErr != nil {
		return m.sessionsErr
	}
	m.sessions[id]++
	return nil
}

type auditSpy struct{ actions []string }

func (a *auditSpy) Record(_ context.Context, log shared.AuditLog) error {
	a.actions = append(a.actions, log.Action)
	return nil
}

var admin = shared.Actor{ID: 1, Name: "Admin", Role: shared.RoleAdmin}

func newTestService(repo *memoryRepo, audit AuditPort) *Service {
	svc := NewService(repo, audit, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.cost = bcrypt.MinCost
	return svc
}

func TestCreateHashesPasswordAndNormalisesEmail(t *testing.T) {
	repo := newMemoryRepo()
	audit := &auditSpy{}
	svc := newTestService(repo, audit)
	ctx := context.Background()

	user, err := svc.Create(ctx, admin, CreateInput{Email: " Tec@Oris.DO ", Name: "Luis", Password: "supersecret", Role: "technician"})
	require.NoError(t, err)
	require.Equal(t, "tec@oris.do", user.Email)
	require.Equal(t, shared.RoleTechnician, user.Role)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.hashes[user.ID]), []byte("supersecret")))
	require.Equal(t, []string{"user.create"}, audit.actions)

	_, err = svc.Create(ctx, admin, CreateInput{Email: "tec@oris.do", Name: "Dup", Password: "supersecret", Role: "admin"})
	require.ErrorIs(t, err, httpx.ErrDuplicate)
}

func TestDeactivateFailsWhenSessionsSurvive(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()
	tech, err := svc.Create(ctx, admin, CreateInput{Email: "t@oris.do", Name: "Tec", Password: "supersecret", Role: "technician"})
	require.NoError(t, err)

	repo.sessionsErr = errors.New("connection reset")
	_, err = svc.SetActive(ctx, admin, tech.ID, false)
	require.ErrorContains(t, err, "connection reset")

	repo.sessionsErr = nil
	updated, err := svc.SetActive(ctx, admin, tech.ID, false)
	require.NoError(t, err)
	require.False(t, updated.IsActive)
	require.Equal(t, 1, repo.sessions[tech.ID])
}

func TestDeactivateDropsSessionsAndGuardsSelf(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()
	tech, err := svc.Create(ctx, admin, CreateInput{Email: "t@oris.do", Name: "Tec", Password: "supersecret", Role: "technician"})
	require.NoError(t, err)

	updated, err := svc.SetActive(ctx, admin, tech.ID, false)
	require.NoError(t, err)
	require.False(t, updated.IsActive)
	require.Equal(t, 1, repo.sessions[tech.ID])

	techs, err := svc.Technicians(ctx)
	require.NoError(t, err)
	require.Empty(t, techs)

	self := shared.Actor{ID: tech.ID, Role: shared.RoleAdmin}
	_, err = svc.SetActive(ctx, self, tech.ID, false)
	require.ErrorIs(t, err, ErrSelfChange)
	_, err = svc.ChangeRole(ctx, self, tech.ID, shared.RoleTechnician)
	require.ErrorIs(t, err, httpx.ErrConflict)

	_, err = svc.ChangeRole(ctx, admin, 99, shared.RoleAdmin)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestResetPassword(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()
	user, err := svc.Create(ctx, admin, CreateInput{Email: "a@oris.do", Name: "A", Password: "firstpass", Role: "admin"})
	require.NoError(t, err)

	require.NoError(t, svc.ResetPassword(ctx, admin, user.ID, "secondpass"))
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.hashes[user.ID]), []byte("secondpass")))
}

func TestHandlerRoutes(t *testing.T) {
	svc := newTestService(newMemoryRepo(), nil)
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc, rbac.Middleware{})
	router := func(actor shared.Actor) http.Handler {
		r := chi.NewRouter()
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(shared.ContextWithActor(req.Context(), actor)))
			})
		})
		r.Route("/api/users", h.MountRoutes)
		return r
	}
	do := func(actor shared.Actor, method, path, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router(actor).ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
		return rec
	}

	rec := do(admin, http.MethodPost, "/api/users/", `{"email":"bad","name":"","password":"short","role":"owner"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	for _, field := range []string{"email", "name", "password", "role"} {
		require.Contains(t, rec.Body.String(), field)
	}

	rec = do(admin, http.MethodPost, "/api/users/", `{"email":"tec@oris.do","name":"Tec","password":"supersecret","role":"technician"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotContains(t, rec.Body.String(), "password")

	tech := shared.Actor{ID: 1, Role: shared.RoleTechnician}
	rec = do(tech, http.MethodGet, "/api/users/", "")
	require.Equal(t, http.StatusForbidden, rec.Code)
	rec = do(tech, http.MethodGet, "/api/users/technicians", "")
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(admin, http.MethodGet, "/api/users/technicians", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "tec@oris.do")

	rec = do(admin, http.MethodPut, "/api/users/1/role", `{"role":"admin"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
}
