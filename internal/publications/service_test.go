package publications

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oris-services/servicedesk/internal/platform/httpx"
	"github.com/oris-services/servicedesk/internal/shared"
	_ "github.com/oris-services/servicedesk/testing"
)

var (
	admin      = shared.Actor{ID: 1, Name: "Admin", Role: shared.RoleAdmin}
	technician = shared.Actor{ID: 2, Name: "Tech", Role: shared.RoleTechnician}
)

type recordingAudit struct{ actions []string }

func (a *recordingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.actions = append(a.actions, log.Action)
	return nil
}

type steppingClock struct{ at time.Time }

func (c *steppingClock) now() time.Time {
	c.at = c.at.Add(time.Minute)
	return c.at
}

func newService(repo *memoryRepo, opts ...Option) (*Service, *memoryStore) {
	store := &memoryStore{}
	clock := &steppingClock{at: time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithClock(clock.now)}, opts...)
	return NewService(repo, store, testLogger(), opts...), store
}

func image(name, body string) ImageUpload {
	return ImageUpload{Filename: name, Size: int64(len(body)), Body: strings.NewReader(body)}
}

func TestCreateUploadsGalleryAndUsesFirstAsCover(t *testing.T) {
	audit := &recordingAudit{}
	svc, store := newService(newMemoryRepo(), WithAudit(audit))

	pub, err := svc.Create(context.Background(), admin, Input{
		Title: "  Nueva instalación ", Description: "Cámaras en almacén", Category: "proyectos",
	}, []ImageUpload{image("frente.jpg", "a"), image("../../patio 2.png", "bb")})
	require.NoError(t, err)
	require.Equal(t, "Nueva instalación", pub.Title)
	require.Len(t, pub.Images, 2)
	require.Len(t, store.objects, 2)
	require.Equal(t, pub.Images[0].URL, pub.CoverURL)
	require.Equal(t, 1, pub.Images[1].Position)
	require.True(t, strings.HasPrefix(pub.Images[1].ObjectKey, "publications/"))
	require.True(t, strings.HasSuffix(pub.Images[1].ObjectKey, "-1-patio_2.png"))
	require.Equal(t, admin.ID, *pub.CreatedBy)
	require.Equal(t, []string{"publication:create"}, audit.actions)
}

func TestCreateValidation(t *testing.T) {
	svc, store := newService(newMemoryRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, admin, Input{Title: " ", Description: ""}, nil)
	var fields httpx.FieldErrors
	require.ErrorAs(t, err, &fields)
	require.Contains(t, fields, "title")
	require.Contains(t, fields, "description")
	require.Contains(t, fields, "images")

	_, err = svc.Create(ctx, admin, Input{Title: "T", Description: "D"}, []ImageUpload{image("notas.txt", "x")})
	require.ErrorAs(t, err, &fields)
	require.Equal(t, "must be an image", fields["images[0]"])

	many := make([]ImageUpload, MaxImages+1)
	for i := range many {
		many[i] = image("f.jpg", "x")
	}
	_, err = svc.Create(ctx, admin, Input{Title: "T", Description: "D"}, many)
	require.ErrorAs(t, err, &fields)
	require.Contains(t, fields, "images")

	big := image("grande.jpg", "x")
	big.Size = MaxImageBytes + 1
	_, err = svc.Create(ctx, admin, Input{Title: "T", Description: "D"}, []ImageUpload{big})
	require.ErrorIs(t, err, ErrImageTooLarge)
	require.Empty(t, store.objects)
}

func TestCreateSurfacesStorageAndRepositoryFailures(t *testing.T) {
	repo := newMemoryRepo()
	svc, store := newService(repo)
	ctx := context.Background()

	store.err = errors.New("bucket unavailable")
	_, err := svc.Create(ctx, admin, Input{Title: "T", Description: "D"}, []ImageUpload{image("a.jpg", "x")})
	require.ErrorContains(t, err, "bucket unavailable")

	store.err = nil
	repo.createErr = errors.New("insert failed")
	_, err = svc.Create(ctx, admin, Input{Title: "T", Description: "D"}, []ImageUpload{image("a.jpg", "x")})
	require.ErrorContains(t, err, "insert failed")
	rows, err := svc.List(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestListNewestFirstAndDelete(t *testing.T) {
	audit := &recordingAudit{}
	svc, store := newService(newMemoryRepo(), WithAudit(audit))
	ctx := context.Background()

	first, err := svc.Create(ctx, admin, Input{Title: "Primera", Description: "D"}, []ImageUpload{image("a.jpg", "x")})
	require.NoError(t, err)
	second, err := svc.Create(ctx, admin, Input{Title: "Segunda", Description: "D"}, []ImageUpload{image("b.jpg", "y")})
	require.NoError(t, err)

	rows, err := svc.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, second.ID, rows[0].ID)
	require.Equal(t, first.ID, rows[1].ID)

	require.NoError(t, svc.Delete(ctx, admin, first.ID))
	require.ErrorIs(t, svc.Delete(ctx, admin, first.ID), httpx.ErrNotFound)
	_, err = svc.Get(ctx, first.ID)
	require.ErrorIs(t, err, ErrNotFound)
	// Stored objects outlive the publication.
	require.Len(t, store.objects, 2)
	require.Equal(t, []string{"publication:create", "publication:create", "publication:delete"}, audit.actions)
}
