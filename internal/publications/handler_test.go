package publications

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/oris-services/servicedesk/internal/rbac"
	"github.com/oris-services/servicedesk/internal/shared"
)

func newTestRouter(svc *Service, actor shared.Actor) http.Handler {
	h := NewHandler(testLogger(), svc, rbac.Middleware{})
	r := chi.NewRouter()
	r.Route("/api/public/publications", h.MountPublic)
	r.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(shared.ContextWithActor(req.Context(), actor)))
			})
		})
		r.Route("/api/publications", h.MountRoutes)
	})
	return r
}

func publicationForm(t *testing.T, title string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("title", title))
	require.NoError(t, mw.WriteField("description", "Cableado estructurado"))
	require.NoError(t, mw.WriteField("category", "redes"))
	for name, body := range files {
		part, err := mw.CreateFormFile("images", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestAdminPublishesAndPublicFeedShowsIt(t *testing.T) {
	svc, store := newService(newMemoryRepo())
	router := newTestRouter(svc, admin)

	body, contentType := publicationForm(t, "Oficina nueva", map[string]string{"rack.jpg": "jpg-bytes"})
	req := httptest.NewRequest(http.MethodPost, "/api/publications/", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, store.objects, 1)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/public/publications/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var feed struct {
		Data []Publication `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &feed))
	require.Len(t, feed.Data, 1)
	require.Equal(t, "Oficina nueva", feed.Data[0].Title)
	require.Len(t, feed.Data[0].Images, 1)
	require.Equal(t, feed.Data[0].Images[0].URL, feed.Data[0].CoverURL)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/publications/1", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/publications/1", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPublishRequiresImages(t *testing.T) {
	svc, _ := newService(newMemoryRepo())
	body, contentType := publicationForm(t, "Sin fotos", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/publications/", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	newTestRouter(svc, admin).ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "images")
}

func TestTechnicianCannotPublish(t *testing.T) {
	svc, store := newService(newMemoryRepo())
	body, contentType := publicationForm(t, "No", map[string]string{"a.jpg": "x"})
	req := httptest.NewRequest(http.MethodPost, "/api/publications/", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	newTestRouter(svc, technician).ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Empty(t, store.objects)
}
