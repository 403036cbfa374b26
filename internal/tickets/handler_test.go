package tickets

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/oris-services/servicedesk/internal/rbac"
	"github.com/oris-services/servicedesk/internal/shared"
)

func newTestRouter(svc *Service, actor shared.Actor) http.Handler {
	h := NewHandler(testLogger(), svc, rbac.Middleware{})
	r := chi.NewRouter()
	r.Route("/api/public/tickets", h.MountPublic)
	r.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(shared.ContextWithActor(req.Context(), actor)))
			})
		})
		r.Route("/api/tickets", h.MountRoutes)
	})
	return r
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPublicSubmitAndTrack(t *testing.T) {
	svc, _ := newService(newMemoryRepo())
	router := newTestRouter(svc, admin)

	rec := do(router, http.MethodPost, "/api/public/tickets/", `{"client_type":"company","client_name":"Ana","email":"ana@example.com","phone":"809","address":"Calle 1","offering_id":1}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), "company_name")

	rec = do(router, http.MethodPost, "/api/public/tickets/", `{"client_type":"person","client_name":"Ana","email":"ana@example.com","phone":"809","address":"Calle 1","offering_id":1}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		CaseNumber string `json:"case_number"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = do(router, http.MethodGet, "/api/public/tickets/"+created.CaseNumber, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), "ana@example.com")

	rec = do(router, http.MethodGet, "/api/public/tickets/CASE-000000", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTechnicianListIsScopedToAssignments(t *testing.T) {
	svc, _ := newService(newMemoryRepo())
	assigned(t, svc)
	submitted(t, svc)

	rec := do(newTestRouter(svc, technician), http.MethodGet, "/api/tickets/?technician_id=0", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data []Ticket `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)

	rec = do(newTestRouter(svc, admin), http.MethodGet, "/api/tickets/", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)
}

func TestTechnicianCannotAssignOrClose(t *testing.T) {
	svc, _ := newService(newMemoryRepo())
	ticket := assigned(t, svc)
	router := newTestRouter(svc, technician)

	rec := do(router, http.MethodPost, "/api/tickets/1/assign", `{"technician_id":2,"date":"2026-03-20","time":"10:00","task_type":"survey"}`)
	require.Equal(t, http.StatusForbidden, rec.Code)
	rec = do(router, http.MethodPost, "/api/tickets/1/close", `{"status":"finished"}`)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(router, http.MethodPost, "/api/tickets/1/status-requests", `{"status":"completed","note":"listo"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Equal(t, int64(1), ticket.ID)
}

func TestAssignValidatesPayload(t *testing.T) {
	svc, _ := newService(newMemoryRepo())
	submitted(t, svc)
	router := newTestRouter(svc, admin)

	rec := do(router, http.MethodPost, "/api/tickets/1/assign", `{"technician_id":2,"date":"20/03/2026","time":"10:00","task_type":"repair"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), `"date"`)
	require.Contains(t, rec.Body.String(), `"task_type"`)
}

func TestResolveTwiceConflicts(t *testing.T) {
	svc, _ := newService(newMemoryRepo())
	assigned(t, svc)
	do(newTestRouter(svc, technician), http.MethodPost, "/api/tickets/1/status-requests", `{"status":"completed","note":"listo"}`)
	router := newTestRouter(svc, admin)

	rec := do(router, http.MethodGet, "/api/tickets/status-requests/pending", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var pending struct {
		Data []StatusRequest `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pending))
	require.Len(t, pending.Data, 1)

	path := "/api/tickets/status-requests/" + jsonID(pending.Data[0].ID) + "/resolve"
	rec = do(router, http.MethodPost, path, `{"approve":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = do(router, http.MethodPost, path, `{"approve":false}`)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestEvidenceUpload(t *testing.T) {
	svc, store := newService(newMemoryRepo())
	assigned(t, svc)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "medidor.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("png-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/tickets/1/evidence", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	newTestRouter(svc, technician).ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, store.objects, 1)

	rec = do(newTestRouter(svc, technician), http.MethodPost, "/api/tickets/1/evidence", `{}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCalendarRejectsBadDates(t *testing.T) {
	svc, _ := newService(newMemoryRepo())
	rec := do(newTestRouter(svc, technician), http.MethodGet, "/api/tickets/calendar?from=2026-13-01", "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	assigned(t, svc)
	rec = do(newTestRouter(svc, technician), http.MethodGet, "/api/tickets/calendar?from=2026-03-01&to=2026-03-31", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "CASE-")
}

func jsonID(id int64) string {
	raw, _ := json.Marshal(id)
	return string(raw)
}
