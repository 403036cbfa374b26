package quotations

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/oris-services/servicedesk/internal/rbac"
	"github.com/oris-services/servicedesk/internal/shared"
	"github.com/oris-services/servicedesk/report"
)

func newTestRouter(t *testing.T, repo *memoryRepo, actor shared.Actor) http.Handler {
	t.Helper()
	renderer, err := report.NewRenderer(nil)
	require.NoError(t, err)
	h := NewHandler(nil, NewService(repo, nil), renderer, rbac.Middleware{}, dec("0.18"))
	h.logger = testLogger()

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithActor(req.Context(), actor)))
		})
	})
	r.Route("/api/quotations", h.MountRoutes)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerCreateAndAccept(t *testing.T) {
	repo := catalog()
	router := newTestRouter(t, repo, admin)

	rec := do(t, router, http.MethodPost, "/api/quotations/", `{"client_name":"Ana","discount_percent":"10","lines":[{"product_id":1,"quantity":2},{"product_id":2,"quantity":1}]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created quotationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, "225", created.Quotation.Total.String())

	rec = do(t, router, http.MethodPost, "/api/quotations/1/accept", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, router, http.MethodPost, "/api/quotations/1/accept", "")
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), "already_accepted")
}

func TestHandlerShortfallResponse(t *testing.T) {
	repo := catalog()
	router := newTestRouter(t, repo, admin)

	rec := do(t, router, http.MethodPost, "/api/quotations/", `{"client_name":"Ana","lines":[{"product_id":3,"quantity":5}]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	repo.setStock(3, 3)

	rec = do(t, router, http.MethodPost, "/api/quotations/1/transition", `{"status":"accepted"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	var problem struct {
		Extra struct {
			Shortfalls []struct {
				ProductName string `json:"product_name"`
				Required    int64  `json:"required"`
				Available   int64  `json:"available"`
			} `json:"shortfalls"`
		} `json:"extra"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	require.Len(t, problem.Extra.Shortfalls, 1)
	require.Equal(t, "Router X", problem.Extra.Shortfalls[0].ProductName)
	require.Equal(t, int64(5), problem.Extra.Shortfalls[0].Required)
	require.Equal(t, int64(3), problem.Extra.Shortfalls[0].Available)
}

func TestHandlerValidationErrors(t *testing.T) {
	router := newTestRouter(t, catalog(), admin)

	rec := do(t, router, http.MethodPost, "/api/quotations/", `{"client_name":"","lines":[]}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "client_name")

	rec = do(t, router, http.MethodPost, "/api/quotations/", `{"client_name":"Ana","unknown":1}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerTechnicianForbidden(t *testing.T) {
	router := newTestRouter(t, catalog(), technician)
	rec := do(t, router, http.MethodGet, "/api/quotations/", "")
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandlerDocumentHTML(t *testing.T) {
	repo := catalog()
	svc := NewService(repo, nil)
	_, err := svc.Create(context.Background(), admin, scenarioInput())
	require.NoError(t, err)
	router := newTestRouter(t, repo, admin)

	rec := do(t, router, http.MethodGet, "/api/quotations/1/documents/invoice?format=html", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), "FACTURA")
	require.Contains(t, rec.Body.String(), "RD$ 270.00")

	rec = do(t, router, http.MethodGet, "/api/quotations/1/documents/receipt", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/quotations/1/documents/quotation", "")
	require.Equal(t, http.StatusBadGateway, rec.Code)
}
