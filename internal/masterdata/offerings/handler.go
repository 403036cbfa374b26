package offerings

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/oris-services/servicedesk/internal/masterdata/shared"
	"github.com/oris-services/servicedesk/internal/platform/httpx"
	"github.com/oris-services/servicedesk/internal/rbac"
	internalShared "github.com/oris-services/servicedesk/internal/shared"
)

type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *httpx.Validator
	rbac      rbac.Middleware
}

func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, validator: httpx.NewValidator(), rbac: rbac}
}

// MountPublic exposes the active offerings without authentication.
func (h *Handler) MountPublic(r chi.Router) {
	r.Get("/", h.public)
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.rbac.RequireAll(internalShared.PermOfferingsEdit))
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.show)
	r.Put("/{id}", h.update)
	r.Post("/{id}/activate", h.setActive(true))
	r.Post("/{id}/deactivate", h.setActive(false))
}

func (h *Handler) public(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.Public(r.Context())
	if err != nil {
		h.fail(w, "list public offerings", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": rows})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filters := shared.FiltersFromRequest(r)
	rows, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.fail(w, "list offerings", err)
		return
	}
	if rows == nil {
		rows = []Offering{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"data":       rows,
		"pagination": internalShared.NewPagination(filters.Page, filters.Limit, total),
	})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	o, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get offering", err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var form OfferingForm
	if !h.decode(w, r, &form) {
		return
	}
	o, err := h.service.Create(r.Context(), form.offering())
	if err != nil {
		h.fail(w, "create offering", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, o)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var form OfferingForm
	if !h.decode(w, r, &form) {
		return
	}
	o, err := h.service.Update(r.Context(), id, form.offering())
	if err != nil {
		h.fail(w, "update offering", err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

func (h *Handler) setActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := httpx.IDParam(r, "id")
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		if err := h.service.SetActive(r.Context(), id, active); err != nil {
			h.fail(w, "toggle offering", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		httpx.RespondError(w, err)
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		httpx.RespondError(w, err)
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	if !httpx.IsClientError(err) {
		h.logger.Error(msg, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
