package inventory

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/oris-services/servicedesk/internal/platform/httpx"
	"github.com/oris-services/servicedesk/internal/rbac"
	"github.com/oris-services/servicedesk/internal/shared"
)

// Handler wires HTTP endpoints for inventory module.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *httpx.Validator
	rbac      rbac.Middleware
	threshold int64
}

// NewHandler constructs inventory handler. threshold is the default low stock level.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware, threshold int64) *Handler {
	return &Handler{logger: logger, service: service, validator: httpx.NewValidator(), rbac: rbac, threshold: threshold}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermInventoryView))
		r.Get("/products/{id}/movements", h.handleStockCard)
		r.Get("/low-stock", h.handleLowStock)
		r.Post("/availability", h.handleAvailability)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermInventoryEdit))
		r.Post("/products/{id}/restock", h.handleRestock)
		r.Post("/products/{id}/adjustments", h.handleAdjustment)
	})
}

type availabilityRequest struct {
	Lines []struct {
		ProductID   int64  `json:"product_id" validate:"gt=0"`
		ProductName string `json:"product_name"`
		Quantity    int64  `json:"quantity" validate:"gt=0"`
	} `json:"lines" validate:"required,min=1,dive"`
}

func (h *Handler) handleStockCard(w http.ResponseWriter, r *http.Request) {
	productID, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	filter := StockCardFilter{ProductID: productID, Limit: httpx.QueryInt(r, "limit", 100)}
	q := r.URL.Query()
	if from := q.Get("from"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			httpx.RespondError(w, httpx.FieldErrors{"from": "must be YYYY-MM-DD"})
			return
		}
		filter.From = t
	}
	if to := q.Get("to"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			httpx.RespondError(w, httpx.FieldErrors{"to": "must be YYYY-MM-DD"})
			return
		}
		filter.To = t.Add(24*time.Hour - time.Nanosecond)
	}
	entries, err := h.service.StockCard(r.Context(), filter)
	if err != nil {
		h.fail(w, "inventory stock card", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"product_id": productID, "movements": entries})
}

func (h *Handler) handleLowStock(w http.ResponseWriter, r *http.Request) {
	threshold := int64(httpx.QueryInt(r, "threshold", int(h.threshold)))
	levels, err := h.service.LowStock(r.Context(), threshold)
	if err != nil {
		h.fail(w, "inventory low stock", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"threshold": threshold, "products": levels})
}

func (h *Handler) handleAvailability(w http.ResponseWriter, r *http.Request) {
	var req availabilityRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	reqs := make([]Requirement, 0, len(req.Lines))
	for _, l := range req.Lines {
		reqs = append(reqs, Requirement{ProductID: l.ProductID, ProductName: l.ProductName, Quantity: l.Quantity})
	}
	shortfalls, err := h.service.CheckAvailability(r.Context(), reqs)
	if err != nil {
		h.fail(w, "inventory availability", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"available": len(shortfalls) == 0, "shortfalls": shortfalls})
}

func (h *Handler) handleRestock(w http.ResponseWriter, r *http.Request) {
	productID, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var input RestockInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	input.ProductID = productID
	input.ActorID = actor.ID
	input.IdempotencyKey = idempotencyKey(r)
	movement, err := h.service.Restock(r.Context(), input)
	if err != nil {
		h.fail(w, "inventory restock", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, movement)
}

func (h *Handler) handleAdjustment(w http.ResponseWriter, r *http.Request) {
	productID, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var input AdjustmentInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	input.ProductID = productID
	input.ActorID = actor.ID
	input.IdempotencyKey = idempotencyKey(r)
	movement, err := h.service.Adjust(r.Context(), input)
	if err != nil {
		h.fail(w, "inventory adjustment", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, movement)
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	if !httpx.IsClientError(err) {
		h.logger.Error(msg, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func idempotencyKey(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("Idempotency-Key"))
}
