package quotations

import (
	"github.com/go-chi/chi/v5"

	"github.com/oris-services/servicedesk/internal/shared"
)

// MountRoutes registers quotation routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermQuotationView))
		r.Get("/", h.list)
		r.Get("/{id}", h.show)
		r.Get("/{id}/stock", h.stock)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermQuotationDocuments))
		r.Get("/{id}/documents/{kind}", h.document)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermQuotationEdit))
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermQuotationDelete))
		r.Delete("/{id}", h.remove)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermQuotationTransition))
		r.Post("/{id}/transition", h.transition)
		r.Post("/{id}/accept", h.accept)
	})
}
