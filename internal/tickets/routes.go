package tickets

import (
	"github.com/go-chi/chi/v5"

	"github.com/oris-services/servicedesk/internal/shared"
)

// MountPublic registers the unauthenticated submission and tracking routes.
func (h *Handler) MountPublic(r chi.Router) {
	r.Post("/", h.submit)
	r.Get("/{case}", h.track)
}

// MountRoutes registers the admin and technician routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermTicketsView, shared.PermTicketsWorkAssigned))
		r.Get("/", h.list)
		r.Get("/{id}", h.show)
		r.Get("/{id}/history", h.history)
		r.Post("/{id}/evidence", h.evidence)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermTicketsView, shared.PermTicketsCalendar))
		r.Get("/calendar", h.calendar)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermTicketsWorkAssigned))
		r.Post("/{id}/status-requests", h.requestStatus)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermTicketsView))
		r.Get("/{id}/status-requests", h.statusRequests)
		r.Get("/status-requests/pending", h.pendingRequests)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermTicketsAssign))
		r.Post("/{id}/assign", h.assign)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermTicketsResolve))
		r.Post("/status-requests/{id}/resolve", h.resolve)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermTicketsClose))
		r.Post("/{id}/close", h.close)
	})
}
