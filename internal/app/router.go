package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/oris-services/servicedesk/internal/auth"
	"github.com/oris-services/servicedesk/internal/dashboard"
	"github.com/oris-services/servicedesk/internal/inventory"
	"github.com/oris-services/servicedesk/internal/masterdata/offerings"
	"github.com/oris-services/servicedesk/internal/masterdata/products"
	"github.com/oris-services/servicedesk/internal/observability"
	"github.com/oris-services/servicedesk/internal/publications"
	"github.com/oris-services/servicedesk/internal/rbac"
	"github.com/oris-services/servicedesk/internal/sales/quotations"
	"github.com/oris-services/servicedesk/internal/shared"
	"github.com/oris-services/servicedesk/internal/tickets"
	"github.com/oris-services/servicedesk/internal/users"
	"github.com/oris-services/servicedesk/jobs"
	"github.com/oris-services/servicedesk/report"
)

// RouterParams groups dependencies for building the HTTP router. Nil
// handlers are skipped.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Metrics        *observability.Metrics
	RBAC           rbac.Middleware

	AuthHandler         *auth.Handler
	UsersHandler        *users.Handler
	PermissionsHandler  *rbac.PermissionsHandler
	ProductsHandler     *products.Handler
	OfferingsHandler    *offerings.Handler
	InventoryHandler    *inventory.Handler
	QuotationsHandler   *quotations.Handler
	TicketsHandler      *tickets.Handler
	PublicationsHandler *publications.Handler
	DashboardHandler    *dashboard.Handler
	ReportHandler       *report.Handler
	JobHandler          *jobs.Handler

	// EvidenceFiles serves locally stored evidence; nil when objects live in S3.
	EvidenceFiles http.Handler
	EvidencePath  string
}

// NewRouter constructs the chi.Router with service defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/public", func(r chi.Router) {
			if params.TicketsHandler != nil {
				r.Route("/tickets", params.TicketsHandler.MountPublic)
			}
			if params.OfferingsHandler != nil {
				r.Route("/offerings", params.OfferingsHandler.MountPublic)
			}
			if params.PublicationsHandler != nil {
				r.Route("/publications", params.PublicationsHandler.MountPublic)
			}
		})
		if params.AuthHandler != nil {
			r.Route("/auth", params.AuthHandler.MountRoutes)
		}
		if params.UsersHandler != nil {
			r.Route("/users", params.UsersHandler.MountRoutes)
		}
		if params.PermissionsHandler != nil {
			r.Route("/permissions", params.PermissionsHandler.MountRoutes)
		}
		if params.ProductsHandler != nil {
			r.Route("/catalog/products", params.ProductsHandler.MountRoutes)
		}
		if params.OfferingsHandler != nil {
			r.Route("/catalog/offerings", params.OfferingsHandler.MountRoutes)
		}
		if params.InventoryHandler != nil {
			r.Route("/inventory", params.InventoryHandler.MountRoutes)
		}
		if params.QuotationsHandler != nil {
			r.Route("/quotations", params.QuotationsHandler.MountRoutes)
		}
		if params.TicketsHandler != nil {
			r.Route("/tickets", params.TicketsHandler.MountRoutes)
		}
		if params.PublicationsHandler != nil {
			r.Route("/publications", params.PublicationsHandler.MountRoutes)
		}
		if params.DashboardHandler != nil {
			r.Route("/dashboard", params.DashboardHandler.MountRoutes)
		}
		if params.ReportHandler != nil {
			r.Route("/reports", params.ReportHandler.MountRoutes)
		}
	})

	if params.JobHandler != nil {
		r.Route("/jobs", func(r chi.Router) {
			r.Use(params.RBAC.RequireAny(shared.PermJobsView))
			params.JobHandler.MountRoutes(r)
		})
	}
	if params.EvidenceFiles != nil && params.EvidencePath != "" {
		r.Handle(params.EvidencePath+"/*", http.StripPrefix(params.EvidencePath+"/", params.EvidenceFiles))
	}

	return r
}
