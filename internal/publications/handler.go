package publications

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/oris-services/servicedesk/internal/platform/httpx"
	"github.com/oris-services/servicedesk/internal/rbac"
	"github.com/oris-services/servicedesk/internal/shared"
)

const formMemory = 16 << 20

// Handler exposes publications to the public site and the admin panel.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountPublic exposes the feed without authentication.
func (h *Handler) MountPublic(r chi.Router) {
	r.Get("/", h.list)
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.rbac.RequireAll(shared.PermPublicationsEdit))
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.show)
	r.Delete("/{id}", h.delete)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.List(r.Context(), httpx.QueryInt(r, "limit", 50))
	if err != nil {
		h.fail(w, "list publications", err)
		return
	}
	if rows == nil {
		rows = []Publication{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": rows})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	pub, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get publication", err)
		return
	}
	httpx.JSON(w, http.StatusOK, pub)
}

// create reads a multipart form with title, description, category and one
// or more "images" files.
func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxImages*MaxImageBytes+1<<20)
	if err := r.ParseMultipartForm(formMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpx.RespondError(w, ErrImageTooLarge)
			return
		}
		httpx.RespondError(w, httpx.FieldErrors{"images": "multipart form required"})
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["images"]
	uploads := make([]ImageUpload, 0, len(headers))
	var files []multipart.File
	defer func() {
		for _, f := range files {
			f.Close()
		}
	}()
	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			h.fail(w, "open publication image", err)
			return
		}
		files = append(files, f)
		uploads = append(uploads, ImageUpload{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
			Body:        f,
		})
	}

	actor, _ := shared.ActorFromContext(r.Context())
	pub, err := h.service.Create(r.Context(), actor, Input{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Category:    r.FormValue("category"),
	}, uploads)
	if err != nil {
		h.fail(w, "create publication", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, pub)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	if err := h.service.Delete(r.Context(), actor, id); err != nil {
		h.fail(w, "delete publication", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	if !httpx.IsClientError(err) {
		h.logger.Error(msg, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
