package tickets

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/oris-services/servicedesk/internal/platform/httpx"
	"github.com/oris-services/servicedesk/internal/rbac"
	"github.com/oris-services/servicedesk/internal/shared"
)

// Handler exposes the ticket workflow over JSON.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *httpx.Validator
	rbac      rbac.Middleware
}

// NewHandler builds the handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, validator: httpx.NewValidator(), rbac: rbac}
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	var input SubmitInput
	if !h.decode(w, r, &input) {
		return
	}
	ticket, err := h.service.Submit(r.Context(), input)
	if err != nil {
		h.fail(w, "submit ticket", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"case_number": ticket.CaseNumber, "request_status": ticket.RequestStatus})
}

func (h *Handler) track(w http.ResponseWriter, r *http.Request) {
	tracking, err := h.service.Track(r.Context(), chi.URLParam(r, "case"))
	if err != nil {
		h.fail(w, "track ticket", err)
		return
	}
	httpx.JSON(w, http.StatusOK, tracking)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	q := r.URL.Query()
	filter := ListFilter{
		RequestStatus: q.Get("status"),
		TechnicianID:  int64(httpx.QueryInt(r, "technician_id", 0)),
		Search:        q.Get("q"),
		Page:          httpx.QueryInt(r, "page", 1),
		PerPage:       httpx.QueryInt(r, "per_page", shared.DefaultPerPage),
	}
	if !actor.Can(shared.PermTicketsView) {
		filter.TechnicianID = actor.ID
	}
	items, page, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.fail(w, "list tickets", err)
		return
	}
	if items == nil {
		items = []Ticket{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": items, "pagination": page})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	ticket, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		h.fail(w, "get ticket", err)
		return
	}
	httpx.JSON(w, http.StatusOK, ticket)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	entries, err := h.service.History(r.Context(), actor, id)
	if err != nil {
		h.fail(w, "ticket history", err)
		return
	}
	if entries == nil {
		entries = []HistoryEntry{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": entries})
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	var input AssignInput
	if !h.decode(w, r, &input) {
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	ticket, err := h.service.Assign(r.Context(), actor, id, input)
	if err != nil {
		h.fail(w, "assign ticket", err)
		return
	}
	httpx.JSON(w, http.StatusOK, ticket)
}

func (h *Handler) requestStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	var input StatusChangeInput
	if !h.decode(w, r, &input) {
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	req, err := h.service.RequestStatusChange(r.Context(), actor, id, input)
	if err != nil {
		h.fail(w, "request ticket status", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, req)
}

func (h *Handler) statusRequests(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	reqs, err := h.service.StatusRequests(r.Context(), id)
	if err != nil {
		h.fail(w, "list status requests", err)
		return
	}
	if reqs == nil {
		reqs = []StatusRequest{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": reqs})
}

func (h *Handler) pendingRequests(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.service.PendingRequests(r.Context())
	if err != nil {
		h.fail(w, "list pending requests", err)
		return
	}
	if reqs == nil {
		reqs = []StatusRequest{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": reqs})
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	var input ResolveInput
	if !h.decode(w, r, &input) {
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	req, err := h.service.ResolveStatusRequest(r.Context(), actor, id, input)
	if err != nil {
		h.fail(w, "resolve status request", err)
		return
	}
	httpx.JSON(w, http.StatusOK, req)
}

func (h *Handler) close(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	var input CloseInput
	if !h.decode(w, r, &input) {
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	ticket, err := h.service.Close(r.Context(), actor, id, input)
	if err != nil {
		h.fail(w, "close ticket", err)
		return
	}
	httpx.JSON(w, http.StatusOK, ticket)
}

func (h *Handler) evidence(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, MaxEvidenceBytes+1<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpx.RespondError(w, ErrEvidenceTooLarge)
			return
		}
		httpx.RespondError(w, httpx.FieldErrors{"file": "is required"})
		return
	}
	defer file.Close()

	actor, _ := shared.ActorFromContext(r.Context())
	ev, err := h.service.AttachEvidence(r.Context(), actor, id, EvidenceUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		h.fail(w, "attach evidence", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, ev)
}

func (h *Handler) calendar(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	from, to, err := calendarRange(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	technicianID := int64(httpx.QueryInt(r, "technician_id", 0))
	if !actor.Can(shared.PermTicketsView) {
		technicianID = actor.ID
	}
	visits, err := h.service.Calendar(r.Context(), technicianID, from, to)
	if err != nil {
		h.fail(w, "ticket calendar", err)
		return
	}
	if visits == nil {
		visits = []Visit{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": visits})
}

// calendarRange defaults to the current month.
func calendarRange(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, -1)
	fields := httpx.FieldErrors{}
	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			fields["from"] = "must be YYYY-MM-DD"
		}
		from = parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			fields["to"] = "must be YYYY-MM-DD"
		}
		to = parsed
	}
	if len(fields) > 0 {
		return time.Time{}, time.Time{}, fields
	}
	return from, to, nil
}

func (h *Handler) id(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return 0, false
	}
	return id, true
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
