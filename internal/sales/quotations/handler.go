package quotations

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/oris-services/servicedesk/internal/platform/httpx"
	"github.com/oris-services/servicedesk/internal/rbac"
	"github.com/oris-services/servicedesk/internal/sales/pricing"
	"github.com/oris-services/servicedesk/internal/shared"
	"github.com/oris-services/servicedesk/report"
)

// Handler exposes the quotation workflow over JSON.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	renderer  *report.Renderer
	validator *httpx.Validator
	rbac      rbac.Middleware
	taxRate   decimal.Decimal
}

// NewHandler builds the handler. taxRate prices customer-facing documents.
func NewHandler(logger *slog.Logger, service *Service, renderer *report.Renderer, rbac rbac.Middleware, taxRate decimal.Decimal) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		renderer:  renderer,
		validator: httpx.NewValidator(),
		rbac:      rbac,
		taxRate:   taxRate,
	}
}

type quotationResponse struct {
	Quotation Quotation          `json:"quotation"`
	Document  *pricing.Breakdown `json:"document_pricing,omitempty"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, page, err := h.service.List(r.Context(), ListFilter{
		Status:  Status(q.Get("status")),
		Search:  q.Get("q"),
		Page:    httpx.QueryInt(r, "page", 1),
		PerPage: httpx.QueryInt(r, "per_page", shared.DefaultPerPage),
	})
	if err != nil {
		h.fail(w, "list quotations", err)
		return
	}
	if items == nil {
		items = []Quotation{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": items, "pagination": page})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	quotation, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get quotation", err)
		return
	}
	resp := quotationResponse{Quotation: quotation}
	if b, err := pricing.Calculate(quotation.PricingInput(h.taxRate)); err == nil {
		b = b.Rounded()
		resp.Document = &b
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var input QuotationInput
	if !h.decode(w, r, &input) {
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	quotation, err := h.service.Create(r.Context(), actor, input)
	if err != nil {
		h.fail(w, "create quotation", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, quotationResponse{Quotation: quotation})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var input QuotationInput
	if !h.decode(w, r, &input) {
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	quotation, err := h.service.Update(r.Context(), actor, id, input)
	if err != nil {
		h.fail(w, "update quotation", err)
		return
	}
	httpx.JSON(w, http.StatusOK, quotationResponse{Quotation: quotation})
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	if err := h.service.Delete(r.Context(), actor, id); err != nil {
		h.fail(w, "delete quotation", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req TransitionRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.applyTransition(w, r, id, req.Status)
}

func (h *Handler) accept(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.applyTransition(w, r, id, StatusAccepted)
}

func (h *Handler) applyTransition(w http.ResponseWriter, r *http.Request, id int64, to Status) {
	actor, _ := shared.ActorFromContext(r.Context())
	quotation, err := h.service.Transition(r.Context(), actor, id, to)
	if errors.Is(err, ErrAlreadyAccepted) {
		httpx.ProblemWith(w, http.StatusConflict, "Already Accepted", "quotation was already accepted; stock was not touched again", map[string]any{"code": "already_accepted"})
		return
	}
	if err != nil {
		h.fail(w, "transition quotation", err)
		return
	}
	httpx.JSON(w, http.StatusOK, quotationResponse{Quotation: quotation})
}

func (h *Handler) stock(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	shortfalls, err := h.service.CheckStock(r.Context(), id)
	if err != nil {
		h.fail(w, "check quotation stock", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"available": len(shortfalls) == 0, "shortfalls": shortfalls})
}

func (h *Handler) document(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	kind, err := report.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	quotation, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "load quotation document", err)
		return
	}
	doc, err := report.BuildQuotationDocument(kind, DocumentSource(quotation), report.DefaultCompany, h.taxRate)
	if err != nil {
		h.fail(w, "build quotation document", err)
		return
	}
	if r.URL.Query().Get("format") == "html" {
		html, err := h.renderer.HTML(doc)
		if err != nil {
			h.fail(w, "render quotation html", err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(html)
		return
	}
	pdf, err := h.renderer.PDF(r.Context(), doc)
	if err != nil {
		h.logger.Error("render quotation pdf", slog.Any("error", err), slog.Int64("quotation_id", id))
		httpx.Problem(w, http.StatusBadGateway, "Bad Gateway", "document renderer unavailable")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "inline; filename="+strconv.Quote(doc.Filename()))
	_, _ = w.Write(pdf)
}

// DocumentSource projects a quotation into the renderer input.
func DocumentSource(q Quotation) report.Source {
	lines := make([]report.SourceLine, 0, len(q.Lines))
	for _, l := range q.Lines {
		lines = append(lines, report.SourceLine{
			Description: l.ProductName,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice(),
		})
	}
	return report.Source{
		ID:              q.ID,
		ClientName:      q.ClientName,
		CaseNumber:      q.CaseNumber,
		ServiceLabel:    q.ServiceLabel,
		ServicePrice:    q.ServicePrice,
		DiscountPercent: q.DiscountPercent,
		UsesDepositPlan: q.UsesDepositPlan,
		Status:          string(q.Status),
		CreatedAt:       q.CreatedAt,
		Lines:           lines,
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
