package quotations

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/oris-services/servicedesk/internal/inventory"
	"github.com/oris-services/servicedesk/internal/sales/pricing"
)

// Status is the lifecycle state of a quotation.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected:
		return true
	}
	return false
}

// Quotation is a priced proposal to a client.
type Quotation struct {
	ID              int64           `json:"id"`
	ClientName      string          `json:"client_name"`
	TicketID        *int64          `json:"ticket_id,omitempty"`
	CaseNumber      string          `json:"case_number,omitempty"`
	ServiceLabel    string          `json:"service_label"`
	ServicePrice    decimal.Decimal `json:"service_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	Total           decimal.Decimal `json:"total"`
	Status          Status          `json:"status"`
	UsesDepositPlan bool            `json:"uses_deposit_plan"`
	DepositAmount   decimal.Decimal `json:"deposit_amount"`
	RemainderAmount decimal.Decimal `json:"remainder_amount"`
	CreatedBy       int64           `json:"created_by,omitempty"`
	AcceptedAt      *time.Time      `json:"accepted_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Lines           []Line          `json:"lines"`
}

// Line is a snapshot-priced product row. ProductID is nil once the line no
// longer references a catalog product.
type Line struct {
	ID          int64           `json:"id"`
	QuotationID int64           `json:"quotation_id"`
	ProductID   *int64          `json:"product_id,omitempty"`
	ProductName string          `json:"product_name"`
	Quantity    int64           `json:"quantity"`
	BasePrice   decimal.Decimal `json:"base_price"`
	ExtraPrice  decimal.Decimal `json:"extra_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	LineOrder   int             `json:"line_order"`
}

// UnitPrice returns base + extra.
func (l Line) UnitPrice() decimal.Decimal {
	return pricing.UnitPrice(l.BasePrice, l.ExtraPrice)
}

// PricingInput re-prices the quotation from its stored lines.
func (q Quotation) PricingInput(taxRate decimal.Decimal) pricing.Input {
	lines := make([]pricing.Line, 0, len(q.Lines))
	for _, l := range q.Lines {
		lines = append(lines, pricing.Line{Quantity: l.Quantity, UnitPrice: l.UnitPrice()})
	}
	return pricing.Input{
		Lines:           lines,
		ServicePrice:    q.ServicePrice,
		DiscountPercent: q.DiscountPercent,
		TaxRate:         taxRate,
		UsesDepositPlan: q.UsesDepositPlan,
	}
}

// Requirements lists the stock needed to accept the quotation.
func (q Quotation) Requirements() []inventory.Requirement {
	reqs := make([]inventory.Requirement, 0, len(q.Lines))
	for _, l := range q.Lines {
		if l.ProductID == nil {
			continue
		}
		reqs = append(reqs, inventory.Requirement{
			ProductID:   *l.ProductID,
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
		})
	}
	return reqs
}

// ProductSnapshot is the catalog data copied into a line.
type ProductSnapshot struct {
	ID       int64
	Name     string
	Price    decimal.Decimal
	Quantity int64
}

// ListFilter narrows List results.
type ListFilter struct {
	Status  Status
	Search  string
	Page    int
	PerPage int
}
