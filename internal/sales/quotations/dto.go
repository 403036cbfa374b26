package quotations

import "github.com/shopspring/decimal"

// QuotationInput is the draft submitted by the builder.
type QuotationInput struct {
	ClientName      string          `json:"client_name" validate:"required,max=200"`
	TicketID        *int64          `json:"ticket_id,omitempty" validate:"omitempty,gt=0"`
	ServiceLabel    string          `json:"service_label" validate:"max=200"`
	ServicePrice    decimal.Decimal `json:"service_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	UsesDepositPlan bool            `json:"uses_deposit_plan"`
	Lines           []LineInput     `json:"lines" validate:"dive"`
}

// LineInput references a catalog product plus an optional per-unit surcharge.
type LineInput struct {
	ProductID int64           `json:"product_id" validate:"required,gt=0"`
	Quantity  int64           `json:"quantity" validate:"required,gt=0"`
	Extra     decimal.Decimal `json:"extra"`
}

// TransitionRequest asks for a status change.
type TransitionRequest struct {
	Status Status `json:"status" validate:"required,oneof=pending accepted rejected"`
}

// productIDs returns the distinct product ids referenced by the input.
func (in QuotationInput) productIDs() []int64 {
	seen := make(map[int64]struct{}, len(in.Lines))
	ids := make([]int64, 0, len(in.Lines))
	for _, l := range in.Lines {
		if _, ok := seen[l.ProductID]; ok || l.ProductID == 0 {
			continue
		}
		seen[l.ProductID] = struct{}{}
		ids = append(ids, l.ProductID)
	}
	return ids
}
