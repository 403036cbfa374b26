package quotations

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/oris-services/servicedesk/internal/inventory"
	"github.com/oris-services/servicedesk/internal/platform/httpx"
	"github.com/oris-services/servicedesk/internal/sales/pricing"
)

// Build validates a draft against the catalog snapshot and returns the priced
// quotation ready to persist. The stock comparison here is advisory; the
// authoritative check runs again on acceptance.
func Build(input QuotationInput, products map[int64]ProductSnapshot) (Quotation, pricing.Breakdown, error) {
	errs := httpx.FieldErrors{}
	name := strings.TrimSpace(input.ClientName)
	if name == "" {
		errs["client_name"] = "is required"
	}
	if len(input.Lines) == 0 && !input.ServicePrice.IsPositive() {
		errs["lines"] = "add at least one product or a service price"
	}
	if input.ServicePrice.IsNegative() {
		errs["service_price"] = "must be zero or greater"
	}
	if input.DiscountPercent.IsNegative() || input.DiscountPercent.GreaterThan(decimal.NewFromInt(100)) {
		errs["discount_percent"] = "must be between 0 and 100"
	}
	if tooPrecise(input.ServicePrice) {
		errs["service_price"] = "must have at most 2 decimals"
	}
	if tooPrecise(input.DiscountPercent) {
		errs["discount_percent"] = "must have at most 2 decimals"
	}

	lines := make([]Line, 0, len(input.Lines))
	reqs := make([]inventory.Requirement, 0, len(input.Lines))
	levels := make(map[int64]inventory.StockLevel, len(products))
	for i, in := range input.Lines {
		field := fmt.Sprintf("lines[%d]", i)
		if in.Quantity <= 0 {
			errs[field+".quantity"] = "must be greater than zero"
			continue
		}
		if in.Extra.IsNegative() {
			errs[field+".extra"] = "must be zero or greater"
			continue
		}
		if tooPrecise(in.Extra) {
			errs[field+".extra"] = "must have at most 2 decimals"
			continue
		}
		p, ok := products[in.ProductID]
		if !ok {
			errs[field+".product_id"] = "unknown product"
			continue
		}
		unit := pricing.UnitPrice(p.Price, in.Extra)
		if !unit.IsPositive() {
			errs[field+".product_id"] = "product has no price"
			continue
		}
		productID := p.ID
		lines = append(lines, Line{
			ProductID:   &productID,
			ProductName: p.Name,
			Quantity:    in.Quantity,
			BasePrice:   p.Price,
			ExtraPrice:  in.Extra,
			Subtotal:    pricing.Line{Quantity: in.Quantity, UnitPrice: unit}.Subtotal().Round(2),
			LineOrder:   i + 1,
		})
		reqs = append(reqs, inventory.Requirement{ProductID: p.ID, ProductName: p.Name, Quantity: in.Quantity})
		levels[p.ID] = inventory.StockLevel{ProductID: p.ID, Name: p.Name, Quantity: p.Quantity}
	}
	if len(errs) > 0 {
		return Quotation{}, pricing.Breakdown{}, errs
	}
	if shortfalls := inventory.Shortfalls(reqs, levels); len(shortfalls) > 0 {
		return Quotation{}, pricing.Breakdown{}, &inventory.ShortfallError{Stage: inventory.StagePreCheck, Shortfalls: shortfalls}
	}

	q := Quotation{
		ClientName:      name,
		TicketID:        input.TicketID,
		ServiceLabel:    strings.TrimSpace(input.ServiceLabel),
		ServicePrice:    input.ServicePrice,
		DiscountPercent: input.DiscountPercent,
		UsesDepositPlan: input.UsesDepositPlan,
		Status:          StatusPending,
		Lines:           lines,
	}
	breakdown, err := pricing.Calculate(q.PricingInput(decimal.Zero))
	if err != nil {
		return Quotation{}, pricing.Breakdown{}, err
	}
	breakdown = breakdown.Rounded()
	q.Total = breakdown.Total
	q.DepositAmount = breakdown.Deposit
	q.RemainderAmount = breakdown.Remainder
	return q, breakdown, nil
}

// tooPrecise reports whether d carries more than the 2 decimals money and
// percentage columns store. Trailing zeros are fine.
func tooPrecise(d decimal.Decimal) bool {
	return !d.Equal(d.Round(2))
}
