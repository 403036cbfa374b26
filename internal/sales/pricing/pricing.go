// Package pricing computes quotation totals. Every function is pure.
//
// Amounts are carried at full precision and only rounded to two decimals by
// Breakdown.Rounded, so per-line rounding never accumulates.
package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/oris-services/servicedesk/internal/platform/httpx"
)

// ITBIS is the Dominican Republic sales tax rate used on customer documents.
var ITBIS = decimal.RequireFromString("0.18")

var (
	// ErrInvalidLine marks a line with non-positive quantity or unit price.
	ErrInvalidLine = fmt.Errorf("%w: line quantity and unit price must be positive", httpx.ErrValidation)
	// ErrInvalidInput marks a negative service price or a discount outside 0-100.
	ErrInvalidInput = fmt.Errorf("%w: invalid pricing input", httpx.ErrValidation)
	// ErrNonPositiveTotal is returned when the computed total is zero or negative.
	ErrNonPositiveTotal = fmt.Errorf("%w: total must be greater than zero", httpx.ErrValidation)
)

var (
	hundred = decimal.NewFromInt(100)
	half    = decimal.RequireFromString("0.5")
)

// Line is one priced product row. UnitPrice already includes any per-unit extra.
type Line struct {
	Quantity  int64
	UnitPrice decimal.Decimal
}

// UnitPrice returns base + extra.
func UnitPrice(base, extra decimal.Decimal) decimal.Decimal {
	return base.Add(extra)
}

// Subtotal returns quantity × unit price.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity))
}

// Validate rejects lines that would contribute nothing or a negative amount.
func (l Line) Validate() error {
	if l.Quantity <= 0 || !l.UnitPrice.IsPositive() {
		return ErrInvalidLine
	}
	return nil
}

// Input collects everything the calculator needs.
type Input struct {
	Lines           []Line
	ServicePrice    decimal.Decimal
	DiscountPercent decimal.Decimal
	// TaxRate is a fraction (0.18). Zero selects the simple variant.
	TaxRate         decimal.Decimal
	UsesDepositPlan bool
}

// Breakdown is the result of Calculate.
type Breakdown struct {
	SubtotalProducts decimal.Decimal `json:"subtotal_products"`
	ServicePrice     decimal.Decimal `json:"service_price"`
	Base             decimal.Decimal `json:"base"`
	Tax              decimal.Decimal `json:"tax"`
	DiscountAmount   decimal.Decimal `json:"discount_amount"`
	Total            decimal.Decimal `json:"total"`
	UsesDepositPlan  bool            `json:"uses_deposit_plan"`
	Deposit          decimal.Decimal `json:"deposit"`
	Remainder        decimal.Decimal `json:"remainder"`
}

// Calculate prices the input:
//
//	subtotal = Σ qty × unit
//	base     = subtotal + service
//	tax      = base × rate
//	discount = base × pct / 100
//	total    = base + tax − discount
//
// With a deposit plan the rounded total is split into deposit = round2(total/2)
// and remainder = total − deposit.
func Calculate(in Input) (Breakdown, error) {
	if in.ServicePrice.IsNegative() || in.TaxRate.IsNegative() {
		return Breakdown{}, ErrInvalidInput
	}
	if in.DiscountPercent.IsNegative() || in.DiscountPercent.GreaterThan(hundred) {
		return Breakdown{}, ErrInvalidInput
	}

	subtotal := decimal.Zero
	for i, line := range in.Lines {
		if err := line.Validate(); err != nil {
			return Breakdown{}, fmt.Errorf("line %d: %w", i+1, err)
		}
		subtotal = subtotal.Add(line.Subtotal())
	}

	base := subtotal.Add(in.ServicePrice)
	tax := base.Mul(in.TaxRate)
	discount := base.Mul(in.DiscountPercent).Div(hundred)
	total := base.Add(tax).Sub(discount)

	b := Breakdown{
		SubtotalProducts: subtotal,
		ServicePrice:     in.ServicePrice,
		Base:             base,
		Tax:              tax,
		DiscountAmount:   discount,
		Total:            total,
		UsesDepositPlan:  in.UsesDepositPlan,
		Deposit:          decimal.Zero,
		Remainder:        decimal.Zero,
	}
	if !total.Round(2).IsPositive() {
		return b, ErrNonPositiveTotal
	}
	if in.UsesDepositPlan {
		b.Deposit, b.Remainder = Split(total)
	}
	return b, nil
}

// Split divides total into a 50/50 plan whose parts sum to round2(total) exactly.
func Split(total decimal.Decimal) (deposit, remainder decimal.Decimal) {
	rounded := total.Round(2)
	deposit = rounded.Mul(half).Round(2)
	remainder = rounded.Sub(deposit).Round(2)
	return deposit, remainder
}

// Rounded returns a copy with every amount rounded to two decimals.
func (b Breakdown) Rounded() Breakdown {
	b.SubtotalProducts = b.SubtotalProducts.Round(2)
	b.ServicePrice = b.ServicePrice.Round(2)
	b.Base = b.Base.Round(2)
	b.Tax = b.Tax.Round(2)
	b.DiscountAmount = b.DiscountAmount.Round(2)
	b.Total = b.Total.Round(2)
	b.Deposit = b.Deposit.Round(2)
	b.Remainder = b.Remainder.Round(2)
	return b
}

// IsPricingError reports whether err came from input validation.
func IsPricingError(err error) bool {
	return errors.Is(err, ErrInvalidLine) || errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrNonPositiveTotal)
}
