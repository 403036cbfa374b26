package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/oris-services/servicedesk/internal/platform/httpx"
	"github.com/oris-services/servicedesk/internal/sales/pricing"
)

// Kind selects which document is produced from a quotation.
type Kind string

const (
	KindQuotation     Kind = "quotation"
	KindInvoice       Kind = "invoice"
	KindPurchaseOrder Kind = "purchase_order"
	KindPaymentPlan   Kind = "payment_plan"
)

// ErrUnknownKind is returned for unsupported document kinds.
var ErrUnknownKind = fmt.Errorf("%w: unknown document kind", httpx.ErrValidation)

// ErrNoDepositPlan is returned when a payment plan is requested for a quotation without one.
var ErrNoDepositPlan = fmt.Errorf("%w: quotation has no deposit plan", httpx.ErrValidation)

// ParseKind validates raw.
func ParseKind(raw string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(raw))); k {
	case KindQuotation, KindInvoice, KindPurchaseOrder, KindPaymentPlan:
		return k, nil
	}
	return "", ErrUnknownKind
}

// Title is the heading printed on the document.
func (k Kind) Title() string {
	switch k {
	case KindInvoice:
		return "FACTURA"
	case KindPurchaseOrder:
		return "ORDEN DE COMPRA"
	case KindPaymentPlan:
		return "PLAN DE PAGO 50 / 50"
	default:
		return "COTIZACIÓN"
	}
}

// Company is the issuer block.
type Company struct {
	Name    string
	TaxID   string
	Address string
	Phone   string
	Email   string
	LogoURL string
}

// DefaultCompany is the issuer printed on every document.
var DefaultCompany = Company{
	Name:    "ORIS79E SERVICES",
	TaxID:   "1-33-56833-2",
	Address: "Santo Domingo, República Dominicana",
	Phone:   "+1 (849) 577-6011",
	Email:   "oriseservice394@gmail.com",
}

// Source is the priced quotation a document is built from.
type Source struct {
	ID              int64
	ClientName      string
	CaseNumber      string
	ServiceLabel    string
	ServicePrice    decimal.Decimal
	DiscountPercent decimal.Decimal
	UsesDepositPlan bool
	Status          string
	CreatedAt       time.Time
	Lines           []SourceLine
}

// SourceLine is one product row of the quotation.
type SourceLine struct {
	Description string
	Quantity    int64
	UnitPrice   decimal.Decimal
}

// Row is a rendered line of the concept table.
type Row struct {
	Description string
	Quantity    int64
	UnitPrice   string
	Subtotal    string
}

// Total is one labelled amount of the totals block.
type Total struct {
	Label    string
	Amount   string
	Emphasis bool
}

// Document is the view model consumed by the template.
type Document struct {
	Kind           Kind
	Title          string
	Number         string
	Company        Company
	ClientName     string
	CaseNumber     string
	ServiceLabel   string
	Status         string
	Date           string
	Rows           []Row
	Totals         []Total
	SignatureLabel string
}

// BuildQuotationDocument prices src with the tax-inclusive formula at taxRate
// and lays out the sections in print order.
func BuildQuotationDocument(kind Kind, src Source, company Company, taxRate decimal.Decimal) (Document, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return Document{}, err
	}
	if kind == KindPaymentPlan && !src.UsesDepositPlan {
		return Document{}, ErrNoDepositPlan
	}

	lines := make([]pricing.Line, 0, len(src.Lines))
	rows := make([]Row, 0, len(src.Lines)+1)
	for _, l := range src.Lines {
		line := pricing.Line{Quantity: l.Quantity, UnitPrice: l.UnitPrice}
		lines = append(lines, line)
		rows = append(rows, Row{
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   FormatRD(l.UnitPrice),
			Subtotal:    FormatRD(line.Subtotal()),
		})
	}
	if src.ServicePrice.IsPositive() {
		label := src.ServiceLabel
		if label == "" {
			label = "Servicio: Instalación"
		}
		rows = append(rows, Row{
			Description: label,
			Quantity:    1,
			UnitPrice:   FormatRD(src.ServicePrice),
			Subtotal:    FormatRD(src.ServicePrice),
		})
	}

	b, err := pricing.Calculate(pricing.Input{
		Lines:           lines,
		ServicePrice:    src.ServicePrice,
		DiscountPercent: src.DiscountPercent,
		TaxRate:         taxRate,
		UsesDepositPlan: src.UsesDepositPlan || kind == KindPaymentPlan,
	})
	if err != nil {
		return Document{}, err
	}
	b = b.Rounded()

	ratePct := taxRate.Mul(decimal.NewFromInt(100)).Round(2).String()
	totals := []Total{
		{Label: "Subtotal (antes de ITBIS)", Amount: FormatRD(b.Base)},
		{Label: "ITBIS (" + ratePct + "%)", Amount: FormatRD(b.Tax)},
		{Label: "Descuento (" + src.DiscountPercent.String() + "%)", Amount: "- " + FormatRD(b.DiscountAmount)},
		{Label: "Total", Amount: FormatRD(b.Total), Emphasis: true},
	}
	if b.UsesDepositPlan {
		totals = append(totals,
			Total{Label: "Inicial (50%)", Amount: FormatRD(b.Deposit)},
			Total{Label: "Restante (50%)", Amount: FormatRD(b.Remainder)},
		)
	}

	signature := "Firma del cliente"
	if kind == KindPurchaseOrder {
		signature = "Firma del receptor"
	}
	status := src.Status
	if status == "" {
		status = "pending"
	}
	return Document{
		Kind:           kind,
		Title:          kind.Title(),
		Number:         fmt.Sprintf("%05d", src.ID),
		Company:        company,
		ClientName:     src.ClientName,
		CaseNumber:     src.CaseNumber,
		ServiceLabel:   src.ServiceLabel,
		Status:         statusLabel(status),
		Date:           src.CreatedAt.Format("02/01/2006"),
		Rows:           rows,
		Totals:         totals,
		SignatureLabel: signature,
	}, nil
}

func statusLabel(status string) string {
	switch status {
	case "accepted":
		return "Aceptada"
	case "rejected":
		return "Rechazada"
	default:
		return "Pendiente"
	}
}

// FormatRD formats an amount as "RD$ 1,234.56".
func FormatRD(amount decimal.Decimal) string {
	fixed := amount.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	sign := ""
	if amount.Round(2).IsNegative() {
		sign = "-"
	}
	return "RD$ " + sign + b.String() + "." + frac
}
