package report

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/oris-services/servicedesk/internal/platform/httpx"
	_ "github.com/oris-services/servicedesk/testing"
)

func sampleSource() Source {
	return Source{
		ID:              42,
		ClientName:      "Ana Pérez",
		CaseNumber:      "CASE-123456",
		DiscountPercent: decimal.NewFromInt(10),
		Status:          "accepted",
		CreatedAt:       time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC),
		Lines: []SourceLine{
			{Description: "Cámara IP", Quantity: 2, UnitPrice: decimal.NewFromInt(100)},
			{Description: "Cable UTP", Quantity: 1, UnitPrice: decimal.NewFromInt(50)},
		},
	}
}

func TestBuildQuotationDocumentTotals(t *testing.T) {
	doc, err := BuildQuotationDocument(KindQuotation, sampleSource(), DefaultCompany, decimal.RequireFromString("0.18"))
	require.NoError(t, err)
	require.Equal(t, "COTIZACIÓN", doc.Title)
	require.Equal(t, "00042", doc.Number)
	require.Equal(t, "Aceptada", doc.Status)
	require.Equal(t, "05/03/2026", doc.Date)
	require.Len(t, doc.Rows, 2)
	require.Equal(t, "RD$ 200.00", doc.Rows[0].Subtotal)

	require.Equal(t, []Total{
		{Label: "Subtotal (antes de ITBIS)", Amount: "RD$ 250.00"},
		{Label: "ITBIS (18%)", Amount: "RD$ 45.00"},
		{Label: "Descuento (10%)", Amount: "- RD$ 25.00"},
		{Label: "Total", Amount: "RD$ 270.00", Emphasis: true},
	}, doc.Totals)
	require.Equal(t, "Firma del cliente", doc.SignatureLabel)
}

func TestBuildQuotationDocumentServiceRowAndPlan(t *testing.T) {
	src := sampleSource()
	src.ServicePrice = decimal.NewFromInt(750)
	src.ServiceLabel = "Instalación de cámaras"
	src.UsesDepositPlan = true

	doc, err := BuildQuotationDocument(KindPaymentPlan, src, DefaultCompany, decimal.Zero)
	require.NoError(t, err)
	require.Equal(t, "PLAN DE PAGO 50 / 50", doc.Title)
	require.Len(t, doc.Rows, 3)
	require.Equal(t, "Instalación de cámaras", doc.Rows[2].Description)

	last := doc.Totals[len(doc.Totals)-2:]
	require.Equal(t, "Inicial (50%)", last[0].Label)
	require.Equal(t, "RD$ 450.00", last[0].Amount)
	require.Equal(t, "RD$ 450.00", last[1].Amount)
}

func TestBuildQuotationDocumentRejectsInvalidKinds(t *testing.T) {
	_, err := BuildQuotationDocument(Kind("receipt"), sampleSource(), DefaultCompany, decimal.Zero)
	require.ErrorIs(t, err, ErrUnknownKind)

	_, err = BuildQuotationDocument(KindPaymentPlan, sampleSource(), DefaultCompany, decimal.Zero)
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestPurchaseOrderSignature(t *testing.T) {
	doc, err := BuildQuotationDocument(KindPurchaseOrder, sampleSource(), DefaultCompany, decimal.Zero)
	require.NoError(t, err)
	require.Equal(t, "ORDEN DE COMPRA", doc.Title)
	require.Equal(t, "Firma del receptor", doc.SignatureLabel)
	require.Equal(t, "orden-compra-00042.pdf", doc.Filename())
}

func TestFormatRD(t *testing.T) {
	require.Equal(t, "RD$ 0.00", FormatRD(decimal.Zero))
	require.Equal(t, "RD$ 1,234,567.50", FormatRD(decimal.RequireFromString("1234567.5")))
	require.Equal(t, "RD$ 999.99", FormatRD(decimal.RequireFromString("999.994")))
}
