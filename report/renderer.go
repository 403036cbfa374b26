package report

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templatesFS embed.FS

// PDFConverter turns HTML into PDF bytes.
type PDFConverter interface {
	RenderHTML(ctx context.Context, html []byte) ([]byte, error)
}

// Renderer produces HTML and PDF documents.
type Renderer struct {
	converter PDFConverter
	tmpl      *template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer(converter PDFConverter) (*Renderer, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/document.html")
	if err != nil {
		return nil, fmt.Errorf("report: parse templates: %w", err)
	}
	return &Renderer{converter: converter, tmpl: tmpl}, nil
}

// HTML renders doc as a standalone page.
func (r *Renderer) HTML(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, "document.html", doc); err != nil {
		return nil, fmt.Errorf("report: execute template: %w", err)
	}
	return buf.Bytes(), nil
}

// PDF renders doc and converts it through the converter.
func (r *Renderer) PDF(ctx context.Context, doc Document) ([]byte, error) {
	html, err := r.HTML(doc)
	if err != nil {
		return nil, err
	}
	if r.converter == nil {
		return nil, fmt.Errorf("report: pdf converter not configured")
	}
	return r.converter.RenderHTML(ctx, html)
}

// Filename suggests a download name such as "cotizacion-00042.pdf".
func (d Document) Filename() string {
	prefix := map[Kind]string{
		KindQuotation:     "cotizacion",
		KindInvoice:       "factura",
		KindPurchaseOrder: "orden-compra",
		KindPaymentPlan:   "plan-pago",
	}[d.Kind]
	if prefix == "" {
		prefix = "documento"
	}
	return prefix + "-" + d.Number + ".pdf"
}
