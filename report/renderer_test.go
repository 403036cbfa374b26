package report

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestRendererHTMLSectionOrder(t *testing.T) {
	renderer, err := NewRenderer(nil)
	require.NoError(t, err)
	doc, err := BuildQuotationDocument(KindInvoice, sampleSource(), DefaultCompany, decimal.RequireFromString("0.18"))
	require.NoError(t, err)

	html, err := renderer.HTML(doc)
	require.NoError(t, err)
	page := string(html)

	markers := []string{"ORIS79E SERVICES", "FACTURA", "No. 00042", "Ana Pérez", "CASE-123456", "Cámara IP", "ITBIS (18%)", "RD$ 270.00", "Firma del cliente"}
	body := page[strings.Index(page, "<body>"):]
	for _, m := range markers {
		idx := strings.Index(body, m)
		require.GreaterOrEqual(t, idx, 0, m)
		body = body[idx+len(m):]
	}
}

func TestRendererPDFUsesGotenberg(t *testing.T) {
	var received string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/forms/chromium/convert/html", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "8.5", r.FormValue("paperWidth"))
		file, _, err := r.FormFile("files")
		require.NoError(t, err)
		body, _ := io.ReadAll(file)
		received = string(body)
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.7"))
	}))
	defer srv.Close()

	renderer, err := NewRenderer(NewClient(srv.URL + "/"))
	require.NoError(t, err)
	doc, err := BuildQuotationDocument(KindQuotation, sampleSource(), DefaultCompany, decimal.Zero)
	require.NoError(t, err)

	pdf, err := renderer.PDF(context.Background(), doc)
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.7", string(pdf))
	require.Contains(t, received, "COTIZACIÓN")
}

func TestClientSurfacesRenderFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.Error(w, "chromium crashed", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	require.NoError(t, client.Ping(context.Background()))
	_, err := client.RenderHTML(context.Background(), []byte("<html></html>"))
	require.ErrorContains(t, err, "chromium crashed")
}
