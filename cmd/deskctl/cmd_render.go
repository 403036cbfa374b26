package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/oris-services/servicedesk/internal/sales/quotations"
	"github.com/oris-services/servicedesk/report"
)

func newRenderCmd() *cobra.Command {
	var out string
	var html bool
	cmd := &cobra.Command{
		Use:   "render <quotation-id> <kind>",
		Short: "Render a quotation document (quotation, invoice, purchase_order, payment_plan) to a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid quotation id %q", args[0])
			}
			kind, err := report.ParseKind(args[1])
			if err != nil {
				return err
			}

			cfg, pool, err := bootDB(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := quotations.NewService(quotations.NewRepository(pool), nil)
			q, err := svc.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			doc, err := report.BuildQuotationDocument(kind, quotations.DocumentSource(q), report.DefaultCompany, decimal.NewFromFloat(cfg.TaxRate))
			if err != nil {
				return err
			}
			renderer, err := report.NewRenderer(report.NewClient(cfg.GotenbergURL))
			if err != nil {
				return err
			}

			var body []byte
			if html {
				body, err = renderer.HTML(doc)
			} else {
				body, err = renderer.PDF(cmd.Context(), doc)
			}
			if err != nil {
				return err
			}
			if out == "" {
				out = doc.Filename()
				if html {
					out = strings.TrimSuffix(out, ".pdf") + ".html"
				}
			}
			if err := os.WriteFile(out, body, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", out, len(body))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output path (defaults to the document file name)")
	cmd.Flags().BoolVar(&html, "html", false, "write HTML instead of PDF")
	return cmd
}
