package dashboard

import (
	"time"

	"github.com/shopspring/decimal"
)

// Summary is the admin overview.
type Summary struct {
	UsersByRole          map[string]int    `json:"users_by_role"`
	TicketsByRequest     map[string]int    `json:"tickets_by_request_status"`
	TicketsByProgress    map[string]int    `json:"tickets_by_progress_status"`
	QuotationsByStatus   map[string]int    `json:"quotations_by_status"`
	AcceptedRevenue      decimal.Decimal   `json:"accepted_revenue"`
	LowStockThreshold    int64             `json:"low_stock_threshold"`
	LowStockProducts     []LowStockProduct `json:"low_stock_products"`
	PendingStatusRequest int               `json:"pending_status_requests"`
	GeneratedAt          time.Time         `json:"generated_at"`
}

type LowStockProduct struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Quantity int64  `json:"quantity"`
}
