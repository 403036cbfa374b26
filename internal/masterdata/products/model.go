package products

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a catalog item. Quantity is the stock on hand.
type Product struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Provider  string          `json:"provider"`
	Category  string          `json:"category"`
	Model     string          `json:"model,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int64           `json:"quantity"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
