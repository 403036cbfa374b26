package offerings

import (
	"time"

	"github.com/shopspring/decimal"
)

// Offering is a service clients can request through the public form.
type Offering struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	BasePrice   decimal.Decimal `json:"base_price"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// PublicOffering is the subset exposed to anonymous clients.
type PublicOffering struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type OfferingForm struct {
	Name        string          `json:"name" validate:"required,max=200"`
	Description string          `json:"description" validate:"max=2000"`
	BasePrice   decimal.Decimal `json:"base_price"`
	IsActive    *bool           `json:"is_active"`
}

func (f OfferingForm) offering() Offering {
	o := Offering{Name: f.Name, Description: f.Description, BasePrice: f.BasePrice, IsActive: true}
	if f.IsActive != nil {
		o.IsActive = *f.IsActive
	}
	return o
}
