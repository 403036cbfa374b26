package products

import "github.com/shopspring/decimal"

// ProductForm is the create/update payload. Quantity is honoured only on create.
type ProductForm struct {
	Name     string          `json:"name" validate:"required,max=200"`
	Provider string          `json:"provider" validate:"required,max=200"`
	Category string          `json:"category" validate:"max=100"`
	Model    string          `json:"model" validate:"max=100"`
	Price    decimal.Decimal `json:"price"`
	Quantity *int64          `json:"quantity" validate:"omitempty,gte=0"`
}

func (f ProductForm) product() Product {
	p := Product{
		Name:     f.Name,
		Provider: f.Provider,
		Category: f.Category,
		Model:    f.Model,
		Price:    f.Price,
	}
	if f.Quantity != nil {
		p.Quantity = *f.Quantity
	}
	return p
}
