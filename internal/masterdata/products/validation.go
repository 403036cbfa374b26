package products

import (
	"strings"

	"github.com/oris-services/servicedesk/internal/platform/httpx"
)

func (s *Service) validate(p *Product) error {
	p.Name = strings.TrimSpace(p.Name)
	p.Provider = strings.TrimSpace(p.Provider)
	p.Category = strings.TrimSpace(p.Category)
	p.Model = strings.TrimSpace(p.Model)
	errs := httpx.FieldErrors{}
	if p.Name == "" {
		errs["name"] = "is required"
	}
	if p.Provider == "" {
		errs["provider"] = "is required"
	}
	if p.Price.IsNegative() {
		errs["price"] = "must be greater than or equal to 0"
	}
	if p.Quantity < 0 {
		errs["quantity"] = "must be greater than or equal to 0"
	}
	if len(errs) > 0 {
		return errs
	}
	p.Price = p.Price.Round(2)
	return nil
}
