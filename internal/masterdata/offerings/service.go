package offerings

import (
	"context"
	"strings"

	"github.com/oris-services/servicedesk/internal/masterdata/shared"
	"github.com/oris-services/servicedesk/internal/platform/httpx"
)

// Offerings are deactivated rather than deleted so existing tickets keep their reference.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Offering, int, error) {
	return s.repo.List(ctx, filters.Normalize())
}

// Public lists every active offering for the request form.
func (s *Service) Public(ctx context.Context) ([]PublicOffering, error) {
	active := true
	rows, _, err := s.repo.List(ctx, shared.ListFilters{Page: 1, Limit: shared.MaxLimit, IsActive: &active})
	if err != nil {
		return nil, err
	}
	out := make([]PublicOffering, 0, len(rows))
	for _, o := range rows {
		out = append(out, PublicOffering{ID: o.ID, Name: o.Name, Description: o.Description})
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Offering, error) {
	if id <= 0 {
		return Offering{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, o Offering) (Offering, error) {
	if err := validate(&o); err != nil {
		return Offering{}, err
	}
	return s.repo.Create(ctx, o)
}

func (s *Service) Update(ctx context.Context, id int64, o Offering) (Offering, error) {
	if id <= 0 {
		return Offering{}, shared.ErrInvalidID
	}
	if err := validate(&o); err != nil {
		return Offering{}, err
	}
	if err := s.repo.Update(ctx, id, o); err != nil {
		return Offering{}, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) SetActive(ctx context.Context, id int64, active bool) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	return s.repo.SetActive(ctx, id, active)
}

func validate(o *Offering) error {
	o.Name = strings.TrimSpace(o.Name)
	o.Description = strings.TrimSpace(o.Description)
	errs := httpx.FieldErrors{}
	if o.Name == "" {
		errs["name"] = "is required"
	}
	if o.BasePrice.IsNegative() {
		errs["base_price"] = "must be greater than or equal to 0"
	}
	if len(errs) > 0 {
		return errs
	}
	o.BasePrice = o.BasePrice.Round(2)
	return nil
}
