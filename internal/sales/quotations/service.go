package quotations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/oris-services/servicedesk/internal/inventory"
	"github.com/oris-services/servicedesk/internal/shared"
)

// Repository is the persistence port of the quotation workflow.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Quotation, error)
	List(ctx context.Context, filter ListFilter) ([]Quotation, int, error)
	// Products reads the current catalog data of the given products.
	Products(ctx context.Context, ids []int64) (map[int64]ProductSnapshot, error)
}

// TxRepository runs inside one database transaction.
type TxRepository interface {
	// LockQuotation reads the quotation and its lines, locking the header row.
	LockQuotation(ctx context.Context, id int64) (Quotation, error)
	Insert(ctx context.Context, q Quotation) (int64, error)
	UpdateHeader(ctx context.Context, q Quotation) error
	InsertLines(ctx context.Context, quotationID int64, lines []Line) error
	DeleteLines(ctx context.Context, quotationID int64) error
	UpdateStatus(ctx context.Context, id int64, status Status, at time.Time) error
	Delete(ctx context.Context, id int64) error
	Inventory() inventory.TxStore
}

// AuditPort records audit entries.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// StockNotifier is told about committed reservations.
type StockNotifier interface {
	Notify(ctx context.Context, movements []inventory.Movement)
}

// Recorder receives workflow metrics.
type Recorder interface {
	QuotationTransition(from, to, outcome string)
	StockShortfall(stage string, products int)
}

// Invalidator drops cached aggregates that depend on quotations.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Service coordinates the quotation workflow.
type Service struct {
	repo    Repository
	audit   AuditPort
	stock   StockNotifier
	metrics Recorder
	cache   Invalidator
	logger  *slog.Logger
	now     func() time.Time
}

// Option customises Service.
type Option func(*Service)

// WithAudit records audit entries after each write.
func WithAudit(a AuditPort) Option { return func(s *Service) { s.audit = a } }

// WithStockNotifier forwards reservation movements.
func WithStockNotifier(n StockNotifier) Option { return func(s *Service) { s.stock = n } }

// WithRecorder wires metrics.
func WithRecorder(r Recorder) Option { return func(s *Service) { s.metrics = r } }

// WithInvalidator wires the dashboard cache.
func WithInvalidator(c Invalidator) Option { return func(s *Service) { s.cache = c } }

// NewService constructs the service.
func NewService(repo Repository, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{repo: repo, logger: logger, now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates and persists a new pending quotation.
func (s *Service) Create(ctx context.Context, actor shared.Actor, input QuotationInput) (Quotation, error) {
	q, err := s.build(ctx, input)
	if err != nil {
		return Quotation{}, err
	}
	q.CreatedBy = actor.ID
	var id int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		newID, err := tx.Insert(ctx, q)
		if err != nil {
			return fmt.Errorf("insert quotation: %w", err)
		}
		id = newID
		if err := tx.InsertLines(ctx, id, q.Lines); err != nil {
			return fmt.Errorf("insert quotation lines: %w", err)
		}
		return nil
	})
	if err != nil {
		return Quotation{}, err
	}
	s.afterWrite(ctx, actor, "quotation:create", id, map[string]any{"total": q.Total.StringFixed(2)})
	return s.repo.Get(ctx, id)
}

// Update replaces the draft content of a quotation that is not accepted.
func (s *Service) Update(ctx context.Context, actor shared.Actor, id int64, input QuotationInput) (Quotation, error) {
	draft, err := s.build(ctx, input)
	if err != nil {
		return Quotation{}, err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.LockQuotation(ctx, id)
		if err != nil {
			return err
		}
		if current.Status == StatusAccepted {
			return ErrImmutable
		}
		draft.ID = id
		draft.Status = current.Status
		if err := tx.UpdateHeader(ctx, draft); err != nil {
			return fmt.Errorf("update quotation: %w", err)
		}
		if err := tx.DeleteLines(ctx, id); err != nil {
			return fmt.Errorf("delete quotation lines: %w", err)
		}
		if err := tx.InsertLines(ctx, id, draft.Lines); err != nil {
			return fmt.Errorf("insert quotation lines: %w", err)
		}
		return nil
	})
	if err != nil {
		return Quotation{}, err
	}
	s.afterWrite(ctx, actor, "quotation:update", id, map[string]any{"total": draft.Total.StringFixed(2)})
	return s.repo.Get(ctx, id)
}

// Delete removes a quotation and its lines.
func (s *Service) Delete(ctx context.Context, actor shared.Actor, id int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.LockQuotation(ctx, id); err != nil {
			return err
		}
		return tx.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.afterWrite(ctx, actor, "quotation:delete", id, nil)
	return nil
}

// Get returns a quotation with its lines.
func (s *Service) Get(ctx context.Context, id int64) (Quotation, error) {
	return s.repo.Get(ctx, id)
}

// List returns quotations ordered by id descending.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Quotation, shared.Pagination, error) {
	filter.Page, filter.PerPage = shared.NormalizePage(filter.Page, filter.PerPage)
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, shared.Pagination{}, ErrInvalidStatus
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

// CheckStock previews the shortfalls acceptance would hit right now.
func (s *Service) CheckStock(ctx context.Context, id int64) ([]inventory.Shortfall, error) {
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	reqs := q.Requirements()
	ids := make([]int64, 0, len(reqs))
	for _, r := range reqs {
		ids = append(ids, r.ProductID)
	}
	products, err := s.repo.Products(ctx, ids)
	if err != nil {
		return nil, err
	}
	levels := make(map[int64]inventory.StockLevel, len(products))
	for id, p := range products {
		levels[id] = inventory.StockLevel{ProductID: id, Name: p.Name, Quantity: p.Quantity}
	}
	return inventory.Shortfalls(reqs, levels), nil
}

// Accept moves a quotation to accepted, reserving its stock.
func (s *Service) Accept(ctx context.Context, actor shared.Actor, id int64) (Quotation, error) {
	return s.Transition(ctx, actor, id, StatusAccepted)
}

// Transition applies a status change. The quotation row stays locked from the
// guard check to the status write, so two concurrent acceptances serialise
// and the second one sees ErrAlreadyAccepted.
func (s *Service) Transition(ctx context.Context, actor shared.Actor, id int64, to Status) (Quotation, error) {
	if !to.Valid() {
		return Quotation{}, ErrInvalidStatus
	}
	var (
		from      Status
		effect    Effect
		movements []inventory.Movement
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		q, err := tx.LockQuotation(ctx, id)
		if err != nil {
			return err
		}
		from = q.Status
		if err := AuthorizeTransition(actor, from, to); err != nil {
			return err
		}
		effect, err = Transition(from, to)
		if err != nil || effect == EffectNone {
			return err
		}
		now := s.now()
		if effect == EffectReserve {
			ref := inventory.Reference{
				Module:  "quotation",
				ID:      strconv.FormatInt(id, 10),
				ActorID: actor.ID,
				Note:    "quotation accepted",
			}
			movements, err = inventory.Reserve(ctx, tx.Inventory(), ref, q.Requirements())
			if err != nil {
				return err
			}
		}
		return tx.UpdateStatus(ctx, id, to, now)
	})
	s.recordTransition(from, to, err)
	if err != nil {
		return Quotation{}, err
	}
	if effect != EffectNone {
		if s.stock != nil {
			s.stock.Notify(ctx, movements)
		}
		s.afterWrite(ctx, actor, "quotation:"+string(to), id, map[string]any{
			"from":     string(from),
			"to":       string(to),
			"reserved": len(movements),
		})
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) build(ctx context.Context, input QuotationInput) (Quotation, error) {
	products, err := s.repo.Products(ctx, input.productIDs())
	if err != nil {
		return Quotation{}, err
	}
	q, _, err := Build(input, products)
	if se, ok := inventory.AsShortfall(err); ok && s.metrics != nil {
		s.metrics.StockShortfall(string(se.Stage), len(se.Shortfalls))
	}
	return q, err
}

func (s *Service) recordTransition(from, to Status, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrAlreadyAccepted):
		outcome = "already_accepted"
	case errors.Is(err, inventory.ErrInsufficientStock):
		outcome = "shortfall"
		if se, ok := inventory.AsShortfall(err); ok {
			s.metrics.StockShortfall(string(se.Stage), len(se.Shortfalls))
		}
	case errors.Is(err, ErrImmutable):
		outcome = "immutable"
	case errors.Is(err, ErrForbiddenTransition):
		outcome = "forbidden"
	default:
		outcome = "error"
	}
	s.metrics.QuotationTransition(string(from), string(to), outcome)
}

func (s *Service) afterWrite(ctx context.Context, actor shared.Actor, action string, id int64, meta map[string]any) {
	if s.audit != nil {
		if err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actor.ID,
			Action:   action,
			Entity:   "quotation",
			EntityID: strconv.FormatInt(id, 10),
			Meta:     meta,
		}); err != nil {
			s.logger.Warn("quotation audit failed", slog.Any("error", err))
		}
	}
	if s.cache != nil {
		if err := s.cache.Bump(ctx); err != nil {
			s.logger.Warn("dashboard cache bump failed", slog.Any("error", err))
		}
	}
}
