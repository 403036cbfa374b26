package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/oris-services/servicedesk/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Levels(ctx context.Context, ids []int64) (map[int64]StockLevel, error)
	StockCard(ctx context.Context, filter StockCardFilter) ([]Movement, error)
	LowStock(ctx context.Context, threshold int64) ([]StockLevel, error)
}

// TxRepository extends TxStore with inbound movements.
type TxRepository interface {
	TxStore
	Increment(ctx context.Context, productID, qty int64) (int64, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort guards replays of restock and adjustment requests.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key, module string) error
}

const idempotencyModule = "inventory"

// Service coordinates inventory operations.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	idempotency IdempotencyPort
	listener    StockListener
	logger      *slog.Logger
}

// NewService builds Service. audit, idempotency and listener may be nil.
func NewService(repo RepositoryPort, audit AuditPort, idem IdempotencyPort, listener StockListener, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, idempotency: idem, listener: listener, logger: logger}
}

// CheckAvailability reports every product that cannot cover reqs without
// taking any lock. The answer is advisory.
func (s *Service) CheckAvailability(ctx context.Context, reqs []Requirement) ([]Shortfall, error) {
	aggregated := Aggregate(reqs)
	if len(aggregated) == 0 {
		return nil, nil
	}
	ids := make([]int64, 0, len(aggregated))
	for _, r := range aggregated {
		ids = append(ids, r.ProductID)
	}
	levels, err := s.repo.Levels(ctx, ids)
	if err != nil {
		return nil, err
	}
	return Shortfalls(aggregated, levels), nil
}

// Restock adds qty units to a product.
func (s *Service) Restock(ctx context.Context, input RestockInput) (Movement, error) {
	if input.ProductID == 0 {
		return Movement{}, errors.New("inventory: product required")
	}
	if input.Qty <= 0 {
		return Movement{}, ErrInvalidQuantity
	}
	return s.post(ctx, input.IdempotencyKey, func(ctx context.Context, tx TxRepository) (Movement, error) {
		balance, err := tx.Increment(ctx, input.ProductID, input.Qty)
		if err != nil {
			return Movement{}, err
		}
		return Movement{
			ProductID:  input.ProductID,
			Kind:       MovementRestock,
			QtyChange:  input.Qty,
			BalanceQty: balance,
			Note:       input.Note,
			ActorID:    input.ActorID,
		}, nil
	})
}

// Adjust records an inbound correction such as a stock count finding extra
// units. Stock only goes down through quotation acceptance, so negative
// corrections are refused.
func (s *Service) Adjust(ctx context.Context, input AdjustmentInput) (Movement, error) {
	if input.ProductID == 0 {
		return Movement{}, errors.New("inventory: product required")
	}
	if input.Qty <= 0 {
		return Movement{}, ErrInvalidQuantity
	}
	return s.post(ctx, input.IdempotencyKey, func(ctx context.Context, tx TxRepository) (Movement, error) {
		balance, err := tx.Increment(ctx, input.ProductID, input.Qty)
		if err != nil {
			return Movement{}, err
		}
		return Movement{
			ProductID:  input.ProductID,
			Kind:       MovementAdjustment,
			QtyChange:  input.Qty,
			BalanceQty: balance,
			Note:       input.Note,
			ActorID:    input.ActorID,
		}, nil
	})
}

// StockCard lists the movements of a product, newest first.
func (s *Service) StockCard(ctx context.Context, filter StockCardFilter) ([]Movement, error) {
	if filter.ProductID == 0 {
		return nil, errors.New("inventory: product required")
	}
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	return s.repo.StockCard(ctx, filter)
}

// LowStock lists products at or below threshold.
func (s *Service) LowStock(ctx context.Context, threshold int64) ([]StockLevel, error) {
	if threshold < 0 {
		threshold = 0
	}
	return s.repo.LowStock(ctx, threshold)
}

// Notify forwards committed movements to the listener. Failures are logged
// because the movements are already durable.
func (s *Service) Notify(ctx context.Context, movements []Movement) {
	if s == nil || s.listener == nil || len(movements) == 0 {
		return
	}
	if err := s.listener.HandleStockChanged(ctx, EventsFor(movements)); err != nil {
		s.logger.Warn("inventory listener failed", slog.Any("error", err))
	}
}

func (s *Service) post(ctx context.Context, idemKey string, apply func(context.Context, TxRepository) (Movement, error)) (Movement, error) {
	insertedKey := false
	if s.idempotency != nil && idemKey != "" {
		if err := s.idempotency.CheckAndInsert(ctx, idemKey, idempotencyModule); err != nil {
			return Movement{}, err
		}
		insertedKey = true
	}

	var movement Movement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		m, err := apply(ctx, tx)
		if err != nil {
			return err
		}
		m.PostedAt = time.Now().UTC()
		id, err := tx.InsertMovement(ctx, m)
		if err != nil {
			return fmt.Errorf("inventory: insert movement: %w", err)
		}
		m.ID = id
		movement = m
		return nil
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, idemKey, idempotencyModule)
		}
		return Movement{}, err
	}
	if s.audit != nil {
		if err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  movement.ActorID,
			Action:   "inventory:" + string(movement.Kind),
			Entity:   "product",
			EntityID: strconv.FormatInt(movement.ProductID, 10),
			Meta: map[string]any{
				"qty_change":  movement.QtyChange,
				"balance_qty": movement.BalanceQty,
				"note":        movement.Note,
			},
		}); err != nil {
			s.logger.Warn("inventory audit failed", slog.Any("error", err))
		}
	}
	s.Notify(ctx, []Movement{movement})
	return movement, nil
}
