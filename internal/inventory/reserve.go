package inventory

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// TxStore is the transactional surface needed to reserve stock. Implementations
// must run every call inside the same database transaction.
type TxStore interface {
	// LockProducts locks the given product rows in ascending id order and
	// returns their levels. Missing ids are absent from the map.
	LockProducts(ctx context.Context, ids []int64) (map[int64]StockLevel, error)
	// DecrementIfAvailable subtracts qty only when the row still holds at least
	// qty units. ok is false when the guard rejected the update.
	DecrementIfAvailable(ctx context.Context, productID, qty int64) (balance int64, ok bool, err error)
	InsertMovement(ctx context.Context, m Movement) (int64, error)
}

// Aggregate sums requirements per product and drops lines without a product.
// The result is sorted by product id.
func Aggregate(reqs []Requirement) []Requirement {
	byID := make(map[int64]*Requirement)
	order := make([]int64, 0, len(reqs))
	for _, r := range reqs {
		if r.ProductID == 0 || r.Quantity <= 0 {
			continue
		}
		agg, ok := byID[r.ProductID]
		if !ok {
			copyReq := r
			byID[r.ProductID] = &copyReq
			order = append(order, r.ProductID)
			continue
		}
		agg.Quantity += r.Quantity
		if agg.ProductName == "" {
			agg.ProductName = r.ProductName
		}
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	out := make([]Requirement, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out
}

// Shortfalls compares aggregated requirements with stock levels. A product
// missing from levels counts as zero available and keeps the line's name.
func Shortfalls(reqs []Requirement, levels map[int64]StockLevel) []Shortfall {
	var out []Shortfall
	for _, r := range Aggregate(reqs) {
		level, ok := levels[r.ProductID]
		available := int64(0)
		name := r.ProductName
		if ok {
			available = level.Quantity
			if level.Name != "" {
				name = level.Name
			}
		}
		if available < r.Quantity {
			out = append(out, Shortfall{
				ProductID:   r.ProductID,
				ProductName: name,
				Required:    r.Quantity,
				Available:   available,
			})
		}
	}
	return out
}

// Reserve validates every requirement against locked stock and, only when all
// of them fit, decrements stock and records one reservation movement per
// product. Nothing is written when any product falls short.
func Reserve(ctx context.Context, store TxStore, ref Reference, reqs []Requirement) ([]Movement, error) {
	aggregated := Aggregate(reqs)
	if len(aggregated) == 0 {
		return nil, nil
	}
	ids := make([]int64, 0, len(aggregated))
	for _, r := range aggregated {
		ids = append(ids, r.ProductID)
	}
	levels, err := store.LockProducts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("inventory: lock products: %w", err)
	}
	if shortfalls := Shortfalls(aggregated, levels); len(shortfalls) > 0 {
		return nil, &ShortfallError{Stage: StageReservation, Shortfalls: shortfalls}
	}

	now := time.Now().UTC()
	movements := make([]Movement, 0, len(aggregated))
	for _, r := range aggregated {
		balance, ok, err := store.DecrementIfAvailable(ctx, r.ProductID, r.Quantity)
		if err != nil {
			return nil, fmt.Errorf("inventory: decrement product %d: %w", r.ProductID, err)
		}
		if !ok {
			level := levels[r.ProductID]
			return nil, &ShortfallError{Stage: StageReservation, Shortfalls: []Shortfall{{
				ProductID:   r.ProductID,
				ProductName: level.Name,
				Required:    r.Quantity,
				Available:   level.Quantity,
			}}}
		}
		m := Movement{
			ProductID:  r.ProductID,
			Kind:       MovementReservation,
			QtyChange:  -r.Quantity,
			BalanceQty: balance,
			RefModule:  ref.Module,
			RefID:      ref.ID,
			Note:       ref.Note,
			ActorID:    ref.ActorID,
			PostedAt:   now,
		}
		id, err := store.InsertMovement(ctx, m)
		if err != nil {
			return nil, fmt.Errorf("inventory: insert movement: %w", err)
		}
		m.ID = id
		movements = append(movements, m)
	}
	return movements, nil
}
