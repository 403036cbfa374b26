package inventory

import "context"

// StockListener receives committed stock changes, e.g. to invalidate caches.
type StockListener interface {
	HandleStockChanged(ctx context.Context, events []StockChangedEvent) error
}

// StockListenerFunc adapts a function to StockListener.
type StockListenerFunc func(ctx context.Context, events []StockChangedEvent) error

// HandleStockChanged implements StockListener.
func (f StockListenerFunc) HandleStockChanged(ctx context.Context, events []StockChangedEvent) error {
	return f(ctx, events)
}

// EventsFor converts movements into events.
func EventsFor(movements []Movement) []StockChangedEvent {
	events := make([]StockChangedEvent, 0, len(movements))
	for _, m := range movements {
		events = append(events, StockChangedEvent{
			ProductID:  m.ProductID,
			Kind:       m.Kind,
			QtyChange:  m.QtyChange,
			BalanceQty: m.BalanceQty,
			PostedAt:   m.PostedAt,
		})
	}
	return events
}
