package inventory

import "time"

// StockChangedEvent is emitted after a committed movement.
type StockChangedEvent struct {
	ProductID  int64
	Kind       MovementKind
	QtyChange  int64
	BalanceQty int64
	PostedAt   time.Time
}
