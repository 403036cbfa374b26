package inventory

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oris-services/servicedesk/internal/platform/httpx"
)

// MovementKind enumerates supported stock movements.
type MovementKind string

const (
	// MovementReservation is the decrement applied when a quotation is accepted.
	MovementReservation MovementKind = "reservation"
	// MovementRestock is an inbound delivery.
	MovementRestock MovementKind = "restock"
	// MovementAdjustment is a manual signed correction.
	MovementAdjustment MovementKind = "adjustment"
)

// Movement is one stock card entry.
type Movement struct {
	ID         int64        `json:"id"`
	ProductID  int64        `json:"product_id"`
	Kind       MovementKind `json:"kind"`
	QtyChange  int64        `json:"qty_change"`
	BalanceQty int64        `json:"balance_qty"`
	RefModule  string       `json:"ref_module,omitempty"`
	RefID      string       `json:"ref_id,omitempty"`
	Note       string       `json:"note,omitempty"`
	ActorID    int64        `json:"actor_id,omitempty"`
	PostedAt   time.Time    `json:"posted_at"`
}

// StockLevel is the on-hand quantity of a product as read from the database.
type StockLevel struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int64  `json:"quantity"`
}

// Requirement asks for Quantity units of a product. ProductID zero means the
// line is not stock-tracked and is ignored.
type Requirement struct {
	ProductID   int64
	ProductName string
	Quantity    int64
}

// Shortfall reports a product that cannot cover its requirement.
type Shortfall struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Required    int64  `json:"required"`
	Available   int64  `json:"available"`
}

// Missing returns how many units are lacking.
func (s Shortfall) Missing() int64 {
	return s.Required - s.Available
}

// Stage tells whether a shortfall came from the authoritative check or a draft pre-check.
type Stage string

const (
	StageReservation Stage = "reservation"
	StagePreCheck    Stage = "pre_check"
)

// ErrInsufficientStock is matched by every ShortfallError.
var ErrInsufficientStock = fmt.Errorf("%w: insufficient stock", httpx.ErrConflict)

// ShortfallError carries every product that failed a stock check.
type ShortfallError struct {
	Stage      Stage
	Shortfalls []Shortfall
}

func (e *ShortfallError) Error() string {
	parts := make([]string, 0, len(e.Shortfalls))
	for _, s := range e.Shortfalls {
		parts = append(parts, fmt.Sprintf("%s (required %d, available %d)", s.ProductName, s.Required, s.Available))
	}
	return "inventory: insufficient stock: " + strings.Join(parts, "; ")
}

func (e *ShortfallError) Unwrap() error {
	return ErrInsufficientStock
}

// ProblemExtra exposes the shortfalls to HTTP clients.
func (e *ShortfallError) ProblemExtra() any {
	return map[string]any{"stage": e.Stage, "shortfalls": e.Shortfalls}
}

// AsShortfall extracts a ShortfallError from err.
func AsShortfall(err error) (*ShortfallError, bool) {
	var se *ShortfallError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// Reference identifies the document that caused a movement.
type Reference struct {
	Module  string
	ID      string
	ActorID int64
	Note    string
}

// RestockInput describes an inbound delivery.
type RestockInput struct {
	ProductID      int64  `json:"-"`
	Qty            int64  `json:"qty" validate:"gt=0"`
	Note           string `json:"note" validate:"max=500"`
	ActorID        int64  `json:"-"`
	IdempotencyKey string `json:"-"`
}

// AdjustmentInput describes a manual inbound correction.
type AdjustmentInput struct {
	ProductID      int64  `json:"-"`
	Qty            int64  `json:"qty" validate:"gt=0"`
	Note           string `json:"note" validate:"required,max=500"`
	ActorID        int64  `json:"-"`
	IdempotencyKey string `json:"-"`
}

// StockCardFilter filters movements of a product.
type StockCardFilter struct {
	ProductID int64
	From      time.Time
	To        time.Time
	Limit     int
}

var (
	// ErrInvalidQuantity indicates invalid qty.
	ErrInvalidQuantity = fmt.Errorf("%w: inventory: quantity must be positive", httpx.ErrValidation)
	// ErrProductNotFound indicates the product row is missing.
	ErrProductNotFound = fmt.Errorf("%w: inventory: product", httpx.ErrNotFound)
)
