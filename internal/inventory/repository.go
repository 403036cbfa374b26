package inventory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oris-services/servicedesk/internal/platform/db"
)

// Repository provides persistence for stock levels and movements.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

// NewTxStore exposes the reservation primitives bound to an open transaction,
// so other modules can reserve stock inside their own unit of work.
func NewTxStore(tx pgx.Tx) TxStore {
	return &txRepo{tx: tx}
}

// WithTx runs fn within a repeatable read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// Levels reads current quantities without locking.
func (r *Repository) Levels(ctx context.Context, ids []int64) (map[int64]StockLevel, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, quantity FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	return scanLevels(rows)
}

// StockCard lists movements for a product.
func (r *Repository) StockCard(ctx context.Context, filter StockCardFilter) ([]Movement, error) {
	var from, to any
	if !filter.From.IsZero() {
		from = filter.From
	}
	if !filter.To.IsZero() {
		to = filter.To
	}
	rows, err := r.pool.Query(ctx, `SELECT id, product_id, kind, qty_change, balance_qty, ref_module, ref_id,
note, COALESCE(actor_id, 0), posted_at
FROM inventory_movements
WHERE product_id = $1
  AND ($2::timestamptz IS NULL OR posted_at >= $2)
  AND ($3::timestamptz IS NULL OR posted_at <= $3)
ORDER BY posted_at DESC, id DESC
LIMIT $4`, filter.ProductID, from, to, filter.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Movement
	for rows.Next() {
		var m Movement
		var kind string
		if err := rows.Scan(&m.ID, &m.ProductID, &kind, &m.QtyChange, &m.BalanceQty, &m.RefModule, &m.RefID, &m.Note, &m.ActorID, &m.PostedAt); err != nil {
			return nil, err
		}
		m.Kind = MovementKind(kind)
		out = append(out, m)
	}
	return out, rows.Err()
}

// LowStock lists products whose quantity is at or below threshold.
func (r *Repository) LowStock(ctx context.Context, threshold int64) ([]StockLevel, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, quantity FROM products WHERE quantity <= $1 ORDER BY quantity, id`, threshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StockLevel
	for rows.Next() {
		var lvl StockLevel
		if err := rows.Scan(&lvl.ProductID, &lvl.Name, &lvl.Quantity); err != nil {
			return nil, err
		}
		out = append(out, lvl)
	}
	return out, rows.Err()
}

func (t *txRepo) LockProducts(ctx context.Context, ids []int64) (map[int64]StockLevel, error) {
	rows, err := t.tx.Query(ctx, `SELECT id, name, quantity FROM products WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return nil, err
	}
	return scanLevels(rows)
}

func (t *txRepo) DecrementIfAvailable(ctx context.Context, productID, qty int64) (int64, bool, error) {
	var balance int64
	err := t.tx.QueryRow(ctx, `UPDATE products SET quantity = quantity - $2, updated_at = NOW()
WHERE id = $1 AND quantity >= $2
RETURNING quantity`, productID, qty).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return balance, true, nil
}

func (t *txRepo) Increment(ctx context.Context, productID, qty int64) (int64, error) {
	var balance int64
	err := t.tx.QueryRow(ctx, `UPDATE products SET quantity = quantity + $2, updated_at = NOW()
WHERE id = $1
RETURNING quantity`, productID, qty).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrProductNotFound
	}
	return balance, err
}

func (t *txRepo) InsertMovement(ctx context.Context, m Movement) (int64, error) {
	var actor any
	if m.ActorID > 0 {
		actor = m.ActorID
	}
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO inventory_movements
(product_id, kind, qty_change, balance_qty, ref_module, ref_id, note, actor_id, posted_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id`, m.ProductID, string(m.Kind), m.QtyChange, m.BalanceQty, m.RefModule, m.RefID, m.Note, actor, m.PostedAt).Scan(&id)
	return id, err
}

func scanLevels(rows pgx.Rows) (map[int64]StockLevel, error) {
	defer rows.Close()
	out := make(map[int64]StockLevel)
	for rows.Next() {
		var lvl StockLevel
		if err := rows.Scan(&lvl.ProductID, &lvl.Name, &lvl.Quantity); err != nil {
			return nil, err
		}
		out[lvl.ProductID] = lvl
	}
	return out, rows.Err()
}
