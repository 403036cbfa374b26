package dashboard

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository reads the aggregates behind the dashboard.
type Repository interface {
	UsersByRole(ctx context.Context) (map[string]int, error)
	TicketCounts(ctx context.Context) (byRequest, byProgress map[string]int, pending int, err error)
	QuotationCounts(ctx context.Context) (map[string]int, decimal.Decimal, error)
	LowStock(ctx context.Context, threshold int64) ([]LowStockProduct, error)
}

type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) UsersByRole(ctx context.Context) (map[string]int, error) {
	return r.groupCount(ctx, `SELECT role, COUNT(*) FROM users WHERE is_active GROUP BY role`)
}

func (r *PGRepository) TicketCounts(ctx context.Context) (map[string]int, map[string]int, int, error) {
	byRequest, err := r.groupCount(ctx, `SELECT request_status, COUNT(*) FROM tickets GROUP BY request_status`)
	if err != nil {
		return nil, nil, 0, err
	}
	byProgress, err := r.groupCount(ctx, `SELECT progress_status, COUNT(*) FROM tickets
WHERE progress_status <> '' GROUP BY progress_status`)
	if err != nil {
		return nil, nil, 0, err
	}
	var pending int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM ticket_status_requests WHERE state = 'pending'`).Scan(&pending); err != nil {
		return nil, nil, 0, err
	}
	return byRequest, byProgress, pending, nil
}

func (r *PGRepository) QuotationCounts(ctx context.Context) (map[string]int, decimal.Decimal, error) {
	counts, err := r.groupCount(ctx, `SELECT status, COUNT(*) FROM quotations GROUP BY status`)
	if err != nil {
		return nil, decimal.Zero, err
	}
	var revenue decimal.Decimal
	if err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(total), 0) FROM quotations WHERE status = 'accepted'`).Scan(&revenue); err != nil {
		return nil, decimal.Zero, err
	}
	return counts, revenue, nil
}

func (r *PGRepository) LowStock(ctx context.Context, threshold int64) ([]LowStockProduct, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, quantity FROM products WHERE quantity <= $1 ORDER BY quantity, name`, threshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []LowStockProduct{}
	for rows.Next() {
		var p LowStockProduct
		if err := rows.Scan(&p.ID, &p.Name, &p.Quantity); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PGRepository) groupCount(ctx context.Context, sql string) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		out[key] = n
	}
	return out, rows.Err()
}
