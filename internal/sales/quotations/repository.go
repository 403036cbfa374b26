package quotations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oris-services/servicedesk/internal/inventory"
	"github.com/oris-services/servicedesk/internal/platform/db"
	"github.com/oris-services/servicedesk/internal/shared"
)

type dbtx interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

type txRepository struct {
	tx pgx.Tx
}

const quotationColumns = `q.id, q.client_name, q.ticket_id, COALESCE(t.case_number, ''), q.service_label,
q.service_price, q.discount_percent, q.total, q.status, q.uses_deposit_plan, q.deposit_amount,
q.remainder_amount, COALESCE(q.created_by, 0), q.accepted_at, q.created_at, q.updated_at`

// WithTx runs fn inside a repeatable read transaction.
func (r *PGRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

// Get loads a quotation and its lines.
func (r *PGRepository) Get(ctx context.Context, id int64) (Quotation, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+quotationColumns+`
FROM quotations q LEFT JOIN tickets t ON t.id = q.ticket_id
WHERE q.id = $1`, id)
	q, err := scanQuotation(row)
	if err != nil {
		return Quotation{}, err
	}
	q.Lines, err = loadLines(ctx, r.pool, id)
	return q, err
}

// List returns quotation headers ordered by id descending.
func (r *PGRepository) List(ctx context.Context, filter ListFilter) ([]Quotation, int, error) {
	var conditions []string
	var args []any
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conditions = append(conditions, fmt.Sprintf("q.status = $%d", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+search+"%")
		conditions = append(conditions, fmt.Sprintf("(q.client_name ILIKE $%d OR q.service_label ILIKE $%d)", len(args), len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM quotations q "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.PerPage, shared.Offset(filter.Page, filter.PerPage))
	query := fmt.Sprintf(`SELECT %s
FROM quotations q LEFT JOIN tickets t ON t.id = q.ticket_id
%s
ORDER BY q.id DESC
LIMIT $%d OFFSET $%d`, quotationColumns, where, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Quotation
	for rows.Next() {
		q, err := scanQuotation(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, q)
	}
	return out, total, rows.Err()
}

// Products reads catalog rows used to snapshot lines.
func (r *PGRepository) Products(ctx context.Context, ids []int64) (map[int64]ProductSnapshot, error) {
	out := make(map[int64]ProductSnapshot, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT id, name, price, quantity FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var p ProductSnapshot
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Quantity); err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

func (t *txRepository) LockQuotation(ctx context.Context, id int64) (Quotation, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+quotationColumns+`
FROM quotations q LEFT JOIN tickets t ON t.id = q.ticket_id
WHERE q.id = $1
FOR UPDATE OF q`, id)
	q, err := scanQuotation(row)
	if err != nil {
		return Quotation{}, err
	}
	q.Lines, err = loadLines(ctx, t.tx, id)
	return q, err
}

func (t *txRepository) Insert(ctx context.Context, q Quotation) (int64, error) {
	var createdBy any
	if q.CreatedBy > 0 {
		createdBy = q.CreatedBy
	}
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO quotations
(client_name, ticket_id, service_label, service_price, discount_percent, total, status,
 uses_deposit_plan, deposit_amount, remainder_amount, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING id`,
		q.ClientName, q.TicketID, q.ServiceLabel, q.ServicePrice, q.DiscountPercent, q.Total,
		string(StatusPending), q.UsesDepositPlan, q.DepositAmount, q.RemainderAmount, createdBy,
	).Scan(&id)
	return id, err
}

func (t *txRepository) UpdateHeader(ctx context.Context, q Quotation) error {
	tag, err := t.tx.Exec(ctx, `UPDATE quotations SET
client_name = $2, ticket_id = $3, service_label = $4, service_price = $5, discount_percent = $6,
total = $7, uses_deposit_plan = $8, deposit_amount = $9, remainder_amount = $10, updated_at = NOW()
WHERE id = $1`,
		q.ID, q.ClientName, q.TicketID, q.ServiceLabel, q.ServicePrice, q.DiscountPercent,
		q.Total, q.UsesDepositPlan, q.DepositAmount, q.RemainderAmount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepository) InsertLines(ctx context.Context, quotationID int64, lines []Line) error {
	if len(lines) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for i, l := range lines {
		order := l.LineOrder
		if order == 0 {
			order = i + 1
		}
		batch.Queue(`INSERT INTO quotation_items
(quotation_id, product_id, product_name, quantity, base_price, extra_price, subtotal, line_order)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			quotationID, l.ProductID, l.ProductName, l.Quantity, l.BasePrice, l.ExtraPrice, l.Subtotal, order)
	}
	return t.tx.SendBatch(ctx, batch).Close()
}

func (t *txRepository) DeleteLines(ctx context.Context, quotationID int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM quotation_items WHERE quotation_id = $1`, quotationID)
	return err
}

func (t *txRepository) UpdateStatus(ctx context.Context, id int64, status Status, at time.Time) error {
	tag, err := t.tx.Exec(ctx, `UPDATE quotations SET
status = $2::text,
accepted_at = CASE WHEN $2::text = 'accepted' THEN $3 ELSE accepted_at END,
updated_at = $3
WHERE id = $1`, id, string(status), at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepository) Delete(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM quotations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepository) Inventory() inventory.TxStore {
	return inventory.NewTxStore(t.tx)
}

func scanQuotation(row pgx.Row) (Quotation, error) {
	var q Quotation
	var status string
	err := row.Scan(&q.ID, &q.ClientName, &q.TicketID, &q.CaseNumber, &q.ServiceLabel,
		&q.ServicePrice, &q.DiscountPercent, &q.Total, &status, &q.UsesDepositPlan, &q.DepositAmount,
		&q.RemainderAmount, &q.CreatedBy, &q.AcceptedAt, &q.CreatedAt, &q.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Quotation{}, ErrNotFound
	}
	if err != nil {
		return Quotation{}, err
	}
	q.Status = Status(status)
	return q, nil
}

func loadLines(ctx context.Context, conn dbtx, quotationID int64) ([]Line, error) {
	rows, err := conn.Query(ctx, `SELECT id, quotation_id, product_id, product_name, quantity, base_price,
extra_price, subtotal, line_order
FROM quotation_items
WHERE quotation_id = $1
ORDER BY line_order, id`, quotationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	lines := []Line{}
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.QuotationID, &l.ProductID, &l.ProductName, &l.Quantity,
			&l.BasePrice, &l.ExtraPrice, &l.Subtotal, &l.LineOrder); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
