package offerings

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oris-services/servicedesk/internal/masterdata/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Offering, int, error)
	Get(ctx context.Context, id int64) (Offering, error)
	Create(ctx context.Context, offering Offering) (Offering, error)
	Update(ctx context.Context, id int64, offering Offering) error
	SetActive(ctx context.Context, id int64, active bool) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const columns = `id, name, description, base_price, is_active, created_at, updated_at`

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Offering, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if filters.IsActive != nil {
		args = append(args, *filters.IsActive)
		where += ` AND is_active = $` + strconv.Itoa(len(args))
	}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		where += ` AND name ILIKE $` + strconv.Itoa(len(args))
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM offerings`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dir := "ASC"
	if filters.SortDir == shared.SortDesc {
		dir = "DESC"
	}
	args = append(args, filters.Limit, filters.Offset())
	query := `SELECT ` + columns + ` FROM offerings` + where + ` ORDER BY name ` + dir + `, id LIMIT $` +
		strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Offering
	for rows.Next() {
		o, err := scan(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, o)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Offering, error) {
	return scan(r.db.QueryRow(ctx, `SELECT `+columns+` FROM offerings WHERE id = $1`, id))
}

func (r *repository) Create(ctx context.Context, o Offering) (Offering, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO offerings (name, description, base_price, is_active)
VALUES ($1, $2, $3, $4) RETURNING id, created_at, updated_at`,
		o.Name, o.Description, o.BasePrice, o.IsActive,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return Offering{}, err
	}
	return o, nil
}

func (r *repository) Update(ctx context.Context, id int64, o Offering) error {
	tag, err := r.db.Exec(ctx, `UPDATE offerings SET name = $1, description = $2, base_price = $3, is_active = $4,
updated_at = NOW() WHERE id = $5`, o.Name, o.Description, o.BasePrice, o.IsActive, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE offerings SET is_active = $1, updated_at = NOW() WHERE id = $2`, active, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scan(row pgx.Row) (Offering, error) {
	var o Offering
	err := row.Scan(&o.ID, &o.Name, &o.Description, &o.BasePrice, &o.IsActive, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Offering{}, shared.ErrNotFound
	}
	return o, err
}
