package publications

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oris-services/servicedesk/internal/platform/db"
)

// Repository persists publications and their images.
type Repository interface {
	List(ctx context.Context, limit int) ([]Publication, error)
	Get(ctx context.Context, id int64) (Publication, error)
	Create(ctx context.Context, p Publication) (int64, error)
	Delete(ctx context.Context, id int64) error
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const columns = `id, title, description, category, cover_url, created_by, published_at`

// List returns the newest publications first, each with its gallery.
func (r *PGRepository) List(ctx context.Context, limit int) ([]Publication, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM publications ORDER BY published_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Publication
	ids := []int64{}
	index := map[int64]int{}
	for rows.Next() {
		p, err := scanPublication(rows)
		if err != nil {
			return nil, err
		}
		index[p.ID] = len(out)
		ids = append(ids, p.ID)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return out, nil
	}

	imgs, err := r.pool.Query(ctx, `SELECT publication_id, id, object_key, url, position
FROM publication_images WHERE publication_id = ANY($1) ORDER BY publication_id, position`, ids)
	if err != nil {
		return nil, err
	}
	defer imgs.Close()
	for imgs.Next() {
		var pubID int64
		var img Image
		if err := imgs.Scan(&pubID, &img.ID, &img.ObjectKey, &img.URL, &img.Position); err != nil {
			return nil, err
		}
		i := index[pubID]
		out[i].Images = append(out[i].Images, img)
	}
	return out, imgs.Err()
}

func (r *PGRepository) Get(ctx context.Context, id int64) (Publication, error) {
	p, err := scanPublication(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM publications WHERE id = $1`, id))
	if err != nil {
		return Publication{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, object_key, url, position FROM publication_images
WHERE publication_id = $1 ORDER BY position`, id)
	if err != nil {
		return Publication{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var img Image
		if err := rows.Scan(&img.ID, &img.ObjectKey, &img.URL, &img.Position); err != nil {
			return Publication{}, err
		}
		p.Images = append(p.Images, img)
	}
	return p, rows.Err()
}

// Create inserts the publication and its images in one transaction.
func (r *PGRepository) Create(ctx context.Context, p Publication) (int64, error) {
	var id int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `INSERT INTO publications (title, description, category, cover_url, created_by, published_at)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			p.Title, p.Description, p.Category, p.CoverURL, p.CreatedBy, p.PublishedAt).Scan(&id); err != nil {
			return err
		}
		batch := &pgx.Batch{}
		for _, img := range p.Images {
			batch.Queue(`INSERT INTO publication_images (publication_id, object_key, url, position) VALUES ($1, $2, $3, $4)`,
				id, img.ObjectKey, img.URL, img.Position)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	return id, err
}

// Delete removes the publication; images cascade.
func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM publications WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPublication(row pgx.Row) (Publication, error) {
	var p Publication
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Category, &p.CoverURL, &p.CreatedBy, &p.PublishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Publication{}, ErrNotFound
	}
	return p, err
}
