package tickets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oris-services/servicedesk/internal/platform/db"
	"github.com/oris-services/servicedesk/internal/platform/httpx"
	"github.com/oris-services/servicedesk/internal/shared"
)

type querier interface {
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

const ticketColumns = `t.id, t.case_number, t.client_type, t.client_name, t.email, t.phone, t.address,
t.company_name, t.company_tax_id, t.offering_id, COALESCE(o.name, ''), t.description,
t.request_status, t.progress_status, t.technician_id, COALESCE(u.name, ''), t.scheduled_date,
t.scheduled_time, t.task_type, t.closed_at, t.created_at, t.updated_at`

const ticketFrom = `FROM tickets t
LEFT JOIN offerings o ON o.id = t.offering_id
LEFT JOIN users u ON u.id = t.technician_id`

// WithTx runs fn inside a repeatable read transaction.
func (r *PGRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

// Get loads a ticket with its evidence.
func (r *PGRepository) Get(ctx context.Context, id int64) (Ticket, error) {
	t, err := scanTicket(r.pool.QueryRow(ctx, `SELECT `+ticketColumns+` `+ticketFrom+` WHERE t.id = $1`, id))
	if err != nil {
		return Ticket{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, ticket_id, uploaded_by, object_key, url, content_type, size_bytes, created_at
FROM ticket_evidence WHERE ticket_id = $1 ORDER BY id`, id)
	if err != nil {
		return Ticket{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var ev Evidence
		if err := rows.Scan(&ev.ID, &ev.TicketID, &ev.UploadedBy, &ev.ObjectKey, &ev.URL, &ev.ContentType, &ev.SizeBytes, &ev.CreatedAt); err != nil {
			return Ticket{}, err
		}
		t.Evidence = append(t.Evidence, ev)
	}
	return t, rows.Err()
}

// Track returns the public view of a case.
func (r *PGRepository) Track(ctx context.Context, caseNumber string) (Tracking, error) {
	var tr Tracking
	err := r.pool.QueryRow(ctx, `SELECT t.case_number, t.request_status, t.progress_status, COALESCE(o.name, ''),
t.scheduled_date, t.scheduled_time, t.created_at
FROM tickets t LEFT JOIN offerings o ON o.id = t.offering_id
WHERE t.case_number = $1`, caseNumber).Scan(
		&tr.CaseNumber, &tr.RequestStatus, &tr.ProgressStatus, &tr.ServiceName,
		&tr.ScheduledDate, &tr.ScheduledTime, &tr.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Tracking{}, ErrNotFound
	}
	return tr, err
}

// List returns tickets newest first.
func (r *PGRepository) List(ctx context.Context, filter ListFilter) ([]Ticket, int, error) {
	where := `WHERE ($1 = '' OR t.request_status = $1)
AND ($2::bigint = 0 OR t.technician_id = $2)
AND ($3 = '' OR t.case_number ILIKE '%' || $3 || '%' OR t.client_name ILIKE '%' || $3 || '%' OR t.email ILIKE '%' || $3 || '%')`
	args := []any{filter.RequestStatus, filter.TechnicianID, filter.Search}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tickets t `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, filter.PerPage, shared.Offset(filter.Page, filter.PerPage))
	rows, err := r.pool.Query(ctx, `SELECT `+ticketColumns+` `+ticketFrom+` `+where+`
ORDER BY t.created_at DESC, t.id DESC LIMIT $4 OFFSET $5`, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	return out, total, rows.Err()
}

// History returns the trail of a ticket in chronological order.
func (r *PGRepository) History(ctx context.Context, ticketID int64) ([]HistoryEntry, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, ticket_id, actor_id, actor_name, actor_role, action, description, created_at
FROM ticket_history WHERE ticket_id = $1 ORDER BY created_at, id`, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []HistoryEntry
	for rows.Next() {
		var h HistoryEntry
		if err := rows.Scan(&h.ID, &h.TicketID, &h.ActorID, &h.ActorName, &h.ActorRole, &h.Action, &h.Description, &h.At); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

const requestColumns = `id, ticket_id, technician_id, requested_status, note, state, resolved_by,
resolution_note, resolved_at, created_at`

// StatusRequests lists every request of a ticket.
func (r *PGRepository) StatusRequests(ctx context.Context, ticketID int64) ([]StatusRequest, error) {
	return queryRequests(ctx, r.pool, `SELECT `+requestColumns+` FROM ticket_status_requests WHERE ticket_id = $1 ORDER BY id`, ticketID)
}

// PendingRequests lists every open request, oldest first.
func (r *PGRepository) PendingRequests(ctx context.Context) ([]StatusRequest, error) {
	return queryRequests(ctx, r.pool, `SELECT `+requestColumns+` FROM ticket_status_requests WHERE state = 'pending' ORDER BY created_at, id`)
}

// Calendar lists scheduled visits within the date range.
func (r *PGRepository) Calendar(ctx context.Context, technicianID int64, from, to time.Time) ([]Visit, error) {
	rows, err := r.pool.Query(ctx, `SELECT t.id, t.case_number, t.client_name, t.address, COALESCE(o.name, ''), t.task_type,
t.scheduled_date, t.scheduled_time, t.progress_status, t.technician_id
FROM tickets t LEFT JOIN offerings o ON o.id = t.offering_id
WHERE t.technician_id IS NOT NULL AND t.scheduled_date BETWEEN $1 AND $2
AND ($3::bigint = 0 OR t.technician_id = $3)
ORDER BY t.scheduled_date, t.scheduled_time, t.id`, from, to, technicianID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Visit
	for rows.Next() {
		var v Visit
		if err := rows.Scan(&v.TicketID, &v.CaseNumber, &v.ClientName, &v.Address, &v.ServiceName, &v.TaskType,
			&v.Date, &v.Time, &v.ProgressStatus, &v.TechnicianID); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Technician loads a technician account.
func (r *PGRepository) Technician(ctx context.Context, id int64) (Technician, error) {
	var t Technician
	err := r.pool.QueryRow(ctx, `SELECT id, name, is_active FROM users WHERE id = $1 AND role = 'technician'`, id).
		Scan(&t.ID, &t.Name, &t.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return Technician{}, fmt.Errorf("%w: technician %d", httpx.ErrNotFound, id)
	}
	return t, err
}

// OfferingName returns the name of an active offering.
func (r *PGRepository) OfferingName(ctx context.Context, id int64) (string, error) {
	var name string
	err := r.pool.QueryRow(ctx, `SELECT name FROM offerings WHERE id = $1 AND is_active`, id).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("%w: offering %d", httpx.ErrNotFound, id)
	}
	return name, err
}

func (r *txRepository) Insert(ctx context.Context, t Ticket) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO tickets
(case_number, client_type, client_name, email, phone, address, company_name, company_tax_id, offering_id, description, request_status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`,
		t.CaseNumber, string(t.ClientType), t.ClientName, t.Email, t.Phone, t.Address,
		t.CompanyName, t.CompanyTaxID, t.OfferingID, t.Description, t.RequestStatus,
	).Scan(&id)
	if db.IsUniqueViolation(err) {
		return 0, errDuplicateCase
	}
	return id, err
}

func (r *txRepository) Lock(ctx context.Context, id int64) (Ticket, error) {
	return scanTicket(r.tx.QueryRow(ctx, `SELECT `+ticketColumns+` `+ticketFrom+` WHERE t.id = $1 FOR UPDATE OF t`, id))
}

func (r *txRepository) UpdateSchedule(ctx context.Context, t Ticket) error {
	_, err := r.tx.Exec(ctx, `UPDATE tickets SET technician_id = $2, scheduled_date = $3, scheduled_time = $4,
task_type = $5, request_status = $6, progress_status = $7, updated_at = NOW() WHERE id = $1`,
		t.ID, t.TechnicianID, t.ScheduledDate, t.ScheduledTime, t.TaskType, t.RequestStatus, t.ProgressStatus)
	return err
}

func (r *txRepository) UpdateProgress(ctx context.Context, id int64, progress string) error {
	_, err := r.tx.Exec(ctx, `UPDATE tickets SET progress_status = $2, updated_at = NOW() WHERE id = $1`, id, progress)
	return err
}

func (r *txRepository) Close(ctx context.Context, id int64, status string, at time.Time) error {
	_, err := r.tx.Exec(ctx, `UPDATE tickets SET request_status = $2, closed_at = $3, updated_at = NOW() WHERE id = $1`, id, status, at)
	return err
}

func (r *txRepository) InsertRequest(ctx context.Context, req StatusRequest) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO ticket_status_requests (ticket_id, technician_id, requested_status, note, state, created_at)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		req.TicketID, req.TechnicianID, req.RequestedStatus, req.Note, req.State, req.CreatedAt).Scan(&id)
	if db.IsUniqueViolation(err) {
		return 0, ErrPendingRequest
	}
	return id, err
}

func (r *txRepository) LockRequest(ctx context.Context, id int64) (StatusRequest, error) {
	reqs, err := queryRequests(ctx, r.tx, `SELECT `+requestColumns+` FROM ticket_status_requests WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return StatusRequest{}, err
	}
	if len(reqs) == 0 {
		return StatusRequest{}, ErrRequestNotFound
	}
	return reqs[0], nil
}

func (r *txRepository) ResolveRequest(ctx context.Context, req StatusRequest) error {
	_, err := r.tx.Exec(ctx, `UPDATE ticket_status_requests SET state = $2, resolved_by = $3, resolution_note = $4, resolved_at = $5
WHERE id = $1`, req.ID, req.State, req.ResolvedBy, req.ResolutionNote, req.ResolvedAt)
	return err
}

func (r *txRepository) RejectPending(ctx context.Context, ticketID, resolverID int64, note string, at time.Time) error {
	_, err := r.tx.Exec(ctx, `UPDATE ticket_status_requests SET state = 'rejected', resolved_by = $2, resolution_note = $3, resolved_at = $4
WHERE ticket_id = $1 AND state = 'pending'`, ticketID, resolverID, note, at)
	return err
}

func (r *txRepository) AppendHistory(ctx context.Context, h HistoryEntry) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO ticket_history (ticket_id, actor_id, actor_name, actor_role, action, description, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`, h.TicketID, h.ActorID, h.ActorName, h.ActorRole, h.Action, h.Description, h.At)
	return err
}

func (r *txRepository) InsertEvidence(ctx context.Context, ev Evidence) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO ticket_evidence (ticket_id, uploaded_by, object_key, url, content_type, size_bytes, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		ev.TicketID, ev.UploadedBy, ev.ObjectKey, ev.URL, ev.ContentType, ev.SizeBytes, ev.CreatedAt).Scan(&id)
	return id, err
}

func scanTicket(row pgx.Row) (Ticket, error) {
	var t Ticket
	var clientType string
	err := row.Scan(
		&t.ID, &t.CaseNumber, &clientType, &t.ClientName, &t.Email, &t.Phone, &t.Address,
		&t.CompanyName, &t.CompanyTaxID, &t.OfferingID, &t.OfferingName, &t.Description,
		&t.RequestStatus, &t.ProgressStatus, &t.TechnicianID, &t.TechnicianName, &t.ScheduledDate,
		&t.ScheduledTime, &t.TaskType, &t.ClosedAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Ticket{}, ErrNotFound
	}
	if err != nil {
		return Ticket{}, err
	}
	t.ClientType = ClientType(clientType)
	return t, nil
}

func queryRequests(ctx context.Context, q querier, sql string, args ...any) ([]StatusRequest, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StatusRequest
	for rows.Next() {
		var req StatusRequest
		if err := rows.Scan(&req.ID, &req.TicketID, &req.TechnicianID, &req.RequestedStatus, &req.Note, &req.State,
			&req.ResolvedBy, &req.ResolutionNote, &req.ResolvedAt, &req.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}
