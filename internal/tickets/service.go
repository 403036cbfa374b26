package tickets

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/oris-services/servicedesk/internal/platform/httpx"
	"github.com/oris-services/servicedesk/internal/platform/storage"
	"github.com/oris-services/servicedesk/internal/shared"
)

// MaxEvidenceBytes bounds a single evidence upload.
const MaxEvidenceBytes = 10 << 20

const caseAttempts = 5

// Repository is the persistence port of the ticket workflow.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Ticket, error)
	Track(ctx context.Context, caseNumber string) (Tracking, error)
	List(ctx context.Context, filter ListFilter) ([]Ticket, int, error)
	History(ctx context.Context, ticketID int64) ([]HistoryEntry, error)
	StatusRequests(ctx context.Context, ticketID int64) ([]StatusRequest, error)
	PendingRequests(ctx context.Context) ([]StatusRequest, error)
	Calendar(ctx context.Context, technicianID int64, from, to time.Time) ([]Visit, error)
	Technician(ctx context.Context, id int64) (Technician, error)
	OfferingName(ctx context.Context, id int64) (string, error)
}

// TxRepository runs inside one database transaction.
type TxRepository interface {
	// Insert returns errDuplicateCase when the case number is taken.
	Insert(ctx context.Context, t Ticket) (int64, error)
	Lock(ctx context.Context, id int64) (Ticket, error)
	UpdateSchedule(ctx context.Context, t Ticket) error
	UpdateProgress(ctx context.Context, id int64, progress string) error
	Close(ctx context.Context, id int64, status string, at time.Time) error
	// InsertRequest returns ErrPendingRequest when one is already open.
	InsertRequest(ctx context.Context, req StatusRequest) (int64, error)
	LockRequest(ctx context.Context, id int64) (StatusRequest, error)
	ResolveRequest(ctx context.Context, req StatusRequest) error
	RejectPending(ctx context.Context, ticketID, resolverID int64, note string, at time.Time) error
	AppendHistory(ctx context.Context, entry HistoryEntry) error
	InsertEvidence(ctx context.Context, ev Evidence) (int64, error)
}

// AuditPort records audit entries.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Invalidator drops cached aggregates that depend on tickets.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Service coordinates the ticket workflow.
type Service struct {
	repo      Repository
	store     storage.Store
	audit     AuditPort
	cache     Invalidator
	logger    *slog.Logger
	now       func() time.Time
	newNumber func() (string, error)
}

// Option customises Service.
type Option func(*Service)

// WithAudit records audit entries after admin writes.
func WithAudit(a AuditPort) Option { return func(s *Service) { s.audit = a } }

// WithInvalidator wires the dashboard cache.
func WithInvalidator(c Invalidator) Option { return func(s *Service) { s.cache = c } }

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithCaseNumbers overrides the case number generator.
func WithCaseNumbers(gen func() (string, error)) Option {
	return func(s *Service) { s.newNumber = gen }
}

// NewService constructs the service. store receives evidence uploads.
func NewService(repo Repository, store storage.Store, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		repo:      repo,
		store:     store,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		newNumber: NewCaseNumber,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewCaseNumber returns CASE- followed by six random digits.
func NewCaseNumber() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("CASE-%06d", n.Int64()), nil
}

// Submit registers a public service request.
func (s *Service) Submit(ctx context.Context, input SubmitInput) (Ticket, error) {
	input.ClientName = strings.TrimSpace(input.ClientName)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if input.ClientType != ClientCompany {
		input.CompanyName, input.CompanyTaxID = "", ""
	}
	offering, err := s.repo.OfferingName(ctx, input.OfferingID)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return Ticket{}, httpx.FieldErrors{"offering_id": "unknown service"}
		}
		return Ticket{}, err
	}
	offeringID := input.OfferingID
	t := Ticket{
		ClientType:    input.ClientType,
		ClientName:    input.ClientName,
		Email:         input.Email,
		Phone:         strings.TrimSpace(input.Phone),
		Address:       strings.TrimSpace(input.Address),
		CompanyName:   strings.TrimSpace(input.CompanyName),
		CompanyTaxID:  strings.TrimSpace(input.CompanyTaxID),
		OfferingID:    &offeringID,
		OfferingName:  offering,
		Description:   strings.TrimSpace(input.Description),
		RequestStatus: RequestSubmitted,
	}

	var id int64
	for attempt := 0; attempt < caseAttempts; attempt++ {
		number, err := s.newNumber()
		if err != nil {
			return Ticket{}, fmt.Errorf("generate case number: %w", err)
		}
		t.CaseNumber = number
		err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			newID, err := tx.Insert(ctx, t)
			if err != nil {
				return err
			}
			id = newID
			return tx.AppendHistory(ctx, HistoryEntry{
				TicketID:    newID,
				ActorName:   t.ClientName,
				ActorRole:   "client",
				Action:      ActionSubmitted,
				Description: "Solicitud recibida: " + offering,
				At:          s.now(),
			})
		})
		if errors.Is(err, errDuplicateCase) {
			s.logger.Warn("case number collision", slog.String("case_number", number))
			continue
		}
		if err != nil {
			return Ticket{}, err
		}
		s.invalidate(ctx)
		return s.repo.Get(ctx, id)
	}
	return Ticket{}, fmt.Errorf("tickets: no free case number after %d attempts", caseAttempts)
}

// Track returns the public status of a case.
func (s *Service) Track(ctx context.Context, caseNumber string) (Tracking, error) {
	caseNumber = strings.ToUpper(strings.TrimSpace(caseNumber))
	if caseNumber == "" {
		return Tracking{}, fmt.Errorf("%w: case number required", httpx.ErrValidation)
	}
	return s.repo.Track(ctx, caseNumber)
}

// Get loads a ticket. Technicians only see tickets assigned to them.
func (s *Service) Get(ctx context.Context, actor shared.Actor, id int64) (Ticket, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return Ticket{}, err
	}
	if !actor.Can(shared.PermTicketsView) && !t.AssignedTo(actor.ID) {
		return Ticket{}, ErrNotAssigned
	}
	return t, nil
}

// List returns a page of tickets for the admin.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Ticket, shared.Pagination, error) {
	filter.Page, filter.PerPage = shared.NormalizePage(filter.Page, filter.PerPage)
	filter.Search = strings.TrimSpace(filter.Search)
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

// Assign schedules a visit with a technician.
func (s *Service) Assign(ctx context.Context, actor shared.Actor, id int64, input AssignInput) (Ticket, error) {
	date, err := time.Parse("2006-01-02", input.Date)
	if err != nil {
		return Ticket{}, httpx.FieldErrors{"date": "must be YYYY-MM-DD"}
	}
	tech, err := s.repo.Technician(ctx, input.TechnicianID)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return Ticket{}, ErrInvalidTechnician
		}
		return Ticket{}, err
	}
	if !tech.IsActive {
		return Ticket{}, ErrInvalidTechnician
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		t, err := tx.Lock(ctx, id)
		if err != nil {
			return err
		}
		if t.Closed() {
			return ErrClosed
		}
		t.TechnicianID = &tech.ID
		t.ScheduledDate = &date
		t.ScheduledTime = input.Time
		t.TaskType = input.TaskType
		t.RequestStatus = RequestScheduled
		t.ProgressStatus = ProgressInProgress
		if err := tx.UpdateSchedule(ctx, t); err != nil {
			return fmt.Errorf("update schedule: %w", err)
		}
		return tx.AppendHistory(ctx, s.entry(actor, id, ActionTechnicianAssigned,
			fmt.Sprintf("Asignado a %s para %s %s (%s)", tech.Name, input.Date, input.Time, input.TaskType)))
	})
	if err != nil {
		return Ticket{}, err
	}
	s.afterWrite(ctx, actor, "ticket:assign", id, map[string]any{"technician_id": tech.ID})
	return s.repo.Get(ctx, id)
}

// RequestStatusChange opens a status request on a ticket assigned to the technician.
func (s *Service) RequestStatusChange(ctx context.Context, actor shared.Actor, id int64, input StatusChangeInput) (StatusRequest, error) {
	note := strings.TrimSpace(input.Note)
	if note == "" {
		return StatusRequest{}, httpx.FieldErrors{"note": "is required"}
	}
	req := StatusRequest{
		TicketID:        id,
		TechnicianID:    actor.ID,
		RequestedStatus: input.Status,
		Note:            note,
		State:           RequestPending,
		CreatedAt:       s.now(),
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		t, err := tx.Lock(ctx, id)
		if err != nil {
			return err
		}
		if !t.AssignedTo(actor.ID) {
			return ErrNotAssigned
		}
		if t.Closed() {
			return ErrClosed
		}
		reqID, err := tx.InsertRequest(ctx, req)
		if err != nil {
			return err
		}
		req.ID = reqID
		return tx.AppendHistory(ctx, s.entry(actor, id, ActionStatusRequested,
			fmt.Sprintf("Solicita cambio a %s: %s", input.Status, note)))
	})
	if err != nil {
		return StatusRequest{}, err
	}
	s.invalidate(ctx)
	return req, nil
}

// ResolveStatusRequest approves or rejects a pending request.
func (s *Service) ResolveStatusRequest(ctx context.Context, actor shared.Actor, requestID int64, input ResolveInput) (StatusRequest, error) {
	var resolved StatusRequest
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		req, err := tx.LockRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if req.State != RequestPending {
			return ErrAlreadyResolved
		}
		t, err := tx.Lock(ctx, req.TicketID)
		if err != nil {
			return err
		}
		now := s.now()
		req.ResolvedBy = &actor.ID
		req.ResolvedAt = &now
		req.ResolutionNote = strings.TrimSpace(input.Note)
		action := ActionStatusRejected
		description := "Cambio a " + req.RequestedStatus + " rechazado"
		if input.Approve {
			if t.Closed() {
				return ErrClosed
			}
			req.State = RequestApproved
			action = ActionStatusApproved
			description = "Cambio a " + req.RequestedStatus + " aprobado"
			if err := tx.UpdateProgress(ctx, t.ID, req.RequestedStatus); err != nil {
				return fmt.Errorf("update progress: %w", err)
			}
		} else {
			req.State = RequestRejected
		}
		if req.ResolutionNote != "" {
			description += ": " + req.ResolutionNote
		}
		if err := tx.ResolveRequest(ctx, req); err != nil {
			return fmt.Errorf("resolve request: %w", err)
		}
		resolved = req
		return tx.AppendHistory(ctx, s.entry(actor, t.ID, action, description))
	})
	if err != nil {
		return StatusRequest{}, err
	}
	s.afterWrite(ctx, actor, "ticket:"+auditAction(resolved), resolved.TicketID, map[string]any{
		"request_id": resolved.ID,
		"status":     resolved.RequestedStatus,
	})
	return resolved, nil
}

func auditAction(req StatusRequest) string {
	if req.State == RequestApproved {
		return "approve_status"
	}
	return "reject_status"
}

// Close closes a ticket manually and rejects any pending request on it.
func (s *Service) Close(ctx context.Context, actor shared.Actor, id int64, input CloseInput) (Ticket, error) {
	note := strings.TrimSpace(input.Note)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		t, err := tx.Lock(ctx, id)
		if err != nil {
			return err
		}
		if t.Closed() {
			return ErrClosed
		}
		now := s.now()
		if err := tx.RejectPending(ctx, id, actor.ID, "ticket closed", now); err != nil {
			return fmt.Errorf("reject pending requests: %w", err)
		}
		if err := tx.Close(ctx, id, input.Status, now); err != nil {
			return fmt.Errorf("close ticket: %w", err)
		}
		description := "Cerrado como " + input.Status
		if note != "" {
			description += ": " + note
		}
		return tx.AppendHistory(ctx, s.entry(actor, id, ActionManualClose, description))
	})
	if err != nil {
		return Ticket{}, err
	}
	s.afterWrite(ctx, actor, "ticket:close", id, map[string]any{"status": input.Status})
	return s.repo.Get(ctx, id)
}

// AttachEvidence stores an uploaded file and links it to the ticket.
func (s *Service) AttachEvidence(ctx context.Context, actor shared.Actor, id int64, upload EvidenceUpload) (Evidence, error) {
	if upload.Body == nil || upload.Size <= 0 {
		return Evidence{}, httpx.FieldErrors{"file": "is required"}
	}
	if upload.Size > MaxEvidenceBytes {
		return Evidence{}, ErrEvidenceTooLarge
	}
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return Evidence{}, err
	}
	if !actor.Can(shared.PermTicketsResolve) && !t.AssignedTo(actor.ID) {
		return Evidence{}, ErrNotAssigned
	}
	if s.store == nil {
		return Evidence{}, errors.New("tickets: evidence storage not configured")
	}
	now := s.now()
	name := storage.SanitizeName(upload.Filename)
	key := fmt.Sprintf("ticket-%d/%d-%s", id, now.Unix(), name)
	contentType := storage.ContentTypeFor(name, upload.ContentType)
	obj, err := s.store.Put(ctx, key, contentType, upload.Body, upload.Size)
	if err != nil {
		return Evidence{}, fmt.Errorf("upload evidence: %w", err)
	}
	ev := Evidence{
		TicketID:    id,
		UploadedBy:  &actor.ID,
		ObjectKey:   obj.Key,
		URL:         obj.URL,
		ContentType: contentType,
		SizeBytes:   obj.Size,
		CreatedAt:   now,
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		evID, err := tx.InsertEvidence(ctx, ev)
		if err != nil {
			return err
		}
		ev.ID = evID
		return tx.AppendHistory(ctx, s.entry(actor, id, ActionEvidenceAdded, "Evidencia adjunta: "+name))
	})
	if err != nil {
		s.logger.Error("evidence stored without record", slog.String("key", obj.Key), slog.Any("error", err))
		return Evidence{}, err
	}
	return ev, nil
}

// History returns the ordered trail of a ticket.
func (s *Service) History(ctx context.Context, actor shared.Actor, id int64) ([]HistoryEntry, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.repo.History(ctx, id)
}

// StatusRequests returns every request filed on a ticket.
func (s *Service) StatusRequests(ctx context.Context, id int64) ([]StatusRequest, error) {
	return s.repo.StatusRequests(ctx, id)
}

// PendingRequests returns the admin review queue.
func (s *Service) PendingRequests(ctx context.Context) ([]StatusRequest, error) {
	return s.repo.PendingRequests(ctx)
}

// Calendar lists scheduled visits in [from, to]. A zero technicianID lists every technician.
func (s *Service) Calendar(ctx context.Context, technicianID int64, from, to time.Time) ([]Visit, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: range end before start", httpx.ErrValidation)
	}
	if to.Sub(from) > 366*24*time.Hour {
		return nil, fmt.Errorf("%w: range longer than a year", httpx.ErrValidation)
	}
	return s.repo.Calendar(ctx, technicianID, from, to)
}

func (s *Service) entry(actor shared.Actor, ticketID int64, action, description string) HistoryEntry {
	actorID := actor.ID
	return HistoryEntry{
		TicketID:    ticketID,
		ActorID:     &actorID,
		ActorName:   actor.Name,
		ActorRole:   string(actor.Role),
		Action:      action,
		Description: description,
		At:          s.now(),
	}
}

func (s *Service) afterWrite(ctx context.Context, actor shared.Actor, act string, id int64, meta map[string]any) {
	if s.audit != nil {
		err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actor.ID,
			Action:   act,
			Entity:   "ticket",
			EntityID: strconv.FormatInt(id, 10),
			Meta:     meta,
			At:       s.now(),
		})
		if err != nil {
			s.logger.Warn("audit ticket", slog.String("action", act), slog.Any("error", err))
		}
	}
	s.invalidate(ctx)
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("invalidate dashboard", slog.Any("error", err))
	}
}
