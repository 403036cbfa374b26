package tickets

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oris-services/servicedesk/internal/platform/storage"
)

type memoryState struct {
	tickets   map[int64]Ticket
	requests  map[int64]StatusRequest
	history   []HistoryEntry
	evidence  []Evidence
	nextID    int64
	offerings map[int64]string
	techs     map[int64]Technician
}

func (s memoryState) clone() memoryState {
	out := memoryState{
		tickets:   make(map[int64]Ticket, len(s.tickets)),
		requests:  make(map[int64]StatusRequest, len(s.requests)),
		history:   append([]HistoryEntry(nil), s.history...),
		evidence:  append([]Evidence(nil), s.evidence...),
		nextID:    s.nextID,
		offerings: s.offerings,
		techs:     s.techs,
	}
	for id, t := range s.tickets {
		out.tickets[id] = t
	}
	for id, r := range s.requests {
		out.requests[id] = r
	}
	return out
}

type memoryRepo struct {
	mu    sync.Mutex
	state memoryState
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{state: memoryState{
		tickets:   map[int64]Ticket{},
		requests:  map[int64]StatusRequest{},
		offerings: map[int64]string{1: "Instalación de cámaras", 2: "Mantenimiento"},
		techs: map[int64]Technician{
			2: {ID: 2, Name: "Tech", IsActive: true},
			3: {ID: 3, Name: "Otro Tech", IsActive: true},
			4: {ID: 4, Name: "Retired", IsActive: false},
		},
	}}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx := &memoryTx{state: r.state.clone()}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	r.state = tx.state
	return nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.state.tickets[id]
	if !ok {
		return Ticket{}, ErrNotFound
	}
	for _, ev := range r.state.evidence {
		if ev.TicketID == id {
			t.Evidence = append(t.Evidence, ev)
		}
	}
	return t, nil
}

func (r *memoryRepo) Track(ctx context.Context, caseNumber string) (Tracking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.state.tickets {
		if t.CaseNumber == caseNumber {
			return Tracking{
				CaseNumber:     t.CaseNumber,
				RequestStatus:  t.RequestStatus,
				ProgressStatus: t.ProgressStatus,
				ServiceName:    t.OfferingName,
				ScheduledDate:  t.ScheduledDate,
				ScheduledTime:  t.ScheduledTime,
				CreatedAt:      t.CreatedAt,
			}, nil
		}
	}
	return Tracking{}, ErrNotFound
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter) ([]Ticket, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Ticket
	for _, t := range r.state.tickets {
		if filter.RequestStatus != "" && t.RequestStatus != filter.RequestStatus {
			continue
		}
		if filter.TechnicianID != 0 && !t.AssignedTo(filter.TechnicianID) {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(t.ClientName+" "+t.CaseNumber), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, len(out), nil
}

func (r *memoryRepo) History(ctx context.Context, ticketID int64) ([]HistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []HistoryEntry
	for _, h := range r.state.history {
		if h.TicketID == ticketID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (r *memoryRepo) StatusRequests(ctx context.Context, ticketID int64) ([]StatusRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.filterRequests(func(req StatusRequest) bool { return req.TicketID == ticketID }), nil
}

func (r *memoryRepo) PendingRequests(ctx context.Context) ([]StatusRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.filterRequests(func(req StatusRequest) bool { return req.State == RequestPending }), nil
}

func (s memoryState) filterRequests(keep func(StatusRequest) bool) []StatusRequest {
	var out []StatusRequest
	for _, req := range s.requests {
		if keep(req) {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *memoryRepo) Calendar(ctx context.Context, technicianID int64, from, to time.Time) ([]Visit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Visit
	for _, t := range r.state.tickets {
		if t.TechnicianID == nil || t.ScheduledDate == nil {
			continue
		}
		if technicianID != 0 && *t.TechnicianID != technicianID {
			continue
		}
		if t.ScheduledDate.Before(from) || t.ScheduledDate.After(to) {
			continue
		}
		out = append(out, Visit{
			TicketID:     t.ID,
			CaseNumber:   t.CaseNumber,
			ClientName:   t.ClientName,
			TaskType:     t.TaskType,
			Date:         *t.ScheduledDate,
			Time:         t.ScheduledTime,
			TechnicianID: *t.TechnicianID,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (r *memoryRepo) Technician(ctx context.Context, id int64) (Technician, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.state.techs[id]
	if !ok {
		return Technician{}, ErrNotFound
	}
	return t, nil
}

func (r *memoryRepo) OfferingName(ctx context.Context, id int64) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name, ok := r.state.offerings[id]
	if !ok {
		return "", ErrNotFound
	}
	return name, nil
}

type memoryTx struct {
	state memoryState
}

func (tx *memoryTx) next() int64 {
	tx.state.nextID++
	return tx.state.nextID
}

func (tx *memoryTx) Insert(ctx context.Context, t Ticket) (int64, error) {
	for _, existing := range tx.state.tickets {
		if existing.CaseNumber == t.CaseNumber {
			return 0, errDuplicateCase
		}
	}
	t.ID = tx.next()
	t.CreatedAt = time.Now().UTC()
	t.UpdatedAt = t.CreatedAt
	tx.state.tickets[t.ID] = t
	return t.ID, nil
}

func (tx *memoryTx) Lock(ctx context.Context, id int64) (Ticket, error) {
	t, ok := tx.state.tickets[id]
	if !ok {
		return Ticket{}, ErrNotFound
	}
	return t, nil
}

func (tx *memoryTx) UpdateSchedule(ctx context.Context, t Ticket) error {
	tx.state.tickets[t.ID] = t
	return nil
}

func (tx *memoryTx) UpdateProgress(ctx context.Context, id int64, progress string) error {
	t := tx.state.tickets[id]
	t.ProgressStatus = progress
	tx.state.tickets[id] = t
	return nil
}

func (tx *memoryTx) Close(ctx context.Context, id int64, status string, at time.Time) error {
	t := tx.state.tickets[id]
	t.RequestStatus = status
	t.ClosedAt = &at
	tx.state.tickets[id] = t
	return nil
}

func (tx *memoryTx) InsertRequest(ctx context.Context, req StatusRequest) (int64, error) {
	for _, existing := range tx.state.requests {
		if existing.TicketID == req.TicketID && existing.State == RequestPending {
			return 0, ErrPendingRequest
		}
	}
	req.ID = tx.next()
	tx.state.requests[req.ID] = req
	return req.ID, nil
}

func (tx *memoryTx) LockRequest(ctx context.Context, id int64) (StatusRequest, error) {
	req, ok := tx.state.requests[id]
	if !ok {
		return StatusRequest{}, ErrRequestNotFound
	}
	return req, nil
}

func (tx *memoryTx) ResolveRequest(ctx context.Context, req StatusRequest) error {
	tx.state.requests[req.ID] = req
	return nil
}

func (tx *memoryTx) RejectPending(ctx context.Context, ticketID, resolverID int64, note string, at time.Time) error {
	for id, req := range tx.state.requests {
		if req.TicketID == ticketID && req.State == RequestPending {
			req.State = RequestRejected
			req.ResolvedBy = &resolverID
			req.ResolutionNote = note
			req.ResolvedAt = &at
			tx.state.requests[id] = req
		}
	}
	return nil
}

func (tx *memoryTx) AppendHistory(ctx context.Context, entry HistoryEntry) error {
	entry.ID = tx.next()
	tx.state.history = append(tx.state.history, entry)
	return nil
}

func (tx *memoryTx) InsertEvidence(ctx context.Context, ev Evidence) (int64, error) {
	ev.ID = tx.next()
	tx.state.evidence = append(tx.state.evidence, ev)
	return ev.ID, nil
}

type memoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func (s *memoryStore) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (storage.Object, error) {
	if s.err != nil {
		return storage.Object{}, s.err
	}
	var buf bytes.Buffer
	n, err := io.Copy(&buf, body)
	if err != nil {
		return storage.Object{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.objects == nil {
		s.objects = map[string][]byte{}
	}
	s.objects[key] = buf.Bytes()
	return storage.Object{Key: key, URL: s.URL(key), ContentType: contentType, Size: n}, nil
}

func (s *memoryStore) URL(key string) string {
	return "https://files.test/" + key
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
