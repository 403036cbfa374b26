package quotations

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oris-services/servicedesk/internal/inventory"
)

type memoryState struct {
	quotations map[int64]Quotation
	products   map[int64]ProductSnapshot
	movements  []inventory.Movement
	nextID     int64
}

func (s memoryState) clone() memoryState {
	out := memoryState{
		quotations: make(map[int64]Quotation, len(s.quotations)),
		products:   make(map[int64]ProductSnapshot, len(s.products)),
		movements:  append([]inventory.Movement(nil), s.movements...),
		nextID:     s.nextID,
	}
	for id, q := range s.quotations {
		q.Lines = append([]Line(nil), q.Lines...)
		out.quotations[id] = q
	}
	for id, p := range s.products {
		out.products[id] = p
	}
	return out
}

type memoryRepo struct {
	mu    sync.Mutex
	state memoryState
	// failInsertMovementAfter makes the n-th movement insert fail when > 0.
	failInsertMovementAfter int
}

func newMemoryRepo(products ...ProductSnapshot) *memoryRepo {
	r := &memoryRepo{state: memoryState{
		quotations: map[int64]Quotation{},
		products:   map[int64]ProductSnapshot{},
	}}
	for _, p := range products {
		r.state.products[p.ID] = p
	}
	return r
}

func (r *memoryRepo) stock(id int64) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.products[id].Quantity
}

func (r *memoryRepo) setStock(id, qty int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.state.products[id]
	p.Quantity = qty
	r.state.products[id] = p
}

func (r *memoryRepo) deleteProduct(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.state.products, id)
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx := &memoryTx{repo: r, state: r.state.clone()}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	r.state = tx.state
	return nil
}

func (r *memoryRepo) Get(_ context.Context, id int64) (Quotation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.state.quotations[id]
	if !ok {
		return Quotation{}, ErrNotFound
	}
	q.Lines = append([]Line(nil), q.Lines...)
	return q, nil
}

func (r *memoryRepo) List(_ context.Context, filter ListFilter) ([]Quotation, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Quotation
	for _, q := range r.state.quotations {
		if filter.Status != "" && q.Status != filter.Status {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(q.ClientName), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, len(out), nil
}

func (r *memoryRepo) Products(_ context.Context, ids []int64) (map[int64]ProductSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[int64]ProductSnapshot{}
	for _, id := range ids {
		if p, ok := r.state.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type memoryTx struct {
	repo  *memoryRepo
	state memoryState
}

func (t *memoryTx) LockQuotation(_ context.Context, id int64) (Quotation, error) {
	q, ok := t.state.quotations[id]
	if !ok {
		return Quotation{}, ErrNotFound
	}
	q.Lines = append([]Line(nil), q.Lines...)
	return q, nil
}

func (t *memoryTx) Insert(_ context.Context, q Quotation) (int64, error) {
	t.state.nextID++
	q.ID = t.state.nextID
	q.Status = StatusPending
	q.CreatedAt = time.Now().UTC()
	q.UpdatedAt = q.CreatedAt
	q.Lines = nil
	t.state.quotations[q.ID] = q
	return q.ID, nil
}

func (t *memoryTx) UpdateHeader(_ context.Context, q Quotation) error {
	current, ok := t.state.quotations[q.ID]
	if !ok {
		return ErrNotFound
	}
	q.Lines = current.Lines
	q.CreatedAt = current.CreatedAt
	q.CreatedBy = current.CreatedBy
	q.AcceptedAt = current.AcceptedAt
	q.UpdatedAt = time.Now().UTC()
	t.state.quotations[q.ID] = q
	return nil
}

func (t *memoryTx) InsertLines(_ context.Context, quotationID int64, lines []Line) error {
	q := t.state.quotations[quotationID]
	for _, l := range lines {
		t.state.nextID++
		l.ID = t.state.nextID
		l.QuotationID = quotationID
		q.Lines = append(q.Lines, l)
	}
	t.state.quotations[quotationID] = q
	return nil
}

func (t *memoryTx) DeleteLines(_ context.Context, quotationID int64) error {
	q := t.state.quotations[quotationID]
	q.Lines = nil
	t.state.quotations[quotationID] = q
	return nil
}

func (t *memoryTx) UpdateStatus(_ context.Context, id int64, status Status, at time.Time) error {
	q, ok := t.state.quotations[id]
	if !ok {
		return ErrNotFound
	}
	q.Status = status
	q.UpdatedAt = at
	if status == StatusAccepted {
		q.AcceptedAt = &at
	}
	t.state.quotations[id] = q
	return nil
}

func (t *memoryTx) Delete(_ context.Context, id int64) error {
	if _, ok := t.state.quotations[id]; !ok {
		return ErrNotFound
	}
	delete(t.state.quotations, id)
	return nil
}

func (t *memoryTx) Inventory() inventory.TxStore {
	return t
}

func (t *memoryTx) LockProducts(_ context.Context, ids []int64) (map[int64]inventory.StockLevel, error) {
	out := map[int64]inventory.StockLevel{}
	for _, id := range ids {
		if p, ok := t.state.products[id]; ok {
			out[id] = inventory.StockLevel{ProductID: id, Name: p.Name, Quantity: p.Quantity}
		}
	}
	return out, nil
}

func (t *memoryTx) DecrementIfAvailable(_ context.Context, productID, qty int64) (int64, bool, error) {
	p, ok := t.state.products[productID]
	if !ok || p.Quantity < qty {
		return 0, false, nil
	}
	p.Quantity -= qty
	t.state.products[productID] = p
	return p.Quantity, true, nil
}

func (t *memoryTx) InsertMovement(_ context.Context, m inventory.Movement) (int64, error) {
	if t.repo.failInsertMovementAfter > 0 && len(t.state.movements)+1 >= t.repo.failInsertMovementAfter {
		return 0, errStoreDown
	}
	t.state.nextID++
	m.ID = t.state.nextID
	t.state.movements = append(t.state.movements, m)
	return m.ID, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
