package publications

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/oris-services/servicedesk/internal/platform/storage"
)

type memoryRepo struct {
	mu        sync.Mutex
	rows      map[int64]Publication
	nextID    int64
	createErr error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{rows: map[int64]Publication{}}
}

func (m *memoryRepo) List(ctx context.Context, limit int) ([]Publication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Publication, 0, len(m.rows))
	for _, p := range m.rows {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PublishedAt.Equal(out[j].PublishedAt) {
			return out[i].PublishedAt.After(out[j].PublishedAt)
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (Publication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return Publication{}, ErrNotFound
	}
	return p, nil
}

func (m *memoryRepo) Create(ctx context.Context, p Publication) (int64, error) {
	if m.createErr != nil {
		return 0, m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	p.ID = m.nextID
	images := make([]Image, len(p.Images))
	for i, img := range p.Images {
		img.ID = p.ID*100 + int64(i)
		images[i] = img
	}
	p.Images = images
	m.rows[p.ID] = p
	return p.ID, nil
}

func (m *memoryRepo) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return ErrNotFound
	}
	delete(m.rows, id)
	return nil
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
