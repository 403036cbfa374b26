package publications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/oris-services/servicedesk/internal/platform/httpx"
	"github.com/oris-services/servicedesk/internal/platform/storage"
	"github.com/oris-services/servicedesk/internal/shared"
)

// AuditPort records audit entries.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service publishes and removes site posts.
type Service struct {
	repo   Repository
	store  storage.Store
	audit  AuditPort
	logger *slog.Logger
	now    func() time.Time
}

// Option customises Service.
type Option func(*Service)

func WithAudit(a AuditPort) Option { return func(s *Service) { s.audit = a } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// NewService constructs the service. store receives the gallery images.
func NewService(repo Repository, store storage.Store, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{repo: repo, store: store, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns up to limit publications, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]Publication, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		if rows[i].Images == nil {
			rows[i].Images = []Image{}
		}
	}
	return rows, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Publication, error) {
	return s.repo.Get(ctx, id)
}

// Create uploads the images in order and records the publication. The first
// image becomes the cover.
func (s *Service) Create(ctx context.Context, actor shared.Actor, input Input, images []ImageUpload) (Publication, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	input.Category = strings.TrimSpace(input.Category)

	fields := httpx.FieldErrors{}
	if input.Title == "" {
		fields["title"] = "is required"
	} else if len(input.Title) > 200 {
		fields["title"] = "must be at most 200 characters"
	}
	if input.Description == "" {
		fields["description"] = "is required"
	}
	switch {
	case len(images) == 0:
		fields["images"] = "at least one image is required"
	case len(images) > MaxImages:
		fields["images"] = fmt.Sprintf("at most %d images", MaxImages)
	}
	for i, img := range images {
		key := fmt.Sprintf("images[%d]", i)
		if img.Body == nil || img.Size <= 0 {
			fields[key] = "is empty"
			continue
		}
		if !strings.HasPrefix(storage.ContentTypeFor(img.Filename, img.ContentType), "image/") {
			fields[key] = "must be an image"
		}
	}
	if len(fields) > 0 {
		return Publication{}, fields
	}
	for _, img := range images {
		if img.Size > MaxImageBytes {
			return Publication{}, ErrImageTooLarge
		}
	}
	if s.store == nil {
		return Publication{}, errors.New("publications: image storage not configured")
	}

	now := s.now()
	pub := Publication{
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		PublishedAt: now,
	}
	if actor.ID != 0 {
		pub.CreatedBy = &actor.ID
	}
	for i, img := range images {
		name := storage.SanitizeName(img.Filename)
		key := fmt.Sprintf("publications/%d-%d-%s", now.Unix(), i, name)
		obj, err := s.store.Put(ctx, key, storage.ContentTypeFor(name, img.ContentType), img.Body, img.Size)
		if err != nil {
			return Publication{}, fmt.Errorf("upload image %d: %w", i, err)
		}
		pub.Images = append(pub.Images, Image{ObjectKey: obj.Key, URL: obj.URL, Position: i})
	}
	pub.CoverURL = pub.Images[0].URL

	id, err := s.repo.Create(ctx, pub)
	if err != nil {
		s.logger.Error("publication images stored without record",
			slog.Int("images", len(pub.Images)), slog.Any("error", err))
		return Publication{}, err
	}
	s.record(ctx, actor, "publication:create", id, map[string]any{"title": pub.Title, "images": len(pub.Images)})
	return s.repo.Get(ctx, id)
}

// Delete removes the publication and its image rows. Stored objects are left
// in place.
func (s *Service) Delete(ctx context.Context, actor shared.Actor, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actor, "publication:delete", id, nil)
	return nil
}

func (s *Service) record(ctx context.Context, actor shared.Actor, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.ID,
		Action:   action,
		Entity:   "publication",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
		At:       s.now(),
	})
	if err != nil {
		s.logger.Warn("audit publication", slog.String("action", action), slog.Any("error", err))
	}
}
