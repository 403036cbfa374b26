package dashboard

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/oris-services/servicedesk/internal/inventory"
)

// Cache is the versioned JSON cache the summary lives in.
type Cache interface {
	BuildKey(ctx context.Context, parts ...string) (string, error)
	FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error
	Bump(ctx context.Context) error
}

// Service builds and caches the admin summary. Writers elsewhere call Bump
// after committing so the next read reloads.
type Service struct {
	repo      Repository
	cache     Cache
	threshold int64
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(repo Repository, cache Cache, lowStockThreshold int64, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, threshold: lowStockThreshold, logger: logger, now: time.Now}
}

// Summary returns the cached summary, loading it on a miss.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	if s.cache == nil {
		return s.load(ctx)
	}
	key, err := s.cache.BuildKey(ctx, "summary", strconv.FormatInt(s.threshold, 10))
	if err != nil {
		return Summary{}, err
	}
	var out Summary
	err = s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
		return s.load(ctx)
	})
	return out, err
}

// Bump invalidates the cached summary.
func (s *Service) Bump(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Bump(ctx)
}

// HandleStockChanged invalidates the summary when stock moves.
func (s *Service) HandleStockChanged(ctx context.Context, events []inventory.StockChangedEvent) error {
	if len(events) == 0 {
		return nil
	}
	return s.Bump(ctx)
}

func (s *Service) load(ctx context.Context) (Summary, error) {
	out := Summary{LowStockThreshold: s.threshold, GeneratedAt: s.now().UTC()}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		out.UsersByRole, err = s.repo.UsersByRole(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		out.TicketsByRequest, out.TicketsByProgress, out.PendingStatusRequest, err = s.repo.TicketCounts(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		out.QuotationsByStatus, out.AcceptedRevenue, err = s.repo.QuotationCounts(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		out.LowStockProducts, err = s.repo.LowStock(ctx, s.threshold)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("load dashboard", slog.Any("error", err))
		return Summary{}, err
	}
	return out, nil
}

var _ inventory.StockListener = (*Service)(nil)
