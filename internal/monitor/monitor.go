package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cuongbtq/jobgroups/internal/wmbs/domain"
	"github.com/cuongbtq/jobgroups/internal/wmbs/jobgroup"
	"github.com/cuongbtq/jobgroups/internal/wmbs/storage"
	"golang.org/x/sync/errgroup"
)

// GroupLister pages through persisted job groups
type GroupLister interface {
	ListJobGroups(ctx context.Context, q storage.Querier, filter storage.JobGroupFilter) ([]domain.JobGroupRow, error)
}

// Publisher delivers a serialized event under a routing key suffix
type Publisher interface {
	Publish(ctx context.Context, key string, body []byte) error
}

var _ GroupLister = (*storage.Storage)(nil)

// Config holds monitor configuration
type Config struct {
	Logger       *slog.Logger
	DB           storage.Querier
	Lister       GroupLister
	Service      *jobgroup.Service
	Ledger       Ledger
	Publisher    Publisher
	PollInterval time.Duration
	Concurrency  int
	PageSize     int
	// RecordFiles marks member input files completed or failed when a group reaches that status
	RecordFiles bool
}

// TickStats summarizes one pass over every job group
type TickStats struct {
	Observed  int64
	Published int64
	Failed    int64
}

// Monitor polls job group statuses and publishes every change
type Monitor struct {
	logger       *slog.Logger
	db           storage.Querier
	lister       GroupLister
	service      *jobgroup.Service
	ledger       Ledger
	publisher    Publisher
	pollInterval time.Duration
	concurrency  int
	pageSize     int
	recordFiles  bool
	now          func() time.Time

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewMonitor creates a new monitor instance
func NewMonitor(cfg *Config) *Monitor {
	return &Monitor{
		logger:       cfg.Logger,
		db:           cfg.DB,
		lister:       cfg.Lister,
		service:      cfg.Service,
		ledger:       cfg.Ledger,
		publisher:    cfg.Publisher,
		pollInterval: cfg.PollInterval,
		concurrency:  max(cfg.Concurrency, 1),
		pageSize:     max(cfg.PageSize, 1),
		recordFiles:  cfg.RecordFiles,
		now:          time.Now,
		stopChan:     make(chan struct{}),
	}
}

// Run ticks immediately and then every poll interval until ctx is done or Stop is called
func (m *Monitor) Run(ctx context.Context) error {
	m.wg.Add(1)
	defer m.wg.Done()

	m.logger.Info("Starting status monitor",
		slog.Duration("poll_interval", m.pollInterval),
		slog.Int("concurrency", m.concurrency),
		slog.Int("page_size", m.pageSize),
	)

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		m.tickAndLog(ctx)

		select {
		case <-ctx.Done():
			m.logger.Info("Status monitor context canceled, stopping")
			return nil
		case <-m.stopChan:
			m.logger.Info("Status monitor stopping")
			return nil
		case <-ticker.C:
		}
	}
}

// Stop ends Run and waits for the in-flight tick
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopChan) })
	m.wg.Wait()
}

func (m *Monitor) tickAndLog(ctx context.Context) {
	start := time.Now()
	stats, err := m.Tick(ctx)
	if err != nil && ctx.Err() == nil {
		m.logger.Error("Status monitor tick failed", slog.Any("error", err))
	}

	m.logger.Debug("Status monitor tick finished",
		slog.Int64("observed", stats.Observed),
		slog.Int64("published", stats.Published),
		slog.Int64("failed", stats.Failed),
		slog.Duration("took", time.Since(start)),
	)
}

// Tick evaluates every job group once. A failure on one group is counted and
// logged; it does not stop the pass.
func (m *Monitor) Tick(ctx context.Context) (TickStats, error) {
	var (
		observed, published, failed atomic.Int64
		cursor                      *storage.JobGroupCursor
	)
	stats := func() TickStats {
		return TickStats{Observed: observed.Load(), Published: published.Load(), Failed: failed.Load()}
	}

	for {
		rows, err := m.lister.ListJobGroups(ctx, m.db, storage.JobGroupFilter{
			PageSize: m.pageSize,
			Cursor:   cursor,
		})
		if err != nil {
			return stats(), err
		}

		hasMore := len(rows) > m.pageSize
		if hasMore {
			rows = rows[:m.pageSize]
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(m.concurrency)
		for _, row := range rows {
			g.Go(func() error {
				changed, err := m.observe(gctx, row)
				observed.Add(1)
				switch {
				case err != nil && gctx.Err() != nil:
					return gctx.Err()
				case err != nil:
					failed.Add(1)
					m.logger.Warn("Failed to observe job group",
						slog.Int64("jobgroup_id", row.ID),
						slog.Any("error", err),
					)
				case changed:
					published.Add(1)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return stats(), err
		}

		if !hasMore {
			return stats(), nil
		}
		cursor = &storage.JobGroupCursor{ID: rows[len(rows)-1].ID}
	}
}

// observe publishes the group's status when it differs from the ledger.
// The ledger only advances after a successful publish.
func (m *Monitor) observe(ctx context.Context, row domain.JobGroupRow) (bool, error) {
	group := m.service.Ref(jobgroup.ByID(row.ID))

	status, err := group.Status(ctx, m.db)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	previous, known, err := m.ledger.Get(ctx, row.ID)
	if err != nil {
		return false, fmt.Errorf("failed to read ledger: %w", err)
	}
	if known && previous == status {
		return false, nil
	}

	if m.recordFiles {
		switch status {
		case domain.GroupStatusComplete:
			err = group.RecordComplete(ctx, m.db)
		case domain.GroupStatusFailed:
			err = group.RecordFail(ctx, m.db)
		}
		if err != nil {
			return false, err
		}
	}

	body, err := json.Marshal(GroupStatusEvent{
		JobGroupID:     row.ID,
		UID:            row.UID,
		SubscriptionID: row.SubscriptionID,
		Status:         status,
		Previous:       previous,
		ObservedAt:     m.now().UTC(),
	})
	if err != nil {
		return false, fmt.Errorf("failed to marshal status event: %w", err)
	}

	if err := m.publisher.Publish(ctx, strings.ToLower(status), body); err != nil {
		return false, fmt.Errorf("failed to publish status event: %w", err)
	}

	if err := m.ledger.Set(ctx, row.ID, status); err != nil {
		return true, fmt.Errorf("failed to update ledger: %w", err)
	}

	m.logger.Info("Job group status changed",
		slog.Int64("jobgroup_id", row.ID),
		slog.String("previous", previous),
		slog.String("status", status),
	)
	return true, nil
}
