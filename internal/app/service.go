// Package service orchestrates RICE scoring sessions: the repository, the
// catalog provider, aggregation, the result calculator, the score index and
// the session event pipeline. Transports talk to this package only.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/rice/internal/adapters/mq/broker"
	eventqueue "github.com/okian/rice/internal/adapters/mq/queue"
	workerpool "github.com/okian/rice/internal/adapters/mq/worker"
	"github.com/okian/rice/internal/adapters/ranking"
	"github.com/okian/rice/internal/adapters/records"
	"github.com/okian/rice/internal/adapters/repository"
	"github.com/okian/rice/internal/domain/catalog"
	"github.com/okian/rice/internal/domain/model"
	"github.com/okian/rice/internal/domain/result"
	"github.com/okian/rice/pkg/logger"
	"github.com/okian/rice/pkg/metrics"
)

// Service implements the API dependencies for scoring sessions.
type Service struct {
	mu sync.RWMutex

	// Core components
	store    repository.Store
	catalogs *catalog.Provider
	index    *ranking.Index
	queue    *eventqueue.InMemoryQueue
	pool     *workerpool.Pool
	broker   *broker.Broker
	records  records.Lookup

	// Configuration
	workerCount      int
	queueSize        int
	subscriberBuffer int
	thresholds       result.Thresholds
	minHistory       int
	defaultCatalog   *catalog.Catalog
	pinnedDefault    bool
	now              func() time.Time
	newID            func() string

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the repository. The in-memory store is used otherwise.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithWorkerCount sets the number of event dispatch workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the event queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithSubscriberBuffer sets the per-subscriber event buffer.
func WithSubscriberBuffer(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.subscriberBuffer = size
		}
	}
}

// WithThresholds sets the priority thresholds used until minHistory results
// exist.
func WithThresholds(t result.Thresholds, minHistory int) Option {
	return func(s *Service) {
		if t.High > 0 && t.Medium > 0 && t.Medium <= t.High {
			s.thresholds = t
		}
		if minHistory > 0 {
			s.minHistory = minHistory
		}
	}
}

// WithDefaultCatalog replaces the built-in default catalog. The stored
// default is overwritten with c on every Start, so edits made through the
// API last until the next restart.
func WithDefaultCatalog(c *catalog.Catalog) Option {
	return func(s *Service) {
		if c != nil {
			s.defaultCatalog = c
			s.pinnedDefault = true
		}
	}
}

// WithRecords sets the initiative lookup client.
func WithRecords(l records.Lookup) Option {
	return func(s *Service) {
		if l != nil {
			s.records = l
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:      runtime.NumCPU(),
		queueSize:        10_000,
		subscriberBuffer: 64,
		thresholds:       result.DefaultThresholds(),
		minHistory:       result.DefaultMinHistory,
		defaultCatalog:   catalog.Default(),
		records:          records.Disabled{},
		now:              func() time.Time { return time.Now().UTC() },
		newID:            uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.logger.Info(ctx, "starting rice service...")

	if s.store == nil {
		s.store = repository.NewMemoryStore()
		s.logger.Info(ctx, "using in-memory store")
	}
	s.catalogs = catalog.NewProvider(s.store,
		catalog.WithFallback(s.defaultCatalog),
		catalog.WithLogger(s.logger.Named("catalog")),
	)
	if err := s.seedDefaultCatalog(ctx); err != nil {
		return err
	}

	s.index = ranking.NewIndex()
	if err := s.rebuildIndex(ctx); err != nil {
		return err
	}

	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.broker = broker.New(
		broker.WithSubscriberBuffer(s.subscriberBuffer),
		broker.WithLogger(s.logger.Named("broker")),
	)
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.broker)
	s.pool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "rice service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("rankedResults", s.index.Count(ctx)),
	)
	return nil
}

// seedDefaultCatalog stores the default catalog unless one is stored already,
// so that it can be patched like any other. A catalog given through
// WithDefaultCatalog always replaces the stored one.
func (s *Service) seedDefaultCatalog(ctx context.Context) error {
	stored, err := s.store.GetCatalog(ctx, catalog.DefaultID)
	switch {
	case err == nil && !s.pinnedDefault:
		return nil
	case err != nil && !errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("read default catalog: %w", err)
	}

	c := s.defaultCatalog.Clone()
	c.ID = catalog.DefaultID
	c.CreatedAt, c.UpdatedAt = s.now(), s.now()
	if stored != nil {
		c.CreatedAt = stored.CreatedAt
	}
	if err := s.store.SaveCatalog(ctx, c); err != nil {
		return fmt.Errorf("seed default catalog: %w", err)
	}
	return nil
}

func (s *Service) rebuildIndex(ctx context.Context) error {
	results, err := s.store.ListResults(ctx)
	if err != nil {
		return fmt.Errorf("load results: %w", err)
	}
	for _, r := range results {
		s.rank(ctx, r)
	}
	return nil
}

// Stop drains pending events, ends subscriptions and closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping rice service...")

	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "event pool shutdown", logger.Error(err))
	}
	_ = s.broker.Close()
	if err := s.store.Close(); err != nil {
		s.logger.Warn(ctx, "closing store", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "rice service stopped")
}

// ready returns ErrNotStarted until Start succeeds.
func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":          s.started,
		"workerCount":      s.workerCount,
		"queueSize":        s.queueSize,
		"subscriberBuffer": s.subscriberBuffer,
	}
	if !s.started {
		return stats
	}

	sessions, err := s.store.ListSessions(ctx)
	if err != nil {
		stats["storeError"] = err.Error()
	} else {
		active := 0
		for _, sess := range sessions {
			if sess.Status != model.StatusCompleted {
				active++
			}
		}
		stats["sessions"] = len(sessions)
		stats["activeSessions"] = active
		metrics.UpdateActiveSessions(active)
	}
	ranked := s.index.Count(ctx)
	queueLen := s.queue.Len()
	stats["rankedResults"] = ranked
	stats["queueLength"] = queueLen
	stats["thresholds"] = s.index.Thresholds(ctx, s.minHistory, s.thresholds)

	metrics.UpdateQueueSize(queueLen)
	metrics.UpdateRankedResults(ranked)
	return stats
}
