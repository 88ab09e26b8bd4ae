// Package worker drains the session event queue and hands every event to a
// Handler, typically the subscriber broker. Events of one session always go
// to the same worker so subscribers see them in enqueue order.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"github.com/okian/rice/internal/domain/model"
	"github.com/okian/rice/pkg/logger"
	"github.com/okian/rice/pkg/metrics"
)

const (
	defaultShardBuffer  = 256
	poolShutdownTimeout = 30 * time.Second
)

// Event is what workers read off the queue.
type Event = model.Event

// Handler consumes one event.
type Handler interface {
	Handle(ctx context.Context, e Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, e Event) error

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, e Event) error { return f(ctx, e) }

// Queue defines how workers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Event
}

// InMemoryWorker reads events from its Queue and dispatches them.
type InMemoryWorker struct {
	queue   Queue
	handler Handler
	name    string
	busy    *atomic.Int64
	logger  logger.Logger
}

// NewInMemoryWorker creates a worker with configuration options.
func NewInMemoryWorker(q Queue, h Handler, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:   q,
		handler: h,
		name:    "worker",
		busy:    new(atomic.Int64),
		logger:  logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.With(logger.String("worker", w.name))
	}
	return w
}

// Run processes events until the queue channel closes or ctx is done.
func (w *InMemoryWorker) Run(ctx context.Context) {
	events := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := w.process(ctx, e); err != nil {
				w.logger.Error(ctx, "error dispatching event", logger.Error(err))
			}
		}
	}
}

func (w *InMemoryWorker) process(ctx context.Context, e Event) error { //nolint:gocritic // hugeParam: Event is received by value
	w.busy.Add(1)
	start := time.Now()
	defer func() {
		w.busy.Add(-1)
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if err := w.handler.Handle(ctx, e); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "dispatch_error")
		return fmt.Errorf("dispatch %s for session %s: %w", e.Type, e.SessionID, err)
	}
	return nil
}

// shard is one worker's private inbox.
type shard chan Event

func (s shard) Dequeue(context.Context) <-chan Event { return s }

// Pool routes queued events to a fixed set of workers by session id.
type Pool struct {
	queue       Queue
	workers     []*InMemoryWorker
	shards      []shard
	shardBuffer int
	busy        atomic.Int64

	group  *errgroup.Group
	cancel context.CancelFunc
	logger logger.Logger
}

// NewPool creates a pool of workerCount workers; zero or less means one
// worker per CPU.
func NewPool(workerCount int, q Queue, h Handler, opts ...PoolOption) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	p := &Pool{
		queue:       q,
		shardBuffer: defaultShardBuffer,
		logger:      logger.Get().Named("worker-pool"),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.workers = make([]*InMemoryWorker, workerCount)
	p.shards = make([]shard, workerCount)
	for i := range p.workers {
		p.shards[i] = make(shard, p.shardBuffer)
		w := NewInMemoryWorker(p.shards[i], h, WithName("worker-"+strconv.Itoa(i)))
		w.busy = &p.busy
		p.workers[i] = w
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)
	metrics.UpdateWorkerIdleCount(workerCount)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start launches the router and all workers.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	p.group = new(errgroup.Group)

	for _, w := range p.workers {
		p.group.Go(func() error {
			w.Run(ctx)
			return nil
		})
	}
	p.group.Go(func() error {
		p.route(ctx)
		return nil
	})
	go p.observe(ctx)
}

// route fans queue events out to shards and closes them once the queue is
// drained.
func (p *Pool) route(ctx context.Context) {
	defer func() {
		for _, s := range p.shards {
			close(s)
		}
	}()
	for e := range p.queue.Dequeue(ctx) {
		s := p.shards[shardFor(e.SessionID, len(p.shards))]
		select {
		case s <- e:
		case <-ctx.Done():
			return
		}
	}
}

func shardFor(sessionID string, n int) int {
	return int(xxhash.Sum64String(sessionID) % uint64(n))
}

func (p *Pool) observe(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			active := int(p.busy.Load())
			metrics.UpdateWorkerActiveCount(active)
			metrics.UpdateWorkerIdleCount(len(p.workers) - active)
		}
	}
}

// Shutdown closes the queue, lets the workers drain what was already
// enqueued and waits for them, up to ctx's deadline.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	if p.group == nil {
		return nil
	}
	defer p.cancel()

	done := make(chan struct{})
	go func() {
		_ = p.group.Wait()
		close(done)
	}()

	ctx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		p.logger.Warn(ctx, "worker pool shutdown timed out")
		return fmt.Errorf("worker pool shutdown: %w", ctx.Err())
	}
}
