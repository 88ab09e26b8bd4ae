package worker

import (
	"github.com/okian/rice/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithShardBuffer sets how many events each worker may hold before the
// router waits for it.
func WithShardBuffer(n int) PoolOption {
	return func(p *Pool) {
		if n > 0 {
			p.shardBuffer = n
		}
	}
}
