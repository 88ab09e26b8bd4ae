package ranking

import "math/rand"

// Option applies a configuration option to the Index.
type Option func(*Index)

// WithSeed makes treap priorities reproducible.
func WithSeed(seed int64) Option {
	return func(ix *Index) {
		ix.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // deterministic seed for reproducible tests
	}
}
