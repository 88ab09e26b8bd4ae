// Package ranking keeps persisted RICE scores in rank order so priority
// thresholds and the results report can read them without a full sort.
package ranking

import (
	"context"
	"math"
	"math/rand"
	"sync"

	"github.com/okian/rice/internal/domain/result"
	"github.com/okian/rice/internal/domain/types"
	"github.com/okian/rice/pkg/metrics"
)

// Treap-based in-memory index.
//
// Ordering: score DESC, then sessionID ASC (deterministic). "less" means
// ranks earlier, so in-order traversal yields the report best first.
// Nodes carry subtree sizes, which makes rank lookups O(log n).

type node struct {
	id    string
	score float64
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

func less(aScore float64, aID string, bScore float64, bID string) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, id string, score float64, prio uint64) *node {
	if n == nil {
		return &node{id: id, score: score, prio: prio, size: 1}
	}
	if less(score, id, n.score, n.id) {
		n.left = insert(n.left, id, score, prio)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, score, prio)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func remove(n *node, id string, score float64) *node {
	if n == nil {
		return nil
	}
	switch {
	case score == n.score && id == n.id:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = remove(n.right, id, score)
		} else {
			n = rotateLeft(n)
			n.left = remove(n.left, id, score)
		}
	case less(score, id, n.score, n.id):
		n.left = remove(n.left, id, score)
	default:
		n.right = remove(n.right, id, score)
	}
	fix(n)
	return n
}

// selectRank returns the node at zero-based position k.
func selectRank(n *node, k int) *node {
	for n != nil {
		l := nsize(n.left)
		switch {
		case k < l:
			n = n.left
		case k == l:
			return n
		default:
			k -= l + 1
			n = n.right
		}
	}
	return nil
}

// position returns the zero-based position of (id, score).
func position(n *node, id string, score float64) int {
	pos := 0
	for n != nil {
		switch {
		case score == n.score && id == n.id:
			return pos + nsize(n.left)
		case less(score, id, n.score, n.id):
			n = n.left
		default:
			pos += nsize(n.left) + 1
			n = n.right
		}
	}
	return -1
}

func collectTopN(n *node, limit int, out *[]types.Entry) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, types.Entry{SessionID: n.id, RiceScore: n.score})
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, out)
	}
}

// Index is a concurrency-safe ordered index of session scores.
type Index struct {
	mu   sync.RWMutex
	root *node
	byID map[string]float64
	rng  *rand.Rand
}

// NewIndex returns an empty index.
func NewIndex(opts ...Option) *Index {
	ix := &Index{
		byID: make(map[string]float64),
		rng:  rand.New(rand.NewSource(rand.Int63())), //nolint:gosec // treap priorities need no crypto randomness
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Upsert sets the score of sessionID, replacing any previous one.
func (ix *Index) Upsert(ctx context.Context, sessionID string, score float64) error {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return ErrInvalidScore
	}
	ix.mu.Lock()
	if old, ok := ix.byID[sessionID]; ok {
		if old == score {
			ix.mu.Unlock()
			return nil
		}
		ix.root = remove(ix.root, sessionID, old)
	}
	ix.byID[sessionID] = score
	ix.root = insert(ix.root, sessionID, score, ix.rng.Uint64())
	n := len(ix.byID)
	ix.mu.Unlock()

	metrics.UpdateRankedResults(n)
	return nil
}

// Remove drops sessionID from the index.
func (ix *Index) Remove(ctx context.Context, sessionID string) {
	ix.mu.Lock()
	if old, ok := ix.byID[sessionID]; ok {
		ix.root = remove(ix.root, sessionID, old)
		delete(ix.byID, sessionID)
	}
	n := len(ix.byID)
	ix.mu.Unlock()

	metrics.UpdateRankedResults(n)
}

// Rank returns the one-based position and score of sessionID.
func (ix *Index) Rank(ctx context.Context, sessionID string) (types.Entry, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	score, ok := ix.byID[sessionID]
	if !ok {
		return types.Entry{}, ErrNotFound
	}
	return types.Entry{
		Rank:      position(ix.root, sessionID, score) + 1,
		SessionID: sessionID,
		RiceScore: score,
	}, nil
}

// TopN returns the n best scores, ranked from 1.
func (ix *Index) TopN(ctx context.Context, n int) ([]types.Entry, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}
	ix.mu.RLock()
	out := make([]types.Entry, 0, min(n, len(ix.byID)))
	collectTopN(ix.root, n, &out)
	ix.mu.RUnlock()

	for i := range out {
		out[i].Rank = i + 1
	}
	return out, nil
}

// Count returns the number of indexed scores.
func (ix *Index) Count(ctx context.Context) int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.byID)
}

// Thresholds derives priority thresholds from the indexed history, or
// returns fallback while fewer than minHistory scores exist.
func (ix *Index) Thresholds(ctx context.Context, minHistory int, fallback result.Thresholds) result.Thresholds {
	return ix.ThresholdsWithout(ctx, "", minHistory, fallback)
}

// ThresholdsWithout is Thresholds computed as if sessionID had no score, so
// that rescoring a session never shifts its own thresholds.
func (ix *Index) ThresholdsWithout(ctx context.Context, sessionID string, minHistory int, fallback result.Thresholds) result.Thresholds {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	n, skip := len(ix.byID), -1
	if score, ok := ix.byID[sessionID]; ok {
		skip = position(ix.root, sessionID, score)
		n--
	}
	if n == 0 || n < minHistory {
		return fallback
	}
	return result.AtRanks(n, func(rank int) float64 {
		if skip >= 0 && rank >= skip {
			rank++
		}
		return selectRank(ix.root, rank).score
	})
}
