package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/okian/rice/internal/domain/catalog"
	"github.com/okian/rice/internal/domain/model"
)

// MemoryStore is an in-process Store. One mutex guards all state, so every
// method is atomic with respect to the others.
type MemoryStore struct {
	mu           sync.RWMutex
	sessions     map[string]*model.Session
	participants map[string][]model.Participant
	reach        map[string]map[string]model.ReachVote
	impact       map[string]map[string]model.ImpactVote
	confidence   map[string]map[string]model.ConfidenceVote
	effort       map[string]map[string]model.EffortVote
	results      map[string]model.RiceResult
	catalogs     map[string]*catalog.Catalog
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions:     make(map[string]*model.Session),
		participants: make(map[string][]model.Participant),
		reach:        make(map[string]map[string]model.ReachVote),
		impact:       make(map[string]map[string]model.ImpactVote),
		confidence:   make(map[string]map[string]model.ConfidenceVote),
		effort:       make(map[string]map[string]model.EffortVote),
		results:      make(map[string]model.RiceResult),
		catalogs:     make(map[string]*catalog.Catalog),
	}
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }

// CreateSession implements SessionStore.
func (m *MemoryStore) CreateSession(ctx context.Context, s *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[s.ID]; exists {
		return ErrConflict
	}
	m.sessions[s.ID] = s.Clone()
	return nil
}

// GetSession implements SessionStore.
func (m *MemoryStore) GetSession(ctx context.Context, id string) (*model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, notFound("session", id)
	}
	return s.Clone(), nil
}

// UpdateSession implements SessionStore.
func (m *MemoryStore) UpdateSession(ctx context.Context, id string, fn func(*model.Session) error) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.sessions[id]
	if !ok {
		return nil, notFound("session", id)
	}
	next := cur.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	m.sessions[id] = next
	return next.Clone(), nil
}

// ListSessions implements SessionStore, newest first.
func (m *MemoryStore) ListSessions(ctx context.Context) ([]*model.Session, error) {
	m.mu.RLock()
	out := make([]*model.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.Clone())
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// DeleteSession implements SessionStore.
func (m *MemoryStore) DeleteSession(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return notFound("session", id)
	}
	delete(m.sessions, id)
	delete(m.participants, id)
	delete(m.reach, id)
	delete(m.impact, id)
	delete(m.confidence, id)
	delete(m.effort, id)
	delete(m.results, id)
	return nil
}

// AddParticipant implements ParticipantStore.
func (m *MemoryStore) AddParticipant(ctx context.Context, p model.Participant) (model.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[p.SessionID]; !ok {
		return model.Participant{}, notFound("session", p.SessionID)
	}
	existing := m.participants[p.SessionID]
	if p.Identity != "" {
		for _, e := range existing {
			if e.Identity == p.Identity {
				return e, nil
			}
		}
	}
	p.Role = model.RoleVoter
	if len(existing) == 0 {
		p.Role = model.RoleFacilitator
	}
	m.participants[p.SessionID] = append(existing, p)
	return p, nil
}

// GetParticipant implements ParticipantStore.
func (m *MemoryStore) GetParticipant(ctx context.Context, sessionID, participantID string) (model.Participant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.participants[sessionID] {
		if p.ID == participantID {
			return p, nil
		}
	}
	return model.Participant{}, notFound("participant", participantID)
}

// ListParticipants implements ParticipantStore.
func (m *MemoryStore) ListParticipants(ctx context.Context, sessionID string) ([]model.Participant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]model.Participant{}, m.participants[sessionID]...), nil
}

// CountParticipants implements ParticipantStore.
func (m *MemoryStore) CountParticipants(ctx context.Context, sessionID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.participants[sessionID]), nil
}

func upsertVote[V any](m *MemoryStore, votes map[string]map[string]V, sessionID, participantID string, v V) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[sessionID]; !ok {
		return notFound("session", sessionID)
	}
	byParticipant, ok := votes[sessionID]
	if !ok {
		byParticipant = make(map[string]V)
		votes[sessionID] = byParticipant
	}
	byParticipant[participantID] = v
	return nil
}

func listVotes[V any](m *MemoryStore, all map[string]map[string]V, sessionID string) []V {
	m.mu.RLock()
	defer m.mu.RUnlock()
	votes := all[sessionID]
	ids := make([]string, 0, len(votes))
	for id := range votes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]V, 0, len(ids))
	for _, id := range ids {
		out = append(out, votes[id])
	}
	return out
}

// UpsertReachVote implements VoteStore.
func (m *MemoryStore) UpsertReachVote(ctx context.Context, sessionID string, v model.ReachVote) error {
	return upsertVote(m, m.reach, sessionID, v.ParticipantID, v)
}

// UpsertImpactVote implements VoteStore.
func (m *MemoryStore) UpsertImpactVote(ctx context.Context, sessionID string, v model.ImpactVote) error {
	v.Metrics = append([]model.MetricEstimate(nil), v.Metrics...)
	return upsertVote(m, m.impact, sessionID, v.ParticipantID, v)
}

// UpsertConfidenceVote implements VoteStore.
func (m *MemoryStore) UpsertConfidenceVote(ctx context.Context, sessionID string, v model.ConfidenceVote) error {
	v.SourceIDs = append([]string{}, v.SourceIDs...)
	v.Normalize()
	return upsertVote(m, m.confidence, sessionID, v.ParticipantID, v)
}

// UpsertEffortVote implements VoteStore.
func (m *MemoryStore) UpsertEffortVote(ctx context.Context, sessionID string, v model.EffortVote) error {
	return upsertVote(m, m.effort, sessionID, v.ParticipantID, v)
}

// ListReachVotes implements VoteStore.
func (m *MemoryStore) ListReachVotes(ctx context.Context, sessionID string) ([]model.ReachVote, error) {
	return listVotes(m, m.reach, sessionID), nil
}

// ListImpactVotes implements VoteStore.
func (m *MemoryStore) ListImpactVotes(ctx context.Context, sessionID string) ([]model.ImpactVote, error) {
	return listVotes(m, m.impact, sessionID), nil
}

// ListConfidenceVotes implements VoteStore.
func (m *MemoryStore) ListConfidenceVotes(ctx context.Context, sessionID string) ([]model.ConfidenceVote, error) {
	return listVotes(m, m.confidence, sessionID), nil
}

// ListEffortVotes implements VoteStore.
func (m *MemoryStore) ListEffortVotes(ctx context.Context, sessionID string) ([]model.EffortVote, error) {
	return listVotes(m, m.effort, sessionID), nil
}

// CountDistinctVoters implements VoteStore.
func (m *MemoryStore) CountDistinctVoters(ctx context.Context, d model.Dimension, sessionID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	switch d {
	case model.DimensionReach:
		return len(m.reach[sessionID]), nil
	case model.DimensionImpact:
		return len(m.impact[sessionID]), nil
	case model.DimensionConfidence:
		return len(m.confidence[sessionID]), nil
	case model.DimensionEffort:
		return len(m.effort[sessionID]), nil
	}
	return 0, notFound("dimension", string(d))
}

// UpsertResult implements ResultStore.
func (m *MemoryStore) UpsertResult(ctx context.Context, r model.RiceResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[r.SessionID]; !ok {
		return notFound("session", r.SessionID)
	}
	m.results[r.SessionID] = r
	return nil
}

// GetResult implements ResultStore.
func (m *MemoryStore) GetResult(ctx context.Context, sessionID string) (model.RiceResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.results[sessionID]
	if !ok {
		return model.RiceResult{}, notFound("result", sessionID)
	}
	return r, nil
}

// ListResults implements ResultStore.
func (m *MemoryStore) ListResults(ctx context.Context) ([]model.RiceResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.RiceResult, 0, len(m.results))
	for _, r := range m.results {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out, nil
}

// GetCatalog implements CatalogStore.
func (m *MemoryStore) GetCatalog(ctx context.Context, id string) (*catalog.Catalog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.catalogs[id]
	if !ok {
		return nil, catalogNotFound(id)
	}
	return c.Clone(), nil
}

// SaveCatalog implements CatalogStore.
func (m *MemoryStore) SaveCatalog(ctx context.Context, c *catalog.Catalog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.catalogs[c.ID] = c.Clone()
	return nil
}

// UpdateCatalog implements CatalogStore.
func (m *MemoryStore) UpdateCatalog(ctx context.Context, id string, fn func(*catalog.Catalog) (*catalog.Catalog, error)) (*catalog.Catalog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.catalogs[id]
	if !ok {
		return nil, catalogNotFound(id)
	}
	next, err := fn(cur.Clone())
	if err != nil {
		return nil, err
	}
	next.ID = id
	m.catalogs[id] = next.Clone()
	return next, nil
}
