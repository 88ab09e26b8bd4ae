// Package broker fans session events out to live subscribers. Delivery never
// blocks the publisher: a subscriber whose buffer is full loses events.
package broker

import (
	"context"
	"errors"
	"sync"

	"github.com/okian/rice/internal/domain/model"
	"github.com/okian/rice/pkg/logger"
	"github.com/okian/rice/pkg/metrics"
)

const defaultSubscriberBuffer = 64

// ErrClosed is returned by Subscribe after Close.
var ErrClosed = errors.New("broker closed")

// Option configures a Broker.
type Option func(*Broker)

// WithSubscriberBuffer sets the per-subscriber channel size.
func WithSubscriberBuffer(n int) Option {
	return func(b *Broker) {
		if n > 0 {
			b.buffer = n
		}
	}
}

// WithLogger sets the logger used for drop diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(b *Broker) {
		if l != nil {
			b.logger = l
		}
	}
}

// Broker keeps the subscriber set of every session.
type Broker struct {
	mu     sync.RWMutex
	subs   map[string]map[*subscriber]struct{}
	total  int
	closed bool
	buffer int
	logger logger.Logger
}

// New creates an empty broker.
func New(opts ...Option) *Broker {
	b := &Broker{
		subs:   make(map[string]map[*subscriber]struct{}),
		buffer: defaultSubscriberBuffer,
		logger: logger.Get().Named("broker"),
	}
	for _, opt := range opts {
		opt(b)
	}
	metrics.UpdateSubscribers(0)
	return b
}

// Subscription is one live event stream. Events is closed by Close, by the
// broker shutting down or by the session being deleted.
type Subscription struct {
	Events <-chan model.Event
	cancel func()
}

// Close ends the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	if s != nil && s.cancel != nil {
		s.cancel()
	}
}

// Subscribe registers a subscriber for sessionID.
func (b *Broker) Subscribe(sessionID string) (*Subscription, error) {
	sub := &subscriber{ch: make(chan model.Event, b.buffer)}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	set := b.subs[sessionID]
	if set == nil {
		set = make(map[*subscriber]struct{})
		b.subs[sessionID] = set
	}
	set[sub] = struct{}{}
	b.total++
	metrics.UpdateSubscribers(b.total)
	b.mu.Unlock()

	return &Subscription{
		Events: sub.ch,
		cancel: func() { b.remove(sessionID, sub) },
	}, nil
}

func (b *Broker) remove(sessionID string, sub *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	set := b.subs[sessionID]
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(b.subs, sessionID)
	}
	b.total--
	metrics.UpdateSubscribers(b.total)
	sub.close()
}

// Subscribers returns the number of live subscribers of sessionID.
func (b *Broker) Subscribers(sessionID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[sessionID])
}

// Handle delivers e to every subscriber of its session. A session_deleted
// event also ends those subscriptions.
func (b *Broker) Handle(ctx context.Context, e model.Event) error { //nolint:gocritic // hugeParam: Event is delivered by value
	b.mu.RLock()
	set := b.subs[e.SessionID]
	targets := make([]*subscriber, 0, len(set))
	for sub := range set {
		targets = append(targets, sub)
	}
	b.mu.RUnlock()

	for _, sub := range targets {
		if sub.deliver(e) {
			metrics.RecordEventDelivered()
			continue
		}
		metrics.RecordEventDropped()
		b.logger.Debug(ctx, "dropped event for slow subscriber",
			logger.String("session_id", e.SessionID),
			logger.String("type", string(e.Type)))
	}

	if e.Type == model.EventSessionDeleted {
		for _, sub := range targets {
			b.remove(e.SessionID, sub)
		}
	}
	return nil
}

// Close ends every subscription and rejects new ones.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for id, set := range b.subs {
		for sub := range set {
			sub.close()
		}
		delete(b.subs, id)
	}
	b.total = 0
	metrics.UpdateSubscribers(0)
	return nil
}

type subscriber struct {
	mu     sync.Mutex
	ch     chan model.Event
	closed bool
}

// deliver reports whether e was queued. When the buffer is full a critical
// event evicts the oldest queued one; any other event is dropped.
func (s *subscriber) deliver(e model.Event) bool { //nolint:gocritic // hugeParam
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.ch <- e:
		return true
	default:
	}
	if !critical(e.Type) {
		return false
	}
	select {
	case <-s.ch:
	default:
	}
	select {
	case s.ch <- e:
		return true
	default:
		return false
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

// critical events change what every participant must render.
func critical(t model.EventType) bool {
	switch t {
	case model.EventForcedAdvance, model.EventStageChanged, model.EventSessionDeleted, model.EventResultComputed:
		return true
	}
	return false
}
