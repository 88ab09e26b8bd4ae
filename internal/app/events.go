package service

import (
	"context"
	"fmt"

	"github.com/okian/rice/internal/adapters/mq/broker"
	"github.com/okian/rice/internal/adapters/repository"
	"github.com/okian/rice/internal/domain/model"
	"github.com/okian/rice/pkg/logger"
)

// publish hands e to the event pipeline. A full queue drops the event:
// subscribers can always re-read the session.
func (s *Service) publish(ctx context.Context, e model.Event) { //nolint:gocritic // hugeParam
	if e.TS.IsZero() {
		e.TS = s.now()
	}
	if err := s.queue.Enqueue(ctx, e); err != nil {
		s.logger.Warn(ctx, "dropping session event",
			logger.String("session_id", e.SessionID),
			logger.String("type", string(e.Type)),
			logger.Error(err))
	}
}

// Subscribe opens an event stream for an existing session.
func (s *Service) Subscribe(ctx context.Context, sessionID string) (*broker.Subscription, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if _, err := s.store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	sub, err := s.broker.Subscribe(sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", repository.ErrUnavailable, err)
	}
	return sub, nil
}
