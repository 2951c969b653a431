package services

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/ynput/ayon-backend-sub000/internal/domain/events"
	"github.com/ynput/ayon-backend-sub000/internal/domain/ports"
	"github.com/ynput/ayon-backend-sub000/pkg/logger"
)

// EventStream records domain events in the event log and fans them out
// on the bus. It is called after the originating transaction committed,
// so failures are logged and never returned.
type EventStream struct {
	store ports.EventStore
	exec  ports.Executor
	bus   *EventBus
	log   *logrus.Entry
}

var _ ports.EventDispatcher = (*EventStream)(nil)

// NewEventStream creates an EventStream. store may be nil to only publish.
func NewEventStream(store ports.EventStore, exec ports.Executor, bus *EventBus) *EventStream {
	return &EventStream{
		store: store,
		exec:  exec,
		bus:   bus,
		log:   logger.WithComponent("events"),
	}
}

// Dispatch persists and publishes one event
func (s *EventStream) Dispatch(ctx context.Context, event events.Event) {
	if s.store != nil {
		if err := s.store.Insert(ctx, s.exec, &event); err != nil {
			logger.WithContext(ctx).WithError(err).WithField("topic", event.Topic).Error("failed to store event")
		}
	}
	if s.bus != nil {
		s.bus.PublishAsync(event.Topic, event)
	}
	s.log.WithFields(logrus.Fields{"topic": event.Topic, "user": event.User}).Debug(event.Description)
}

// Recent returns the latest stored events
func (s *EventStream) Recent(ctx context.Context, topic string, limit int) ([]events.Event, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.Recent(ctx, s.exec, topic, limit)
}
