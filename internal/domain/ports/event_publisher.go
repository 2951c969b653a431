package ports

import (
	"context"

	"github.com/ynput/ayon-backend-sub000/internal/domain/events"
)

// EventHandler is a function that handles an event
type EventHandler func(ctx context.Context, payload interface{}) error

// EventPublisher provides in-process publish/subscribe.
type EventPublisher interface {
	// Subscribe registers a handler for a specific event type.
	Subscribe(eventType events.EventType, handler EventHandler) func()

	// Publish dispatches an event to all registered handlers.
	// Returns an error if any handler fails.
	Publish(ctx context.Context, eventType events.EventType, payload interface{}) error
}

// EventDispatcher records domain events. Dispatch is called after the
// originating transaction committed and never fails the caller.
type EventDispatcher interface {
	Dispatch(ctx context.Context, event events.Event)
}
