package infrastructure

import (
	"context"
	"sync"

	"btclotto/domain/events"

	log "github.com/sirupsen/logrus"
)

// localHandlerRegistry runs in-process reactions to published events.
// Handler failures are logged and never stop delivery.
type localHandlerRegistry struct {
	mu       sync.RWMutex
	handlers map[events.EventType][]func(context.Context, events.Event) error
}

// RegisterLocalHandler registers a handler invoked for every published event of the type
func (r *localHandlerRegistry) RegisterLocalHandler(eventType events.EventType, handler func(context.Context, events.Event) error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.handlers == nil {
		r.handlers = make(map[events.EventType][]func(context.Context, events.Event) error)
	}
	r.handlers[eventType] = append(r.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(r.handlers[eventType]),
	}).Info("Registered local event handler")
}

func (r *localHandlerRegistry) dispatch(ctx context.Context, event events.Event) {
	r.mu.RLock()
	handlers := r.handlers[event.Type()]
	r.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			log.WithFields(log.Fields{
				"eventType": event.Type(),
				"error":     err,
			}).Error("Local event handler failed")
		}
	}
}
