package events

import (
	"context"
	"sync"
)

// LocalPublisher dispatches events in-process, synchronously, to its subscribers.
// It stands in for Kafka when no brokers are configured.
type LocalPublisher struct {
	mu       sync.RWMutex
	handlers []Handler
}

func NewLocalPublisher(handlers ...Handler) *LocalPublisher {
	return &LocalPublisher{handlers: handlers}
}

func (p *LocalPublisher) Subscribe(h Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers = append(p.handlers, h)
}

func (p *LocalPublisher) Publish(ctx context.Context, e Event) error {
	p.mu.RLock()
	handlers := make([]Handler, len(p.handlers))
	copy(handlers, p.handlers)
	p.mu.RUnlock()

	for _, h := range handlers {
		h(ctx, e)
	}
	return nil
}
