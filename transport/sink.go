package transport

import (
	"context"

	"gigchat/domain/event"
	"gigchat/errors"
)

// Sink buffers outbound frames for a single websocket connection.
// Consume never blocks: when the buffer is full the consumer is considered
// too slow and the caller is expected to evict the connection.
type Sink struct {
	events chan ServerEvent
}

func NewSink(bufferSize int) *Sink {
	return &Sink{events: make(chan ServerEvent, bufferSize)}
}

func (s *Sink) Consume(ctx context.Context, e event.DomainEvent) error {
	frame, ok := toServerEvent(e)
	if !ok {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case s.events <- frame:
		return nil
	default:
		return errors.ErrSlowConsumer
	}
}

// Error enqueues an error frame for this connection only.
// Best effort: dropped when the buffer is full.
func (s *Sink) Error(message string) {
	select {
	case s.events <- errorEvent(message):
	default:
	}
}

func (s *Sink) Events() <-chan ServerEvent {
	return s.events
}
