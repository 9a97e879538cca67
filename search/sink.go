package search

import (
	"context"
	"log/slog"

	"gigchat/domain/event"
)

// Sink feeds the index from the broadcast pipeline. Only persisted message
// events are indexed; typing, presence and read receipts carry nothing
// searchable.
type Sink struct {
	index *Index
	log   *slog.Logger
}

func NewSink(index *Index, log *slog.Logger) Sink {
	return Sink{index: index, log: log}
}

func (s Sink) Consume(_ context.Context, e event.DomainEvent) error {
	switch evt := e.(type) {
	case event.NewMessage:
		return s.index.Add(evt.Message)
	default:
		return nil
	}
}
