package runtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"gigchat/domain"
	"gigchat/domain/event"
	"gigchat/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"log/slog"
)

// recordingSink accumulates every consumed event.
type recordingSink struct {
	mu     sync.Mutex
	events []event.DomainEvent
}

func (s *recordingSink) Consume(ctx context.Context, e event.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) Events() []event.DomainEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]event.DomainEvent(nil), s.events...)
}

// rejectingSink simulates a slow consumer whose buffer is full.
type rejectingSink struct{}

func (s rejectingSink) Consume(ctx context.Context, e event.DomainEvent) error {
	return errors.ErrSlowConsumer
}

func TestBroadcaster_Publish_Reaches_Every_Member(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	broadcaster := NewBroadcaster(slog.Default(), registry)
	room := newRoom(t)
	sender := uuid.New()
	other := uuid.New()

	senderSink := &recordingSink{}
	otherSink := &recordingSink{}
	registry.Attach(NewConnection(room, sender, senderSink, nil))
	registry.Attach(NewConnection(room, other, otherSink, nil))

	// When a message event is published without exclusions
	evt := event.NewMessage{Message: domain.Message{ID: uuid.New(), Room: room, SenderID: sender, Content: "hello"}}
	broadcaster.Publish(context.Background(), evt)

	// Then both members receive it, sender included
	req.Len(senderSink.Events(), 1)
	req.Len(otherSink.Events(), 1)
	req.Equal(evt, otherSink.Events()[0])
}

func TestBroadcaster_Publish_Excludes_User_Across_Tabs(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	broadcaster := NewBroadcaster(slog.Default(), registry)
	room := newRoom(t)
	typist := uuid.New()
	other := uuid.New()

	typistTab1 := &recordingSink{}
	typistTab2 := &recordingSink{}
	otherSink := &recordingSink{}
	registry.Attach(NewConnection(room, typist, typistTab1, nil))
	registry.Attach(NewConnection(room, typist, typistTab2, nil))
	registry.Attach(NewConnection(room, other, otherSink, nil))

	// When a typing event is published excluding the typist
	broadcaster.Publish(context.Background(), event.Typing{Room: room, UserID: typist}, typist)

	// Then every connection of the typist is skipped
	req.Empty(typistTab1.Events())
	req.Empty(typistTab2.Events())
	req.Len(otherSink.Events(), 1)
}

func TestBroadcaster_Publish_Does_Not_Leak_Across_Rooms(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	broadcaster := NewBroadcaster(slog.Default(), registry)
	roomA := newRoom(t)
	roomB := newRoom(t)

	inRoomA := &recordingSink{}
	inRoomB := &recordingSink{}
	registry.Attach(NewConnection(roomA, uuid.New(), inRoomA, nil))
	registry.Attach(NewConnection(roomB, uuid.New(), inRoomB, nil))

	// When an event is published in room A
	broadcaster.Publish(context.Background(), event.Typing{Room: roomA, UserID: uuid.New()})

	// Then room B hears nothing
	req.Len(inRoomA.Events(), 1)
	req.Empty(inRoomB.Events())
}

func TestBroadcaster_Evicts_Slow_Consumer_And_Spares_The_Rest(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	broadcaster := NewBroadcaster(slog.Default(), registry)
	room := newRoom(t)

	evicted := make(chan struct{})
	slow := NewConnection(room, uuid.New(), rejectingSink{}, func() { close(evicted) })
	healthySink := &recordingSink{}
	registry.Attach(slow)
	registry.Attach(NewConnection(room, uuid.New(), healthySink, nil))

	// When a publish hits the full sink
	broadcaster.Publish(context.Background(), event.Typing{Room: room, UserID: uuid.New()})

	// Then the slow connection is evicted and the healthy one is served
	select {
	case <-evicted:
	case <-time.After(time.Second):
		t.Fatal("slow connection was never evicted")
	}
	req.Len(healthySink.Events(), 1)
}

func TestBroadcaster_Permanent_Sink_Sees_Every_Event(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	broadcaster := NewBroadcaster(slog.Default(), registry)
	permanent := &recordingSink{}
	broadcaster.Add(permanent)

	// When events are published in rooms with no members at all
	broadcaster.Publish(context.Background(), event.Typing{Room: newRoom(t), UserID: uuid.New()})
	broadcaster.Publish(context.Background(), event.Typing{Room: newRoom(t), UserID: uuid.New()})

	// Then the permanent sink received both
	req.Len(permanent.Events(), 2)
}

func TestBroadcaster_Announce_Hides_Presence_From_Its_Subject(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	broadcaster := NewBroadcaster(slog.Default(), registry)
	room := newRoom(t)
	joining := uuid.New()
	observer := uuid.New()

	joiningSink := &recordingSink{}
	observerSink := &recordingSink{}
	registry.Attach(NewConnection(room, joining, joiningSink, nil))
	registry.Attach(NewConnection(room, observer, observerSink, nil))

	// When the joining user's presence is announced
	broadcaster.Announce(context.Background(), room, joining, true)

	// Then only the observer hears it
	req.Empty(joiningSink.Events())
	req.Len(observerSink.Events(), 1)
	presence, ok := observerSink.Events()[0].(event.Presence)
	req.True(ok)
	req.Equal(joining, presence.UserID)
	req.True(presence.Online)
}
