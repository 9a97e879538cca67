package runtime

import (
	"context"
	"log/slog"

	"gigchat/contract"
	"gigchat/domain"
	"gigchat/domain/event"

	"github.com/google/uuid"
)

// Broadcaster is the single choke point through which every room event
// reaches live connections: new messages, read receipts, typing signals and
// presence changes all go through Publish.
//
// Delivery is a non-blocking handoff to each connection's bounded sink. A
// connection whose sink rejects the event (buffer full, transport gone) is
// evicted asynchronously instead of stalling the rest of the room.
//
// Permanent sinks see every published event regardless of room; they carry
// side effects such as the search index.
type Broadcaster struct {
	log            *slog.Logger
	registry       *Registry
	permanentSinks []contract.EventSink
}

func NewBroadcaster(log *slog.Logger, registry *Registry) *Broadcaster {
	return &Broadcaster{log: log, registry: registry}
}

// Add appends permanent sinks. Not safe to call once Publish is in use;
// wiring happens at startup.
func (b *Broadcaster) Add(sinks ...contract.EventSink) {
	b.permanentSinks = append(b.permanentSinks, sinks...)
}

// Publish delivers an event to every connection of the room except those
// owned by an excluded user. Fire order is best effort; events published
// sequentially for the same room arrive in publish order on each connection
// because sinks are FIFO.
func (b *Broadcaster) Publish(ctx context.Context, evt event.DomainEvent, exclude ...uuid.UUID) {
	for _, sink := range b.permanentSinks {
		if err := sink.Consume(ctx, evt); err != nil {
			b.log.Warn("permanent sink rejected event", "error", err)
		}
	}

	for _, conn := range b.registry.Members(evt.RoomID()) {
		if excluded(conn.UserID(), exclude) {
			continue
		}
		if err := conn.sink.Consume(ctx, evt); err != nil {
			b.log.Warn("evicting connection, sink rejected event",
				"connection_id", conn.ID(),
				"user_id", conn.UserID(),
				"room_id", conn.Room(),
				"error", err)
			// The session closes and detaches on its own exit path;
			// eviction never blocks the publish loop.
			go conn.Evict()
		}
	}
}

// Announce publishes the presence transition reported by an attach or
// detach, hiding the event from the user it concerns: their remaining tabs
// already know.
func (b *Broadcaster) Announce(ctx context.Context, room domain.RoomID, userID uuid.UUID, online bool) {
	b.Publish(ctx, event.Presence{Room: room, UserID: userID, Online: online}, userID)
}

func excluded(userID uuid.UUID, exclude []uuid.UUID) bool {
	for _, id := range exclude {
		if id == userID {
			return true
		}
	}
	return false
}
