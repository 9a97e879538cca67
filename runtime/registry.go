// Package runtime tracks live connections and routes room events between
// them. It holds no business rules: authorization happens before a
// connection reaches the registry, persistence before an event reaches the
// broadcaster.
package runtime

import (
	"sync"

	"gigchat/domain"

	"github.com/google/uuid"
)

// Registry groups live connections by room and derives per-(room,user)
// presence counts from them. Both structures are mutated under a single
// lock so that membership and presence can never drift apart: the count
// for a pair always equals its number of live connections.
type Registry struct {
	mu       sync.RWMutex
	rooms    map[domain.RoomID]map[*Connection]struct{}
	presence map[domain.RoomID]map[uuid.UUID]int
}

func NewRegistry() *Registry {
	return &Registry{
		rooms:    make(map[domain.RoomID]map[*Connection]struct{}),
		presence: make(map[domain.RoomID]map[uuid.UUID]int),
	}
}

// Attach registers a connection under its room and bumps the presence
// counter of its (room, user) pair. It reports whether the user just came
// online in the room (0 -> 1 transition), so the caller can announce it.
func (r *Registry) Attach(c *Connection) (online bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[c.Room()]
	if !ok {
		members = make(map[*Connection]struct{})
		r.rooms[c.Room()] = members
	}
	members[c] = struct{}{}

	counts, ok := r.presence[c.Room()]
	if !ok {
		counts = make(map[uuid.UUID]int)
		r.presence[c.Room()] = counts
	}
	counts[c.UserID()]++
	return counts[c.UserID()] == 1
}

// Detach removes a connection and decrements its presence counter. It
// reports whether the user just went offline in the room (1 -> 0
// transition). Detaching a connection that was never attached, or was
// already detached, is a no-op. Empty room entries are removed so the
// registry does not grow with dead rooms.
func (r *Registry) Detach(c *Connection) (offline bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[c.Room()]
	if !ok {
		return false
	}
	if _, attached := members[c]; !attached {
		return false
	}
	delete(members, c)
	if len(members) == 0 {
		delete(r.rooms, c.Room())
	}

	counts := r.presence[c.Room()]
	counts[c.UserID()]--
	if counts[c.UserID()] <= 0 {
		delete(counts, c.UserID())
		if len(counts) == 0 {
			delete(r.presence, c.Room())
		}
		return true
	}
	return false
}

// Members returns a snapshot of the connections currently attached to a
// room. The snapshot is safe to iterate while attaches and detaches go on;
// a send racing a detach lands on the connection's buffered sink, never on
// a closed transport.
func (r *Registry) Members(room domain.RoomID) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.rooms[room]
	if !ok {
		return nil
	}
	snapshot := make([]*Connection, 0, len(members))
	for c := range members {
		snapshot = append(snapshot, c)
	}
	return snapshot
}

// Online reports whether a user currently has at least one live connection
// in a room.
func (r *Registry) Online(room domain.RoomID, userID uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.presence[room][userID] > 0
}
