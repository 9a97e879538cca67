package runtime

import (
	"sync"
	"sync/atomic"

	"gigchat/contract"
	"gigchat/domain"

	"github.com/google/uuid"
)

// connIDCounter assigns unique identifiers to connections, mostly useful
// in logs when one user holds several tabs open on the same room.
var connIDCounter atomic.Uint64

// Connection is a live attachment of one user to one room. It is ephemeral:
// created when a websocket session opens, destroyed when it closes. The same
// user may hold several Connections to the same room.
type Connection struct {
	id     uint64
	userID uuid.UUID
	room   domain.RoomID
	sink   contract.EventSink

	evictOnce sync.Once
	evict     func()
}

// NewConnection wires a sink to a (room, user) pair. evict is invoked at
// most once, when the broadcaster gives up on the connection; it must make
// the owning session close and detach.
func NewConnection(room domain.RoomID, userID uuid.UUID, sink contract.EventSink, evict func()) *Connection {
	return &Connection{
		id:     connIDCounter.Add(1),
		userID: userID,
		room:   room,
		sink:   sink,
		evict:  evict,
	}
}

func (c *Connection) ID() uint64          { return c.id }
func (c *Connection) UserID() uuid.UUID   { return c.userID }
func (c *Connection) Room() domain.RoomID { return c.room }

// Evict asks the owning session to shut down. Safe to call from any
// goroutine, any number of times.
func (c *Connection) Evict() {
	c.evictOnce.Do(func() {
		if c.evict != nil {
			c.evict()
		}
	})
}
