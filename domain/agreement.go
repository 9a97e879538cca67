package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status of an agreement between a client and a gig owner.
// Only accepted agreements may host a chat room.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// Agreement binds a client to a gig. The chat room for an agreement is
// shared by the client and the owner of the gig.
type Agreement struct {
	ID        uuid.UUID
	GigID     uuid.UUID
	ClientID  uuid.UUID
	Status    Status
	CreatedAt time.Time
}

// Room returns the identifier of the chat room backed by this agreement.
func (a Agreement) Room() RoomID {
	return RoomID(a.ID)
}

// Gig is a service offered on the marketplace. Only the owner identity
// matters to the chat core; the full gig resource lives elsewhere.
type Gig struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	Title     string
	CreatedAt time.Time
}
