// Package event defines the events flowing between connections of a room.
// Message events are emitted after the message has been durably stored, so
// the identifier and timestamp they carry always match what a later history
// read returns. Typing and presence events are ephemeral and never stored.
package event

import (
	"gigchat/domain"

	"github.com/google/uuid"
)

type DomainEvent interface {
	RoomID() domain.RoomID
}

// NewMessage is broadcast to every member of a room, sender included,
// once a message has been persisted.
type NewMessage struct {
	Message domain.Message
	Lang    string // ISO 639-1 code detected at moderation time, may be empty
}

func (e NewMessage) RoomID() domain.RoomID { return e.Message.Room }

// MessageRead notifies the room that a message was marked as read.
type MessageRead struct {
	Room      domain.RoomID
	MessageID uuid.UUID
	ReaderID  uuid.UUID
}

func (e MessageRead) RoomID() domain.RoomID { return e.Room }

// Typing signals that a user started typing. Delivered to everyone but
// the typist.
type Typing struct {
	Room   domain.RoomID
	UserID uuid.UUID
}

func (e Typing) RoomID() domain.RoomID { return e.Room }

type StopTyping struct {
	Room   domain.RoomID
	UserID uuid.UUID
}

func (e StopTyping) RoomID() domain.RoomID { return e.Room }

// Presence reports a user going online (first live connection) or
// offline (last live connection closed) in a room.
type Presence struct {
	Room   domain.RoomID
	UserID uuid.UUID
	Online bool
}

func (e Presence) RoomID() domain.RoomID { return e.Room }
