// Package domain contains core concepts of the marketplace chat system.
// This file defines Message entities and related rules.
// Messages are append-only; only the read flag may change after creation.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// RoomID identifies a chat room. Rooms are keyed by the agreement they
// belong to, so RoomID values are agreement identifiers.
type RoomID uuid.UUID

func (r RoomID) String() string {
	return uuid.UUID(r).String()
}

// ParseRoomID parses a textual agreement identifier into a RoomID.
func ParseRoomID(s string) (RoomID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return RoomID{}, err
	}
	return RoomID(id), nil
}

// Message represents a chat message exchanged between the two parties
// of an agreement.
type Message struct {
	ID        uuid.UUID
	Room      RoomID
	SenderID  uuid.UUID
	Content   string
	Read      bool
	CreatedAt time.Time
}
