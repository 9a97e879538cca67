// Package transport exposes the chat core over HTTP: REST endpoints for
// history, read receipts and conversation summaries, and a websocket
// session for live delivery.
package transport

import (
	"time"

	"gigchat/domain/event"
)

// Client -> server event kinds.
const (
	ClientSendMessage = "send_message"
	ClientMarkRead    = "mark_read"
	ClientTyping      = "typing"
	ClientStopTyping  = "stop_typing"
)

// Server -> client event kinds.
const (
	ServerNewMessage     = "new_message"
	ServerMessageRead    = "message_read"
	ServerUserTyping     = "user_typing"
	ServerUserStopTyping = "user_stop_typing"
	ServerPresence       = "presence"
	ServerError          = "error"
)

// ClientEvent is an inbound frame. Type selects the kind; the other fields
// are kind-specific.
type ClientEvent struct {
	Type      string `json:"type"`
	Content   string `json:"content,omitempty"`
	MessageID string `json:"message_id,omitempty"`
}

// ServerEvent is an outbound frame.
type ServerEvent struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	SenderID  string `json:"sender_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	Content   string `json:"content,omitempty"`
	Lang      string `json:"lang,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
	Online    *bool  `json:"online,omitempty"`
	Message   string `json:"message,omitempty"` // error description
}

func errorEvent(message string) ServerEvent {
	return ServerEvent{Type: ServerError, Message: message}
}

// toServerEvent translates a room event into its wire form. Unknown events
// are skipped rather than failing the connection.
func toServerEvent(e event.DomainEvent) (ServerEvent, bool) {
	switch evt := e.(type) {
	case event.NewMessage:
		return ServerEvent{
			Type:      ServerNewMessage,
			ID:        evt.Message.ID.String(),
			SenderID:  evt.Message.SenderID.String(),
			Content:   evt.Message.Content,
			Lang:      evt.Lang,
			CreatedAt: evt.Message.CreatedAt.Format(time.RFC3339Nano),
		}, true
	case event.MessageRead:
		return ServerEvent{
			Type:      ServerMessageRead,
			MessageID: evt.MessageID.String(),
			UserID:    evt.ReaderID.String(),
		}, true
	case event.Typing:
		return ServerEvent{Type: ServerUserTyping, UserID: evt.UserID.String()}, true
	case event.StopTyping:
		return ServerEvent{Type: ServerUserStopTyping, UserID: evt.UserID.String()}, true
	case event.Presence:
		online := evt.Online
		return ServerEvent{
			Type:   ServerPresence,
			UserID: evt.UserID.String(),
			Online: &online,
		}, true
	default:
		return ServerEvent{}, false
	}
}
