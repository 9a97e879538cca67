//go:generate go run go.uber.org/mock/mockgen -source=chat_service.go -destination=../mocks/mock_chat_service.go -package=mocks
package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"gigchat/contract"
	"gigchat/domain"
	"gigchat/domain/event"
	"gigchat/errors"
	"gigchat/moderation"
	"gigchat/repositories"
	"gigchat/runtime"
	"gigchat/search"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IChatService interface {
	Authorize(room domain.RoomID, userID uuid.UUID) error
	JoinRoom(ctx context.Context, room domain.RoomID, userID uuid.UUID,
		sink contract.EventSink, evict func()) (*runtime.Connection, error)
	LeaveRoom(ctx context.Context, conn *runtime.Connection)
	SendMessage(ctx context.Context, room domain.RoomID, sender uuid.UUID, content string) (domain.Message, error)
	MarkRead(ctx context.Context, room domain.RoomID, reader, messageID uuid.UUID) (domain.Message, error)
	MarkReadChecked(ctx context.Context, reader, messageID uuid.UUID) (domain.Message, error)
	Typing(ctx context.Context, room domain.RoomID, userID uuid.UUID)
	StopTyping(ctx context.Context, room domain.RoomID, userID uuid.UUID)
	History(room domain.RoomID, userID uuid.UUID, page, limit int, cursor string) ([]domain.Message, string, error)
	SearchMessages(ctx context.Context, room domain.RoomID, userID uuid.UUID, query string, limit int) ([]search.Hit, error)
	Conversations(userID uuid.UUID) ([]ConversationSummary, error)
}

// ChatService ties the store, the gate and the broadcast engine together.
// The one ordering rule it owns: a message is durably appended before its
// broadcast is published, so live events and later history reads always
// carry the same identifier and timestamp.
type ChatService struct {
	log         *slog.Logger
	gate        IGate
	messages    repositories.IMessageRepository
	agreements  repositories.IAgreementRepository
	gigs        repositories.IGigRepository
	registry    *runtime.Registry
	broadcaster *runtime.Broadcaster
	moderator   *moderation.Moderator
	index       *search.Index
}

var _ IChatService = (*ChatService)(nil)

func NewChatService(log *slog.Logger, gate IGate,
	messages repositories.IMessageRepository,
	agreements repositories.IAgreementRepository,
	gigs repositories.IGigRepository,
	registry *runtime.Registry, broadcaster *runtime.Broadcaster,
	moderator *moderation.Moderator) *ChatService {
	return &ChatService{
		log:         log,
		gate:        gate,
		messages:    messages,
		agreements:  agreements,
		gigs:        gigs,
		registry:    registry,
		broadcaster: broadcaster,
		moderator:   moderator,
	}
}

// WithIndex enables full-text search over the given index.
func (s *ChatService) WithIndex(index *search.Index) *ChatService {
	s.index = index
	return s
}

// Authorize reports whether the user may enter the room, without attaching
// anything. The websocket handshake uses it to refuse the upgrade early.
func (s *ChatService) Authorize(room domain.RoomID, userID uuid.UUID) error {
	_, err := s.gate.Authorize(room, userID)
	return err
}

// JoinRoom authorizes the user against the room's agreement, attaches a new
// connection and announces presence when this is the user's first live
// connection in the room. Authorization failures never reach the registry.
func (s *ChatService) JoinRoom(ctx context.Context, room domain.RoomID, userID uuid.UUID,
	sink contract.EventSink, evict func()) (*runtime.Connection, error) {
	if _, err := s.gate.Authorize(room, userID); err != nil {
		return nil, err
	}

	conn := runtime.NewConnection(room, userID, sink, evict)
	if online := s.registry.Attach(conn); online {
		s.broadcaster.Announce(ctx, room, userID, true)
	}
	s.log.Debug("connection attached",
		"connection_id", conn.ID(), "room_id", room, "user_id", userID)
	return conn, nil
}

// LeaveRoom detaches a connection and announces the user going offline when
// it was their last one. Safe to call exactly once per connection; the
// session guarantees it runs on every exit path.
func (s *ChatService) LeaveRoom(ctx context.Context, conn *runtime.Connection) {
	if offline := s.registry.Detach(conn); offline {
		s.broadcaster.Announce(ctx, conn.Room(), conn.UserID(), false)
	}
	s.log.Debug("connection detached",
		"connection_id", conn.ID(), "room_id", conn.Room(), "user_id", conn.UserID())
}

// SendMessage validates, moderates, persists and then broadcasts a message
// to every member of the room, sender included: the echo carries the
// server-assigned identifier and timestamp.
func (s *ChatService) SendMessage(ctx context.Context, room domain.RoomID, sender uuid.UUID, content string) (domain.Message, error) {
	if strings.TrimSpace(content) == "" {
		return domain.Message{}, errors.ErrEmptyContent
	}

	censored := content
	if s.moderator != nil {
		censored = s.moderator.Censor(content)
	}

	message, err := s.messages.Append(room, sender, censored)
	if err != nil {
		return domain.Message{}, fmt.Errorf("append failed: %w", err)
	}

	s.broadcaster.Publish(ctx, event.NewMessage{
		Message: message,
		Lang:    moderation.DetectLang(censored),
	})
	return message, nil
}

// MarkRead is the streaming path: the caller is already attached to the
// room, so only the message itself is checked. The receipt is broadcast to
// every member, reader included.
func (s *ChatService) MarkRead(ctx context.Context, room domain.RoomID, reader, messageID uuid.UUID) (domain.Message, error) {
	message, err := s.messages.MarkRead(messageID)
	if err != nil {
		return domain.Message{}, err
	}

	s.broadcaster.Publish(ctx, event.MessageRead{
		Room:      room,
		MessageID: message.ID,
		ReaderID:  reader,
	})
	return message, nil
}

// MarkReadChecked is the REST path: the reader must be a party to the
// message's agreement and cannot mark their own message.
func (s *ChatService) MarkReadChecked(ctx context.Context, reader, messageID uuid.UUID) (domain.Message, error) {
	message, err := s.messages.GetMessage(messageID)
	if err != nil {
		return domain.Message{}, err
	}
	if _, err := s.gate.Authorize(message.Room, reader); err != nil {
		return domain.Message{}, err
	}
	if message.SenderID == reader {
		return domain.Message{}, fmt.Errorf("cannot mark own message as read: %w", errors.ErrForbidden)
	}
	return s.MarkRead(ctx, message.Room, reader, messageID)
}

// Typing relays a typing signal to everyone but the typist. Nothing is
// persisted and no ordering is promised relative to message events.
func (s *ChatService) Typing(ctx context.Context, room domain.RoomID, userID uuid.UUID) {
	s.broadcaster.Publish(ctx, event.Typing{Room: room, UserID: userID}, userID)
}

func (s *ChatService) StopTyping(ctx context.Context, room domain.RoomID, userID uuid.UUID) {
	s.broadcaster.Publish(ctx, event.StopTyping{Room: room, UserID: userID}, userID)
}

// History returns one page of the room's log, newest first, after checking
// the caller is a party to the agreement. The cursor pins a pagination run;
// pass the one returned by the first page to keep later pages stable while
// new messages arrive.
func (s *ChatService) History(room domain.RoomID, userID uuid.UUID, page, limit int, cursor string) ([]domain.Message, string, error) {
	if _, err := s.gate.Authorize(room, userID); err != nil {
		return nil, "", err
	}
	return s.messages.Page(room, page, limit, cursor)
}

// SearchMessages runs a full-text query over the room's history.
func (s *ChatService) SearchMessages(ctx context.Context, room domain.RoomID, userID uuid.UUID, query string, limit int) ([]search.Hit, error) {
	if _, err := s.gate.Authorize(room, userID); err != nil {
		return nil, err
	}
	if s.index == nil {
		return nil, fmt.Errorf("search index not configured: %w", errors.ErrNotFound)
	}
	return s.index.Search(ctx, room, query, limit)
}

// ConversationSummary describes one active chat of a user: who the other
// party is, the latest message and how many received messages are unread.
type ConversationSummary struct {
	Room          domain.RoomID
	OtherUserID   uuid.UUID
	LastMessage   *domain.Message
	UnreadCount   int
	AgreementMade time.Time
}

// Conversations lists, newest activity first, every accepted agreement the
// user is a party to.
func (s *ChatService) Conversations(userID uuid.UUID) ([]ConversationSummary, error) {
	agreements, err := s.agreements.ListAgreements()
	if err != nil {
		return nil, err
	}

	type party struct {
		agreement domain.Agreement
		other     uuid.UUID
	}
	var mine []party
	owners := make(map[uuid.UUID]uuid.UUID) // gig id -> owner id
	for _, agreement := range agreements {
		if agreement.Status != domain.StatusAccepted {
			continue
		}
		owner, ok := owners[agreement.GigID]
		if !ok {
			gig, err := s.gigs.GetGig(agreement.GigID)
			if err != nil {
				continue
			}
			owner = gig.OwnerID
			owners[agreement.GigID] = owner
		}
		switch userID {
		case agreement.ClientID:
			mine = append(mine, party{agreement: agreement, other: owner})
		case owner:
			mine = append(mine, party{agreement: agreement, other: agreement.ClientID})
		}
	}

	rooms := lo.Map(mine, func(p party, _ int) domain.RoomID {
		return p.agreement.Room()
	})

	latest, err := s.messages.LatestByRoom(rooms)
	if err != nil {
		return nil, err
	}
	unread, err := s.messages.CountUnread(rooms, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]ConversationSummary, 0, len(mine))
	for _, p := range mine {
		room := p.agreement.Room()
		summary := ConversationSummary{
			Room:          room,
			OtherUserID:   p.other,
			UnreadCount:   unread[room],
			AgreementMade: p.agreement.CreatedAt,
		}
		if message, ok := latest[room]; ok {
			m := message
			summary.LastMessage = &m
		}
		summaries = append(summaries, summary)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return lastActivity(summaries[i]).After(lastActivity(summaries[j]))
	})
	return summaries, nil
}

// lastActivity is the latest message time, falling back to agreement
// creation so silent conversations keep a stable position.
func lastActivity(summary ConversationSummary) time.Time {
	if summary.LastMessage != nil {
		return summary.LastMessage.CreatedAt
	}
	return summary.AgreementMade
}
