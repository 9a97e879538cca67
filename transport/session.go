package transport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"gigchat/auth"
	"gigchat/domain"
	"gigchat/errors"
	"gigchat/services"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a frame to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the peer.
	pongWait = 60 * time.Second

	// Send pings with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum inbound frame size.
	maxMessageSize = 64 * 1024
)

// SessionHandler upgrades authorized clients to a websocket session and runs
// the read/write pumps for the connection's lifetime.
type SessionHandler struct {
	log        *slog.Logger
	chat       services.IChatService
	upgrader   websocket.Upgrader
	bufferSize int
}

func NewSessionHandler(log *slog.Logger, chat services.IChatService, bufferSize int) *SessionHandler {
	return &SessionHandler{
		log:  log,
		chat: chat,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		bufferSize: bufferSize,
	}
}

// Connect handles GET /api/chat/{agreementID}/ws?token=...
//
// The token travels as a query parameter because browser websocket clients
// cannot set an Authorization header on the handshake. Every refusal happens
// before the upgrade, so an unauthorized caller never consumes a connection.
func (h *SessionHandler) Connect(w http.ResponseWriter, r *http.Request) {
	room, err := domain.ParseRoomID(chi.URLParam(r, "agreementID"))
	if err != nil {
		http.Error(w, "invalid agreement id", http.StatusBadRequest)
		return
	}

	userID, err := auth.VerifyToken(r.URL.Query().Get("token"))
	if err != nil {
		h.refuse(w, err)
		return
	}

	if err := h.chat.Authorize(room, userID); err != nil {
		h.refuse(w, err)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	sink := NewSink(h.bufferSize)

	conn, err := h.chat.JoinRoom(ctx, room, userID, sink, cancel)
	if err != nil {
		cancel()
		_ = ws.Close()
		return
	}
	defer func() {
		cancel()
		h.chat.LeaveRoom(context.Background(), conn)
		_ = ws.Close()
	}()

	go h.writePump(ctx, ws, sink, cancel)
	h.readPump(ctx, ws, room, userID, sink)
}

// refuse rejects the handshake with the sentinel's fixed text. Wrapped
// details stay in the log so no identifiers leak to the client.
func (h *SessionHandler) refuse(w http.ResponseWriter, err error) {
	status := errors.MapToHTTPStatus(err)
	h.log.Debug("handshake refused", "error", err, "status", status)
	http.Error(w, errors.ClientMessage(err), status)
}

// readPump consumes client frames until the peer disconnects or the session
// is cancelled. Bad frames answer the sender with an error event; they never
// terminate the session.
func (h *SessionHandler) readPump(ctx context.Context, ws *websocket.Conn,
	room domain.RoomID, userID uuid.UUID, sink *Sink) {
	ws.SetReadLimit(maxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var evt ClientEvent
		if err := ws.ReadJSON(&evt); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("websocket read failed", "error", err, "user_id", userID)
			}
			return
		}
		h.dispatch(ctx, room, userID, sink, evt)
	}
}

func (h *SessionHandler) dispatch(ctx context.Context, room domain.RoomID,
	userID uuid.UUID, sink *Sink, evt ClientEvent) {
	switch evt.Type {
	case ClientSendMessage:
		if _, err := h.chat.SendMessage(ctx, room, userID, evt.Content); err != nil {
			sink.Error(errors.ClientMessage(err))
		}
	case ClientMarkRead:
		messageID, err := uuid.Parse(evt.MessageID)
		if err != nil {
			sink.Error(errors.ErrMalformedEvent.Error())
			return
		}
		if _, err := h.chat.MarkRead(ctx, room, userID, messageID); err != nil {
			sink.Error(errors.ClientMessage(err))
		}
	case ClientTyping:
		h.chat.Typing(ctx, room, userID)
	case ClientStopTyping:
		h.chat.StopTyping(ctx, room, userID)
	default:
		sink.Error(errors.ErrMalformedEvent.Error())
	}
}

// writePump serializes all writes to the peer: buffered events and pings.
// Gorilla permits a single concurrent writer, so nothing else touches ws.
func (h *SessionHandler) writePump(ctx context.Context, ws *websocket.Conn, sink *Sink, cancel context.CancelFunc) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cancel()
		// Unblocks the read pump right away instead of waiting out its
		// read deadline.
		_ = ws.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case frame := <-sink.Events():
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteJSON(frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
