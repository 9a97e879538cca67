package transport

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"gigchat/auth"
	"gigchat/domain"
	"gigchat/errors"
	"gigchat/search"
	"gigchat/services"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// MessageResponse is the REST view of a stored message.
type MessageResponse struct {
	ID          string `json:"id"`
	AgreementID string `json:"agreement_id"`
	SenderID    string `json:"sender_id"`
	Content     string `json:"content"`
	Read        bool   `json:"read"`
	CreatedAt   string `json:"created_at"`
}

func toMessageResponse(m domain.Message) MessageResponse {
	return MessageResponse{
		ID:          m.ID.String(),
		AgreementID: m.Room.String(),
		SenderID:    m.SenderID.String(),
		Content:     m.Content,
		Read:        m.Read,
		CreatedAt:   m.CreatedAt.Format(time.RFC3339Nano),
	}
}

// HistoryResponse carries one page of history plus the cursor that pins
// the pagination run. Clients pass the cursor back on later pages so that
// messages arriving mid-run never shift what a page returns.
type HistoryResponse struct {
	Messages []MessageResponse `json:"messages"`
	Cursor   string            `json:"cursor,omitempty"`
}

// ConversationResponse summarizes one room for the inbox view.
type ConversationResponse struct {
	AgreementID string           `json:"agreement_id"`
	OtherUserID string           `json:"other_user_id"`
	LastMessage *MessageResponse `json:"last_message,omitempty"`
	UnreadCount int              `json:"unread_count"`
}

type SearchHitResponse struct {
	MessageID string `json:"message_id"`
	SenderID  string `json:"sender_id"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// ChatHandler serves the REST surface: history, read receipts, conversation
// summaries and search. The live path lives in SessionHandler.
type ChatHandler struct {
	log  *slog.Logger
	chat services.IChatService
}

func NewChatHandler(log *slog.Logger, chat services.IChatService) *ChatHandler {
	return &ChatHandler{log: log, chat: chat}
}

// GetHistory handles GET /api/chat/{agreementID}/messages?page=&limit=&cursor=.
// Pages are served newest first; page one starts at the most recent message
// and returns the cursor that later pages of the same run must carry.
func (h *ChatHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeError(h.log, w, errors.ErrUnauthorized)
		return
	}
	room, err := domain.ParseRoomID(chi.URLParam(r, "agreementID"))
	if err != nil {
		writeStatus(w, http.StatusBadRequest, "invalid agreement id")
		return
	}

	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 0)
	cursor := r.URL.Query().Get("cursor")

	messages, cursor, err := h.chat.History(room, userID, page, limit, cursor)
	if err != nil {
		writeError(h.log, w, err)
		return
	}

	writeJSON(w, http.StatusOK, HistoryResponse{
		Messages: lo.Map(messages, func(m domain.Message, _ int) MessageResponse {
			return toMessageResponse(m)
		}),
		Cursor: cursor,
	})
}

// MarkRead handles PUT /api/chat/messages/{messageID}/read.
func (h *ChatHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeError(h.log, w, errors.ErrUnauthorized)
		return
	}
	messageID, err := uuid.Parse(chi.URLParam(r, "messageID"))
	if err != nil {
		writeStatus(w, http.StatusBadRequest, "invalid message id")
		return
	}

	message, err := h.chat.MarkReadChecked(r.Context(), userID, messageID)
	if err != nil {
		writeError(h.log, w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMessageResponse(message))
}

// GetConversations handles GET /api/chat/conversations.
func (h *ChatHandler) GetConversations(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeError(h.log, w, errors.ErrUnauthorized)
		return
	}

	summaries, err := h.chat.Conversations(userID)
	if err != nil {
		writeError(h.log, w, err)
		return
	}

	out := make([]ConversationResponse, 0, len(summaries))
	for _, s := range summaries {
		resp := ConversationResponse{
			AgreementID: s.Room.String(),
			OtherUserID: s.OtherUserID.String(),
			UnreadCount: s.UnreadCount,
		}
		if s.LastMessage != nil {
			last := toMessageResponse(*s.LastMessage)
			resp.LastMessage = &last
		}
		out = append(out, resp)
	}
	writeJSON(w, http.StatusOK, out)
}

// SearchMessages handles GET /api/chat/{agreementID}/messages/search?q=&limit=.
func (h *ChatHandler) SearchMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeError(h.log, w, errors.ErrUnauthorized)
		return
	}
	room, err := domain.ParseRoomID(chi.URLParam(r, "agreementID"))
	if err != nil {
		writeStatus(w, http.StatusBadRequest, "invalid agreement id")
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		writeStatus(w, http.StatusBadRequest, "missing query")
		return
	}
	limit := queryInt(r, "limit", 0)

	hits, err := h.chat.SearchMessages(r.Context(), room, userID, query, limit)
	if err != nil {
		writeError(h.log, w, err)
		return
	}

	writeJSON(w, http.StatusOK, lo.Map(hits, func(hit search.Hit, _ int) SearchHitResponse {
		return SearchHitResponse{
			MessageID: hit.MessageID.String(),
			SenderID:  hit.SenderID.String(),
			Content:   hit.Content,
			CreatedAt: hit.CreatedAt.Format(time.RFC3339Nano),
		}
	}))
}

// AuthHandler serves registration and login.
type AuthHandler struct {
	log  *slog.Logger
	auth services.IAuthService
}

func NewAuthHandler(log *slog.Logger, authService services.IAuthService) *AuthHandler {
	return &AuthHandler{log: log, auth: authService}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeStatus(w, http.StatusBadRequest, "invalid body")
		return
	}

	token, err := h.auth.Register(req.Email, req.Password)
	if err != nil {
		writeError(h.log, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tokenResponse{Token: string(token)})
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeStatus(w, http.StatusBadRequest, "invalid body")
		return
	}

	token, err := h.auth.Login(req.Email, req.Password)
	if err != nil {
		writeError(h.log, w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: string(token)})
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError answers with the sentinel's fixed text only. The wrapped
// chain carries user and agreement identifiers, so it goes to the log,
// not to the client.
func writeError(log *slog.Logger, w http.ResponseWriter, err error) {
	status := errors.MapToHTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed", "error", err)
	} else {
		log.Debug("request refused", "error", err, "status", status)
	}
	writeStatus(w, status, errors.ClientMessage(err))
}

func writeStatus(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
