package transport

import (
	"net/http"

	"gigchat/auth"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires the public auth endpoints, the token-protected REST
// surface and the websocket upgrade path. The websocket route skips the
// bearer middleware: its token rides in the query string and is verified
// during the handshake.
func NewRouter(chatHandler *ChatHandler, sessionHandler *SessionHandler, authHandler *AuthHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)

		r.Get("/chat/{agreementID}/ws", sessionHandler.Connect)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware)
			r.Get("/chat/conversations", chatHandler.GetConversations)
			r.Get("/chat/{agreementID}/messages", chatHandler.GetHistory)
			r.Get("/chat/{agreementID}/messages/search", chatHandler.SearchMessages)
			r.Put("/chat/messages/{messageID}/read", chatHandler.MarkRead)
		})
	})

	return r
}
