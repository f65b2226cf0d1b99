package handlers

import (
	"net/http"

	"streamchat/internal/app"
	"streamchat/internal/auth"
	userService "streamchat/internal/service/user"
)

// NewRouter wires every endpoint onto a ServeMux using Go 1.22+ method
// patterns and path parameters
func NewRouter(config *app.Config) http.Handler {
	tokens := auth.NewTokenManager(config.AppConfig.Auth)
	authenticator := auth.NewAuthenticator(tokens, config.DB)
	requireAuth := AuthMiddleware(authenticator)

	authHandlers := NewAuthHandlers(userService.NewUserService(config.DB, tokens))
	chatHandlers := NewChatHandlers(config)
	wsHandler := NewWebSocketHandler(config, authenticator)

	mux := http.NewServeMux()

	// Public routes
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.HandleFunc("POST /auth/signup", authHandlers.SignupHandler)
	mux.HandleFunc("POST /auth/signin", authHandlers.SigninHandler)

	// Protected routes
	mux.HandleFunc("GET /auth/me", requireAuth(authHandlers.MeHandler))
	mux.HandleFunc("POST /chat/stream", requireAuth(chatHandlers.ChatStreamHandler))
	mux.HandleFunc("GET /chat", requireAuth(chatHandlers.GetConversationsHandler))
	mux.HandleFunc("POST /chat/{conversation_id}/title", requireAuth(chatHandlers.GenerateTitleHandler))
	mux.HandleFunc("GET /chat/{conversation_id}/messages", requireAuth(chatHandlers.GetConversationMessagesHandler))

	// The socket authenticates itself since browsers cannot set headers on upgrade
	mux.HandleFunc("GET /chat/ws", wsHandler.ServeWS)

	return requestLogger(enableCORS(config.AppConfig.Server.CORSAllowedOrigin)(mux))
}
