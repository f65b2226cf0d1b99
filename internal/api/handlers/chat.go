package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"streamchat/internal/app"
	"streamchat/internal/auth"
	"streamchat/internal/logger"
	chatService "streamchat/internal/service/chat"
	conversationService "streamchat/internal/service/conversation"
	titleService "streamchat/internal/service/title"
	"streamchat/pkg/validation"

	"github.com/sirupsen/logrus"
)

// Request/Response types

type StreamRequest struct {
	UserID         string `json:"user_id,omitempty"`
	ConversationID string `json:"conv_id"`
	Prompt         string `json:"prompt"`
}

type TitleResponse struct {
	Title string `json:"title"`
}

type ConversationInfo struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type MessageData struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatHandlers uses the service layer for better separation of concerns
type ChatHandlers struct {
	validator           *validation.ChatRequestValidator
	chatService         *chatService.ChatService
	titleService        *titleService.TitleService
	conversationService *conversationService.ConversationService
}

// NewChatHandlers creates a new ChatHandlers with service layer
func NewChatHandlers(config *app.Config) *ChatHandlers {
	return &ChatHandlers{
		validator:           validation.NewChatRequestValidator(),
		chatService:         chatService.NewChatService(config),
		titleService:        titleService.NewTitleService(config),
		conversationService: conversationService.NewConversationService(config.DB),
	}
}

// ChatStreamHandler is the SSE endpoint for streaming chat responses
func (ch *ChatHandlers) ChatStreamHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		sendError(w, http.StatusUnauthorized, "Could not validate credentials", nil)
		return
	}

	var req StreamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := ch.validator.ValidateStreamRequest(req.ConversationID, req.Prompt); err != nil {
		sendError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	log := logger.Log.WithFields(logrus.Fields{
		"user_id":         user.ID,
		"conversation_id": req.ConversationID,
	})
	if req.UserID != "" && req.UserID != user.ID {
		log.WithField("body_user_id", req.UserID).Warn("Ignoring user_id from request body")
	}
	log.WithField("prompt_chars", len(req.Prompt)).Info("Chat stream request received")

	access, err := ch.conversationService.AuthorizeConversationAccess(r.Context(), user.ID, req.ConversationID)
	if err != nil {
		log.WithError(err).Error("Error checking conversation access")
		sendError(w, http.StatusInternalServerError, "Error processing message", err)
		return
	}
	if access == conversationService.Denied {
		sendError(w, http.StatusForbidden, "Not authorized to access this conversation", nil)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		sendError(w, http.StatusInternalServerError, "Streaming not supported", nil)
		return
	}

	events, err := ch.chatService.StreamTurn(r.Context(), chatService.TurnRequest{
		UserID:         user.ID,
		ConversationID: req.ConversationID,
		Prompt:         req.Prompt,
	})
	if err != nil {
		if errors.Is(err, chatService.ErrForbidden) {
			sendError(w, http.StatusForbidden, "Not authorized to access this conversation", nil)
			return
		}
		log.WithError(err).Error("Error from chat service")
		sendError(w, http.StatusInternalServerError, "Error processing message", err)
		return
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Writes after a client disconnect fail silently; the loop still drains
	// events so the turn can finish.
	for event := range events {
		switch event.Kind {
		case chatService.EventChunk:
			writeSSE(w, event.Text)
		case chatService.EventDone:
			writeSSE(w, "[DONE]")
			log.Debug("Chat stream completed")
		case chatService.EventError:
			writeSSE(w, "Error: "+event.Text)
			log.WithField("reason", event.Text).Warn("Chat stream ended with error")
		}
		flusher.Flush()
	}
}

// writeSSE writes one event. Newlines inside the payload become separate
// data lines so clients can rejoin them.
func writeSSE(w io.Writer, payload string) {
	var b strings.Builder
	for _, line := range strings.Split(payload, "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	fmt.Fprint(w, b.String())
}

// GenerateTitleHandler names a conversation from its first messages
func (ch *ChatHandlers) GenerateTitleHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		sendError(w, http.StatusUnauthorized, "Could not validate credentials", nil)
		return
	}
	convID := r.PathValue("conversation_id")

	title, err := ch.titleService.GenerateTitle(r.Context(), user.ID, convID)
	if err != nil {
		if errors.Is(err, titleService.ErrConversationNotFound) {
			sendError(w, http.StatusNotFound, "Conversation not found", nil)
			return
		}
		logger.Log.WithError(err).WithField("conversation_id", convID).Error("Error generating title")
		sendError(w, http.StatusInternalServerError, "Error generating title", err)
		return
	}

	sendJSON(w, http.StatusOK, TitleResponse{Title: title})
}

// GetConversationsHandler returns the user's conversations when called with conversations=1
func (ch *ChatHandlers) GetConversationsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		sendError(w, http.StatusUnauthorized, "Could not validate credentials", nil)
		return
	}

	convInfos := make([]ConversationInfo, 0)
	if r.URL.Query().Get("conversations") != "1" {
		sendJSON(w, http.StatusOK, convInfos)
		return
	}

	conversations, err := ch.conversationService.GetUserConversations(r.Context(), user.ID)
	if err != nil {
		logger.Log.WithError(err).Error("Error from conversation service")
		sendError(w, http.StatusInternalServerError, "Error retrieving conversations", err)
		return
	}

	for _, conv := range conversations {
		convInfos = append(convInfos, ConversationInfo{ID: conv.ID, Title: conv.Title})
	}
	sendJSON(w, http.StatusOK, convInfos)
}

// GetConversationMessagesHandler returns all messages from a specific conversation
func (ch *ChatHandlers) GetConversationMessagesHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		sendError(w, http.StatusUnauthorized, "Could not validate credentials", nil)
		return
	}
	convID := r.PathValue("conversation_id")
	logger.Log.WithFields(logrus.Fields{"user_id": user.ID, "conversation_id": convID}).Debug("Get conversation messages request")

	messages, err := ch.conversationService.GetConversationMessages(r.Context(), convID, user.ID)
	if err != nil {
		logger.Log.WithError(err).Error("Error from conversation service")
		sendError(w, http.StatusInternalServerError, "Error retrieving messages", err)
		return
	}

	msgData := make([]MessageData, 0, len(messages))
	for _, msg := range messages {
		msgData = append(msgData, MessageData{
			ID:        msg.ID,
			Role:      msg.Role,
			Content:   msg.Content,
			CreatedAt: msg.CreatedAt,
		})
	}
	sendJSON(w, http.StatusOK, msgData)
}
