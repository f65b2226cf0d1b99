package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"streamchat/internal/app"
	"streamchat/internal/auth"
	"streamchat/internal/logger"
	"streamchat/internal/repository/db"
	chatService "streamchat/internal/service/chat"
	conversationService "streamchat/internal/service/conversation"
	"streamchat/pkg/validation"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 64 * 1024
	maxQueued      = 8
)

// Frame types sent to the client
const (
	FrameChunk = "chunk"
	FrameDone  = "done"
	FrameError = "error"
)

// ClientFrame is one chat turn requested over the socket
type ClientFrame struct {
	ConversationID string `json:"conv_id"`
	Prompt         string `json:"prompt"`
}

// ServerFrame is one event of a streamed turn
type ServerFrame struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// WebSocketHandler runs chat turns over a WebSocket. Frames are handled one
// at a time and closing the socket cancels the running turn.
type WebSocketHandler struct {
	upgrader            websocket.Upgrader
	authenticator       *auth.Authenticator
	validator           *validation.ChatRequestValidator
	chatService         *chatService.ChatService
	conversationService *conversationService.ConversationService
}

func NewWebSocketHandler(config *app.Config, authenticator *auth.Authenticator) *WebSocketHandler {
	allowedOrigin := config.AppConfig.Server.CORSAllowedOrigin
	return &WebSocketHandler{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowedOrigin == "*" || origin == allowedOrigin
			},
		},
		authenticator:       authenticator,
		validator:           validation.NewChatRequestValidator(),
		chatService:         chatService.NewChatService(config),
		conversationService: conversationService.NewConversationService(config.DB),
	}
}

// ServeWS authenticates with the token query parameter or the
// Authorization header, then upgrades the connection
func (h *WebSocketHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		var ok bool
		token, ok = auth.BearerToken(r.Header.Get("Authorization"))
		if !ok {
			w.Header().Set("WWW-Authenticate", "Bearer")
			sendError(w, http.StatusUnauthorized, "Missing authorization token", nil)
			return
		}
	}

	user, err := h.authenticator.Authenticate(r.Context(), token)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client
		logger.Log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	log := logger.Log.WithField("user_id", user.ID)
	log.Info("WebSocket connected")

	frames := make(chan []byte, maxQueued)
	go readPump(ctx, cancel, conn, frames, log)
	go pingLoop(ctx, cancel, conn, log)

	for {
		select {
		case <-ctx.Done():
			log.Info("WebSocket disconnected")
			return
		case raw, ok := <-frames:
			if !ok {
				log.Info("WebSocket disconnected")
				return
			}
			if err := h.handleFrame(ctx, conn, user, raw); err != nil {
				log.WithError(err).Debug("WebSocket write failed")
				cancel()
			}
		}
	}
}

// handleFrame runs one turn and reports write errors only
func (h *WebSocketHandler) handleFrame(ctx context.Context, conn *websocket.Conn, user *db.User, raw []byte) error {
	var frame ClientFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return writeFrame(conn, ServerFrame{Type: FrameError, Content: "invalid message"})
	}
	if err := h.validator.ValidateStreamRequest(frame.ConversationID, frame.Prompt); err != nil {
		return writeFrame(conn, ServerFrame{Type: FrameError, Content: err.Error()})
	}

	access, err := h.conversationService.AuthorizeConversationAccess(ctx, user.ID, frame.ConversationID)
	if err != nil {
		logger.Log.WithError(err).Error("Error checking conversation access")
		return writeFrame(conn, ServerFrame{Type: FrameError, Content: "error processing message"})
	}
	if access == conversationService.Denied {
		return writeFrame(conn, ServerFrame{Type: FrameError, Content: "not authorized to access this conversation"})
	}

	events, err := h.chatService.StreamTurn(ctx, chatService.TurnRequest{
		UserID:         user.ID,
		ConversationID: frame.ConversationID,
		Prompt:         frame.Prompt,
	})
	if err != nil {
		if errors.Is(err, chatService.ErrForbidden) {
			return writeFrame(conn, ServerFrame{Type: FrameError, Content: "not authorized to access this conversation"})
		}
		logger.Log.WithError(err).Error("Error from chat service")
		return writeFrame(conn, ServerFrame{Type: FrameError, Content: "error processing message"})
	}

	var writeErr error
	for event := range events {
		if writeErr != nil {
			continue
		}
		switch event.Kind {
		case chatService.EventChunk:
			writeErr = writeFrame(conn, ServerFrame{Type: FrameChunk, Content: event.Text})
		case chatService.EventDone:
			writeErr = writeFrame(conn, ServerFrame{Type: FrameDone})
		case chatService.EventError:
			writeErr = writeFrame(conn, ServerFrame{Type: FrameError, Content: event.Text})
		}
	}
	return writeErr
}

func writeFrame(conn *websocket.Conn, frame ServerFrame) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(frame)
}

// readPump queues incoming frames and cancels ctx when the socket closes
func readPump(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, frames chan<- []byte, log *logrus.Entry) {
	defer close(frames)
	defer cancel()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.WithError(err).Warn("WebSocket read error")
			}
			return
		}

		select {
		case frames <- message:
		case <-ctx.Done():
			return
		default:
			log.Warn("WebSocket frame dropped, too many queued turns")
		}
	}
}

// pingLoop keeps the read deadline alive on idle connections
func pingLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, log *logrus.Entry) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.WithError(err).Debug("Failed to send ping")
				cancel()
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
