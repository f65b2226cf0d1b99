package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"streamchat/internal/app"
	"streamchat/internal/logger"
	"streamchat/internal/repository/db"
	"streamchat/internal/service/llm"

	"github.com/sirupsen/logrus"
)

// ErrForbidden is returned when the conversation belongs to another user
var ErrForbidden = errors.New("conversation belongs to another user")

const defaultSaveTimeout = 10 * time.Second

// TurnRequest contains all the parameters needed to run one chat turn
type TurnRequest struct {
	UserID         string // Extracted from auth context
	ConversationID string
	Prompt         string
}

// ChatService handles the business logic for chat operations
type ChatService struct {
	db           db.Database
	config       *app.Config
	llmProvider  llm.LLMProvider
	tokens       *llm.TokenCounter
	systemPrompt string
	saveTimeout  time.Duration
}

// NewChatService creates a new ChatService
func NewChatService(config *app.Config) *ChatService {
	saveTimeout := config.AppConfig.Database.SaveTimeout
	if saveTimeout <= 0 {
		saveTimeout = defaultSaveTimeout
	}

	return &ChatService{
		db:           config.DB,
		config:       config,
		llmProvider:  config.LLM,
		tokens:       llm.NewTokenCounter(),
		systemPrompt: config.AppConfig.LLM.SystemPrompt,
		saveTimeout:  saveTimeout,
	}
}

// StreamTurn records the user's prompt and streams the assistant's reply.
// Failures before the provider is called are returned directly; later
// failures arrive as a terminal EventError. The caller must read the
// channel until it is closed.
func (s *ChatService) StreamTurn(ctx context.Context, req TurnRequest) (<-chan Event, error) {
	conversation, err := s.getOrCreateConversation(ctx, req)
	if err != nil {
		return nil, err
	}

	history, err := s.db.GetConversationMessages(ctx, conversation.ID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve conversation history: %w", err)
	}

	history = s.fitHistory(history, req.Prompt)
	llmReq := llm.Request{
		SystemPrompt: s.systemPrompt,
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: RenderContext(history, req.Prompt)}},
		Temperature:  s.config.AppConfig.LLM.Temperature,
	}

	if _, err := s.db.AddMessage(ctx, conversation.ID, db.RoleUser, req.Prompt); err != nil {
		return nil, fmt.Errorf("failed to save user message: %w", err)
	}

	logger.Log.WithFields(logrus.Fields{
		"conversation_id": conversation.ID,
		"history_count":   len(history),
		"provider":        s.llmProvider.Name(),
	}).Debug("Starting streaming LLM call")

	events := make(chan Event)
	go s.relay(ctx, conversation.ID, llmReq, events)
	return events, nil
}

// relay forwards provider chunks to events and writes the final state
func (s *ChatService) relay(ctx context.Context, conversationID string, llmReq llm.Request, events chan<- Event) {
	defer close(events)

	log := logger.Log.WithField("conversation_id", conversationID)

	chunks, err := s.llmProvider.Stream(ctx, llmReq)
	if err != nil {
		log.WithError(err).Error("LLM streaming error")
		events <- Event{Kind: EventError, Text: err.Error()}
		return
	}

	var reply strings.Builder
	for done := false; !done; {
		select {
		case <-ctx.Done():
			done = true
		case chunk, ok := <-chunks:
			if !ok {
				done = true
				break
			}
			switch chunk.Kind {
			case llm.ChunkText:
				if chunk.Content == "" {
					continue
				}
				reply.WriteString(chunk.Content)
				select {
				case events <- Event{Kind: EventChunk, Text: chunk.Content}:
				case <-ctx.Done():
					done = true
				}
			case llm.ChunkUsage:
				log.WithFields(logrus.Fields{
					"prompt_tokens":     chunk.Usage.PromptTokens,
					"completion_tokens": chunk.Usage.CompletionTokens,
				}).Debug("Captured usage data")
			case llm.ChunkError:
				log.WithError(chunk.Err).Error("Stream error")
				events <- Event{Kind: EventError, Text: chunk.Err.Error()}
				return
			}
		}
	}

	if err := ctx.Err(); err != nil {
		log.WithField("discarded_chars", reply.Len()).Info("Turn cancelled, partial reply discarded")
		events <- Event{Kind: EventError, Text: "request cancelled"}
		return
	}

	if reply.Len() > 0 {
		s.saveAssistantMessage(conversationID, reply.String())
	}
	events <- Event{Kind: EventDone}
}

// saveAssistantMessage writes the reply through its own session so it
// survives the end of the request
func (s *ChatService) saveAssistantMessage(conversationID, content string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.saveTimeout)
	defer cancel()

	log := logger.Log.WithField("conversation_id", conversationID)

	session, err := s.db.NewSession(ctx)
	if err != nil {
		log.WithError(err).Error("Error opening session for assistant message")
		return
	}
	defer session.Close()

	if _, err := session.AddMessage(ctx, conversationID, db.RoleAssistant, content); err != nil {
		log.WithError(err).Error("Error adding assistant message")
		return
	}
	log.WithField("response_chars", len(content)).Debug("Completed streaming response")
}

// getOrCreateConversation retrieves an existing conversation or creates it for the requesting user
func (s *ChatService) getOrCreateConversation(ctx context.Context, req TurnRequest) (*db.Conversation, error) {
	conversation, err := s.db.GetConversation(ctx, req.ConversationID)
	if errors.Is(err, db.ErrNotFound) {
		conversation, err = s.db.CreateConversation(ctx, req.ConversationID, req.UserID, db.DefaultConversationTitle)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get/create conversation: %w", err)
	}
	if conversation.UserID != req.UserID {
		return nil, ErrForbidden
	}
	return conversation, nil
}
