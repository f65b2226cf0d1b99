package title

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"streamchat/internal/app"
	"streamchat/internal/logger"
	"streamchat/internal/repository/db"
	"streamchat/internal/service/llm"

	"github.com/sirupsen/logrus"
)

const (
	// FallbackTitle is returned when the provider cannot produce a usable title
	FallbackTitle = "Conversation"

	maxTitleRunes   = 50
	contextMessages = 10
)

// ErrConversationNotFound is returned for missing conversations and for
// conversations owned by someone else
var ErrConversationNotFound = errors.New("conversation not found")

// TitleService names conversations from their opening messages
type TitleService struct {
	db          db.Database
	llmProvider llm.LLMProvider
	prompt      string
}

func NewTitleService(config *app.Config) *TitleService {
	return &TitleService{
		db:          config.DB,
		llmProvider: config.LLM,
		prompt:      config.AppConfig.LLM.TitlePrompt,
	}
}

// GenerateTitle asks the provider for a short title, stores it and returns
// it. Provider failures are not errors: they yield FallbackTitle.
func (s *TitleService) GenerateTitle(ctx context.Context, userID, conversationID string) (string, error) {
	conversation, err := s.db.GetConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return "", ErrConversationNotFound
		}
		return "", fmt.Errorf("error retrieving conversation: %w", err)
	}
	if conversation.UserID != userID {
		return "", ErrConversationNotFound
	}

	messages, err := s.db.GetConversationMessages(ctx, conversationID, contextMessages)
	if err != nil {
		return "", fmt.Errorf("error retrieving messages: %w", err)
	}
	if len(messages) == 0 {
		return db.DefaultConversationTitle, nil
	}

	log := logger.Log.WithField("conversation_id", conversationID)

	raw, err := s.llmProvider.Complete(ctx, llm.Request{
		SystemPrompt: s.prompt,
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: buildTitleRequest(messages)}},
	})
	if err != nil {
		log.WithError(err).Warn("Error generating title")
		return FallbackTitle, nil
	}

	title := NormalizeTitle(raw)
	if title == "" {
		log.Warn("Provider returned an empty title")
		return FallbackTitle, nil
	}

	if err := s.db.UpdateConversationTitle(ctx, conversationID, title); err != nil {
		log.WithError(err).Error("Error saving conversation title")
		return FallbackTitle, nil
	}

	log.WithFields(logrus.Fields{"title": title}).Info("Generated conversation title")
	return title, nil
}

func buildTitleRequest(messages []db.Message) string {
	var sb strings.Builder
	sb.WriteString("Generate a title for this conversation:\n\n")
	for _, msg := range messages {
		role := "User"
		if msg.Role == db.RoleAssistant {
			role = "Assistant"
		}
		sb.WriteString(role + ": " + msg.Content + "\n")
	}
	return sb.String()
}

// NormalizeTitle trims whitespace and surrounding quotes and caps the title
// at 50 characters, ending long titles with "..."
func NormalizeTitle(raw string) string {
	title := strings.TrimSpace(raw)
	title = strings.Trim(title, `"'`)
	title = strings.TrimSpace(title)

	runes := []rune(title)
	if len(runes) > maxTitleRunes {
		title = string(runes[:maxTitleRunes-3]) + "..."
	}
	return title
}
