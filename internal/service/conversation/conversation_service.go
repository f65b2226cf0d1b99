package conversation

import (
	"context"
	"errors"
	"fmt"

	"streamchat/internal/logger"
	"streamchat/internal/repository/db"

	"github.com/sirupsen/logrus"
)

// Access is the outcome of a conversation ownership check
type Access int

const (
	Allowed Access = iota
	Denied
	NotFound
)

func (a Access) String() string {
	switch a {
	case Allowed:
		return "allowed"
	case Denied:
		return "denied"
	case NotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// ConversationService handles the business logic for conversation management
type ConversationService struct {
	db db.Database
}

// NewConversationService creates a new ConversationService
func NewConversationService(database db.Database) *ConversationService {
	return &ConversationService{
		db: database,
	}
}

// AuthorizeConversationAccess reports whether userID may use the conversation
func (s *ConversationService) AuthorizeConversationAccess(ctx context.Context, userID, conversationID string) (Access, error) {
	conversation, err := s.db.GetConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return NotFound, nil
		}
		return Denied, fmt.Errorf("failed to retrieve conversation: %w", err)
	}
	if conversation.UserID != userID {
		logger.Log.WithFields(logrus.Fields{
			"conversation_id": conversationID,
			"user_id":         userID,
		}).Warn("Conversation access denied")
		return Denied, nil
	}
	return Allowed, nil
}

// GetUserConversations retrieves all conversations for a user, newest first
func (s *ConversationService) GetUserConversations(ctx context.Context, userID string) ([]db.Conversation, error) {
	conversations, err := s.db.GetConversationsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve conversations: %w", err)
	}
	return conversations, nil
}

// GetConversationMessages retrieves the ordered messages of a conversation.
// Missing conversations and conversations owned by others yield an empty list.
func (s *ConversationService) GetConversationMessages(ctx context.Context, conversationID, userID string) ([]db.Message, error) {
	access, err := s.AuthorizeConversationAccess(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	if access != Allowed {
		return []db.Message{}, nil
	}

	messages, err := s.db.GetConversationMessages(ctx, conversationID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve messages: %w", err)
	}
	return messages, nil
}
