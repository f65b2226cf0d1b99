package db

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a user or conversation does not exist
	ErrNotFound = errors.New("not found")
	// ErrEmailTaken is returned when a user with the same email already exists
	ErrEmailTaken = errors.New("email already registered")
)

// Database defines the interface for all database operations
// This allows for easier testing through mocking and decouples the services from the specific database implementation
type Database interface {
	// Users
	CreateUser(ctx context.Context, email string, name *string, passwordHash string) (*User, error)
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// Conversations
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	CreateConversation(ctx context.Context, id, userID, title string) (*Conversation, error)
	GetConversationsByUser(ctx context.Context, userID string) ([]Conversation, error)
	UpdateConversationTitle(ctx context.Context, id, title string) error

	// Messages are returned oldest first; limit <= 0 returns the whole history
	AddMessage(ctx context.Context, conversationID, role, content string) (*Message, error)
	GetConversationMessages(ctx context.Context, conversationID string, limit int) ([]Message, error)

	// NewSession opens a handle that shares no connection or transaction with
	// any other caller. It must be closed by the caller.
	NewSession(ctx context.Context) (Session, error)

	Close() error
}

// Session is an independent write handle used for persistence that must
// outlive the request which started it.
type Session interface {
	AddMessage(ctx context.Context, conversationID, role, content string) (*Message, error)
	Close() error
}
