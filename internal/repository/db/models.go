package db

import "time"

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultConversationTitle is the placeholder title of a freshly created conversation
const DefaultConversationTitle = "New Conversation"

// User represents a user in the database
type User struct {
	ID           string
	Email        string
	Name         *string
	PasswordHash string
	CreatedAt    time.Time
}

// Conversation represents a conversation in the database
type Conversation struct {
	ID        string
	UserID    string
	Title     string
	CreatedAt time.Time
}

// Message represents a message in a conversation
type Message struct {
	ID             string
	ConversationID string
	Role           string
	Content        string
	CreatedAt      time.Time
}
