package testutil

import (
	"context"
	"errors"
	"time"

	"streamchat/internal/app"
	"streamchat/internal/config"
	"streamchat/internal/repository/db"
	"streamchat/internal/service/llm"
)

var errNotImplemented = errors.New("not implemented")

// MockDatabase is a mock implementation of db.Database for testing
type MockDatabase struct {
	// User mocks
	CreateUserFunc     func(ctx context.Context, email string, name *string, passwordHash string) (*db.User, error)
	GetUserByIDFunc    func(ctx context.Context, id string) (*db.User, error)
	GetUserByEmailFunc func(ctx context.Context, email string) (*db.User, error)

	// Conversation mocks
	GetConversationFunc         func(ctx context.Context, id string) (*db.Conversation, error)
	CreateConversationFunc      func(ctx context.Context, id, userID, title string) (*db.Conversation, error)
	GetConversationsByUserFunc  func(ctx context.Context, userID string) ([]db.Conversation, error)
	UpdateConversationTitleFunc func(ctx context.Context, id, title string) error

	// Message mocks
	AddMessageFunc              func(ctx context.Context, conversationID, role, content string) (*db.Message, error)
	GetConversationMessagesFunc func(ctx context.Context, conversationID string, limit int) ([]db.Message, error)

	NewSessionFunc func(ctx context.Context) (db.Session, error)
}

// User methods
func (m *MockDatabase) CreateUser(ctx context.Context, email string, name *string, passwordHash string) (*db.User, error) {
	if m.CreateUserFunc != nil {
		return m.CreateUserFunc(ctx, email, name, passwordHash)
	}
	return nil, errNotImplemented
}

func (m *MockDatabase) GetUserByID(ctx context.Context, id string) (*db.User, error) {
	if m.GetUserByIDFunc != nil {
		return m.GetUserByIDFunc(ctx, id)
	}
	return nil, errNotImplemented
}

func (m *MockDatabase) GetUserByEmail(ctx context.Context, email string) (*db.User, error) {
	if m.GetUserByEmailFunc != nil {
		return m.GetUserByEmailFunc(ctx, email)
	}
	return nil, errNotImplemented
}

// Conversation methods
func (m *MockDatabase) GetConversation(ctx context.Context, id string) (*db.Conversation, error) {
	if m.GetConversationFunc != nil {
		return m.GetConversationFunc(ctx, id)
	}
	return nil, errNotImplemented
}

func (m *MockDatabase) CreateConversation(ctx context.Context, id, userID, title string) (*db.Conversation, error) {
	if m.CreateConversationFunc != nil {
		return m.CreateConversationFunc(ctx, id, userID, title)
	}
	return nil, errNotImplemented
}

func (m *MockDatabase) GetConversationsByUser(ctx context.Context, userID string) ([]db.Conversation, error) {
	if m.GetConversationsByUserFunc != nil {
		return m.GetConversationsByUserFunc(ctx, userID)
	}
	return nil, errNotImplemented
}

func (m *MockDatabase) UpdateConversationTitle(ctx context.Context, id, title string) error {
	if m.UpdateConversationTitleFunc != nil {
		return m.UpdateConversationTitleFunc(ctx, id, title)
	}
	return errNotImplemented
}

// Message methods
func (m *MockDatabase) AddMessage(ctx context.Context, conversationID, role, content string) (*db.Message, error) {
	if m.AddMessageFunc != nil {
		return m.AddMessageFunc(ctx, conversationID, role, content)
	}
	return nil, errNotImplemented
}

func (m *MockDatabase) GetConversationMessages(ctx context.Context, conversationID string, limit int) ([]db.Message, error) {
	if m.GetConversationMessagesFunc != nil {
		return m.GetConversationMessagesFunc(ctx, conversationID, limit)
	}
	return nil, errNotImplemented
}

// NewSession falls back to a session that writes through AddMessageFunc
func (m *MockDatabase) NewSession(ctx context.Context) (db.Session, error) {
	if m.NewSessionFunc != nil {
		return m.NewSessionFunc(ctx)
	}
	return &MockSession{AddMessageFunc: m.AddMessageFunc}, nil
}

func (m *MockDatabase) Close() error {
	return nil
}

// MockSession is a mock implementation of db.Session for testing
type MockSession struct {
	AddMessageFunc func(ctx context.Context, conversationID, role, content string) (*db.Message, error)
	Closed         bool
}

func (s *MockSession) AddMessage(ctx context.Context, conversationID, role, content string) (*db.Message, error) {
	if s.AddMessageFunc != nil {
		return s.AddMessageFunc(ctx, conversationID, role, content)
	}
	return nil, errNotImplemented
}

func (s *MockSession) Close() error {
	s.Closed = true
	return nil
}

// MockLLMProvider is a mock implementation of llm.LLMProvider for testing
type MockLLMProvider struct {
	CompleteFunc     func(ctx context.Context, req llm.Request) (string, error)
	StreamFunc       func(ctx context.Context, req llm.Request) (<-chan llm.StreamChunk, error)
	DefaultModelFunc func() string
}

func (m *MockLLMProvider) Complete(ctx context.Context, req llm.Request) (string, error) {
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	return "", errNotImplemented
}

func (m *MockLLMProvider) Stream(ctx context.Context, req llm.Request) (<-chan llm.StreamChunk, error) {
	if m.StreamFunc != nil {
		return m.StreamFunc(ctx, req)
	}
	return nil, errNotImplemented
}

func (m *MockLLMProvider) Name() string {
	return "mock"
}

func (m *MockLLMProvider) DefaultModel() string {
	if m.DefaultModelFunc != nil {
		return m.DefaultModelFunc()
	}
	return "default-model"
}

// StreamOf returns a closed channel pre-loaded with chunks
func StreamOf(chunks ...llm.StreamChunk) <-chan llm.StreamChunk {
	ch := make(chan llm.StreamChunk, len(chunks))
	for _, c := range chunks {
		ch <- c
	}
	close(ch)
	return ch
}

// TextStream streams each string as a text chunk
func TextStream(parts ...string) <-chan llm.StreamChunk {
	chunks := make([]llm.StreamChunk, 0, len(parts))
	for _, p := range parts {
		chunks = append(chunks, llm.TextChunk(p))
	}
	return StreamOf(chunks...)
}

// NewMockConfig creates a mock app.Config for testing
func NewMockConfig(database db.Database, provider llm.LLMProvider) *app.Config {
	return &app.Config{
		DB:  database,
		LLM: provider,
		AppConfig: &config.AppConfig{
			Server: config.ServerConfig{
				Port:              "8000",
				CORSAllowedOrigin: "http://localhost:3000",
			},
			Database: config.DatabaseConfig{
				Driver:      "memory",
				SaveTimeout: 5 * time.Second,
			},
			LLM: config.LLMConfig{
				Provider:     "mock",
				SystemPrompt: config.DefaultSystemPrompt,
				TitlePrompt:  config.DefaultTitlePrompt,
			},
			Auth: config.AuthConfig{
				JWTSecret:       []byte("test-secret-key-that-is-at-least-32-chars"),
				TokenExpiration: time.Hour,
			},
			Models: config.NewStaticModelsConfig(),
		},
	}
}
