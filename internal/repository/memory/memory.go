// Package memory keeps users, conversations and messages in process memory.
// It backs the service tests and DB_DRIVER=memory runs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"streamchat/internal/repository/db"

	"github.com/google/uuid"
)

var _ db.Database = (*Store)(nil)

type Store struct {
	mu            sync.RWMutex
	now           func() time.Time
	seq           int64
	users         map[string]db.User
	conversations map[string]db.Conversation
	messages      map[string][]storedMessage

	sessionsOpened int
}

type storedMessage struct {
	db.Message
	seq int64
}

// Option configures a Store
type Option func(*Store)

// WithClock replaces the wall clock used for created_at timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	s := &Store{
		now:           time.Now,
		users:         make(map[string]db.User),
		conversations: make(map[string]db.Conversation),
		messages:      make(map[string][]storedMessage),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Close() error { return nil }

func (s *Store) CreateUser(ctx context.Context, email string, name *string, passwordHash string) (*db.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == email {
			return nil, db.ErrEmailTaken
		}
	}
	user := db.User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		CreatedAt:    s.now(),
	}
	s.users[user.ID] = user
	return &user, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*db.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*db.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, db.ErrNotFound
}

func (s *Store) CreateConversation(ctx context.Context, id, userID, title string) (*db.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if conv, ok := s.conversations[id]; ok {
		return &conv, nil
	}
	conv := db.Conversation{ID: id, UserID: userID, Title: title, CreatedAt: s.now()}
	s.conversations[id] = conv
	return &conv, nil
}

func (s *Store) GetConversation(ctx context.Context, id string) (*db.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &conv, nil
}

func (s *Store) GetConversationsByUser(ctx context.Context, userID string) ([]db.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []db.Conversation{}
	for _, conv := range s.conversations {
		if conv.UserID == userID {
			out = append(out, conv)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdateConversationTitle(ctx context.Context, id, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return db.ErrNotFound
	}
	conv.Title = title
	s.conversations[id] = conv
	return nil
}

func (s *Store) AddMessage(ctx context.Context, conversationID, role, content string) (*db.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[conversationID]; !ok {
		return nil, db.ErrNotFound
	}
	s.seq++
	msg := db.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      s.now(),
	}
	s.messages[conversationID] = append(s.messages[conversationID], storedMessage{Message: msg, seq: s.seq})
	return &msg, nil
}

func (s *Store) GetConversationMessages(ctx context.Context, conversationID string, limit int) ([]db.Message, error) {
	s.mu.RLock()
	stored := append([]storedMessage(nil), s.messages[conversationID]...)
	s.mu.RUnlock()

	sort.SliceStable(stored, func(i, j int) bool {
		if !stored[i].CreatedAt.Equal(stored[j].CreatedAt) {
			return stored[i].CreatedAt.Before(stored[j].CreatedAt)
		}
		return stored[i].seq < stored[j].seq
	})
	if limit > 0 && len(stored) > limit {
		stored = stored[:limit]
	}

	out := make([]db.Message, 0, len(stored))
	for _, m := range stored {
		out = append(out, m.Message)
	}
	return out, nil
}

// NewSession returns a handle that writes straight into the store
func (s *Store) NewSession(ctx context.Context) (db.Session, error) {
	s.mu.Lock()
	s.sessionsOpened++
	s.mu.Unlock()
	return &session{store: s}, nil
}

// SessionsOpened reports how many sessions have been handed out
func (s *Store) SessionsOpened() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionsOpened
}

type session struct {
	store *Store
}

func (s *session) AddMessage(ctx context.Context, conversationID, role, content string) (*db.Message, error) {
	return s.store.AddMessage(ctx, conversationID, role, content)
}

func (s *session) Close() error { return nil }
