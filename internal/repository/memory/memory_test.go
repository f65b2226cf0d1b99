package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"streamchat/internal/repository/db"
)

func TestStore_Users(t *testing.T) {
	s := New()
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "a@example.com", nil, "hash")
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if _, err := s.CreateUser(ctx, "a@example.com", nil, "hash"); !errors.Is(err, db.ErrEmailTaken) {
		t.Errorf("duplicate error = %v, want ErrEmailTaken", err)
	}
	got, err := s.GetUserByEmail(ctx, "a@example.com")
	if err != nil || got.ID != u.ID {
		t.Errorf("GetUserByEmail() = %+v, %v", got, err)
	}
	if _, err := s.GetUserByID(ctx, "nope"); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("GetUserByID() error = %v, want ErrNotFound", err)
	}
}

func TestStore_MessagesStableUnderEqualTimestamps(t *testing.T) {
	frozen := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := New(WithClock(func() time.Time { return frozen }))
	ctx := context.Background()

	if _, err := s.CreateConversation(ctx, "c1", "u1", db.DefaultConversationTitle); err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}
	for _, content := range []string{"a", "b", "c"} {
		if _, err := s.AddMessage(ctx, "c1", db.RoleUser, content); err != nil {
			t.Fatalf("AddMessage() error = %v", err)
		}
	}

	msgs, err := s.GetConversationMessages(ctx, "c1", 0)
	if err != nil {
		t.Fatalf("GetConversationMessages() error = %v", err)
	}
	if len(msgs) != 3 || msgs[0].Content != "a" || msgs[2].Content != "c" {
		t.Errorf("messages = %+v", msgs)
	}

	limited, _ := s.GetConversationMessages(ctx, "c1", 2)
	if len(limited) != 2 {
		t.Errorf("limit 2 returned %d messages", len(limited))
	}
}

func TestStore_AddMessageUnknownConversation(t *testing.T) {
	s := New()
	if _, err := s.AddMessage(context.Background(), "missing", db.RoleUser, "hi"); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("AddMessage() error = %v, want ErrNotFound", err)
	}
}

func TestStore_SessionIgnoresCancelledRequest(t *testing.T) {
	s := New()
	if _, err := s.CreateConversation(context.Background(), "c1", "u1", "t"); err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}

	reqCtx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.AddMessage(reqCtx, "c1", db.RoleUser, "late"); err == nil {
		t.Error("expected AddMessage with cancelled context to fail")
	}

	sess, err := s.NewSession(context.Background())
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	defer sess.Close()
	if _, err := sess.AddMessage(context.Background(), "c1", db.RoleAssistant, "saved"); err != nil {
		t.Fatalf("session AddMessage() error = %v", err)
	}
	if s.SessionsOpened() != 1 {
		t.Errorf("SessionsOpened() = %d, want 1", s.SessionsOpened())
	}
}

func TestStore_ConversationsNewestFirst(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	s := New(WithClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}))
	ctx := context.Background()

	s.CreateConversation(ctx, "old", "u1", "Old")
	s.CreateConversation(ctx, "new", "u1", "New")
	s.CreateConversation(ctx, "foreign", "u2", "Foreign")

	convs, err := s.GetConversationsByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("GetConversationsByUser() error = %v", err)
	}
	if len(convs) != 2 || convs[0].ID != "new" || convs[1].ID != "old" {
		t.Errorf("conversations = %+v", convs)
	}
}
