package title

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"streamchat/internal/repository/db"
	"streamchat/internal/repository/memory"
	"streamchat/internal/service/llm"
	"streamchat/internal/testutil"
)

func newService(database db.Database, provider llm.LLMProvider) *TitleService {
	return NewTitleService(testutil.NewMockConfig(database, provider))
}

func seededStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.New()
	ctx := context.Background()
	if _, err := store.CreateConversation(ctx, "c1", "u1", db.DefaultConversationTitle); err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}
	store.AddMessage(ctx, "c1", db.RoleUser, "How do goroutines work?")
	store.AddMessage(ctx, "c1", db.RoleAssistant, "They are lightweight threads.")
	return store
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Go Concurrency", "Go Concurrency"},
		{"whitespace", "  Go Concurrency \n", "Go Concurrency"},
		{"double quotes", `"Go Concurrency"`, "Go Concurrency"},
		{"single quotes", `'Go Concurrency'`, "Go Concurrency"},
		{"inner quote kept", `Bob's "Go" notes`, `Bob's "Go" notes`},
		{"quotes and spaces", ` " Go " `, "Go"},
		{"exactly 50", strings.Repeat("a", 50), strings.Repeat("a", 50)},
		{"too long", strings.Repeat("a", 60), strings.Repeat("a", 47) + "..."},
		{"empty", `""`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeTitle(tt.in); got != tt.want {
				t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeTitle_CountsCharactersNotBytes(t *testing.T) {
	got := NormalizeTitle(strings.Repeat("é", 60))
	if n := utf8.RuneCountInString(got); n != 50 {
		t.Errorf("got %d characters, want 50", n)
	}
	if !utf8.ValidString(got) {
		t.Error("title is not valid UTF-8")
	}
}

func TestGenerateTitle_Success(t *testing.T) {
	store := seededStore(t)
	var got llm.Request
	provider := &testutil.MockLLMProvider{
		CompleteFunc: func(ctx context.Context, req llm.Request) (string, error) {
			got = req
			return `"Goroutines Explained"`, nil
		},
	}

	title, err := newService(store, provider).GenerateTitle(context.Background(), "u1", "c1")
	if err != nil {
		t.Fatalf("GenerateTitle() error = %v", err)
	}
	if title != "Goroutines Explained" {
		t.Errorf("title = %q", title)
	}

	conv, _ := store.GetConversation(context.Background(), "c1")
	if conv.Title != "Goroutines Explained" {
		t.Errorf("stored title = %q", conv.Title)
	}

	want := "Generate a title for this conversation:\n\nUser: How do goroutines work?\nAssistant: They are lightweight threads.\n"
	if len(got.Messages) != 1 || got.Messages[0].Content != want {
		t.Errorf("provider request = %+v", got.Messages)
	}
	if got.SystemPrompt == "" {
		t.Error("expected the title system prompt")
	}
}

func TestGenerateTitle_LongTitleTruncated(t *testing.T) {
	store := seededStore(t)
	provider := &testutil.MockLLMProvider{
		CompleteFunc: func(ctx context.Context, req llm.Request) (string, error) {
			return strings.Repeat("a", 60), nil
		},
	}

	title, err := newService(store, provider).GenerateTitle(context.Background(), "u1", "c1")
	if err != nil {
		t.Fatalf("GenerateTitle() error = %v", err)
	}
	if len(title) != 50 || !strings.HasSuffix(title, "...") {
		t.Errorf("title = %q (%d chars)", title, len(title))
	}
}

func TestGenerateTitle_NoMessages(t *testing.T) {
	store := memory.New()
	store.CreateConversation(context.Background(), "empty", "u1", db.DefaultConversationTitle)

	called := false
	provider := &testutil.MockLLMProvider{
		CompleteFunc: func(ctx context.Context, req llm.Request) (string, error) {
			called = true
			return "x", nil
		},
	}

	title, err := newService(store, provider).GenerateTitle(context.Background(), "u1", "empty")
	if err != nil {
		t.Fatalf("GenerateTitle() error = %v", err)
	}
	if title != db.DefaultConversationTitle {
		t.Errorf("title = %q", title)
	}
	if called {
		t.Error("provider must not be called without messages")
	}
}

func TestGenerateTitle_ProviderFailure(t *testing.T) {
	store := seededStore(t)
	provider := &testutil.MockLLMProvider{
		CompleteFunc: func(ctx context.Context, req llm.Request) (string, error) {
			return "", errors.New("rate limited")
		},
	}

	title, err := newService(store, provider).GenerateTitle(context.Background(), "u1", "c1")
	if err != nil {
		t.Fatalf("GenerateTitle() error = %v, want nil", err)
	}
	if title != FallbackTitle {
		t.Errorf("title = %q, want %q", title, FallbackTitle)
	}

	conv, _ := store.GetConversation(context.Background(), "c1")
	if conv.Title != db.DefaultConversationTitle {
		t.Errorf("stored title changed to %q", conv.Title)
	}
}

func TestGenerateTitle_EmptyProviderTitle(t *testing.T) {
	store := seededStore(t)
	provider := &testutil.MockLLMProvider{
		CompleteFunc: func(ctx context.Context, req llm.Request) (string, error) {
			return `  ""  `, nil
		},
	}

	title, err := newService(store, provider).GenerateTitle(context.Background(), "u1", "c1")
	if err != nil || title != FallbackTitle {
		t.Errorf("GenerateTitle() = %q, %v", title, err)
	}
}

func TestGenerateTitle_NotFound(t *testing.T) {
	store := seededStore(t)
	service := newService(store, &testutil.MockLLMProvider{})

	tests := []struct {
		name   string
		userID string
		convID string
	}{
		{"missing conversation", "u1", "nope"},
		{"other user's conversation", "u2", "c1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.GenerateTitle(context.Background(), tt.userID, tt.convID)
			if !errors.Is(err, ErrConversationNotFound) {
				t.Errorf("error = %v, want ErrConversationNotFound", err)
			}
		})
	}
}

func TestGenerateTitle_UsesFirstTenMessages(t *testing.T) {
	var limit int
	mockDB := &testutil.MockDatabase{
		GetConversationFunc: func(ctx context.Context, id string) (*db.Conversation, error) {
			return &db.Conversation{ID: id, UserID: "u1"}, nil
		},
		GetConversationMessagesFunc: func(ctx context.Context, id string, l int) ([]db.Message, error) {
			limit = l
			return []db.Message{{Role: db.RoleUser, Content: "hi"}}, nil
		},
		UpdateConversationTitleFunc: func(ctx context.Context, id, title string) error {
			return nil
		},
	}
	provider := &testutil.MockLLMProvider{
		CompleteFunc: func(ctx context.Context, req llm.Request) (string, error) {
			return "Greeting", nil
		},
	}

	if _, err := newService(mockDB, provider).GenerateTitle(context.Background(), "u1", "c1"); err != nil {
		t.Fatalf("GenerateTitle() error = %v", err)
	}
	if limit != 10 {
		t.Errorf("message limit = %d, want 10", limit)
	}
}
