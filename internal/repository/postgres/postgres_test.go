package postgres

import (
	"context"
	"io/fs"
	"os"
	"strings"
	"testing"
	"time"

	"streamchat/internal/config"
	"streamchat/internal/repository/db"

	"github.com/google/uuid"
)

func TestMessagesQuery_OrdersBySeqWithinTimestamp(t *testing.T) {
	tests := []struct {
		limit     int
		wantLimit bool
	}{
		{limit: 0, wantLimit: false},
		{limit: 10, wantLimit: true},
	}

	for _, tt := range tests {
		query := messagesQuery(tt.limit)
		if !strings.Contains(query, "ORDER BY created_at ASC, seq ASC") {
			t.Errorf("messagesQuery(%d) lacks seq tiebreak: %s", tt.limit, query)
		}
		if got := strings.Contains(query, "LIMIT $2"); got != tt.wantLimit {
			t.Errorf("messagesQuery(%d) LIMIT present = %v, want %v", tt.limit, got, tt.wantLimit)
		}
	}
}

func TestMigrations_AddMessageSeq(t *testing.T) {
	up, err := fs.ReadFile(migrationsFS, "migrations/000002_add_message_seq.up.sql")
	if err != nil {
		t.Fatalf("reading migration: %v", err)
	}
	if !strings.Contains(string(up), "seq BIGSERIAL") {
		t.Errorf("migration does not add a seq column:\n%s", up)
	}
	if _, err := fs.ReadFile(migrationsFS, "migrations/000002_add_message_seq.down.sql"); err != nil {
		t.Errorf("missing down migration: %v", err)
	}
}

// Runs against a real server when STREAMCHAT_TEST_DATABASE_URL is set
func TestGetConversationMessages_EqualTimestamps(t *testing.T) {
	url := os.Getenv("STREAMCHAT_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("STREAMCHAT_TEST_DATABASE_URL not set")
	}

	store, err := NewPostgresDB(config.DatabaseConfig{URL: url})
	if err != nil {
		t.Fatalf("NewPostgresDB() error = %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	user, err := store.CreateUser(ctx, uuid.New().String()+"@example.com", nil, "hash")
	if err != nil {
		t.Fatal(err)
	}
	convID := uuid.New().String()
	if _, err := store.CreateConversation(ctx, convID, user.ID, db.DefaultConversationTitle); err != nil {
		t.Fatal(err)
	}

	ts := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	_, err = store.conn.ExecContext(ctx, `
	INSERT INTO messages (id, conversation_id, role, content, created_at) VALUES
	($1, $4, 'user', 'first', $5),
	($2, $4, 'assistant', 'second', $5),
	($3, $4, 'user', 'third', $5)`,
		uuid.New().String(), uuid.New().String(), uuid.New().String(), convID, ts)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		msgs, err := store.GetConversationMessages(ctx, convID, 0)
		if err != nil {
			t.Fatal(err)
		}
		var got []string
		for _, m := range msgs {
			got = append(got, m.Content)
		}
		if strings.Join(got, ",") != "first,second,third" {
			t.Fatalf("order = %v, want insertion order", got)
		}
	}
}
