package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"streamchat/internal/repository/db"
	"streamchat/internal/service/llm"
	"streamchat/internal/testutil"

	"github.com/gorilla/websocket"
)

func dialWS(t *testing.T, server *httptest.Server, token string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/chat/ws"
	if token != "" {
		url += "?token=" + token
	}
	return websocket.DefaultDialer.Dial(url, nil)
}

// readTurn collects frames until a done or error frame arrives
func readTurn(t *testing.T, conn *websocket.Conn) ([]string, ServerFrame) {
	t.Helper()
	var chunks []string
	for {
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var frame ServerFrame
		if err := conn.ReadJSON(&frame); err != nil {
			t.Fatalf("ReadJSON() error = %v", err)
		}
		if frame.Type == FrameChunk {
			chunks = append(chunks, frame.Content)
			continue
		}
		return chunks, frame
	}
}

func TestWebSocket_StreamsTurn(t *testing.T) {
	env := newTestEnv(t)
	var calls atomic.Int32
	rendered := make(chan string, 2)
	env.provider.StreamFunc = func(ctx context.Context, req llm.Request) (<-chan llm.StreamChunk, error) {
		rendered <- req.Messages[0].Content
		if calls.Add(1) == 1 {
			return testutil.TextStream("Hello", " world"), nil
		}
		return testutil.TextStream("again"), nil
	}
	token, userID := env.signup(t, "ann@example.com")
	server := httptest.NewServer(env.handler)
	defer server.Close()

	conn, _, err := dialWS(t, server, token)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(ClientFrame{ConversationID: "ws1", Prompt: "hi"}); err != nil {
		t.Fatal(err)
	}
	chunks, last := readTurn(t, conn)
	if got := strings.Join(chunks, ""); got != "Hello world" {
		t.Errorf("chunks = %q, want %q", got, "Hello world")
	}
	if last.Type != FrameDone {
		t.Errorf("terminal frame = %+v, want done", last)
	}

	if got := <-rendered; got != "hi" {
		t.Errorf("first turn context = %q, want bare prompt", got)
	}

	// A second turn on the same socket sees the first one in its history
	if err := conn.WriteJSON(ClientFrame{ConversationID: "ws1", Prompt: "more"}); err != nil {
		t.Fatal(err)
	}
	if _, last = readTurn(t, conn); last.Type != FrameDone {
		t.Errorf("second terminal frame = %+v", last)
	}
	if got := <-rendered; !strings.Contains(got, "Assistant: Hello world") {
		t.Errorf("second turn context = %q", got)
	}

	conv, err := env.store.GetConversation(context.Background(), "ws1")
	if err != nil || conv.UserID != userID {
		t.Fatalf("conversation = %+v, err = %v", conv, err)
	}
	msgs, _ := env.store.GetConversationMessages(context.Background(), "ws1", 0)
	if len(msgs) != 4 || msgs[3].Role != db.RoleAssistant || msgs[3].Content != "again" {
		t.Errorf("messages = %+v", msgs)
	}
}

func TestWebSocket_InvalidFrames(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.signup(t, "ann@example.com")
	server := httptest.NewServer(env.handler)
	defer server.Close()

	conn, _, err := dialWS(t, server, token)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	frames := []string{`not json`, `{"conv_id":"c1","prompt":""}`}
	for _, raw := range frames {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(raw)); err != nil {
			t.Fatal(err)
		}
		if _, last := readTurn(t, conn); last.Type != FrameError {
			t.Errorf("frame %q answered with %+v, want error", raw, last)
		}
	}
}

func TestWebSocket_RequiresToken(t *testing.T) {
	env := newTestEnv(t)
	server := httptest.NewServer(env.handler)
	defer server.Close()

	tests := []struct {
		name  string
		token string
	}{
		{"missing token", ""},
		{"invalid token", "not-a-jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, resp, err := dialWS(t, server, tt.token)
			if err == nil {
				conn.Close()
				t.Fatal("Dial() succeeded without a valid token")
			}
			if resp == nil || resp.StatusCode != http.StatusUnauthorized {
				t.Errorf("response = %v, want 401", resp)
			}
		})
	}
}
