package llm

import (
	"context"
	"fmt"
	"time"
)

// MockProvider streams a canned reply one character at a time. It lets the
// server run without network access to any model.
type MockProvider struct {
	Prefix string
	Delay  time.Duration
}

func NewMockProvider(prefix string, delay time.Duration) *MockProvider {
	return &MockProvider{Prefix: prefix, Delay: delay}
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) DefaultModel() string { return "mock" }

func (m *MockProvider) reply(req Request) string {
	last := ""
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == RoleUser {
			last = req.Messages[i].Content
			break
		}
	}
	if r := []rune(last); len(r) > 80 {
		last = string(r[len(r)-80:])
	}
	return fmt.Sprintf("[%s] This is a mock reply to: %s", m.Prefix, last)
}

func (m *MockProvider) Complete(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return m.reply(req), nil
}

func (m *MockProvider) Stream(ctx context.Context, req Request) (<-chan StreamChunk, error) {
	text := m.reply(req)
	chunks := make(chan StreamChunk)

	go func() {
		defer close(chunks)
		for _, char := range text {
			if !send(ctx, chunks, TextChunk(string(char))) {
				return
			}
			if m.Delay > 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(m.Delay):
				}
			}
		}
	}()

	return chunks, nil
}
