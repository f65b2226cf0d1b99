package llm

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestMockProvider_StreamMatchesComplete(t *testing.T) {
	m := NewMockProvider("test", 0)
	req := Request{Messages: []Message{{Role: RoleUser, Content: "héllo"}}}

	full, err := m.Complete(context.Background(), req)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	ch, err := m.Stream(context.Background(), req)
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	text, errs, _ := collect(ch)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if text != full {
		t.Errorf("streamed %q, complete %q", text, full)
	}
	if !strings.Contains(full, "héllo") {
		t.Errorf("reply %q does not echo the prompt", full)
	}
}

func TestMockProvider_StreamStopsOnCancel(t *testing.T) {
	m := NewMockProvider("test", time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := m.Stream(ctx, Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}

	first := <-ch
	if first.Kind != ChunkText {
		t.Fatalf("first chunk kind = %v", first.Kind)
	}
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			// drain whatever raced with the cancel
			for range ch {
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not close after cancel")
	}
}
