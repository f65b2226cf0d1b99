package llm

import "context"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a single completion request. SystemPrompt, when set, is sent
// ahead of Messages.
type Request struct {
	SystemPrompt string
	Messages     []Message
	Model        string
	Temperature  *float64
}

type ResponseUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChunkKind tags the variant carried by a StreamChunk
type ChunkKind int

const (
	ChunkText ChunkKind = iota
	ChunkUsage
	ChunkError
)

func (k ChunkKind) String() string {
	switch k {
	case ChunkText:
		return "text"
	case ChunkUsage:
		return "usage"
	case ChunkError:
		return "error"
	default:
		return "unknown"
	}
}

// StreamChunk is one event of a provider stream. A ChunkError is always the
// last value sent before the channel is closed.
type StreamChunk struct {
	Kind    ChunkKind
	Content string
	Usage   *ResponseUsage
	Err     error
}

func TextChunk(s string) StreamChunk { return StreamChunk{Kind: ChunkText, Content: s} }

func ErrorChunk(err error) StreamChunk { return StreamChunk{Kind: ChunkError, Err: err} }

func UsageChunk(u *ResponseUsage) StreamChunk { return StreamChunk{Kind: ChunkUsage, Usage: u} }

// LLMProvider defines the interface for completion providers (OpenRouter direct API, Genkit, LangChain, Gemini, mock)
type LLMProvider interface {
	// Complete sends a request and returns the full response text
	Complete(ctx context.Context, req Request) (string, error)

	// Stream sends a request and streams the response. The returned channel is
	// closed when the provider is done. Cancelling ctx stops the stream.
	Stream(ctx context.Context, req Request) (<-chan StreamChunk, error)

	// Name identifies the provider in logs
	Name() string

	// DefaultModel returns the model used when a request does not name one
	DefaultModel() string
}

// withSystemPrompt prepends the system prompt to the request messages
func withSystemPrompt(req Request) []Message {
	if req.SystemPrompt == "" {
		return req.Messages
	}
	return append([]Message{{Role: RoleSystem, Content: req.SystemPrompt}}, req.Messages...)
}

// send delivers a chunk unless ctx is cancelled first
func send(ctx context.Context, ch chan<- StreamChunk, chunk StreamChunk) bool {
	select {
	case ch <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}

func resolveModel(req Request, fallback string) string {
	if req.Model != "" {
		return req.Model
	}
	return fallback
}
