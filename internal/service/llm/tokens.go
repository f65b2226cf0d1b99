package llm

import (
	"sync"

	"streamchat/internal/logger"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

const tokenEncoding = "cl100k_base"

// The BPE ranks ship inside the binary, so encodings load without network access.
func init() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// TokenCounter estimates how many tokens a text costs. The encoding is
// loaded on first use; if it cannot be loaded the counter falls back to
// roughly four bytes per token.
type TokenCounter struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
}

func NewTokenCounter() *TokenCounter {
	return &TokenCounter{}
}

func (c *TokenCounter) load() {
	enc, err := tiktoken.GetEncoding(tokenEncoding)
	if err != nil {
		logger.Log.WithError(err).Warn("Token encoding unavailable, using length estimate")
		return
	}
	c.enc = enc
}

func (c *TokenCounter) Count(text string) int {
	c.once.Do(c.load)
	if c.enc == nil {
		return (len(text) + 3) / 4
	}
	return len(c.enc.Encode(text, nil, nil))
}

// CountMessages includes the per-message overhead of role and separators
func (c *TokenCounter) CountMessages(messages []Message) int {
	total := 3
	for _, m := range messages {
		total += 4 + c.Count(m.Role) + c.Count(m.Content)
	}
	return total
}
