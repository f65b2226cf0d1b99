package llm

import (
	"context"
	"fmt"
	"strings"

	"streamchat/internal/config"
	"streamchat/internal/logger"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai"
	"github.com/openai/openai-go"
	"github.com/sirupsen/logrus"
)

const genkitProviderName = "openrouter"

// GenkitProvider implements LLMProvider using Firebase Genkit with an
// OpenAI-compatible backend via compat_oai
type GenkitProvider struct {
	genkit *genkit.Genkit
	model  string
}

// NewGenkitProvider creates a new Genkit provider instance
func NewGenkitProvider(ctx context.Context, llmConfig *config.LLMConfig, modelsConfig *config.ModelsConfig) (*GenkitProvider, error) {
	if llmConfig.APIKey == "" {
		return nil, fmt.Errorf("LLM_API_KEY not configured")
	}

	baseURL := llmConfig.BaseURL
	if baseURL == "" {
		baseURL = openRouterBaseURL
	}

	defaultModel := modelsConfig.DefaultModelFor("genkit")

	g := genkit.Init(ctx,
		genkit.WithPlugins(&compat_oai.OpenAICompatible{
			Provider: genkitProviderName,
			APIKey:   llmConfig.APIKey,
			BaseURL:  baseURL,
		}),
		genkit.WithDefaultModel(genkitModelName(defaultModel)),
	)

	logger.Log.WithField("default_model", defaultModel).Info("Initialized Genkit provider")

	return &GenkitProvider{genkit: g, model: defaultModel}, nil
}

func genkitModelName(model string) string {
	if strings.HasPrefix(model, genkitProviderName+"/") {
		return model
	}
	return genkitProviderName + "/" + model
}

func (p *GenkitProvider) Name() string { return "genkit" }

// DefaultModel returns the default model for Genkit provider
func (p *GenkitProvider) DefaultModel() string { return p.model }

func (p *GenkitProvider) options(req Request) []ai.GenerateOption {
	var messages []*ai.Message
	for _, msg := range withSystemPrompt(req) {
		messages = append(messages, &ai.Message{
			Role:    ai.Role(msg.Role),
			Content: []*ai.Part{ai.NewTextPart(msg.Content)},
		})
	}

	cfg := &openai.ChatCompletionNewParams{}
	if req.Temperature != nil {
		cfg.Temperature = openai.Float(*req.Temperature)
	}

	model := genkitModelName(resolveModel(req, p.model))
	logger.Log.WithFields(logrus.Fields{
		"model":         model,
		"message_count": len(messages),
	}).Info("Calling Genkit")

	return []ai.GenerateOption{
		ai.WithMessages(messages...),
		ai.WithModelName(model),
		ai.WithConfig(cfg),
	}
}

// Complete sends a chat request and returns the full response
func (p *GenkitProvider) Complete(ctx context.Context, req Request) (string, error) {
	resp, err := genkit.Generate(ctx, p.genkit, p.options(req)...)
	if err != nil {
		return "", fmt.Errorf("genkit generation failed: %w", err)
	}
	return resp.Text(), nil
}

// Stream sends a chat request and streams the response
func (p *GenkitProvider) Stream(ctx context.Context, req Request) (<-chan StreamChunk, error) {
	opts := p.options(req)
	chunks := make(chan StreamChunk)

	go func() {
		defer close(chunks)

		opts = append(opts, ai.WithStreaming(func(ctx context.Context, chunk *ai.ModelResponseChunk) error {
			for _, part := range chunk.Content {
				if !part.IsText() || part.Text == "" {
					continue
				}
				if !send(ctx, chunks, TextChunk(part.Text)) {
					return ctx.Err()
				}
			}
			return nil
		}))

		resp, err := genkit.Generate(ctx, p.genkit, opts...)
		if err != nil {
			logger.Log.WithError(err).Error("Stream error")
			send(ctx, chunks, ErrorChunk(fmt.Errorf("genkit generation failed: %w", err)))
			return
		}

		if resp.Usage != nil {
			send(ctx, chunks, UsageChunk(&ResponseUsage{
				PromptTokens:     int(resp.Usage.InputTokens),
				CompletionTokens: int(resp.Usage.OutputTokens),
				TotalTokens:      int(resp.Usage.TotalTokens),
			}))
		}
	}()

	return chunks, nil
}
