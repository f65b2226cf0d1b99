package llm

import (
	"context"
	"fmt"
	"strings"

	"streamchat/internal/config"
	"streamchat/internal/logger"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash-001"

// GeminiProvider implements LLMProvider using the Google Gen AI SDK
type GeminiProvider struct {
	client *genai.Client
	model  string
}

func NewGeminiProvider(ctx context.Context, llmConfig *config.LLMConfig, modelsConfig *config.ModelsConfig) (*GeminiProvider, error) {
	if llmConfig.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not configured")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  llmConfig.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating gemini client: %w", err)
	}

	model := modelsConfig.DefaultModelFor("gemini")
	if model == config.FallbackModel {
		model = defaultGeminiModel
	}

	logger.Log.WithField("default_model", model).Info("Initialized Gemini provider")
	return &GeminiProvider{client: client, model: model}, nil
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) DefaultModel() string { return p.model }

func toGeminiContents(req Request) ([]*genai.Content, *genai.GenerateContentConfig) {
	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, msg := range req.Messages {
		role := genai.RoleUser
		if msg.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: msg.Content}},
		})
	}

	cfg := &genai.GenerateContentConfig{}
	if req.SystemPrompt != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemPrompt}},
		}
	}
	if req.Temperature != nil {
		t := float32(*req.Temperature)
		cfg.Temperature = &t
	}
	return contents, cfg
}

func geminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String()
}

func (p *GeminiProvider) Complete(ctx context.Context, req Request) (string, error) {
	contents, cfg := toGeminiContents(req)
	model := resolveModel(req, p.model)

	logger.Log.WithFields(logrus.Fields{
		"model":         model,
		"message_count": len(contents),
	}).Info("Calling Gemini")

	resp, err := p.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}
	return geminiText(resp), nil
}

func (p *GeminiProvider) Stream(ctx context.Context, req Request) (<-chan StreamChunk, error) {
	contents, cfg := toGeminiContents(req)
	model := resolveModel(req, p.model)

	logger.Log.WithFields(logrus.Fields{
		"model":         model,
		"message_count": len(contents),
	}).Info("Calling Gemini (streaming)")

	chunks := make(chan StreamChunk)

	go func() {
		defer close(chunks)

		var usage *genai.GenerateContentResponseUsageMetadata
		for resp, err := range p.client.Models.GenerateContentStream(ctx, model, contents, cfg) {
			if err != nil {
				send(ctx, chunks, ErrorChunk(fmt.Errorf("gemini stream failed: %w", err)))
				return
			}
			if resp.UsageMetadata != nil {
				usage = resp.UsageMetadata
			}
			if text := geminiText(resp); text != "" {
				if !send(ctx, chunks, TextChunk(text)) {
					return
				}
			}
		}

		if usage != nil {
			send(ctx, chunks, UsageChunk(&ResponseUsage{
				PromptTokens:     int(usage.PromptTokenCount),
				CompletionTokens: int(usage.CandidatesTokenCount),
				TotalTokens:      int(usage.TotalTokenCount),
			}))
		}
	}()

	return chunks, nil
}
