package llm

import (
	"context"
	"fmt"

	"streamchat/internal/config"
	"streamchat/internal/logger"

	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// LangChainProvider implements LLMProvider on top of langchaingo's OpenAI
// client, which also speaks to OpenRouter, Ollama and other compatible servers
type LangChainProvider struct {
	llm   llms.Model
	model string
}

func NewLangChainProvider(llmConfig *config.LLMConfig, modelsConfig *config.ModelsConfig) (*LangChainProvider, error) {
	model := modelsConfig.DefaultModelFor("langchain")

	opts := []openai.Option{
		openai.WithToken(llmConfig.APIKey),
		openai.WithModel(model),
	}
	if llmConfig.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(llmConfig.BaseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("error creating langchain client: %w", err)
	}

	logger.Log.WithField("default_model", model).Info("Initialized LangChain provider")
	return &LangChainProvider{llm: client, model: model}, nil
}

func (p *LangChainProvider) Name() string { return "langchain" }

func (p *LangChainProvider) DefaultModel() string { return p.model }

func toLangChainMessages(req Request) []llms.MessageContent {
	var out []llms.MessageContent
	for _, msg := range withSystemPrompt(req) {
		role := llms.ChatMessageTypeHuman
		switch msg.Role {
		case RoleSystem:
			role = llms.ChatMessageTypeSystem
		case RoleAssistant:
			role = llms.ChatMessageTypeAI
		}
		out = append(out, llms.TextParts(role, msg.Content))
	}
	return out
}

func (p *LangChainProvider) callOptions(req Request) []llms.CallOption {
	opts := []llms.CallOption{llms.WithModel(resolveModel(req, p.model))}
	if req.Temperature != nil {
		opts = append(opts, llms.WithTemperature(*req.Temperature))
	}
	return opts
}

func (p *LangChainProvider) Complete(ctx context.Context, req Request) (string, error) {
	messages := toLangChainMessages(req)
	logger.Log.WithFields(logrus.Fields{
		"model":         resolveModel(req, p.model),
		"message_count": len(messages),
	}).Info("Calling LangChain")

	resp, err := p.llm.GenerateContent(ctx, messages, p.callOptions(req)...)
	if err != nil {
		return "", fmt.Errorf("langchain generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from API")
	}
	return resp.Choices[0].Content, nil
}

func (p *LangChainProvider) Stream(ctx context.Context, req Request) (<-chan StreamChunk, error) {
	messages := toLangChainMessages(req)
	opts := p.callOptions(req)
	chunks := make(chan StreamChunk)

	logger.Log.WithFields(logrus.Fields{
		"model":         resolveModel(req, p.model),
		"message_count": len(messages),
	}).Info("Calling LangChain (streaming)")

	go func() {
		defer close(chunks)

		opts = append(opts, llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			if len(chunk) == 0 {
				return nil
			}
			if !send(ctx, chunks, TextChunk(string(chunk))) {
				return ctx.Err()
			}
			return nil
		}))

		resp, err := p.llm.GenerateContent(ctx, messages, opts...)
		if err != nil {
			send(ctx, chunks, ErrorChunk(fmt.Errorf("langchain generation failed: %w", err)))
			return
		}

		if usage := langChainUsage(resp); usage != nil {
			send(ctx, chunks, UsageChunk(usage))
		}
	}()

	return chunks, nil
}

// langChainUsage reads token counts from the generation info of the first choice
func langChainUsage(resp *llms.ContentResponse) *ResponseUsage {
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0].GenerationInfo == nil {
		return nil
	}
	info := resp.Choices[0].GenerationInfo
	prompt, _ := info["PromptTokens"].(int)
	completion, _ := info["CompletionTokens"].(int)
	total, _ := info["TotalTokens"].(int)
	if prompt == 0 && completion == 0 && total == 0 {
		return nil
	}
	return &ResponseUsage{PromptTokens: prompt, CompletionTokens: completion, TotalTokens: total}
}
