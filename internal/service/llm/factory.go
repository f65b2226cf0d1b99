package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"streamchat/internal/config"
	"streamchat/internal/logger"
)

// ProviderType represents the type of LLM provider
type ProviderType string

const (
	ProviderOpenRouter ProviderType = "openrouter"
	ProviderGenkit     ProviderType = "genkit"
	ProviderLangChain  ProviderType = "langchain"
	ProviderGemini     ProviderType = "gemini"
	ProviderMock       ProviderType = "mock"
)

// ParseProviderType parses a string into a ProviderType
func ParseProviderType(s string) (ProviderType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "openrouter", "":
		return ProviderOpenRouter, nil
	case "genkit":
		return ProviderGenkit, nil
	case "langchain":
		return ProviderLangChain, nil
	case "gemini":
		return ProviderGemini, nil
	case "mock":
		return ProviderMock, nil
	default:
		return "", fmt.Errorf("unknown provider type: %s", s)
	}
}

// NewLLMProvider creates the provider named by the LLM configuration
func NewLLMProvider(ctx context.Context, llmConfig *config.LLMConfig, modelsConfig *config.ModelsConfig) (LLMProvider, error) {
	providerType, err := ParseProviderType(llmConfig.Provider)
	if err != nil {
		return nil, err
	}

	logger.Log.WithField("provider", providerType).Info("Creating LLM provider")

	switch providerType {
	case ProviderOpenRouter:
		return NewOpenRouterProvider(llmConfig, modelsConfig)
	case ProviderGenkit:
		return NewGenkitProvider(ctx, llmConfig, modelsConfig)
	case ProviderLangChain:
		return NewLangChainProvider(llmConfig, modelsConfig)
	case ProviderGemini:
		return NewGeminiProvider(ctx, llmConfig, modelsConfig)
	case ProviderMock:
		return NewMockProvider("mock", 20*time.Millisecond), nil
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", providerType)
	}
}
