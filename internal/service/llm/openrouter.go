package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"streamchat/internal/config"
	"streamchat/internal/logger"

	"github.com/sirupsen/logrus"
)

const openRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenRouterProvider implements LLMProvider using direct calls to an
// OpenAI-compatible chat completions endpoint (OpenRouter by default)
type OpenRouterProvider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// NewOpenRouterProvider creates a new OpenRouter provider with config
func NewOpenRouterProvider(llmConfig *config.LLMConfig, modelsConfig *config.ModelsConfig) (*OpenRouterProvider, error) {
	if llmConfig.APIKey == "" {
		return nil, fmt.Errorf("LLM_API_KEY not configured")
	}

	baseURL := llmConfig.BaseURL
	if baseURL == "" {
		baseURL = openRouterBaseURL
	}

	return &OpenRouterProvider{
		apiKey:  llmConfig.APIKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   modelsConfig.DefaultModelFor("openrouter"),
		client:  &http.Client{},
	}, nil
}

type chatRequest struct {
	Model         string         `json:"model"`
	Messages      []Message      `json:"messages"`
	Stream        bool           `json:"stream"`
	Temperature   *float64       `json:"temperature,omitempty"`
	StreamOptions *streamOptions `json:"stream_options,omitempty"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message Message `json:"message"`
		Delta   Message `json:"delta"`
	} `json:"choices"`
	Usage *ResponseUsage `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *OpenRouterProvider) Name() string { return "openrouter" }

// DefaultModel returns the default model for OpenRouter provider
func (p *OpenRouterProvider) DefaultModel() string { return p.model }

func (p *OpenRouterProvider) newRequest(ctx context.Context, req Request, stream bool) (*http.Request, error) {
	body := chatRequest{
		Model:       resolveModel(req, p.model),
		Messages:    withSystemPrompt(req),
		Stream:      stream,
		Temperature: req.Temperature,
	}
	if stream {
		body.StreamOptions = &streamOptions{IncludeUsage: true}
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("HTTP-Referer", "http://localhost:3000")
	httpReq.Header.Set("X-Title", "Chat App")
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	logger.Log.WithFields(logrus.Fields{
		"model":         body.Model,
		"stream":        stream,
		"message_count": len(body.Messages),
	}).Info("Calling OpenRouter API")

	return httpReq, nil
}

// Complete sends a chat request and returns the full response
func (p *OpenRouterProvider) Complete(ctx context.Context, req Request) (string, error) {
	httpReq, err := p.newRequest(ctx, req, false)
	if err != nil {
		return "", err
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("error decoding response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no response from API")
	}

	content := chatResp.Choices[0].Message.Content
	logger.Log.WithField("content_length", len(content)).Debug("Extracted content from response")
	return content, nil
}

// Stream sends a chat request and streams the response
func (p *OpenRouterProvider) Stream(ctx context.Context, req Request) (<-chan StreamChunk, error) {
	httpReq, err := p.newRequest(ctx, req, true)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	chunks := make(chan StreamChunk)

	go func() {
		defer resp.Body.Close()
		defer close(chunks)

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := scanner.Text()

			// Parse SSE event format: "data: {json}"
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "" {
				continue
			}
			if data == "[DONE]" {
				return
			}

			var streamResp chatResponse
			if err := json.Unmarshal([]byte(data), &streamResp); err != nil {
				logger.Log.WithError(err).Error("Error parsing stream chunk")
				send(ctx, chunks, ErrorChunk(fmt.Errorf("error parsing stream chunk: %w", err)))
				return
			}

			if streamResp.Error != nil {
				send(ctx, chunks, ErrorChunk(fmt.Errorf("provider error: %s", streamResp.Error.Message)))
				return
			}

			if streamResp.Usage != nil {
				logger.Log.WithFields(logrus.Fields{
					"prompt_tokens":     streamResp.Usage.PromptTokens,
					"completion_tokens": streamResp.Usage.CompletionTokens,
				}).Debug("Captured usage data")
				if !send(ctx, chunks, UsageChunk(streamResp.Usage)) {
					return
				}
			}

			if len(streamResp.Choices) > 0 && streamResp.Choices[0].Delta.Content != "" {
				if !send(ctx, chunks, TextChunk(streamResp.Choices[0].Delta.Content)) {
					return
				}
			}
		}

		if err := scanner.Err(); err != nil {
			logger.Log.WithError(err).Error("Scanner error during streaming")
			send(ctx, chunks, ErrorChunk(fmt.Errorf("error reading stream: %w", err)))
		}
	}()

	return chunks, nil
}
