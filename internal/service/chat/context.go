package chat

import (
	"strings"

	"streamchat/internal/logger"
	"streamchat/internal/repository/db"
	"streamchat/internal/service/llm"

	"github.com/sirupsen/logrus"
)

// RenderContext builds the single prompt sent to the provider: the earlier
// turns as labelled lines followed by the new message. With no history the
// prompt is returned as is.
func RenderContext(history []db.Message, prompt string) string {
	if len(history) == 0 {
		return prompt
	}

	var sb strings.Builder
	sb.WriteString("Previous conversation:\n")
	for _, msg := range history {
		sb.WriteString(historyLine(msg))
	}
	sb.WriteString("\nCurrent user message: ")
	sb.WriteString(prompt)
	return sb.String()
}

func historyLine(msg db.Message) string {
	label := "User"
	if msg.Role == db.RoleAssistant {
		label = "Assistant"
	}
	return label + ": " + msg.Content + "\n"
}

// fitHistory drops the oldest messages until the request fits the
// configured token budget. The store is never touched.
func (s *ChatService) fitHistory(history []db.Message, prompt string) []db.Message {
	budget := s.config.AppConfig.LLM.MaxContextTokens
	if budget <= 0 || len(history) == 0 {
		return history
	}

	dropped := 0
	for len(history) > 0 && s.requestTokens(history, prompt) > budget {
		history = history[1:]
		dropped++
	}
	if dropped == 0 {
		return history
	}

	logger.Log.WithFields(logrus.Fields{
		"dropped_messages": dropped,
		"budget":           budget,
	}).Info("Trimmed conversation history to fit token budget")

	return history
}

// requestTokens counts the system prompt and rendered context as sent,
// including per-message overhead
func (s *ChatService) requestTokens(history []db.Message, prompt string) int {
	return s.tokens.CountMessages([]llm.Message{
		{Role: llm.RoleSystem, Content: s.systemPrompt},
		{Role: llm.RoleUser, Content: RenderContext(history, prompt)},
	})
}
