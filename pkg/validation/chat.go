package validation

import (
	"errors"
	"fmt"
	"strings"
)

const maxConversationIDLength = 128

// ChatRequestValidator validates chat-related requests
type ChatRequestValidator struct{}

// NewChatRequestValidator creates a new ChatRequestValidator
func NewChatRequestValidator() *ChatRequestValidator {
	return &ChatRequestValidator{}
}

// ValidatePrompt validates a chat prompt
func (v *ChatRequestValidator) ValidatePrompt(prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return errors.New("prompt cannot be empty")
	}
	return nil
}

// ValidateConversationID validates a client-chosen conversation id
func (v *ChatRequestValidator) ValidateConversationID(id string) error {
	if id == "" {
		return errors.New("conv_id cannot be empty")
	}

	if len(id) > maxConversationIDLength {
		return fmt.Errorf("conv_id must be at most %d characters long, got %d", maxConversationIDLength, len(id))
	}

	if strings.ContainsAny(id, " \t\r\n/") {
		return errors.New("conv_id cannot contain whitespace or slashes")
	}
	return nil
}

// ValidateStreamRequest validates a complete streaming chat request
func (v *ChatRequestValidator) ValidateStreamRequest(conversationID, prompt string) error {
	if err := v.ValidateConversationID(conversationID); err != nil {
		return err
	}

	if err := v.ValidatePrompt(prompt); err != nil {
		return err
	}

	return nil
}
