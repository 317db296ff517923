package llm

import (
	"fmt"
	"strings"

	"github.com/inercia/go-baski/pkg/httperr"
)

// NewSystemMessage creates a system message; surrounding whitespace is trimmed.
func NewSystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: strings.TrimSpace(text)}
}

// NewUserMessage creates a user message
func NewUserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// NewAssistantMessage creates an assistant message
func NewAssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: text}
}

// ValidateHistory checks that a conversation history only holds user and
// assistant messages with content. Violations are bad requests.
func ValidateHistory(history []Message) error {
	for i, msg := range history {
		if msg.Role != RoleUser && msg.Role != RoleAssistant {
			return httperr.New(httperr.KindBadRequest, 0,
				fmt.Sprintf("history message %d: role must be 'user' or 'assistant', got %q", i, msg.Role))
		}
		if msg.Content == "" {
			return httperr.New(httperr.KindBadRequest, 0,
				fmt.Sprintf("history message %d: content is empty", i))
		}
	}
	return nil
}
