package conversation

import (
	"context"
	"fmt"

	anyllm "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/llamacpp"

	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/umebot"
)

// LocalBackend is the Local variant of LMBackend: an on-prem llama.cpp
// server reached through any-llm-go, grounded on
// MrWong99-glyphoxa/pkg/provider/llm/anyllm/anyllm.go's provider-selection
// shape. It ignores non-text content parts, per spec.md §6 ("local
// backend ignores non-text parts").
type LocalBackend struct {
	backend     anyllm.Provider
	modelPath   string
	contextSize int
	chatFormat  string
}

// NewLocalBackend constructs a LocalBackend pointed at a local llama.cpp
// server. modelPath/chatFormat identify which model the server should have
// loaded; any-llm-go itself only needs a reachable server, so this module
// treats modelPath as the model name passed to the backend.
func NewLocalBackend(modelPath string, contextSize int, chatFormat string) (*LocalBackend, error) {
	backend, err := llamacpp.New()
	if err != nil {
		return nil, fmt.Errorf("conversation: local backend: %w", err)
	}
	return &LocalBackend{backend: backend, modelPath: modelPath, contextSize: contextSize, chatFormat: chatFormat}, nil
}

func (l *LocalBackend) Name() string { return "local_" + l.modelPath }

func (l *LocalBackend) Generate(ctx context.Context, messages []umebot.Message) (string, error) {
	anyMessages := make([]anyllm.Message, 0, len(messages))
	for _, m := range messages {
		anyMessages = append(anyMessages, anyllm.Message{
			Role:    anyllmRole(m.Role),
			Content: m.Content, // non-text parts intentionally dropped
		})
	}

	resp, err := l.backend.Completion(ctx, anyllm.CompletionParams{
		Model:    l.modelPath,
		Messages: anyMessages,
	})
	if err != nil {
		return "", fmt.Errorf("conversation: local backend completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("conversation: local backend returned no choices")
	}
	return resp.Choices[0].Message.ContentString(), nil
}

func anyllmRole(role string) anyllm.Role {
	switch role {
	case "system":
		return anyllm.RoleSystem
	case "assistant":
		return anyllm.RoleAssistant
	default:
		return anyllm.RoleUser
	}
}
