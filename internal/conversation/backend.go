package conversation

import (
	"fmt"

	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/umebot"
)

// BuildBackend constructs a Backend for the given BackendConfig. It is the
// single factory function the orchestrator calls on set_backend, so the
// tagged-union dispatch lives in one place.
func BuildBackend(cfg umebot.BackendConfig) (Backend, error) {
	switch cfg.Tag {
	case umebot.BackendCloud:
		return NewCloudBackend(cfg.APIKey, cfg.ModelName), nil
	case umebot.BackendLocal:
		return NewLocalBackend(cfg.ModelPath, cfg.ContextSize, cfg.ChatFormat)
	case umebot.BackendNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("conversation: unknown backend tag %q", cfg.Tag)
	}
}
