// Package conversation implements C3, the Conversation Core: personality
// and LM-backend ownership, contextual prompt assembly, and the
// persistence of each conversational turn.
//
// Grounded on pkg/orchestrator/conversation.go's wrapper shape, generalized
// from a single streaming session to the spec's set_personality/
// set_backend/start_new_conversation contract.
package conversation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/umebot"
)

// Backend is the pluggable LM adapter surface named in spec.md §6: both
// variants expose a single generate(messages) -> string.
type Backend interface {
	Generate(ctx context.Context, messages []umebot.Message) (string, error)
	Name() string
}

// Store is the append-only persistence surface named in spec.md §6.
type Store interface {
	StartConversation(ctx context.Context, summary, userID string) (int64, error)
	ConversationExists(ctx context.Context, id int64) (bool, error)
	AddInteraction(ctx context.Context, convID int64, role umebot.InteractionRole, contentJSON string) error
	GetInteractions(ctx context.Context, convID int64, limit int) ([]umebot.Interaction, error)
}

// Core is C3.
type Core struct {
	store      Store
	catalogue  *PersonalityCatalogue
	knowledge  *KnowledgeBase
	robotName  string
	maxContext int
	log        umebot.Logger

	mu                    sync.RWMutex
	currentPersonalityKey string
	currentConversationID int64
	haveConversation      bool
	backend               Backend
	backendTag            umebot.BackendTag
}

// New constructs a Core. catalogue and knowledge may be replaced later via
// SetCatalogue/SetKnowledgeBase.
func New(store Store, catalogue *PersonalityCatalogue, knowledge *KnowledgeBase, robotName string, maxContext int, log umebot.Logger) *Core {
	if log == nil {
		log = umebot.NoOpLogger{}
	}
	if maxContext <= 0 {
		maxContext = 20
	}
	return &Core{
		store:      store,
		catalogue:  catalogue,
		knowledge:  knowledge,
		robotName:  robotName,
		maxContext: maxContext,
		log:        log,
		backendTag: umebot.BackendNone,
	}
}

// SetCatalogue swaps the personality catalogue, e.g. after a hot reload.
func (c *Core) SetCatalogue(cat *PersonalityCatalogue) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.catalogue = cat
}

// SetKnowledgeBase swaps the retrieval knowledge base.
func (c *Core) SetKnowledgeBase(kb *KnowledgeBase) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.knowledge = kb
}

// SetPersonality activates a catalogued personality by key. Changing it
// rebuilds the prompt template on the next get_response but does not start
// a new conversation.
func (c *Core) SetPersonality(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.catalogue == nil || !c.catalogue.Has(key) {
		return false
	}
	c.currentPersonalityKey = key
	return true
}

// CurrentPersonalityKey returns the active personality's key, or "" if none.
func (c *Core) CurrentPersonalityKey() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentPersonalityKey
}

// SetBackend switches the active LM backend. Switching disposes the
// previous adapter (it simply drops the reference; any variant-specific
// teardown lives in the adapter's own lifetime).
func (c *Core) SetBackend(tag umebot.BackendTag, backend Backend) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.backend = backend
	c.backendTag = tag
	return true
}

// CurrentBackendTag reports which backend variant is active.
func (c *Core) CurrentBackendTag() umebot.BackendTag {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.backendTag
}

// StartNewConversation starts a new conversation and makes it current.
func (c *Core) StartNewConversation(ctx context.Context, userID, summary string) (int64, error) {
	id, err := c.store.StartConversation(ctx, summary, userID)
	if err != nil {
		return 0, fmt.Errorf("conversation: start: %w", err)
	}
	c.mu.Lock()
	c.currentConversationID = id
	c.haveConversation = true
	c.mu.Unlock()
	return id, nil
}

// CurrentConversationID returns the current conversation id, if any.
func (c *Core) CurrentConversationID() (int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentConversationID, c.haveConversation
}

// cannedApology is the tagged error string produced when no backend or no
// conversation is active, or when the backend itself fails. Per spec.md
// §4.3/§7 this is a success path for the caller, not a propagated error:
// the robot must always say something.
func cannedApology(reason string) string {
	return fmt.Sprintf("^runTag(apologetic) Lo siento, tuve un problema para responder (%s). ^runTag(neutral)", reason)
}

// GetResponse is C3's single awaitable entry point. source and images are
// accepted for prompt-assembly purposes; images are only forwarded to a
// multimodal-capable Cloud backend.
func (c *Core) GetResponse(ctx context.Context, userInput string, source umebot.InputSource, images []string) string {
	c.mu.RLock()
	convID, have := c.currentConversationID, c.haveConversation
	backend := c.backend
	backendTag := c.backendTag
	personalityKey := c.currentPersonalityKey
	catalogue := c.catalogue
	knowledge := c.knowledge
	c.mu.RUnlock()

	if !have {
		return c.persistApology(ctx, 0, userInput, "no_active_conversation")
	}
	if backend == nil || backendTag == umebot.BackendNone {
		return c.persistApology(ctx, convID, userInput, "no_active_backend")
	}

	var personality umebot.Personality
	if catalogue != nil {
		personality, _ = catalogue.Get(personalityKey)
	}

	history, err := c.store.GetInteractions(ctx, convID, c.maxContext)
	if err != nil {
		c.log.Warn("conversation: failed to load history", "err", err)
	}

	messages := buildPrompt(personality, knowledge, userInput, c.robotName, history, images)

	if err := c.persistUserTurn(ctx, convID, userInput, source); err != nil {
		c.log.Warn("conversation: failed to persist user turn", "err", err)
	}

	reply, err := backend.Generate(ctx, messages)
	modelUsed := fmt.Sprintf("%s_%s", backendTag, backend.Name())
	if err != nil || reply == "" {
		if err != nil {
			c.log.Warn("conversation: backend generate failed", "err", err, "backend", backend.Name())
		}
		reply = cannedApology("backend_error")
		modelUsed = "fallback_empty"
	}

	c.persistAssistantTurn(ctx, convID, reply, modelUsed)
	return reply
}

func (c *Core) persistApology(ctx context.Context, convID int64, userInput, reason string) string {
	reply := cannedApology(reason)
	if convID != 0 {
		_ = c.persistUserTurn(ctx, convID, userInput, umebot.SourceUnknown)
		c.persistAssistantTurn(ctx, convID, reply, "fallback_empty")
	}
	return reply
}

func (c *Core) persistUserTurn(ctx context.Context, convID int64, text string, source umebot.InputSource) error {
	content := interactionJSON("input", text, source)
	return c.store.AddInteraction(ctx, convID, umebot.RoleUser, content)
}

func (c *Core) persistAssistantTurn(ctx context.Context, convID int64, text, modelUsed string) {
	content := interactionJSON(modelUsed, text, "")
	if err := c.store.AddInteraction(ctx, convID, umebot.RoleAssistant, content); err != nil {
		c.log.Warn("conversation: failed to persist assistant turn", "err", err)
	}
}

func interactionJSON(kind, payload string, source umebot.InputSource) string {
	ts := time.Now().UTC().Format(time.RFC3339Nano)
	if source != "" {
		return fmt.Sprintf(`{"type":%q,"payload_data":%q,"timestamp_original":%q,"source":%q}`, kind, payload, ts, source)
	}
	return fmt.Sprintf(`{"type":%q,"payload_data":%q,"timestamp_original":%q}`, kind, payload, ts)
}
