// Package umebot holds data types and interfaces shared across the
// orchestration fabric's components, so that no component needs to import
// another component's package just to pass a value across a channel.
package umebot

import "time"

// AudioChunk is an immutable slice of 16-bit signed little-endian PCM mono
// samples at the system sample rate. Produced by the audio source
// multiplexer, consumed once by the recognition pipeline.
type AudioChunk struct {
	Samples   []byte
	SourceTag string
	Seq       uint64
}

// TranscriptKind distinguishes a lossy in-progress update from a commit
// point emitted by the recognition pipeline.
type TranscriptKind string

const (
	TranscriptPartial TranscriptKind = "partial"
	TranscriptFinal   TranscriptKind = "final"
)

// Transcript is one unit of recognized text from the recognition pipeline.
type Transcript struct {
	Text      string
	Kind      TranscriptKind
	SourceTag string
}

// Message is a single role/content turn sent to an LM backend.
type Message struct {
	Role    string // "system" | "user" | "assistant"
	Content string
	// Parts carries multimodal content when the active backend supports it
	// and images were supplied; nil for plain-text messages.
	Parts []ContentPart
}

// ContentPart is one element of a multimodal message (text or image).
type ContentPart struct {
	Type     string // "text" | "image_url"
	Text     string
	ImageURL string
}

// InputSource names where a piece of conversational input originated.
type InputSource string

const (
	SourceGUI       InputSource = "gui"
	SourceSTT       InputSource = "stt"
	SourceSTTAuto   InputSource = "stt_auto"
	SourceGUIManual InputSource = "gui_manual"
	SourceUnknown   InputSource = "unknown"
)

// Conversation is one conversational session.
type Conversation struct {
	ID        int64
	UserID    string
	StartedAt time.Time
	UpdatedAt time.Time
	Summary   string
}

// InteractionRole names the speaker of a persisted interaction.
type InteractionRole string

const (
	RoleUser      InteractionRole = "user"
	RoleAssistant InteractionRole = "assistant"
	RoleSystem    InteractionRole = "system"
)

// Interaction is one append-only persisted conversational turn. Content is
// an application-opaque JSON string of at least {type, payload_data,
// timestamp_original}.
type Interaction struct {
	ID             int64
	ConversationID int64
	Timestamp      time.Time
	Role           InteractionRole
	Content        string
}

// Personality is a loaded robot persona.
type Personality struct {
	Key          string
	DisplayName  string
	RobotName    string
	SystemPrompt string
}

// BackendTag names the active LM backend variant.
type BackendTag string

const (
	BackendCloud BackendTag = "cloud"
	BackendLocal BackendTag = "local"
	BackendNone  BackendTag = "none"
)

// BackendConfig carries the fields relevant to whichever BackendTag is
// selected; unused fields for the other variants are left zero.
type BackendConfig struct {
	Tag         BackendTag
	APIKey      string
	ModelName   string
	ModelPath   string
	ContextSize int
	ChatFormat  string
}
