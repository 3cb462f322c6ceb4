package tablet

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/motion"
)

// Frame is the wire envelope for every message on /ws_bidirectional,
// per spec.md §6.
type Frame struct {
	Type      string          `json:"type"`
	Timestamp string          `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

func encodeFrame(frameType string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("tablet: encode %s payload: %w", frameType, err)
	}
	f := Frame{Type: frameType, Timestamp: time.Now().UTC().Format(time.RFC3339), Payload: raw}
	return json.Marshal(f)
}

// InputPayload is the S→C and C→S "input" frame payload.
type InputPayload struct {
	Text   string   `json:"text"`
	Source string   `json:"source,omitempty"`
	Images []string `json:"images,omitempty"`
}

// OutputPayload is the S→C "output" frame payload.
type OutputPayload struct {
	Sender             string `json:"sender"`
	Text               string `json:"text"`
	OriginalInputSource string `json:"original_input_source"`
}

// SystemLevel is the severity of a "system" frame.
type SystemLevel string

const (
	SystemInfo    SystemLevel = "info"
	SystemWarning SystemLevel = "warning"
	SystemError   SystemLevel = "error"
)

// SystemPayload is the S→C "system" frame payload.
type SystemPayload struct {
	Sender string      `json:"sender"`
	Level  SystemLevel `json:"level"`
	Text   string      `json:"text"`
	Detail string      `json:"detail,omitempty"`
}

// SettingsSnapshot is the payload carried inside "currentConfiguration".
type SettingsSnapshot struct {
	STTAudioSource         string   `json:"stt_audio_source"`
	AIPersonality          string   `json:"ai_personality"`
	AIModelBackend         string   `json:"ai_model_backend"`
	AvailablePersonalities []string `json:"available_personalities"`
	AvailableAIBackends    []string `json:"available_ai_backends"`
}

// CurrentConfigurationPayload is the S→C "currentConfiguration" frame
// payload.
type CurrentConfigurationPayload struct {
	Settings SettingsSnapshot `json:"settings"`
}

// ConfigPayload is the C→S "config" frame payload.
type ConfigPayload struct {
	ConfigItem string          `json:"config_item"`
	Value      json.RawMessage `json:"value"`
}

// ConfigConfirmationPayload is the S→C "config_confirmation" frame
// payload.
type ConfigConfirmationPayload struct {
	ConfigItem      string `json:"config_item"`
	Success         bool   `json:"success"`
	CurrentValue    string `json:"current_value"`
	MessageToDisplay string `json:"message_to_display"`
}

// PartialSTTPayload is the S→C "partial_stt_result" frame payload.
type PartialSTTPayload struct {
	Text    string `json:"text"`
	IsFinal bool   `json:"is_final"`
}

// gamepadWire is the wire shape used only to validate and decode an inbound gamepad_state payload field by field, so a
// missing leaf (e.g. payload.left_stick.y) can be reported precisely.
type gamepadWire struct {
	LeftStick          map[string]json.RawMessage `json:"left_stick"`
	RightStick         map[string]json.RawMessage `json:"right_stick"`
	DPadEvents         map[string]json.RawMessage `json:"dpad_events"`
	ActionButtonEvents map[string]json.RawMessage `json:"action_button_events"`
	StickButtonStates  map[string]json.RawMessage `json:"stick_button_states"`
}

// ProtocolError is a structured decode/validation failure, reported back
// to the offending client as a system:error frame identifying the path.
type ProtocolError struct {
	Path string
	Msg  string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Msg)
}

func parseFloatField(m map[string]json.RawMessage, path, key string) (float64, error) {
	raw, ok := m[key]
	if !ok {
		return 0, &ProtocolError{Path: path, Msg: fmt.Sprintf("missing %s", key)}
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, &ProtocolError{Path: path, Msg: fmt.Sprintf("%s is not a number", key)}
	}
	return v, nil
}

func parseBoolField(m map[string]json.RawMessage, key string) bool {
	raw, ok := m[key]
	if !ok {
		return false
	}
	var v bool
	_ = json.Unmarshal(raw, &v)
	return v
}

// parseGamepadPayload decodes and validates a gamepad_state payload into
// motion.Payload. left_stick and right_stick are required with both x and
// y present; the *_events/*_states objects are optional and default to
// all-false when absent, matching a client that omits unchanged state.
func parseGamepadPayload(raw json.RawMessage) (motion.Payload, error) {
	var w gamepadWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return motion.Payload{}, &ProtocolError{Path: "payload", Msg: "not a valid gamepad_state object"}
	}
	if w.LeftStick == nil {
		return motion.Payload{}, &ProtocolError{Path: "payload.left_stick", Msg: "missing"}
	}
	if w.RightStick == nil {
		return motion.Payload{}, &ProtocolError{Path: "payload.right_stick", Msg: "missing"}
	}

	lx, err := parseFloatField(w.LeftStick, "payload.left_stick", "x")
	if err != nil {
		return motion.Payload{}, err
	}
	ly, err := parseFloatField(w.LeftStick, "payload.left_stick", "y")
	if err != nil {
		return motion.Payload{}, err
	}
	rx, err := parseFloatField(w.RightStick, "payload.right_stick", "x")
	if err != nil {
		return motion.Payload{}, err
	}
	ry, err := parseFloatField(w.RightStick, "payload.right_stick", "y")
	if err != nil {
		return motion.Payload{}, err
	}

	p := motion.Payload{
		LeftStick:  motion.Stick{X: lx, Y: ly},
		RightStick: motion.Stick{X: rx, Y: ry},
	}
	if w.DPadEvents != nil {
		p.DPadEvents = motion.DPadEvents{
			Up:    parseBoolField(w.DPadEvents, "up"),
			Down:  parseBoolField(w.DPadEvents, "down"),
			Left:  parseBoolField(w.DPadEvents, "left"),
			Right: parseBoolField(w.DPadEvents, "right"),
		}
	}
	if w.ActionButtonEvents != nil {
		p.ActionButtonEvents = motion.ActionButtonEvents{
			A: parseBoolField(w.ActionButtonEvents, "a"),
			B: parseBoolField(w.ActionButtonEvents, "b"),
			X: parseBoolField(w.ActionButtonEvents, "x"),
			Y: parseBoolField(w.ActionButtonEvents, "y"),
		}
	}
	if w.StickButtonStates != nil {
		p.StickButtonStates = motion.StickButtonStates{
			L3Pressed: parseBoolField(w.StickButtonStates, "l3_pressed"),
			R3Pressed: parseBoolField(w.StickButtonStates, "r3_pressed"),
		}
	}
	return p, nil
}
