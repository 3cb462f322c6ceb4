package tablet

import (
	"encoding/json"
	"testing"

	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/motion"
)

func TestParseGamepadPayload_Valid(t *testing.T) {
	raw := json.RawMessage(`{
		"left_stick": {"x": 0.1, "y": -0.5},
		"right_stick": {"x": 0.2, "y": 0},
		"dpad_events": {"up": true},
		"action_button_events": {"a": true},
		"stick_button_states": {"l3_pressed": true}
	}`)

	p, err := parseGamepadPayload(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.LeftStick.X != 0.1 || p.LeftStick.Y != -0.5 {
		t.Errorf("unexpected left stick: %+v", p.LeftStick)
	}
	if !p.DPadEvents.Up {
		t.Errorf("expected dpad up, got %+v", p.DPadEvents)
	}
	if !p.ActionButtonEvents.A {
		t.Errorf("expected action button A, got %+v", p.ActionButtonEvents)
	}
	if !p.StickButtonStates.L3Pressed {
		t.Errorf("expected l3 pressed, got %+v", p.StickButtonStates)
	}
}

func TestParseGamepadPayload_OptionalSectionsDefaultFalse(t *testing.T) {
	raw := json.RawMessage(`{"left_stick": {"x": 0, "y": 0}, "right_stick": {"x": 0, "y": 0}}`)
	p, err := parseGamepadPayload(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.DPadEvents != (motion.DPadEvents{}) {
		t.Errorf("expected all-false dpad events, got %+v", p.DPadEvents)
	}
}

func TestParseGamepadPayload_MissingLeftStick(t *testing.T) {
	raw := json.RawMessage(`{"right_stick": {"x": 0, "y": 0}}`)
	_, err := parseGamepadPayload(raw)
	assertProtocolError(t, err, "payload.left_stick")
}

func TestParseGamepadPayload_MissingYField(t *testing.T) {
	raw := json.RawMessage(`{"left_stick": {"x": 0}, "right_stick": {"x": 0, "y": 0}}`)
	_, err := parseGamepadPayload(raw)
	assertProtocolError(t, err, "payload.left_stick")
	var perr *ProtocolError
	if pe, ok := err.(*ProtocolError); ok {
		perr = pe
	}
	if perr == nil || perr.Msg != "missing y" {
		t.Errorf("expected 'missing y' message, got %+v", err)
	}
}

func TestParseGamepadPayload_NonNumericAxis(t *testing.T) {
	raw := json.RawMessage(`{"left_stick": {"x": "oops", "y": 0}, "right_stick": {"x": 0, "y": 0}}`)
	_, err := parseGamepadPayload(raw)
	assertProtocolError(t, err, "payload.left_stick")
}

func assertProtocolError(t *testing.T, err error, wantPath string) {
	t.Helper()
	perr, ok := err.(*ProtocolError)
	if !ok {
		t.Fatalf("expected *ProtocolError, got %T (%v)", err, err)
	}
	if perr.Path != wantPath {
		t.Errorf("expected path %q, got %q", wantPath, perr.Path)
	}
}
