// Package motion implements C5, the Motion Arbiter: a state machine over
// {idle, gamepad, emergency_stopped}, a dead-man timer, gamepad→velocity
// mapping, and button→animation dispatch.
//
// Grounded on pkg/orchestrator/managed_stream.go's non-blocking/
// deadline-bounded drain pattern (drainAudioChunks), adapted here into the
// single-slot latest-value mailbox the spec requires for gamepad payloads.
package motion

// Stick is a 2-axis analog stick reading in [-1, 1] per axis.
type Stick struct {
	X, Y float64
}

// DPadEvents captures rising edges observed by the client since its last
// send.
type DPadEvents struct {
	Up, Down, Left, Right bool
}

// ActionButtonEvents captures rising edges for the four face buttons.
type ActionButtonEvents struct {
	A, B, X, Y bool
}

// StickButtonStates is the current (not edge) state of the stick-click
// buttons, used for the emergency-stop gate.
type StickButtonStates struct {
	L3Pressed, R3Pressed bool
}

// Payload is one sampled gamepad_state wire message (spec.md §3). Each
// *Events field is the edge the client observed since its own last send;
// the arbiter derives its own edge detection against the previously
// received payload for the D-pad and action buttons.
type Payload struct {
	LeftStick         Stick
	RightStick        Stick
	DPadEvents        DPadEvents
	ActionButtonEvents ActionButtonEvents
	StickButtonStates StickButtonStates
}

// Mode names the arbiter's current state.
type Mode string

const (
	ModeIdle             Mode = "idle"
	ModeGamepad          Mode = "gamepad"
	ModeEmergencyStopped Mode = "emergency_stopped"
)

// Velocity is one emitted (vx, vy, vtheta) triple.
type Velocity struct {
	VX, VY, VTheta float64
}

func (v Velocity) isZero() bool {
	return v.VX == 0 && v.VY == 0 && v.VTheta == 0
}

func (v Velocity) differsBy(o Velocity, eps float64) bool {
	return diff(v.VX, o.VX) > eps || diff(v.VY, o.VY) > eps || diff(v.VTheta, o.VTheta) > eps
}

func diff(a, b float64) float64 {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d
}

// DispatchKind names the action C5 sends to C4 on a button rising edge.
type DispatchKind string

const (
	DispatchLocalAnim      DispatchKind = "local_anim"
	DispatchStandardTag    DispatchKind = "standard_tag"
	DispatchSpeakAnnotated DispatchKind = "speak_annotated"
	DispatchNone           DispatchKind = "none"
)

// Dispatch is one entry of the per-layer action-button dispatch table.
type Dispatch struct {
	Kind     DispatchKind
	Category string
	Name     string
	Tag      string
	Text     string
}
