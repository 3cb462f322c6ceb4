package motion

import (
	"testing"
	"time"

	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/config"
)

func testCfg() config.MotionConfig {
	return config.MotionConfig{
		DeadZone:           0.1,
		DeadManTimeout:     60 * time.Millisecond,
		SpeedModifierStart: 1.0,
		LayerCount:         2,
		AxisSigns:          config.DefaultAxisSigns(),
	}
}

func waitVelocity(t *testing.T, ch <-chan Velocity, timeout time.Duration) (Velocity, bool) {
	t.Helper()
	select {
	case v := <-ch:
		return v, true
	case <-time.After(timeout):
		return Velocity{}, false
	}
}

func newTestArbiter(cfg config.MotionConfig, layers [][4]config.ButtonAction) (*Arbiter, chan Velocity, chan Dispatch, chan struct{}) {
	velocities := make(chan Velocity, 16)
	dispatches := make(chan Dispatch, 16)
	estops := make(chan struct{}, 16)
	a := New(cfg, layers, nil,
		func(v Velocity) { velocities <- v },
		func(d Dispatch) { dispatches <- d },
		func() { estops <- struct{}{} },
	)
	return a, velocities, dispatches, estops
}

func TestArbiter_EmitsVelocityOnStickMotion(t *testing.T) {
	a, velocities, _, _ := newTestArbiter(testCfg(), nil)
	a.Start()
	defer a.Stop()

	a.Submit(Payload{LeftStick: Stick{X: 0, Y: 0.5}})

	v, ok := waitVelocity(t, velocities, time.Second)
	if !ok {
		t.Fatal("expected a velocity emission for a non-zero stick")
	}
	if v.VX <= 0 {
		t.Errorf("expected positive forward velocity, got %+v", v)
	}
}

// Invariant: no non-zero velocity is ever emitted while emergency_stopped.
func TestArbiter_NoVelocityWhileEmergencyStopped(t *testing.T) {
	a, velocities, _, estops := newTestArbiter(testCfg(), nil)
	a.Start()
	defer a.Stop()

	a.Submit(Payload{StickButtonStates: StickButtonStates{L3Pressed: true, R3Pressed: true}})
	select {
	case <-estops:
	case <-time.After(time.Second):
		t.Fatal("expected an e-stop callback on L3+R3")
	}

	if a.Mode() != ModeEmergencyStopped {
		t.Fatalf("expected emergency_stopped mode, got %v", a.Mode())
	}

	// Drain the zero-velocity emission from the e-stop itself, then confirm
	// a stick deflection while still e-stopped produces nothing further.
	waitVelocity(t, velocities, 200*time.Millisecond)

	a.Submit(Payload{
		LeftStick:         Stick{X: 0, Y: 0.9},
		StickButtonStates: StickButtonStates{L3Pressed: true, R3Pressed: true},
	})
	if v, ok := waitVelocity(t, velocities, 150*time.Millisecond); ok {
		t.Errorf("expected no velocity while emergency_stopped, got %+v", v)
	}
}

// Both L3 and R3 releasing together recovers from e-stop and re-processes
// the same payload's stick data, per spec.md §4.5's both-pressed/
// both-released edges.
func TestArbiter_RecoversFromEmergencyStopOnBothRelease(t *testing.T) {
	a, velocities, _, estops := newTestArbiter(testCfg(), nil)
	a.Start()
	defer a.Stop()

	a.Submit(Payload{StickButtonStates: StickButtonStates{L3Pressed: true, R3Pressed: true}})
	select {
	case <-estops:
	case <-time.After(time.Second):
		t.Fatal("expected an e-stop callback")
	}
	waitVelocity(t, velocities, 200*time.Millisecond)

	a.Submit(Payload{LeftStick: Stick{X: 0, Y: 0.5}})

	v, ok := waitVelocity(t, velocities, time.Second)
	if !ok {
		t.Fatal("expected velocity emission after recovering from emergency stop")
	}
	if v.VX <= 0 {
		t.Errorf("expected positive forward velocity after recovery, got %+v", v)
	}
	if a.Mode() != ModeGamepad {
		t.Fatalf("expected gamepad mode after recovery, got %v", a.Mode())
	}
}

// Boundary: the dead-man timer reverts to idle and zero velocity within the
// configured window (here 60ms) of payloads stopping.
func TestArbiter_DeadManTimeoutRevertsToIdle(t *testing.T) {
	a, velocities, _, _ := newTestArbiter(testCfg(), nil)
	a.Start()
	defer a.Stop()

	a.Submit(Payload{LeftStick: Stick{X: 0, Y: 0.5}})
	if _, ok := waitVelocity(t, velocities, time.Second); !ok {
		t.Fatal("expected initial velocity emission")
	}

	if _, ok := waitVelocity(t, velocities, 300*time.Millisecond); !ok {
		t.Fatal("expected a zero-velocity emission from the dead-man timeout")
	}
	if a.Mode() != ModeIdle {
		t.Fatalf("expected idle mode after dead-man timeout, got %v", a.Mode())
	}
}

func TestArbiter_ButtonDispatchFiresOnRisingEdgeOnly(t *testing.T) {
	layers := [][4]config.ButtonAction{
		{
			{Kind: "local_anim", Category: "greetings", Name: "wave"},
			{Kind: "none"},
			{Kind: "none"},
			{Kind: "none"},
		},
	}
	a, _, dispatches, _ := newTestArbiter(testCfg(), layers)
	a.Start()
	defer a.Stop()

	a.Submit(Payload{ActionButtonEvents: ActionButtonEvents{A: true}})
	select {
	case d := <-dispatches:
		if d.Kind != DispatchLocalAnim || d.Name != "wave" {
			t.Errorf("unexpected dispatch: %+v", d)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a dispatch on A's rising edge")
	}

	// Holding A (no new edge) must not re-fire the dispatch.
	a.Submit(Payload{ActionButtonEvents: ActionButtonEvents{A: true}})
	select {
	case d := <-dispatches:
		t.Errorf("unexpected repeat dispatch while A is held: %+v", d)
	case <-time.After(150 * time.Millisecond):
	}
}

// Boundary: a D-pad direction held across consecutive payloads (or any
// duplicate/retransmitted payload) must step the speed modifier only on
// its rising edge, the same guarantee TestArbiter_ButtonDispatchFiresOnRisingEdgeOnly
// gives the action buttons.
func TestArbiter_DPadSpeedStepsOnRisingEdgeOnly(t *testing.T) {
	// A long dead-man timeout keeps its periodic zero-velocity revert from
	// firing during the assertion window below and being mistaken for a
	// second D-pad-driven emission.
	cfg := testCfg()
	cfg.DeadManTimeout = 5 * time.Second
	a, velocities, _, _ := newTestArbiter(cfg, nil)
	a.Start()
	defer a.Stop()

	payload := Payload{LeftStick: Stick{X: 0, Y: 0.5}, DPadEvents: DPadEvents{Down: true}}

	a.Submit(payload)
	v1, ok := waitVelocity(t, velocities, time.Second)
	if !ok {
		t.Fatal("expected a velocity emission after the first payload")
	}

	// Same D-pad-held, same sticks: the speed modifier must not step a
	// second time, so the scaled velocity is unchanged and nothing new is
	// emitted.
	a.Submit(payload)
	if v2, ok := waitVelocity(t, velocities, 150*time.Millisecond); ok {
		t.Errorf("unexpected second velocity emission while Down is held (speed modifier re-stepped): got %+v, first was %+v", v2, v1)
	}
}

func TestDPadSpeedAndLayerDeltas(t *testing.T) {
	if got := dpadSpeedDelta(DPadEvents{Up: true}); got != 0.1 {
		t.Errorf("dpadSpeedDelta(up) = %v, want 0.1", got)
	}
	if got := dpadSpeedDelta(DPadEvents{Down: true}); got != -0.1 {
		t.Errorf("dpadSpeedDelta(down) = %v, want -0.1", got)
	}
	if got := dpadLayerDelta(DPadEvents{Right: true}); got != 1 {
		t.Errorf("dpadLayerDelta(right) = %v, want 1", got)
	}
	if got := clampSpeedModifier(1.5); got != 1.0 {
		t.Errorf("clampSpeedModifier(1.5) = %v, want 1.0", got)
	}
	if got := clampSpeedModifier(-1); got != 0.1 {
		t.Errorf("clampSpeedModifier(-1) = %v, want 0.1", got)
	}
	if got := mod(-1, 3); got != 2 {
		t.Errorf("mod(-1, 3) = %v, want 2", got)
	}
}

func TestApplyDeadZone(t *testing.T) {
	if got := applyDeadZone(0.05, 0.1); got != 0 {
		t.Errorf("applyDeadZone(0.05, 0.1) = %v, want 0", got)
	}
	if got := applyDeadZone(0.5, 0.1); got != 0.5 {
		t.Errorf("applyDeadZone(0.5, 0.1) = %v, want 0.5", got)
	}
}
