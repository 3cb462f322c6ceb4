// Package robotface implements C6, the Robot Hardware Facade: the
// narrow interface the orchestration fabric calls against the robot's own
// RPC binding, which is explicitly out of scope per spec.md §1 ("The
// robot RPC binding itself ... assumed to expose the methods §4.6 calls").
package robotface

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/umebot"
)

// RPC is the narrow robot-RPC surface this facade drives. A real
// deployment supplies an implementation that talks to the robot's own
// services (motion, posture, collision protection, estop); this module
// only composes against the interface.
type RPC interface {
	WakeMotors(ctx context.Context) error
	RestMotors(ctx context.Context) error
	DisableAutonomousLife(ctx context.Context) error
	StopBaseMotion(ctx context.Context) error
	GoToPosture(ctx context.Context, posture string) error
	EnableExternalCollisionProtection(ctx context.Context) error
	SetBaseVelocities(ctx context.Context, vx, vy, vtheta float64) error
	TriggerEmergencyStop(ctx context.Context) error
	InterruptScriptedGesture(ctx context.Context) error
}

// Facade is C6.
type Facade struct {
	rpc RPC
	log umebot.Logger

	mu          sync.Mutex
	initialized bool
}

// New constructs a Facade over rpc.
func New(rpc RPC, log umebot.Logger) *Facade {
	if log == nil {
		log = umebot.NoOpLogger{}
	}
	return &Facade{rpc: rpc, log: log}
}

// Initialize wakes motors, disables autonomous life, stops any active base
// motion, drives to a canonical standing posture, waits for physical
// stabilization, and enables external collision protection.
func (f *Facade) Initialize(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"wake_motors", f.rpc.WakeMotors},
		{"disable_autonomous_life", f.rpc.DisableAutonomousLife},
		{"stop_base_motion", f.rpc.StopBaseMotion},
		{"go_to_standing_posture", func(ctx context.Context) error { return f.rpc.GoToPosture(ctx, "Stand") }},
	}
	for _, step := range steps {
		if err := step.fn(ctx); err != nil {
			f.log.Error("robotface: initialize step failed", "step", step.name, "err", err)
			return false, fmt.Errorf("robotface: %s: %w", step.name, err)
		}
	}

	select {
	case <-time.After(2500 * time.Millisecond):
	case <-ctx.Done():
		return false, ctx.Err()
	}

	if err := f.rpc.EnableExternalCollisionProtection(ctx); err != nil {
		f.log.Error("robotface: enable collision protection failed", "err", err)
		return false, fmt.Errorf("robotface: enable_collision_protection: %w", err)
	}

	f.initialized = true
	return true, nil
}

// Release stops motion and rests motors.
func (f *Facade) Release(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.initialized {
		return
	}
	if err := f.rpc.StopBaseMotion(ctx); err != nil {
		f.log.Warn("robotface: release stop_base_motion failed", "err", err)
	}
	if err := f.rpc.RestMotors(ctx); err != nil {
		f.log.Warn("robotface: release rest_motors failed", "err", err)
	}
	f.initialized = false
}

// SetBaseVelocities passes a velocity command through to the robot.
func (f *Facade) SetBaseVelocities(ctx context.Context, vx, vy, vtheta float64) error {
	if !f.IsInitialized() {
		return umebot.ErrHardwareNotInitialized
	}
	return f.rpc.SetBaseVelocities(ctx, vx, vy, vtheta)
}

// TriggerHardwareEmergencyStop calls the robot's immediate stop and
// interrupts any in-progress scripted gesture. Safety-critical per
// spec.md §7: no retry, no exception propagation to the caller beyond a
// log line.
func (f *Facade) TriggerHardwareEmergencyStop(ctx context.Context) {
	if err := f.rpc.TriggerEmergencyStop(ctx); err != nil {
		f.log.Error("robotface: emergency stop call failed", "err", err)
	}
	if err := f.rpc.InterruptScriptedGesture(ctx); err != nil {
		f.log.Error("robotface: interrupt scripted gesture failed", "err", err)
	}
}

// IsInitialized reports whether Initialize has completed successfully.
func (f *Facade) IsInitialized() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.initialized
}
