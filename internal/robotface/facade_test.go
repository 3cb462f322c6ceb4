package robotface

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/umebot"
)

type fakeRPC struct {
	failStep        string
	estopCalled     bool
	interruptCalled bool
	velocities      []float64
	stopBaseCalls   int
	restMotorsCalls int
}

func (f *fakeRPC) WakeMotors(ctx context.Context) error { return f.maybeFail("wake_motors") }
func (f *fakeRPC) RestMotors(ctx context.Context) error {
	f.restMotorsCalls++
	return f.maybeFail("rest_motors")
}
func (f *fakeRPC) DisableAutonomousLife(ctx context.Context) error {
	return f.maybeFail("disable_autonomous_life")
}
func (f *fakeRPC) StopBaseMotion(ctx context.Context) error {
	f.stopBaseCalls++
	return f.maybeFail("stop_base_motion")
}
func (f *fakeRPC) GoToPosture(ctx context.Context, posture string) error {
	return f.maybeFail("go_to_posture")
}
func (f *fakeRPC) EnableExternalCollisionProtection(ctx context.Context) error {
	return f.maybeFail("enable_collision_protection")
}
func (f *fakeRPC) SetBaseVelocities(ctx context.Context, vx, vy, vtheta float64) error {
	f.velocities = append(f.velocities, vx, vy, vtheta)
	return nil
}
func (f *fakeRPC) TriggerEmergencyStop(ctx context.Context) error {
	f.estopCalled = true
	return nil
}
func (f *fakeRPC) InterruptScriptedGesture(ctx context.Context) error {
	f.interruptCalled = true
	return nil
}

func (f *fakeRPC) maybeFail(step string) error {
	if f.failStep == step {
		return errors.New("boom")
	}
	return nil
}

func TestFacade_InitializeFailsFastOnStepError(t *testing.T) {
	rpc := &fakeRPC{failStep: "disable_autonomous_life"}
	f := New(rpc, nil)

	ok, err := f.Initialize(context.Background())
	if ok || err == nil {
		t.Fatalf("expected a failed initialize, got ok=%v err=%v", ok, err)
	}
	if f.IsInitialized() {
		t.Error("expected IsInitialized() to remain false after a failed Initialize")
	}
}

func TestFacade_InitializeRespectsContextCancelDuringStabilization(t *testing.T) {
	rpc := &fakeRPC{}
	f := New(rpc, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancelled before the stabilization wait begins

	start := time.Now()
	ok, err := f.Initialize(ctx)
	if ok || err == nil {
		t.Fatalf("expected Initialize to fail on a cancelled context, got ok=%v err=%v", ok, err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("expected Initialize to return promptly once ctx is cancelled, not wait out the stabilization delay")
	}
}

func TestFacade_SetBaseVelocitiesRequiresInitialization(t *testing.T) {
	rpc := &fakeRPC{}
	f := New(rpc, nil)

	err := f.SetBaseVelocities(context.Background(), 1, 0, 0)
	if !errors.Is(err, umebot.ErrHardwareNotInitialized) {
		t.Fatalf("expected ErrHardwareNotInitialized, got %v", err)
	}
	if len(rpc.velocities) != 0 {
		t.Error("expected no velocity call to reach the RPC before initialization")
	}
}

func TestFacade_TriggerHardwareEmergencyStop_CallsBothRPCs(t *testing.T) {
	rpc := &fakeRPC{}
	f := New(rpc, nil)

	f.TriggerHardwareEmergencyStop(context.Background())

	if !rpc.estopCalled || !rpc.interruptCalled {
		t.Errorf("expected both estop and interrupt RPCs to be called, got estop=%v interrupt=%v", rpc.estopCalled, rpc.interruptCalled)
	}
}

func TestFacade_ReleaseIsNoopWhenNeverInitialized(t *testing.T) {
	rpc := &fakeRPC{}
	f := New(rpc, nil)
	f.Release(context.Background())
	if rpc.stopBaseCalls != 0 || rpc.restMotorsCalls != 0 {
		t.Error("expected Release to be a no-op before Initialize ever succeeded")
	}
}
