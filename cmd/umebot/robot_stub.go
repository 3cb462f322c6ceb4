package main

import (
	"context"

	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/umebot"
)

// The robot RPC binding and the robot's speech/animation services are
// explicitly out of scope per spec.md §1 ("assumed to expose the methods
// §4.6 calls"). loggingRobotRPC and loggingExpressionRPC satisfy those
// interfaces by logging every call instead of reaching a real robot,
// so this binary composes and runs standalone until a real binding is
// wired in at this same seam.

type loggingRobotRPC struct {
	log umebot.Logger
}

func newLoggingRobotRPC(log umebot.Logger) *loggingRobotRPC { return &loggingRobotRPC{log: log} }

func (r *loggingRobotRPC) WakeMotors(ctx context.Context) error {
	r.log.Info("robot rpc: wake_motors")
	return nil
}
func (r *loggingRobotRPC) RestMotors(ctx context.Context) error {
	r.log.Info("robot rpc: rest_motors")
	return nil
}
func (r *loggingRobotRPC) DisableAutonomousLife(ctx context.Context) error {
	r.log.Info("robot rpc: disable_autonomous_life")
	return nil
}
func (r *loggingRobotRPC) StopBaseMotion(ctx context.Context) error {
	r.log.Info("robot rpc: stop_base_motion")
	return nil
}
func (r *loggingRobotRPC) GoToPosture(ctx context.Context, posture string) error {
	r.log.Info("robot rpc: go_to_posture", "posture", posture)
	return nil
}
func (r *loggingRobotRPC) EnableExternalCollisionProtection(ctx context.Context) error {
	r.log.Info("robot rpc: enable_external_collision_protection")
	return nil
}
func (r *loggingRobotRPC) SetBaseVelocities(ctx context.Context, vx, vy, vtheta float64) error {
	r.log.Debug("robot rpc: set_base_velocities", "vx", vx, "vy", vy, "vtheta", vtheta)
	return nil
}
func (r *loggingRobotRPC) TriggerEmergencyStop(ctx context.Context) error {
	r.log.Warn("robot rpc: trigger_emergency_stop")
	return nil
}
func (r *loggingRobotRPC) InterruptScriptedGesture(ctx context.Context) error {
	r.log.Warn("robot rpc: interrupt_scripted_gesture")
	return nil
}

type loggingExpressionRPC struct {
	log umebot.Logger
}

func newLoggingExpressionRPC(log umebot.Logger) *loggingExpressionRPC {
	return &loggingExpressionRPC{log: log}
}

func (r *loggingExpressionRPC) Say(ctx context.Context, annotatedText string) error {
	r.log.Info("expression rpc: say", "text", annotatedText)
	return nil
}
func (r *loggingExpressionRPC) PlayLocalAnimation(ctx context.Context, path string) error {
	r.log.Info("expression rpc: play_local_animation", "path", path)
	return nil
}
func (r *loggingExpressionRPC) PlayStandardTag(ctx context.Context, tag string) error {
	r.log.Info("expression rpc: play_standard_tag", "tag", tag)
	return nil
}
func (r *loggingExpressionRPC) StopAllSpeech(ctx context.Context) error {
	r.log.Info("expression rpc: stop_all_speech")
	return nil
}
