package motion

import (
	"math"

	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/config"
)

// applyDeadZone zeroes an axis reading inside (-deadZone, deadZone); a
// reading exactly at ±deadZone passes through.
func applyDeadZone(v, deadZone float64) float64 {
	if math.Abs(v) < deadZone {
		return 0
	}
	return v
}

// axisVelocity maps a gamepad payload to a body-frame velocity using the
// configured axis-sign convention and dead zone, then scales by the current
// speed modifier. Resolves the open question on joystick axis sign
// convention: left_stick.y drives forward/back, left_stick.x drives
// strafe, right_stick.x drives turn-rate, each sign configurable via
// config.AxisSigns (spec.md Open Questions).
func axisVelocity(p Payload, signs config.AxisSigns, deadZone, speedModifier float64) Velocity {
	vx := applyDeadZone(p.LeftStick.Y, deadZone) * float64(signs.ForwardSign)
	vy := applyDeadZone(p.LeftStick.X, deadZone) * float64(signs.StrafeSign)
	vtheta := applyDeadZone(p.RightStick.X, deadZone) * float64(signs.TurnSign)
	return Velocity{
		VX:     vx * speedModifier,
		VY:     vy * speedModifier,
		VTheta: vtheta * speedModifier,
	}
}

// dpadSpeedDelta returns the signed step (in units of 0.1) a D-pad edge
// applies to the speed modifier: up increases, down decreases. Left and
// right do not affect speed (see dpadLayerDelta).
func dpadSpeedDelta(ev DPadEvents) float64 {
	delta := 0.0
	if ev.Up {
		delta += 0.1
	}
	if ev.Down {
		delta -= 0.1
	}
	return delta
}

// dpadLayerDelta returns the signed step a D-pad edge applies to the
// active dispatch-layer index: right advances, left retreats.
func dpadLayerDelta(ev DPadEvents) int {
	delta := 0
	if ev.Right {
		delta++
	}
	if ev.Left {
		delta--
	}
	return delta
}

func clampSpeedModifier(v float64) float64 {
	if v < 0.1 {
		return 0.1
	}
	if v > 1.0 {
		return 1.0
	}
	return v
}

func mod(a, m int) int {
	if m <= 0 {
		return 0
	}
	r := a % m
	if r < 0 {
		r += m
	}
	return r
}

// dpadEdges reports which of the four D-pad directions rose between prev
// and cur, the same rising-edge derivation actionButtonEdges applies to
// the face buttons (spec.md §4.5.1: "Edge-detect D-pad against previously
// stored D-pad").
func dpadEdges(prev, cur DPadEvents) DPadEvents {
	return DPadEvents{
		Up:    !prev.Up && cur.Up,
		Down:  !prev.Down && cur.Down,
		Left:  !prev.Left && cur.Left,
		Right: !prev.Right && cur.Right,
	}
}

// actionButtonEdges reports which of the four action buttons rose between
// prev and cur.
func actionButtonEdges(prev, cur ActionButtonEvents) ActionButtonEvents {
	return ActionButtonEvents{
		A: !prev.A && cur.A,
		B: !prev.B && cur.B,
		X: !prev.X && cur.X,
		Y: !prev.Y && cur.Y,
	}
}

// dispatchForButton looks up the Dispatch entry bound to the first asserted
// edge button in layer, in A,B,X,Y priority order. ok is false only when no
// button rose; an unset entry in layer is returned as is.
func dispatchForButton(layer [4]Dispatch, edges ActionButtonEvents) (Dispatch, bool) {
	switch {
	case edges.A:
		return layer[0], true
	case edges.B:
		return layer[1], true
	case edges.X:
		return layer[2], true
	case edges.Y:
		return layer[3], true
	default:
		return Dispatch{}, false
	}
}
