package motion

import (
	"sync"
	"time"

	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/config"
	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/umebot"
)

// VelocityFunc receives every velocity command the arbiter emits to C6.
// Per spec.md §4.5, emission happens only when any axis changes by more
// than a small epsilon since the last emission.
type VelocityFunc func(Velocity)

// DispatchFunc receives a button dispatch to forward to C4.
type DispatchFunc func(Dispatch)

// EStopFunc is invoked once per rising edge into the emergency-stopped
// state.
type EStopFunc func()

const velocityEpsilon = 0.001

// Arbiter is C5. It owns a single-slot latest-value mailbox for gamepad
// payloads (no payload is ever queued behind an older one), a dead-man
// timer that reverts to idle when payloads stop arriving, and the
// D-pad/action-button edge dispatch described in spec.md §4.5.
//
// Grounded on pkg/orchestrator/managed_stream.go's drainAudioChunks: that
// function always keeps only the freshest buffered value and drops
// anything older under a non-blocking select, which is exactly the
// single-slot mailbox semantics a gamepad stream needs (a stale stick
// position is worse than no position).
type Arbiter struct {
	cfg config.MotionConfig
	log umebot.Logger

	onVelocity VelocityFunc
	onDispatch DispatchFunc
	onEStop    EStopFunc

	layers [][4]Dispatch

	mailbox chan Payload
	stop    chan struct{}
	wg      sync.WaitGroup

	mu            sync.Mutex
	mode          Mode
	speedModifier float64
	layerIndex    int
	lastPayload   Payload
	havePayload   bool
	lastVelocity  Velocity
	lastSeen      time.Time
}

// New constructs an Arbiter. layers is the per-layer action-button
// dispatch table (config.MotionConfig.ButtonDispatch converted to motion
// types); an empty table disables button dispatch entirely.
func New(cfg config.MotionConfig, layers [][4]config.ButtonAction, log umebot.Logger, onVelocity VelocityFunc, onDispatch DispatchFunc, onEStop EStopFunc) *Arbiter {
	if log == nil {
		log = umebot.NoOpLogger{}
	}
	a := &Arbiter{
		cfg:           cfg,
		log:           log,
		onVelocity:    onVelocity,
		onDispatch:    onDispatch,
		onEStop:       onEStop,
		layers:        convertLayers(layers),
		mailbox:       make(chan Payload, 1),
		stop:          make(chan struct{}),
		mode:          ModeIdle,
		speedModifier: clampSpeedModifier(cfg.SpeedModifierStart),
	}
	return a
}

func convertLayers(layers [][4]config.ButtonAction) [][4]Dispatch {
	out := make([][4]Dispatch, len(layers))
	for i, layer := range layers {
		for j, a := range layer {
			out[i][j] = Dispatch{
				Kind:     DispatchKind(a.Kind),
				Category: a.Category,
				Name:     a.Name,
				Tag:      a.Tag,
				Text:     a.Text,
			}
		}
	}
	return out
}

// Submit delivers a freshly sampled gamepad payload. It never blocks: a
// payload already waiting in the mailbox is replaced, never queued behind.
func (a *Arbiter) Submit(p Payload) {
	select {
	case a.mailbox <- p:
	default:
		select {
		case <-a.mailbox:
		default:
		}
		select {
		case a.mailbox <- p:
		default:
		}
	}
}

// Start launches the arbiter's single worker goroutine.
func (a *Arbiter) Start() {
	a.wg.Add(1)
	go a.run()
}

// Stop halts the worker and blocks until it exits.
func (a *Arbiter) Stop() {
	close(a.stop)
	a.wg.Wait()
}

// Mode reports the current arbiter state.
func (a *Arbiter) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

func (a *Arbiter) run() {
	defer a.wg.Done()
	deadManTimeout := a.cfg.DeadManTimeout
	if deadManTimeout <= 0 {
		deadManTimeout = 350 * time.Millisecond
	}
	ticker := time.NewTicker(deadManTimeout / 3)
	defer ticker.Stop()

	for {
		select {
		case <-a.stop:
			return
		case p := <-a.mailbox:
			a.handlePayload(p, deadManTimeout)
		case <-ticker.C:
			a.checkDeadMan(deadManTimeout)
		}
	}
}

func (a *Arbiter) checkDeadMan(timeout time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.mode != ModeGamepad {
		return
	}
	if time.Since(a.lastSeen) < timeout {
		return
	}
	a.mode = ModeIdle
	a.emitVelocityLocked(Velocity{})
	a.log.Info("motion: dead-man timeout, reverting to idle")
}

func (a *Arbiter) handlePayload(p Payload, _ time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()

	bothStickButtons := p.StickButtonStates.L3Pressed && p.StickButtonStates.R3Pressed
	neitherStickButton := !p.StickButtonStates.L3Pressed && !p.StickButtonStates.R3Pressed

	if a.mode == ModeEmergencyStopped {
		if neitherStickButton {
			a.mode = ModeGamepad
			a.lastSeen = time.Now()
			a.processPayloadLocked(p)
		}
		// while estopped, any other payload is dropped silently.
		return
	}

	if bothStickButtons {
		a.mode = ModeEmergencyStopped
		a.emitVelocityLocked(Velocity{})
		if a.onEStop != nil {
			a.onEStop()
		}
		a.log.Warn("motion: emergency stop triggered via gamepad")
		return
	}

	a.mode = ModeGamepad
	a.lastSeen = time.Now()
	a.processPayloadLocked(p)
}

// processPayloadLocked applies D-pad speed/layer edges, action-button
// dispatch, and velocity mapping. Caller must hold a.mu.
func (a *Arbiter) processPayloadLocked(p Payload) {
	var prevDPad DPadEvents
	if a.havePayload {
		prevDPad = a.lastPayload.DPadEvents
	}
	dpadEdge := dpadEdges(prevDPad, p.DPadEvents)
	if delta := dpadSpeedDelta(dpadEdge); delta != 0 {
		a.speedModifier = clampSpeedModifier(a.speedModifier + delta)
	}
	if delta := dpadLayerDelta(dpadEdge); delta != 0 && a.cfg.LayerCount > 0 {
		a.layerIndex = mod(a.layerIndex+delta, a.cfg.LayerCount)
	}

	if len(a.layers) > 0 {
		idx := a.layerIndex
		if idx >= len(a.layers) {
			idx = 0
		}
		var prevEdges ActionButtonEvents
		if a.havePayload {
			prevEdges = a.lastPayload.ActionButtonEvents
		}
		edges := actionButtonEdges(prevEdges, p.ActionButtonEvents)
		if d, ok := dispatchForButton(a.layers[idx], edges); ok && d.Kind != DispatchNone && a.onDispatch != nil {
			a.onDispatch(d)
		}
	}

	v := axisVelocity(p, a.cfg.AxisSigns, a.cfg.DeadZone, a.speedModifier)
	a.emitVelocityLocked(v)

	a.lastPayload = p
	a.havePayload = true
}

func (a *Arbiter) emitVelocityLocked(v Velocity) {
	if v.isZero() && a.lastVelocity.isZero() {
		a.lastVelocity = v
		return
	}
	if !v.differsBy(a.lastVelocity, velocityEpsilon) {
		return
	}
	a.lastVelocity = v
	if a.onVelocity != nil {
		a.onVelocity(v)
	}
}
