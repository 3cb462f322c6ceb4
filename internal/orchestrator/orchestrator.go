// Package orchestrator implements C8: the composition root that wires
// every other component together, owns the global busy interlock, and
// drives startup/shutdown sequencing.
//
// Grounded on pkg/orchestrator/orchestrator.go's role as the single
// top-level wiring point, and on managed_stream.go's busy/barge-in
// bookkeeping (the "pause recognition while speaking" pattern), adapted
// here into the spec's explicit 5-step process_input interlock.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/audiosrc"
	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/conversation"
	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/discovery"
	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/expression"
	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/motion"
	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/recognition"
	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/robotface"
	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/tablet"
	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/umebot"
	"golang.org/x/sync/errgroup"

	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/config"
)

var tagPattern = regexp.MustCompile(`\s*\^(run|start|wait)Tag\([^)]*\)\s*`)

// stripTags removes inline animation-tag tokens for GUI display, per
// spec.md §4.8 ("Tag stripping"). The original annotated string is what
// the robot actually speaks.
func stripTags(annotated string) string {
	stripped := tagPattern.ReplaceAllString(annotated, " ")
	return strings.Join(strings.Fields(stripped), " ")
}

// Dependencies are the out-of-scope external collaborators named in
// spec.md §1: the robot RPC binding and the robot's speech/animation
// services. The orchestrator only composes against these interfaces.
type Dependencies struct {
	RobotRPC      robotface.RPC
	ExpressionRPC expression.RPC
}

// Orchestrator is C8.
type Orchestrator struct {
	cfg *config.Config
	log umebot.Logger

	store      *conversation.GormStore
	expr       *expression.Controller
	tabletGW   *tablet.Gateway
	audio      *audiosrc.Multiplexer
	pipeline   *recognition.Pipeline
	conv       *conversation.Core
	motionArb  *motion.Arbiter
	hw         *robotface.Facade
	advertiser *discovery.Advertiser

	availablePersonalities []string

	workers *errgroup.Group

	mu                sync.Mutex
	busyAvailable     bool
	recognitionPaused bool
	robotAudioAllowed bool
	gamepadActive     bool
}

// New composes every component in dependency order (persistence, C4, C7,
// C1, C6, C3, C2, C5) and installs the inter-component callbacks described
// in spec.md §4.8. Nothing is started yet; call Start.
func New(cfg *config.Config, deps Dependencies, log umebot.Logger) (*Orchestrator, error) {
	if log == nil {
		log = umebot.NoOpLogger{}
	}

	store, err := conversation.OpenGormStore(cfg.Server.PersistDSN)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: open persistence: %w", err)
	}

	expr := expression.New(deps.ExpressionRPC, cfg.Expression.AnimationCatalogueDir)
	tabletGW := tablet.New(log)
	audioMux := audiosrc.New(cfg.Audio, log)
	hw := robotface.New(deps.RobotRPC, log)

	var catalogue *conversation.PersonalityCatalogue
	var availablePersonalities []string
	if cfg.Conversation.PersonalityCataloguePath != "" {
		data, err := os.ReadFile(cfg.Conversation.PersonalityCataloguePath)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: read personality catalogue: %w", err)
		}
		catalogue, err = conversation.ParsePersonalityCatalogue(data)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: parse personality catalogue: %w", err)
		}
		availablePersonalities = catalogue.Keys()
	}
	knowledge, err := conversation.LoadKnowledgeBaseFile(cfg.Conversation.KnowledgeBasePath)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: load knowledge base: %w", err)
	}

	convCore := conversation.New(store, catalogue, knowledge, cfg.Conversation.RobotName, cfg.Conversation.MaxContextMessages, log)
	if cfg.Conversation.InitialPersonalityKey != "" {
		convCore.SetPersonality(cfg.Conversation.InitialPersonalityKey)
	}

	o := &Orchestrator{
		cfg:                    cfg,
		log:                    log,
		store:                  store,
		expr:                   expr,
		tabletGW:               tabletGW,
		audio:                  audioMux,
		conv:                   convCore,
		hw:                     hw,
		availablePersonalities: availablePersonalities,
		workers:                &errgroup.Group{},
		busyAvailable:          true,
	}

	if backend, err := buildBackendForTag(cfg, umebot.BackendTag(cfg.Conversation.InitialBackend)); err == nil && backend != nil {
		convCore.SetBackend(umebot.BackendTag(cfg.Conversation.InitialBackend), backend)
	} else if err != nil {
		o.log.Warn("orchestrator: initial backend unavailable", "err", err)
	}

	var vad recognition.VAD
	if cfg.Recognition.VADEnabled {
		vad = recognition.NewRMSVAD(cfg.Recognition.VADThreshold, cfg.Recognition.SilenceTimeout, cfg.Recognition.VADAggressiveness)
	}
	rec := recognition.NewRecognizerFromConfig(cfg.Recognition, cfg.Audio.TargetSampleRate)
	o.pipeline = recognition.New(
		recognition.Config{
			SampleRate:           cfg.Audio.TargetSampleRate,
			FrameMillis:          cfg.Recognition.FrameMillis,
			SilenceTimeout:       cfg.Recognition.SilenceTimeout,
			NoVADSilenceMultiple: cfg.Recognition.NoVADSilenceMultiple,
		},
		rec, vad, log,
		o.handlePartial, o.handleFinal, o.handleSpeechState,
	)

	o.motionArb = motion.New(cfg.Motion, cfg.Motion.ButtonDispatch, log, o.handleVelocity, o.handleDispatch, o.handleGamepadEStopTriggered)

	o.wireTablet()

	if cfg.Discovery.AdvertiseServiceType != "" {
		o.advertiser = discovery.NewAdvertiser(cfg.Discovery.AdvertiseServiceType, cfg.Tablet.ListenAddr, log)
	}

	return o, nil
}

func (o *Orchestrator) wireTablet() {
	o.tabletGW.OnClientConnected(o.handleClientConnected)
	o.tabletGW.OnInput(func(clientID string, p tablet.InputPayload) {
		o.processInput(context.Background(), p.Text, umebot.InputSource(p.Source), p.Images)
	})
	o.tabletGW.OnConfig(o.handleConfigFrame)
	o.tabletGW.OnGamepadPayload(o.motionArb.Submit)
	o.tabletGW.OnGamepadEStop(o.handleGamepadEStopTriggered)
}

// Start performs the spec's (a)-(f) startup sequencing.
func (o *Orchestrator) Start(ctx context.Context) error {
	// (a) open the robot audio permission gate iff initial STT source is robot.
	if o.cfg.Audio.InitialSource == "robot" {
		o.audio.SetPermission(true)
		o.robotAudioAllowed = true
	}

	// (b) start the tablet server.
	if err := o.tabletGW.Start(o.cfg.Tablet.ListenAddr); err != nil {
		return fmt.Errorf("orchestrator: start tablet gateway: %w", err)
	}
	if o.advertiser != nil {
		if err := o.advertiser.Start(); err != nil {
			o.log.Warn("orchestrator: discovery advertiser failed to start", "err", err)
		}
	}

	// (c) start audio ingestion workers if enabled.
	if o.cfg.Audio.InitialSource != "none" {
		if err := o.audio.Start(); err != nil {
			o.log.Warn("orchestrator: audio source start failed", "err", err)
		}
		o.workers.Go(o.pumpAudio)
	}

	// (d) start recognition.
	o.pipeline.Start()

	// (e) initialize the motion arbiter.
	if _, err := o.hw.Initialize(ctx); err != nil {
		o.log.Error("orchestrator: hardware initialize failed", "err", err)
	}
	o.motionArb.Start()

	// (f) optionally activate gamepad control; the arbiter accepts payloads
	// as soon as it is started, so "activation" here is just bookkeeping.
	o.gamepadActive = true

	return nil
}

// Stop reverses startup strictly; each step tolerates an already-stopped
// subcomponent.
func (o *Orchestrator) Stop() {
	o.motionArb.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	o.hw.Release(ctx)
	o.pipeline.Stop()
	o.audio.Stop()
	if err := o.workers.Wait(); err != nil {
		o.log.Warn("orchestrator: background worker returned an error", "err", err)
	}
	if o.advertiser != nil {
		o.advertiser.Stop()
	}
	o.tabletGW.Stop()
}

// pumpAudio forwards chunks from C1's output to C2's input until Stop
// closes the audio multiplexer's output channel. Run under o.workers so
// Stop can join it before releasing downstream components.
func (o *Orchestrator) pumpAudio() error {
	for chunk := range o.audio.Output() {
		o.pipeline.Input() <- chunk
	}
	return nil
}

func (o *Orchestrator) handlePartial(text string) {
	_ = o.tabletGW.BroadcastFrame("partial_stt_result", tablet.PartialSTTPayload{Text: text, IsFinal: false})
}

func (o *Orchestrator) handleFinal(text string) {
	o.mu.Lock()
	available := o.busyAvailable
	o.mu.Unlock()
	if !available {
		_ = o.tabletGW.BroadcastFrame("system", tablet.SystemPayload{Sender: "orchestrator", Level: tablet.SystemInfo, Text: "dropped recognized speech: busy"})
		return
	}
	o.processInput(context.Background(), text, umebot.SourceSTTAuto, nil)
}

func (o *Orchestrator) handleSpeechState(speaking bool) {
	if !speaking {
		return
	}
	o.mu.Lock()
	busy := !o.busyAvailable
	o.mu.Unlock()
	if busy && !o.expr.IsSpeaking() {
		_ = o.expr.Say(context.Background(), "^runTag(wait) Un momento, por favor.", false)
	}
}

func (o *Orchestrator) handleClientConnected(clientID string) {
	snapshot := tablet.SettingsSnapshot{
		STTAudioSource:         string(o.audio.GetSource()),
		AIPersonality:          o.conv.CurrentPersonalityKey(),
		AIModelBackend:         string(o.conv.CurrentBackendTag()),
		AvailablePersonalities: o.availablePersonalities,
		AvailableAIBackends:    []string{string(umebot.BackendCloud), string(umebot.BackendLocal), string(umebot.BackendNone)},
	}
	_ = o.tabletGW.SendFrameTo(clientID, "currentConfiguration", tablet.CurrentConfigurationPayload{Settings: snapshot})
}

func (o *Orchestrator) handleConfigFrame(clientID string, p tablet.ConfigPayload) {
	var value string
	_ = jsonUnmarshalString(p.Value, &value)

	success := true
	var current string
	switch p.ConfigItem {
	case "stt_audio_source":
		if err := o.audio.SetSource(audiosrc.Source(value)); err != nil {
			success = false
		}
		o.pipeline.NotifySourceChange()
		current = string(o.audio.GetSource())
	case "ai_personality":
		success = o.conv.SetPersonality(value)
		current = o.conv.CurrentPersonalityKey()
	case "ai_model_backend":
		backend, err := buildBackendForTag(o.cfg, umebot.BackendTag(value))
		if err != nil {
			success = false
		} else {
			success = o.conv.SetBackend(umebot.BackendTag(value), backend)
		}
		current = string(o.conv.CurrentBackendTag())
	default:
		success = false
	}

	msg := "applied"
	if !success {
		msg = "failed to apply " + p.ConfigItem
	}
	_ = o.tabletGW.BroadcastFrame("config_confirmation", tablet.ConfigConfirmationPayload{
		ConfigItem: p.ConfigItem, Success: success, CurrentValue: current, MessageToDisplay: msg,
	})
}

func (o *Orchestrator) handleVelocity(v motion.Velocity) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := o.hw.SetBaseVelocities(ctx, v.VX, v.VY, v.VTheta); err != nil {
		o.log.Warn("orchestrator: set base velocities failed", "err", err)
	}
}

func (o *Orchestrator) handleDispatch(d motion.Dispatch) {
	ctx := context.Background()
	switch d.Kind {
	case motion.DispatchLocalAnim:
		_ = o.expr.PlayLocalAnimation(ctx, d.Category, d.Name, false)
	case motion.DispatchStandardTag:
		_ = o.expr.PlayStandardTag(ctx, d.Tag, false)
	case motion.DispatchSpeakAnnotated:
		_ = o.expr.Say(ctx, d.Text, false)
	}
}

func (o *Orchestrator) handleGamepadEStopTriggered() {
	o.hw.TriggerHardwareEmergencyStop(context.Background())
}

// processInput implements the busy interlock's 5 steps.
func (o *Orchestrator) processInput(ctx context.Context, text string, source umebot.InputSource, images []string) {
	o.mu.Lock()
	if !o.busyAvailable {
		o.mu.Unlock()
		_ = o.tabletGW.BroadcastFrame("system", tablet.SystemPayload{Sender: "orchestrator", Level: tablet.SystemInfo, Text: "busy, input dropped"})
		return
	}

	pausedRecognition := false
	if o.robotAudioAllowed || o.cfg.Audio.InitialSource != "none" {
		o.pipeline.Pause()
		pausedRecognition = true
	}
	o.busyAvailable = false
	o.recognitionPaused = pausedRecognition
	o.mu.Unlock()

	annotated := o.conv.GetResponse(ctx, text, source, images)
	stripped := stripTags(annotated)
	_ = o.tabletGW.BroadcastFrame("output", tablet.OutputPayload{Sender: "robot", Text: stripped, OriginalInputSource: string(source)})
	_ = o.expr.Say(ctx, annotated, true)

	o.mu.Lock()
	if o.recognitionPaused {
		o.pipeline.Resume()
	}
	o.busyAvailable = true
	o.recognitionPaused = false
	o.mu.Unlock()
}

func buildBackendForTag(cfg *config.Config, tag umebot.BackendTag) (conversation.Backend, error) {
	bc := umebot.BackendConfig{
		Tag:         tag,
		APIKey:      cfg.Conversation.CloudAPIKey,
		ModelName:   cfg.Conversation.CloudModelName,
		ModelPath:   cfg.Conversation.LocalModelPath,
		ContextSize: cfg.Conversation.LocalContextSz,
		ChatFormat:  cfg.Conversation.LocalChatFormat,
	}
	return conversation.BuildBackend(bc)
}

func jsonUnmarshalString(raw []byte, out *string) error {
	if len(raw) == 0 {
		return nil
	}
	// value may arrive as a bare JSON string or a quoted primitive; strip
	// surrounding quotes when present rather than pulling in a generic
	// decoder for this one config-value shape.
	s := strings.TrimSpace(string(raw))
	s = strings.Trim(s, `"`)
	*out = s
	return nil
}
