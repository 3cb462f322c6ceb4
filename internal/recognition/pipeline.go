package recognition

import (
	"sync"
	"time"

	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/umebot"
)

// PartialFunc receives a lossy in-progress transcript.
type PartialFunc func(text string)

// FinalFunc receives a committed transcript for one segment. An empty
// final is suppressed before this is called (spec.md §3: "A final with
// empty text is suppressed").
type FinalFunc func(text string)

// SpeechStateFunc receives is_speaking transitions.
type SpeechStateFunc func(speaking bool)

// Config configures one Pipeline.
type Config struct {
	SampleRate           int
	FrameMillis          int
	SilenceTimeout       time.Duration
	NoVADSilenceMultiple float64
}

// Pipeline is C2. It owns one dedicated worker goroutine that is the sole
// caller of Recognizer and VAD methods — the spec's "single-threaded
// cooperative with respect to recognizer state" thread model.
type Pipeline struct {
	cfg    Config
	vad    VAD // nil is a valid "VAD not available" configuration
	rec    Recognizer
	log    umebot.Logger
	frameBytes int

	onPartial PartialFunc
	onFinal   FinalFunc
	onSpeech  SpeechStateFunc

	in      chan umebot.AudioChunk
	control chan controlMsg
	done    chan struct{}
	wg      sync.WaitGroup

	startOnce sync.Once
}

type controlKind int

const (
	ctrlSourceSwitch controlKind = iota
	ctrlStop
	ctrlPause
	ctrlResume
)

type controlMsg struct {
	kind controlKind
}

// New constructs a Pipeline. rec must not be nil; vad may be nil, which
// disables VAD-driven finalization in favor of the 1.5x-timeout fallback.
func New(cfg Config, rec Recognizer, vad VAD, log umebot.Logger, onPartial PartialFunc, onFinal FinalFunc, onSpeech SpeechStateFunc) *Pipeline {
	if log == nil {
		log = umebot.NoOpLogger{}
	}
	frameBytes := cfg.SampleRate * cfg.FrameMillis / 1000 * 2
	if frameBytes <= 0 {
		frameBytes = 640 // 20ms @ 16kHz, mono, 16-bit
	}
	return &Pipeline{
		cfg:        cfg,
		vad:        vad,
		rec:        rec,
		log:        log,
		frameBytes: frameBytes,
		onPartial:  onPartial,
		onFinal:    onFinal,
		onSpeech:   onSpeech,
		in:         make(chan umebot.AudioChunk, 256),
		control:    make(chan controlMsg, 4),
		done:       make(chan struct{}),
	}
}

// Input returns the channel the audio source multiplexer's output should
// be forwarded onto (or fed directly, if the caller wires C1's Output()
// channel straight into this one).
func (p *Pipeline) Input() chan<- umebot.AudioChunk { return p.in }

// Start launches the worker. It is idempotent: every call after the first
// is a no-op, so a Pipeline is started at most once.
func (p *Pipeline) Start() {
	p.startOnce.Do(func() {
		p.wg.Add(1)
		go p.run()
	})
}

// Stop is idempotent.
func (p *Pipeline) Stop() {
	select {
	case p.control <- controlMsg{kind: ctrlStop}:
	default:
	}
	p.wg.Wait()
}

// NotifySourceChange is C2's external source-change signal (distinct from
// C1's own drain-then-switch): it finalizes the current utterance, clears
// the frame buffer, resets the recognizer, and clears currently_speaking.
func (p *Pipeline) NotifySourceChange() {
	select {
	case p.control <- controlMsg{kind: ctrlSourceSwitch}:
	case <-p.done:
	}
}

// Pause suspends chunk processing: incoming audio is dropped without
// being fed to the VAD or recognizer, so a source carrying only the
// robot's own voice (e.g. the local mic while C4 is speaking) produces no
// partials, finals, or speech-state callbacks until Resume. The orchestrator's
// busy interlock calls this for its step 2 ("pause recognition to prevent
// self-hearing"), distinct from NotifySourceChange's finalize-and-reset.
func (p *Pipeline) Pause() {
	select {
	case p.control <- controlMsg{kind: ctrlPause}:
	case <-p.done:
	}
}

// Resume reverses Pause, resuming normal chunk processing.
func (p *Pipeline) Resume() {
	select {
	case p.control <- controlMsg{kind: ctrlResume}:
	case <-p.done:
	}
}

func (p *Pipeline) run() {
	defer p.wg.Done()

	var frameBuf []byte
	var currentlySpeaking bool
	var lastVoiceInstant time.Time
	var lastAudioInstant time.Time
	var lastPartial string
	var partialCleared = true
	var paused bool

	checkInterval := 50 * time.Millisecond
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()

	emitSpeechState := func(speaking bool) {
		if speaking == currentlySpeaking {
			return
		}
		currentlySpeaking = speaking
		if p.onSpeech != nil {
			p.onSpeech(speaking)
		}
	}

	emitPartial := func(text string) {
		if text == "" {
			if partialCleared {
				return
			}
			partialCleared = true
			lastPartial = ""
			if p.onPartial != nil {
				p.onPartial("")
			}
			return
		}
		if text == lastPartial {
			return
		}
		lastPartial = text
		partialCleared = false
		if p.onPartial != nil {
			p.onPartial(text)
		}
	}

	finalize := func() {
		text := p.rec.Final()
		p.rec.Reset()
		if p.vad != nil {
			p.vad.Reset()
		}
		frameBuf = nil
		emitPartial("")
		if text != "" && p.onFinal != nil {
			p.onFinal(text)
		}
	}

	silenceExpired := func(now time.Time) bool {
		if p.vad != nil {
			if !currentlySpeaking {
				return false
			}
			return now.Sub(lastVoiceInstant) > p.cfg.SilenceTimeout
		}
		multiple := p.cfg.NoVADSilenceMultiple
		if multiple <= 0 {
			multiple = 1.5
		}
		if lastAudioInstant.IsZero() {
			return false
		}
		return now.Sub(lastAudioInstant) > time.Duration(float64(p.cfg.SilenceTimeout)*multiple)
	}

	for {
		select {
		case <-ticker.C:
			if !paused && silenceExpired(time.Now()) {
				emitSpeechState(false)
				finalize()
			}

		case msg := <-p.control:
			switch msg.kind {
			case ctrlSourceSwitch:
				finalize()
				emitSpeechState(false)
			case ctrlPause:
				paused = true
			case ctrlResume:
				paused = false
			case ctrlStop:
				close(p.done)
				return
			}

		case chunk, ok := <-p.in:
			if !ok {
				close(p.done)
				return
			}
			if paused {
				// Dropped, not merely unemitted: the recognizer and VAD
				// never see this audio, so a source that is only the
				// robot's own voice while paused cannot self-trigger
				// partials, finals, or speech-state callbacks.
				continue
			}
			if chunk.Samples == nil {
				// Stream-end sentinel from the robot-audio path.
				finalize()
				emitSpeechState(false)
				continue
			}

			now := time.Now()
			lastAudioInstant = now
			frameBuf = append(frameBuf, chunk.Samples...)

			for len(frameBuf) >= p.frameBytes {
				frame := frameBuf[:p.frameBytes]
				frameBuf = frameBuf[p.frameBytes:]

				if p.vad != nil {
					ev, err := p.vad.Process(frame)
					if err != nil {
						p.log.Warn("recognition: vad error, skipping frame", "err", err)
					} else if ev != nil {
						switch ev.Type {
						case SpeechStart:
							lastVoiceInstant = ev.Timestamp
							emitSpeechState(true)
						case SpeechEnd:
							emitSpeechState(false)
						case Silence:
							// no-op; lastVoiceInstant only advances on confirmed speech
						}
						if p.vad.IsSpeaking() {
							lastVoiceInstant = ev.Timestamp
						}
					}
				}

				segmentEnd, err := p.rec.Accept(frame)
				if err != nil {
					p.log.Warn("recognition: recognizer error, skipping chunk", "err", err)
					continue
				}
				emitPartial(p.rec.Partial())
				if segmentEnd {
					finalize()
				}
			}
		}
	}
}
