// Package audiosrc implements C1, the Audio Source Multiplexer: it owns
// the local-mic capture path and the robot-TCP ingestion path and emits a
// single mono/16-bit chunk stream at the configured target rate, draining
// and deactivating the current source before activating a new one so the
// output channel never interleaves samples from both.
//
// Grounded on cmd/agent/main.go's malgo duplex-device + RMS-gated callback
// pattern (local path) and pkg/audio/wav.go's WAV container (robot path,
// generalized here to decode as well as encode).
package audiosrc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/config"
	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/umebot"
)

// Source names which input is currently active.
type Source string

const (
	SourceNone  Source = "none"
	SourceLocal Source = "local"
	SourceRobot Source = "robot"
)

// Multiplexer is C1. Exactly one source is active at a time; Output()
// returns the single downstream channel of umebot.AudioChunk regardless of
// which source produced a given chunk.
type Multiplexer struct {
	cfg config.AudioConfig
	log umebot.Logger

	mu      sync.Mutex
	current Source
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	out chan umebot.AudioChunk
	seq uint64

	robotPermitted bool

	local *localCapture
	robot *robotListener
}

// New constructs a Multiplexer. Neither source is started until
// SetSource is called.
func New(cfg config.AudioConfig, log umebot.Logger) *Multiplexer {
	if log == nil {
		log = umebot.NoOpLogger{}
	}
	return &Multiplexer{
		cfg:     cfg,
		log:     log,
		current: SourceNone,
		out:     make(chan umebot.AudioChunk, 256),
	}
}

// Output returns the chunk stream. Callers must keep draining it for the
// lifetime of the Multiplexer.
func (m *Multiplexer) Output() <-chan umebot.AudioChunk { return m.out }

// Start is idempotent; it is equivalent to SetSource(cfg.InitialSource).
func (m *Multiplexer) Start() error {
	return m.SetSource(Source(m.cfg.InitialSource))
}

// Stop deactivates whichever source is active, equivalent to
// SetSource(SourceNone), then closes the output channel.
func (m *Multiplexer) Stop() {
	_ = m.SetSource(SourceNone)
	close(m.out)
}

// SetPermission opens or closes the "robot-audio-permitted" gate. Closing it
// while the robot source is active forces an immediate switch to none.
func (m *Multiplexer) SetPermission(permitted bool) {
	m.mu.Lock()
	m.robotPermitted = permitted
	mustClose := !permitted && m.current == SourceRobot
	m.mu.Unlock()
	if mustClose {
		_ = m.SetSource(SourceNone)
	}
}

// GetSource reports the currently active source.
func (m *Multiplexer) GetSource() Source {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// SetSource drains and deactivates the current source, then activates the
// requested one. The deactivation completing before activation begins is
// what prevents interleaved samples from two sources.
func (m *Multiplexer) SetSource(next Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == next {
		return nil
	}

	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.wg.Wait()
	m.local = nil
	m.robot = nil
	m.current = SourceNone

	switch next {
	case SourceNone:
		return nil
	case SourceLocal:
		ctx, cancel := context.WithCancel(context.Background())
		m.cancel = cancel
		lc, err := newLocalCapture(m.cfg, m.log, m.publish)
		if err != nil {
			cancel()
			return fmt.Errorf("audiosrc: start local capture: %w", err)
		}
		m.local = lc
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			lc.run(ctx)
		}()
		m.current = SourceLocal
		return nil
	case SourceRobot:
		if !m.robotPermitted {
			return umebot.ErrSourceNotPermitted
		}
		ctx, cancel := context.WithCancel(context.Background())
		m.cancel = cancel
		rl, err := newRobotListener(m.cfg, m.log, m.publish)
		if err != nil {
			cancel()
			return fmt.Errorf("audiosrc: start robot listener: %w", err)
		}
		m.robot = rl
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			rl.run(ctx)
		}()
		m.current = SourceRobot
		return nil
	default:
		return fmt.Errorf("audiosrc: unknown source %q", next)
	}
}

// publish is the single choke point every source path writes through, so
// the sequence number and source tag are assigned consistently.
func (m *Multiplexer) publish(sourceTag string, samples []byte) {
	m.seq++
	select {
	case m.out <- umebot.AudioChunk{Samples: samples, SourceTag: sourceTag, Seq: m.seq}:
	default:
		m.log.Warn("audiosrc: output channel full, dropping chunk", "source", sourceTag)
	}
}

// retryWithBackoff runs fn up to attempts times, sleeping interval between
// failures. Used by the local-capture device-open path per spec.md's
// "bounded retry with fixed backoff" failure semantics.
func retryWithBackoff(attempts int, interval time.Duration, fn func() error) error {
	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := fn(); err != nil {
			lastErr = err
			if i < attempts-1 {
				time.Sleep(interval)
			}
			continue
		}
		return nil
	}
	return lastErr
}
