package audiosrc

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/gen2brain/malgo"

	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/config"
	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/umebot"
)

// localCapture owns the local-mic capture device and the resampler worker
// that turns its float32 callback frames into published int16 chunks.
type localCapture struct {
	cfg config.AudioConfig
	log umebot.Logger

	mctx   *malgo.AllocatedContext
	device *malgo.Device

	intake   chan []float32
	deviceHz int
	publish  func(sourceTag string, samples []byte)
}

// candidateRates returns the probe order: preferred, target, 48000, 44100,
// skipping non-positive rates and duplicates. The device's own default rate
// is not among the candidates.
func candidateRates(cfg config.AudioConfig) []int {
	rates := []int{}
	if cfg.LocalPreferredRate > 0 {
		rates = append(rates, cfg.LocalPreferredRate)
	}
	if cfg.TargetSampleRate > 0 {
		rates = append(rates, cfg.TargetSampleRate)
	}
	rates = append(rates, 48000, 44100)
	return dedupInts(rates)
}

func dedupInts(in []int) []int {
	seen := make(map[int]bool, len(in))
	out := make([]int, 0, len(in))
	for _, v := range in {
		if v <= 0 || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func newLocalCapture(cfg config.AudioConfig, log umebot.Logger, publish func(string, []byte)) (*localCapture, error) {
	lc := &localCapture{
		cfg:     cfg,
		log:     log,
		intake:  make(chan []float32, orDefaultQueue(cfg.LocalIntakeQueueSize)),
		publish: publish,
	}

	attempts := cfg.LocalOpenRetryAttempts
	if attempts <= 0 {
		attempts = 3
	}
	interval := cfg.LocalOpenRetryInterval

	err := retryWithBackoff(attempts, interval, func() error {
		return lc.open()
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", umebot.ErrDeviceNotFound, err)
	}
	return lc, nil
}

func orDefaultQueue(n int) int {
	if n <= 0 {
		return 64
	}
	return n
}

// open probes each candidate rate in order and keeps the first the device
// driver accepts.
func (lc *localCapture) open() error {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("audiosrc: init malgo context: %w", err)
	}

	var lastErr error
	for _, rate := range candidateRates(lc.cfg) {
		deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
		deviceConfig.Capture.Format = malgo.FormatF32
		deviceConfig.Capture.Channels = 2
		deviceConfig.SampleRate = uint32(rate)
		deviceConfig.Alsa.NoMMap = 1

		if lc.cfg.LocalDeviceNameContains != "" {
			if dev, ok := findDeviceByName(mctx.Context, lc.cfg.LocalDeviceNameContains); ok {
				deviceConfig.Capture.DeviceID = dev
			}
		}

		device, err := malgo.InitDevice(mctx.Context, deviceConfig, malgo.DeviceCallbacks{
			Data: lc.onSamples,
		})
		if err != nil {
			lastErr = err
			continue
		}

		lc.mctx = mctx
		lc.device = device
		lc.deviceHz = rate
		return nil
	}

	mctx.Uninit()
	if lastErr == nil {
		lastErr = fmt.Errorf("no candidate sample rate accepted")
	}
	return lastErr
}

// findDeviceByName looks for a capture device whose name contains substr.
func findDeviceByName(ctx *malgo.AllocatedContext, substr string) (*malgo.DeviceID, bool) {
	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, false
	}
	for i := range infos {
		if strings.Contains(strings.ToLower(infos[i].Name()), strings.ToLower(substr)) {
			return &infos[i].ID, true
		}
	}
	return nil, false
}

// onSamples is the malgo capture callback. It must never block: frames are
// enqueued onto a bounded channel with drop-oldest overflow semantics.
func (lc *localCapture) onSamples(_ []byte, pInput []byte, frameCount uint32) {
	if len(pInput) == 0 {
		return
	}
	frame := bytesToFloat32(pInput)
	select {
	case lc.intake <- frame:
	default:
		// Drop-oldest: pull one out to make room, then push. Never block the
		// audio callback.
		select {
		case <-lc.intake:
		default:
		}
		select {
		case lc.intake <- frame:
		default:
		}
		lc.log.Warn("audiosrc: local intake queue full, dropped oldest frame")
	}
}

// run starts the device and services the resampler worker until ctx is
// cancelled, at which point the device and context are torn down.
func (lc *localCapture) run(ctx context.Context) {
	if err := lc.device.Start(); err != nil {
		lc.log.Error("audiosrc: local device start failed", "err", err)
		return
	}
	defer lc.device.Uninit()
	defer lc.mctx.Uninit()

	resampler, err := newResampler(lc.deviceHz, lc.cfg.TargetSampleRate)
	if err != nil && lc.deviceHz != lc.cfg.TargetSampleRate {
		lc.log.Error("audiosrc: resampler unavailable for required conversion", "err", err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-lc.intake:
			mono := downmixToMono(frame, 2)
			pcm, err := toPCM16(mono, resampler)
			if err != nil {
				lc.log.Warn("audiosrc: resample failed, dropping chunk", "err", err)
				continue
			}
			lc.publish("local", pcm)
		}
	}
}

func bytesToFloat32(b []byte) []float32 {
	n := len(b) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		bits := uint32(b[i*4]) | uint32(b[i*4+1])<<8 | uint32(b[i*4+2])<<16 | uint32(b[i*4+3])<<24
		out[i] = math.Float32frombits(bits)
	}
	return out
}
