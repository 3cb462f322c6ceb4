package audiosrc

import (
	"fmt"

	resampler "github.com/tphakala/go-audio-resampler"

	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/umebot"
)

// pcmResampler wraps go-audio-resampler for the one conversion this
// package needs: mono float32 at sourceHz to mono float32 at targetHz.
// A nil *pcmResampler is a valid no-op resampler for the sourceHz==targetHz
// case.
type pcmResampler struct {
	r         *resampler.Resampler
	sourceHz  int
	targetHz  int
}

// newResampler builds a resampler for sourceHz -> targetHz. If the rates
// already match it returns (nil, nil): the caller should treat a nil
// resampler as an identity pass-through, not an error.
func newResampler(sourceHz, targetHz int) (*pcmResampler, error) {
	if sourceHz == targetHz {
		return nil, nil
	}
	r, err := resampler.New(resampler.Config{
		InputRate:  sourceHz,
		OutputRate: targetHz,
		Channels:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", umebot.ErrResamplerUnavailable, err)
	}
	return &pcmResampler{r: r, sourceHz: sourceHz, targetHz: targetHz}, nil
}

func (p *pcmResampler) process(mono []float32) ([]float32, error) {
	if p == nil || p.r == nil {
		return mono, nil
	}
	out, err := p.r.Process(mono)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", umebot.ErrResamplerUnavailable, err)
	}
	return out, nil
}

// downmixToMono averages interleaved channels down to mono.
func downmixToMono(samples []float32, channels int) []float32 {
	if channels <= 1 {
		return samples
	}
	n := len(samples) / channels
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += samples[i*channels+c]
		}
		out[i] = sum / float32(channels)
	}
	return out
}

// toPCM16 resamples (if needed) a mono float32 buffer and scales it to
// 16-bit signed little-endian PCM bytes.
func toPCM16(mono []float32, r *pcmResampler) ([]byte, error) {
	resampled, err := r.process(mono)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(resampled)*2)
	for i, f := range resampled {
		if f > 1 {
			f = 1
		} else if f < -1 {
			f = -1
		}
		v := int16(f * 32767)
		out[i*2] = byte(v)
		out[i*2+1] = byte(v >> 8)
	}
	return out, nil
}
