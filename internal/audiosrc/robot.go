package audiosrc

import (
	"context"
	"io"
	"net"

	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/config"
	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/umebot"
	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/wavcodec"
)

// robotListener accepts a single TCP connection carrying raw interleaved
// 16-bit PCM and republishes it as resampled mono chunks, per spec.md
// §4.1's robot path.
type robotListener struct {
	cfg     config.AudioConfig
	log     umebot.Logger
	publish func(sourceTag string, samples []byte)

	ln net.Listener
}

func newRobotListener(cfg config.AudioConfig, log umebot.Logger, publish func(string, []byte)) (*robotListener, error) {
	ln, err := net.Listen("tcp", cfg.RobotListenAddr)
	if err != nil {
		return nil, err
	}
	return &robotListener{cfg: cfg, log: log, publish: publish, ln: ln}, nil
}

// run serves exactly one connection at a time; the next connection is not
// accepted until the current one ends. It exits and closes the listener
// (and any connection being served) when ctx is done.
func (rl *robotListener) run(ctx context.Context) {
	defer rl.ln.Close()

	go func() {
		<-ctx.Done()
		rl.ln.Close()
	}()

	for {
		conn, err := rl.ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				rl.log.Warn("audiosrc: robot listener accept failed", "err", err)
				return
			}
		}
		rl.serve(ctx, conn)
	}
}

// serve reads raw PCM from one connection, accumulating half-second
// segments before handing each one off for WAV-wrap/decode/resample.
func (rl *robotListener) serve(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	// Close the connection on cancellation so a blocked Read returns.
	served := make(chan struct{})
	defer close(served)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-served:
		}
	}()

	segmentBytes := rl.cfg.RobotChannels * rl.cfg.RobotBytesPerSample * rl.cfg.RobotSampleRate / 2
	if segmentBytes <= 0 {
		segmentBytes = rl.cfg.RobotSampleRate * 2
	}

	resamp, err := newResampler(rl.cfg.RobotSampleRate, rl.cfg.TargetSampleRate)
	if err != nil && rl.cfg.RobotSampleRate != rl.cfg.TargetSampleRate {
		rl.log.Error("audiosrc: resampler unavailable for robot audio", "err", err)
		return
	}

	buf := make([]byte, 0, segmentBytes)
	read := make([]byte, 4096)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, err := conn.Read(read)
		if n > 0 {
			buf = append(buf, read[:n]...)
			for len(buf) >= segmentBytes {
				segment := buf[:segmentBytes]
				buf = buf[segmentBytes:]
				rl.processSegment(segment, resamp)
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if err != io.EOF {
				rl.log.Warn("audiosrc: robot connection read error", "err", err)
			}
			// Flush any partial trailing segment, then emit the stream-end
			// sentinel so downstream finalization can occur promptly.
			if len(buf) > 0 {
				rl.processSegment(buf, resamp)
			}
			rl.publish("robot", nil) // nil samples is the stream-end sentinel
			return
		}
	}
}

func (rl *robotListener) processSegment(segment []byte, resamp *pcmResampler) {
	wav := wavcodec.NewBuffer(segment, rl.cfg.RobotSampleRate, rl.cfg.RobotChannels)
	rate, channels, bits, pcm, err := wavcodec.Decode(wav)
	if err != nil || bits != 16 {
		rl.log.Warn("audiosrc: robot segment decode failed", "err", err)
		return
	}

	mono := downmixInt16(pcm, channels)
	floatMono := int16BytesToFloat32(mono)

	var r *pcmResampler
	if rate == rl.cfg.TargetSampleRate {
		r = nil
	} else {
		r = resamp
	}

	out, err := toPCM16(floatMono, r)
	if err != nil {
		rl.log.Warn("audiosrc: robot segment resample failed", "err", err)
		return
	}
	rl.publish("robot", out)
}

// downmixInt16 averages interleaved 16-bit PCM channels down to mono,
// returned as 16-bit PCM bytes.
func downmixInt16(pcm []byte, channels int) []byte {
	if channels <= 1 {
		return pcm
	}
	frameBytes := channels * 2
	n := len(pcm) / frameBytes
	out := make([]byte, n*2)
	for i := 0; i < n; i++ {
		var sum int32
		for c := 0; c < channels; c++ {
			off := i*frameBytes + c*2
			v := int16(pcm[off]) | int16(pcm[off+1])<<8
			sum += int32(v)
		}
		avg := int16(sum / int32(channels))
		out[i*2] = byte(avg)
		out[i*2+1] = byte(avg >> 8)
	}
	return out
}

func int16BytesToFloat32(pcm []byte) []float32 {
	n := len(pcm) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
		out[i] = float32(v) / 32768.0
	}
	return out
}
