// Package wavcodec builds and parses in-memory RIFF/WAVE containers for
// wrapping raw PCM segments before handing them to an STT backend.
// Grounded on pkg/audio/wav.go (the teacher's encode-only helper),
// generalized here with a channel parameter and a matching decoder: C1's
// robot-audio path needs to decode a wrapped segment back out, which the
// teacher never needed since it only ever produced WAV for outbound STT
// requests.
package wavcodec

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// NewBuffer wraps raw interleaved 16-bit PCM in an in-memory WAV container.
func NewBuffer(pcm []byte, sampleRate, channels int) []byte {
	buf := new(bytes.Buffer)
	blockAlign := channels * 2
	byteRate := sampleRate * blockAlign

	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1))
	binary.Write(buf, binary.LittleEndian, uint16(channels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(buf, binary.LittleEndian, uint16(16))

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)

	return buf.Bytes()
}

// Decode extracts the format and raw PCM samples from a WAV container.
func Decode(data []byte) (sampleRate, channels, bitsPerSample int, pcm []byte, err error) {
	if len(data) < 44 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return 0, 0, 0, nil, fmt.Errorf("wavcodec: not a RIFF/WAVE buffer")
	}

	pos := 12
	for pos+8 <= len(data) {
		chunkID := string(data[pos : pos+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8

		switch chunkID {
		case "fmt ":
			if body+16 > len(data) {
				return 0, 0, 0, nil, fmt.Errorf("wavcodec: truncated fmt chunk")
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
		case "data":
			end := body + chunkSize
			if end > len(data) {
				end = len(data)
			}
			pcm = data[body:end]
		}

		pos = body + chunkSize
		if chunkSize%2 == 1 {
			pos++
		}
	}

	if pcm == nil {
		return 0, 0, 0, nil, fmt.Errorf("wavcodec: no data chunk found")
	}
	return sampleRate, channels, bitsPerSample, pcm, nil
}
