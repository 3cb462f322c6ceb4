package wavcodec

import (
	"bytes"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	pcm := make([]byte, 320) // 10ms @ 16kHz mono 16-bit
	for i := range pcm {
		pcm[i] = byte(i)
	}

	wav := NewBuffer(pcm, 16000, 1)

	sampleRate, channels, bits, decoded, err := Decode(wav)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sampleRate != 16000 {
		t.Errorf("sampleRate = %d, want 16000", sampleRate)
	}
	if channels != 1 {
		t.Errorf("channels = %d, want 1", channels)
	}
	if bits != 16 {
		t.Errorf("bitsPerSample = %d, want 16", bits)
	}
	if !bytes.Equal(decoded, pcm) {
		t.Errorf("decoded PCM does not match original")
	}
}

func TestDecodeRejectsNonRIFF(t *testing.T) {
	if _, _, _, _, err := Decode([]byte("not a wav file at all")); err == nil {
		t.Error("expected an error for a non-RIFF buffer")
	}
}

func TestDecodeRejectsMissingDataChunk(t *testing.T) {
	wav := NewBuffer(make([]byte, 8), 16000, 1)
	// Rename the data chunk so only fmt and an unknown chunk remain, while
	// the buffer stays long enough to pass the header-length check.
	copy(wav[36:40], "junk")
	if _, _, _, _, err := Decode(wav); err == nil {
		t.Error("expected an error when no data chunk is present")
	}
}
