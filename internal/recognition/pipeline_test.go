package recognition

import (
	"sync"
	"testing"
	"time"

	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/umebot"
)

// fakeRecognizer is a deterministic Recognizer test double: each Accept call
// appends the chunk's bytes to the partial text, Final returns whatever
// partial text has accumulated, and Reset clears it.
type fakeRecognizer struct {
	mu      sync.Mutex
	partial string
	final   string
}

func (f *fakeRecognizer) Accept(chunk []byte) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.partial += string(chunk)
	return false, nil
}
func (f *fakeRecognizer) Partial() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.partial
}
func (f *fakeRecognizer) CurrentSegmentText() string { return f.Partial() }
func (f *fakeRecognizer) Final() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.final = f.partial
	return f.final
}
func (f *fakeRecognizer) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.partial = ""
}

func waitString(t *testing.T, ch <-chan string, timeout time.Duration) (string, bool) {
	t.Helper()
	select {
	case s := <-ch:
		return s, true
	case <-time.After(timeout):
		return "", false
	}
}

// Invariant: partial transcripts are observed before the final for the same
// segment. Empty-final suppression is checked by TestPipeline_SuppressesEmptyFinal.
func TestPipeline_PartialThenFinalOrdering(t *testing.T) {
	rec := &fakeRecognizer{}
	partials := make(chan string, 16)
	finals := make(chan string, 16)

	p := New(Config{SampleRate: 16000, FrameMillis: 20, SilenceTimeout: time.Hour}, rec, nil, nil,
		func(s string) { partials <- s },
		func(s string) { finals <- s },
		nil,
	)
	p.Start()
	defer p.Stop()

	p.Input() <- umebot.AudioChunk{Samples: make([]byte, 640)}

	partial, ok := waitString(t, partials, time.Second)
	if !ok || partial == "" {
		t.Fatal("expected a non-empty partial before any final")
	}

	p.NotifySourceChange()

	final, ok := waitString(t, finals, time.Second)
	if !ok || final == "" {
		t.Fatal("expected a non-empty final after NotifySourceChange")
	}
}

// Suppression: finalizing an already-empty segment must never invoke onFinal.
func TestPipeline_SuppressesEmptyFinal(t *testing.T) {
	rec := &fakeRecognizer{}
	finals := make(chan string, 16)

	p := New(Config{SampleRate: 16000, FrameMillis: 20, SilenceTimeout: time.Hour}, rec, nil, nil,
		nil,
		func(s string) { finals <- s },
		nil,
	)
	p.Start()
	defer p.Stop()

	p.NotifySourceChange()

	if _, ok := waitString(t, finals, 200*time.Millisecond); ok {
		t.Error("expected no final callback for an empty segment")
	}
}

// Boundary: a source change mid-utterance finalizes whatever was buffered
// rather than losing it.
func TestPipeline_SourceChangeFinalizesBufferedSegment(t *testing.T) {
	rec := &fakeRecognizer{}
	finals := make(chan string, 16)

	p := New(Config{SampleRate: 16000, FrameMillis: 20, SilenceTimeout: time.Hour}, rec, nil, nil,
		nil,
		func(s string) { finals <- s },
		nil,
	)
	p.Start()
	defer p.Stop()

	p.Input() <- umebot.AudioChunk{Samples: make([]byte, 640)}
	time.Sleep(100 * time.Millisecond) // let the worker consume the chunk

	p.NotifySourceChange()

	if _, ok := waitString(t, finals, time.Second); !ok {
		t.Error("expected the buffered segment to be finalized on source change")
	}
}

// Pause must suspend chunk processing entirely: audio delivered while
// paused never reaches the recognizer, so it produces no partial, and
// Resume lets processing continue normally afterward. This is the busy
// interlock's "pause recognition to prevent self-hearing" primitive
// (spec.md §4.8 steps 2/5), distinct from NotifySourceChange.
func TestPipeline_PauseSuspendsChunkProcessing(t *testing.T) {
	rec := &fakeRecognizer{}
	partials := make(chan string, 16)

	p := New(Config{SampleRate: 16000, FrameMillis: 20, SilenceTimeout: time.Hour}, rec, nil, nil,
		func(s string) { partials <- s },
		nil,
		nil,
	)
	p.Start()
	defer p.Stop()

	p.Pause()
	// Give the worker a moment to process the control message before
	// sending audio, so this isn't a race between Pause and the chunk.
	time.Sleep(50 * time.Millisecond)

	p.Input() <- umebot.AudioChunk{Samples: make([]byte, 640)}
	if _, ok := waitString(t, partials, 200*time.Millisecond); ok {
		t.Fatal("expected no partial while paused")
	}
	if got := rec.Partial(); got != "" {
		t.Fatalf("expected the recognizer to never see paused audio, got %q", got)
	}

	p.Resume()
	p.Input() <- umebot.AudioChunk{Samples: make([]byte, 640)}
	if partial, ok := waitString(t, partials, time.Second); !ok || partial == "" {
		t.Fatal("expected a partial for audio delivered after Resume")
	}
}
