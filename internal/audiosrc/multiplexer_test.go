package audiosrc

import (
	"errors"
	"testing"
	"time"

	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/config"
	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/umebot"
)

func TestMultiplexer_DefaultsToNone(t *testing.T) {
	m := New(config.AudioConfig{InitialSource: "none"}, nil)
	if got := m.GetSource(); got != SourceNone {
		t.Errorf("GetSource() = %q, want %q", got, SourceNone)
	}
}

func TestMultiplexer_RobotSourceRequiresPermission(t *testing.T) {
	m := New(config.AudioConfig{InitialSource: "none", RobotListenAddr: "127.0.0.1:0"}, nil)
	err := m.SetSource(SourceRobot)
	if !errors.Is(err, umebot.ErrSourceNotPermitted) {
		t.Fatalf("expected ErrSourceNotPermitted, got %v", err)
	}
	if got := m.GetSource(); got != SourceNone {
		t.Errorf("GetSource() = %q, want %q after a denied switch", got, SourceNone)
	}
}

func TestMultiplexer_SetSourceToCurrentIsNoop(t *testing.T) {
	m := New(config.AudioConfig{InitialSource: "none"}, nil)
	if err := m.SetSource(SourceNone); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := m.GetSource(); got != SourceNone {
		t.Errorf("GetSource() = %q, want %q", got, SourceNone)
	}
}

func TestMultiplexer_StopClosesOutputChannel(t *testing.T) {
	m := New(config.AudioConfig{InitialSource: "none"}, nil)
	m.Stop()

	select {
	case _, ok := <-m.Output():
		if ok {
			t.Error("expected the output channel to be closed with no pending chunks")
		}
	case <-time.After(time.Second):
		t.Error("timed out waiting for the closed output channel to return")
	}
}

func TestRetryWithBackoff_SucceedsEventually(t *testing.T) {
	attempts := 0
	err := retryWithBackoff(3, time.Millisecond, func() error {
		attempts++
		if attempts < 2 {
			return errors.New("not yet")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestRetryWithBackoff_ExhaustsAttempts(t *testing.T) {
	err := retryWithBackoff(3, time.Millisecond, func() error {
		return errors.New("always fails")
	})
	if err == nil {
		t.Fatal("expected the last error to be returned once attempts are exhausted")
	}
}
