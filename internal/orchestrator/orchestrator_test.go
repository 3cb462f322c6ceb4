package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/config"
	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/umebot"
)

// fakeRobotRPC satisfies robotface.RPC with no-op responses; none of the
// tests below exercise C6.
type fakeRobotRPC struct{}

func (fakeRobotRPC) WakeMotors(ctx context.Context) error                      { return nil }
func (fakeRobotRPC) RestMotors(ctx context.Context) error                      { return nil }
func (fakeRobotRPC) DisableAutonomousLife(ctx context.Context) error           { return nil }
func (fakeRobotRPC) StopBaseMotion(ctx context.Context) error                  { return nil }
func (fakeRobotRPC) GoToPosture(ctx context.Context, posture string) error     { return nil }
func (fakeRobotRPC) EnableExternalCollisionProtection(ctx context.Context) error { return nil }
func (fakeRobotRPC) SetBaseVelocities(ctx context.Context, vx, vy, vtheta float64) error {
	return nil
}
func (fakeRobotRPC) TriggerEmergencyStop(ctx context.Context) error     { return nil }
func (fakeRobotRPC) InterruptScriptedGesture(ctx context.Context) error { return nil }

// fakeExpressionRPC satisfies expression.RPC. Say optionally blocks on a
// release channel so tests can hold C4 "speaking" open across a window.
type fakeExpressionRPC struct {
	mu        sync.Mutex
	saidTexts []string
	release   chan struct{} // nil means Say returns immediately
}

func (f *fakeExpressionRPC) Say(ctx context.Context, text string) error {
	f.mu.Lock()
	f.saidTexts = append(f.saidTexts, text)
	release := f.release
	f.mu.Unlock()
	if release != nil {
		<-release
	}
	return nil
}
func (f *fakeExpressionRPC) PlayLocalAnimation(ctx context.Context, path string) error { return nil }
func (f *fakeExpressionRPC) PlayStandardTag(ctx context.Context, tag string) error     { return nil }
func (f *fakeExpressionRPC) StopAllSpeech(ctx context.Context) error                   { return nil }

func (f *fakeExpressionRPC) sayCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saidTexts)
}

// fakeBackend satisfies conversation.Backend with a fixed reply.
type fakeBackend struct {
	reply string
}

func (f fakeBackend) Generate(ctx context.Context, messages []umebot.Message) (string, error) {
	return f.reply, nil
}
func (f fakeBackend) Name() string { return "fake" }

// newTestOrchestrator builds a fully wired Orchestrator against an
// in-memory store and fake robot/expression RPCs, with a conversation
// already started and a fake backend installed. Nothing is Start()ed:
// the tablet gateway and discovery advertiser never bind a port, the
// audio pipeline never runs, so processInput exercises only the busy
// interlock, C3, and C4.
func newTestOrchestrator(t *testing.T, exprRPC *fakeExpressionRPC, backend fakeBackend) *Orchestrator {
	t.Helper()

	cfg := config.Defaults()
	cfg.Server.PersistDSN = "file::memory:?cache=shared"
	cfg.Expression.AnimationCatalogueDir = ""
	cfg.Conversation.PersonalityCataloguePath = ""
	cfg.Conversation.KnowledgeBasePath = ""

	o, err := New(cfg, Dependencies{RobotRPC: fakeRobotRPC{}, ExpressionRPC: exprRPC}, umebot.NoOpLogger{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	o.conv.SetBackend(umebot.BackendCloud, backend)
	if _, err := o.conv.StartNewConversation(context.Background(), "tester", ""); err != nil {
		t.Fatalf("StartNewConversation: %v", err)
	}
	return o
}

// TestProcessInput_InteractionsAlternateInCallOrder is invariant 1 of
// spec.md §8: across any sequence of process_input calls, persisted
// interactions alternate starting with user and appear in call order.
func TestProcessInput_InteractionsAlternateInCallOrder(t *testing.T) {
	exprRPC := &fakeExpressionRPC{}
	o := newTestOrchestrator(t, exprRPC, fakeBackend{reply: "ok"})

	o.processInput(context.Background(), "hola", umebot.SourceGUI, nil)
	o.processInput(context.Background(), "adios", umebot.SourceGUI, nil)

	convID, ok := o.conv.CurrentConversationID()
	if !ok {
		t.Fatal("expected a current conversation id")
	}
	interactions, err := o.store.GetInteractions(context.Background(), convID, 10)
	if err != nil {
		t.Fatalf("GetInteractions: %v", err)
	}
	if len(interactions) != 4 {
		t.Fatalf("got %d interactions, want 4 (round trip: one input -> two persisted interactions)", len(interactions))
	}
	wantRoles := []umebot.InteractionRole{umebot.RoleUser, umebot.RoleAssistant, umebot.RoleUser, umebot.RoleAssistant}
	for i, want := range wantRoles {
		if interactions[i].Role != want {
			t.Errorf("interaction[%d].Role = %q, want %q", i, interactions[i].Role, want)
		}
	}
	if exprRPC.sayCount() != 2 {
		t.Errorf("expr.Say called %d times, want 2 (one per process_input)", exprRPC.sayCount())
	}
}

// TestProcessInput_STTWhileBusyIsDropped is boundary scenario 1: a final
// transcript arriving while busy is dropped with a system:info notice and
// never reaches the conversation core.
func TestProcessInput_STTWhileBusyIsDropped(t *testing.T) {
	exprRPC := &fakeExpressionRPC{release: make(chan struct{})}
	o := newTestOrchestrator(t, exprRPC, fakeBackend{reply: "respuesta"})

	done := make(chan struct{})
	go func() {
		o.processInput(context.Background(), "hola", umebot.SourceGUI, nil)
		close(done)
	}()

	// Wait until processInput has taken the busy flag before delivering the
	// competing final.
	deadline := time.After(2 * time.Second)
	for {
		o.mu.Lock()
		busy := o.busyAvailable
		o.mu.Unlock()
		if !busy {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for orchestrator to go busy")
		case <-time.After(time.Millisecond):
		}
	}

	o.handleFinal("test")

	close(exprRPC.release)
	<-done

	convID, ok := o.conv.CurrentConversationID()
	if !ok {
		t.Fatal("expected a current conversation id")
	}
	interactions, err := o.store.GetInteractions(context.Background(), convID, 10)
	if err != nil {
		t.Fatalf("GetInteractions: %v", err)
	}
	if len(interactions) != 2 {
		t.Fatalf("got %d interactions, want 2 (\"test\" must not be persisted while busy)", len(interactions))
	}
	if exprRPC.sayCount() != 1 {
		t.Errorf("expr.Say called %d times, want 1 (\"hola\"'s response only)", exprRPC.sayCount())
	}
}

// TestHandleSpeechState_BargeInFiresOnlyOnce is boundary scenario 2: while
// busy, is_speaking=true must produce exactly one busy-utterance request
// to C4, and no second one while C4.IsSpeaking() remains true.
func TestHandleSpeechState_BargeInFiresOnlyOnce(t *testing.T) {
	exprRPC := &fakeExpressionRPC{release: make(chan struct{})}
	o := newTestOrchestrator(t, exprRPC, fakeBackend{reply: "ok"})

	o.mu.Lock()
	o.busyAvailable = false
	o.mu.Unlock()

	o.handleSpeechState(true)
	// handleSpeechState(true) only dispatches when !o.expr.IsSpeaking();
	// Say's speaking flag is set synchronously before the fake RPC call
	// blocks, so this second call must observe IsSpeaking()==true and
	// skip.
	o.handleSpeechState(true)

	close(exprRPC.release)

	deadline := time.After(2 * time.Second)
	for o.expr.IsSpeaking() {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for the busy-utterance to finish")
		case <-time.After(time.Millisecond):
		}
	}

	if got := exprRPC.sayCount(); got != 1 {
		t.Errorf("expr.Say called %d times during barge-in, want exactly 1", got)
	}
}

func TestStripTags(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "no tags",
			in:   "Hello there, how can I help?",
			want: "Hello there, how can I help?",
		},
		{
			name: "single run tag",
			in:   "^runTag(wave) Hello there!",
			want: "Hello there!",
		},
		{
			name: "multiple tags interleaved",
			in:   "Let me think. ^startTag(thinking) One moment ^waitTag(thinking) done.",
			want: "Let me think. One moment done.",
		},
		{
			name: "tag with nested parens-free args only",
			in:   "^runTag(greetings/wave)Hi!",
			want: "Hi!",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := stripTags(c.in)
			if got != c.want {
				t.Errorf("stripTags(%q) = %q, want %q", c.in, got, c.want)
			}
		})
	}
}

func TestJSONUnmarshalString(t *testing.T) {
	var out string
	if err := jsonUnmarshalString([]byte(`"robot"`), &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "robot" {
		t.Errorf("got %q, want %q", out, "robot")
	}

	out = ""
	if err := jsonUnmarshalString(nil, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "" {
		t.Errorf("expected empty string for nil input, got %q", out)
	}
}
