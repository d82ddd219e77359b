package channels

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mkarlsen/shopchat/pkg/bus"
	"github.com/mkarlsen/shopchat/pkg/config"
	"github.com/mkarlsen/shopchat/pkg/dialog"
)

func TestBaseChannel_IsAllowed(t *testing.T) {
	mb := bus.NewMessageBus()
	defer mb.Close()

	open := NewBaseChannel("test", mb, nil)
	if !open.IsAllowed("anyone") {
		t.Error("empty allow list should allow everyone")
	}

	restricted := NewBaseChannel("test", mb, []string{"123456", "@alice"})
	cases := []struct {
		senderID string
		want     bool
	}{
		{"123456", true},
		{"123456|bob", true},
		{"999|alice", true},
		{"alice", true},
		{"999999", false},
		{"999|mallory", false},
	}
	for _, tc := range cases {
		if got := restricted.IsAllowed(tc.senderID); got != tc.want {
			t.Errorf("IsAllowed(%q) = %v, want %v", tc.senderID, got, tc.want)
		}
	}
}

func TestBaseChannel_RunningFlagConcurrent(t *testing.T) {
	mb := bus.NewMessageBus()
	defer mb.Close()

	c := NewBaseChannel("test", mb, nil)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			c.setRunning(i%2 == 0)
		}
	}()
	for i := 0; i < 1000; i++ {
		c.IsRunning()
	}
	<-done

	c.setRunning(true)
	if !c.IsRunning() {
		t.Error("IsRunning should observe the last setRunning")
	}
}

func TestSplitMessage(t *testing.T) {
	short := splitMessage("hello", 1500)
	if len(short) != 1 || short[0] != "hello" {
		t.Fatalf("short message should pass through: %v", short)
	}

	lines := strings.Repeat("a line of reply text\n", 200)
	chunks := splitMessage(lines, 1500)
	if len(chunks) < 2 {
		t.Fatalf("long message should split, got %d chunks", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 1500 {
			t.Errorf("chunk %d exceeds limit: %d", i, len(c))
		}
	}

	unbroken := strings.Repeat("x", 3200)
	hard := splitMessage(unbroken, 1500)
	var total int
	for _, c := range hard {
		total += len(c)
	}
	if total != 3200 {
		t.Errorf("hard split should not lose content: got %d of 3200", total)
	}
}

type echoResponder struct {
	mu    sync.Mutex
	seen  []string
	calls map[string]int
}

func (r *echoResponder) Process(_ context.Context, sessionID, message string) dialog.Reply {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, message)
	if sessionID == "" {
		sessionID = "sess-1"
	}
	r.calls[sessionID]++
	return dialog.Reply{Text: "echo: " + message, SessionID: sessionID}
}

type captureChannel struct {
	*BaseChannel
	mu   sync.Mutex
	sent []bus.OutboundMessage
}

func (c *captureChannel) Start(_ context.Context) error { c.setRunning(true); return nil }
func (c *captureChannel) Stop(_ context.Context) error  { c.setRunning(false); return nil }

func (c *captureChannel) Send(_ context.Context, msg bus.OutboundMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return nil
}

func TestManager_InboundToOutbound(t *testing.T) {
	mb := bus.NewMessageBus()
	defer mb.Close()

	responder := &echoResponder{calls: map[string]int{}}
	mgr, err := NewManager(config.DefaultConfig(), mb, responder)
	if err != nil {
		t.Fatal(err)
	}

	capture := &captureChannel{BaseChannel: NewBaseChannel("capture", mb, nil)}
	mgr.RegisterChannel("capture", capture)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := mgr.StartAll(ctx); err != nil {
		t.Fatal(err)
	}
	defer mgr.StopAll(context.Background())

	capture.HandleMessage("user-1", "chat-1", "first")
	capture.HandleMessage("user-1", "chat-1", "second")

	deadline := time.After(2 * time.Second)
	for {
		capture.mu.Lock()
		n := len(capture.sent)
		capture.mu.Unlock()
		if n >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for outbound delivery, got %d", n)
		case <-time.After(10 * time.Millisecond):
		}
	}

	capture.mu.Lock()
	defer capture.mu.Unlock()
	if capture.sent[0].Content != "echo: first" {
		t.Errorf("first reply = %q", capture.sent[0].Content)
	}
	// Both turns from the same sender reuse one dialog session.
	responder.mu.Lock()
	defer responder.mu.Unlock()
	if responder.calls["sess-1"] != 2 {
		t.Errorf("expected a stable session across turns, calls = %v", responder.calls)
	}
}

func TestManager_GetStatus(t *testing.T) {
	mb := bus.NewMessageBus()
	defer mb.Close()

	mgr, err := NewManager(config.DefaultConfig(), mb, &echoResponder{calls: map[string]int{}})
	if err != nil {
		t.Fatal(err)
	}

	capture := &captureChannel{BaseChannel: NewBaseChannel("capture", mb, nil)}
	mgr.RegisterChannel("capture", capture)

	status := mgr.GetStatus()
	entry, ok := status["capture"].(map[string]interface{})
	if !ok {
		t.Fatalf("status = %+v", status)
	}
	if entry["running"] != false {
		t.Error("channel should report not running before StartAll")
	}

	if err := mgr.StartAll(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer mgr.StopAll(context.Background())

	entry = mgr.GetStatus()["capture"].(map[string]interface{})
	if entry["running"] != true {
		t.Error("channel should report running after StartAll")
	}
}
