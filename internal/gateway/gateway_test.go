package gateway

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/nworb999/stable-genius/internal/agent"
	"github.com/nworb999/stable-genius/internal/pipeline"
	"github.com/nworb999/stable-genius/internal/store"
)

type sentinelGen struct{}

func (sentinelGen) Generate(_ context.Context, prompt string, _ map[string]string) string {
	return "Error: no provider\nFailed prompt: " + prompt
}

// captureAdapter records outbound messages and lets tests inject inbound ones.
type captureAdapter struct {
	sent    []*OutboundMessage
	handler MessageHandler
	mu      sync.Mutex
}

func (c *captureAdapter) Platform() string                  { return "test" }
func (c *captureAdapter) Connect(ctx context.Context) error { return nil }
func (c *captureAdapter) OnMessage(h MessageHandler)        { c.handler = h }
func (c *captureAdapter) Close() error                      { return nil }

func (c *captureAdapter) Send(_ context.Context, msg *OutboundMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return nil
}

func (c *captureAdapter) inject(msg *InboundMessage) {
	msg.Platform = "test"
	if c.handler != nil {
		c.handler(msg)
	}
}

func (c *captureAdapter) messages() []*OutboundMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := make([]*OutboundMessage, len(c.sent))
	copy(cp, c.sent)
	return cp
}

func newTestDispatcher(t *testing.T) (*agent.Manager, *captureAdapter) {
	t.Helper()
	logger := zap.NewNop()

	fs, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	policy := pipeline.DefaultTensionPolicy()
	policy.LearnProbability = 0
	agents := agent.NewManager(fs, func(string) *pipeline.Pipeline {
		return pipeline.Default(sentinelGen{}, policy, false, logger)
	}, logger)

	gw := NewGateway(logger)
	capture := &captureAdapter{}
	dispatcher := NewDispatcher(agents, gw, "morgan", logger)

	// SetHandler BEFORE Register — handler is captured at registration time
	gw.SetHandler(dispatcher.Handle)
	gw.Register(capture)

	return agents, capture
}

func TestDispatcherRoutesToDefaultAgent(t *testing.T) {
	agents, capture := newTestDispatcher(t)
	if _, err := agents.Get(context.Background(), "Morgan", "analytical"); err != nil {
		t.Fatal(err)
	}

	capture.inject(&InboundMessage{
		ChannelID: "C1",
		UserName:  "alex",
		Content:   "We missed the deadline again.",
	})

	sent := capture.messages()
	if len(sent) != 1 {
		t.Fatalf("sent = %v", sent)
	}
	if sent[0].Content == "" || sent[0].ChannelID != "C1" || sent[0].Agent != "Morgan" {
		t.Errorf("outbound = %+v", sent[0])
	}

	a, _ := agents.Lookup("morgan")
	psy, _ := a.Psyche(context.Background())
	if _, ok := psy.Relationships["alex"]; !ok {
		t.Errorf("sender not tracked: %v", psy.Relationships)
	}
}

func TestDispatcherAddressesNamedAgent(t *testing.T) {
	agents, capture := newTestDispatcher(t)
	ctx := context.Background()
	if _, err := agents.Get(ctx, "Morgan", "analytical"); err != nil {
		t.Fatal(err)
	}
	if _, err := agents.Get(ctx, "Casey", "friendly"); err != nil {
		t.Fatal(err)
	}

	capture.inject(&InboundMessage{
		ChannelID: "C1",
		UserName:  "alex",
		Content:   "Casey: how are you holding up?",
	})

	sent := capture.messages()
	if len(sent) != 1 || sent[0].Agent != "Casey" {
		t.Fatalf("sent = %+v", sent)
	}

	casey, _ := agents.Lookup("casey")
	psy, _ := casey.Psyche(ctx)
	if len(psy.Memories) != 1 {
		t.Fatalf("memories = %v", psy.Memories)
	}
	if psy.Memories[0].Stimulus != "alex: how are you holding up?" {
		t.Errorf("stimulus = %q, agent prefix must be stripped", psy.Memories[0].Stimulus)
	}
}

func TestDispatcherDropsUnknownAgent(t *testing.T) {
	_, capture := newTestDispatcher(t) // default agent never created

	capture.inject(&InboundMessage{ChannelID: "C1", UserName: "alex", Content: "hello?"})
	if sent := capture.messages(); len(sent) != 0 {
		t.Errorf("sent = %v", sent)
	}
}
