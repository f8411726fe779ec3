package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/nworb999/stable-genius/internal/pipeline"
)

// echoAgent replies with a counter and optionally fails on turn n.
type echoAgent struct {
	name    string
	turns   atomic.Int64
	failOn  int64
	blockCh chan struct{} // when set, turns wait here
}

func (e *echoAgent) Name() string { return e.name }

func (e *echoAgent) Receive(ctx context.Context, message, sender string) (*pipeline.Turn, error) {
	n := e.turns.Add(1)
	if e.blockCh != nil {
		select {
		case <-e.blockCh:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if e.failOn > 0 && n == e.failOn {
		return nil, errors.New("provider exploded")
	}
	turn := pipeline.NewTurn(message, "neutral")
	turn.Speech = fmt.Sprintf("%s reply %d", e.name, n)
	return turn, nil
}

func waitDone(t *testing.T, c *Conversation) Snapshot {
	t.Helper()
	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("conversation did not finish")
	}
	return c.Snapshot()
}

func TestArenaRunsToCompletion(t *testing.T) {
	arena := NewArena(zap.NewNop())
	a := &echoAgent{name: "Morgan"}
	b := &echoAgent{name: "Alex"}

	conv := arena.Start(context.Background(), a, b, "We missed the deadline again.", 4)
	snap := waitDone(t, conv)

	if snap.Status != StatusCompleted {
		t.Fatalf("status = %s (%s)", snap.Status, snap.Error)
	}
	// Opener plus four replies, alternating starting with Alex.
	if len(snap.Transcript) != 5 {
		t.Fatalf("transcript = %v", snap.Transcript)
	}
	if snap.Transcript[0].From != "Morgan" || snap.Transcript[0].Text != "We missed the deadline again." {
		t.Errorf("opener = %+v", snap.Transcript[0])
	}
	wantFrom := []string{"Morgan", "Alex", "Morgan", "Alex", "Morgan"}
	for i, msg := range snap.Transcript {
		if msg.From != wantFrom[i] {
			t.Errorf("turn %d from %s, want %s", i, msg.From, wantFrom[i])
		}
	}
}

func TestArenaStopHaltsAtTurnBoundary(t *testing.T) {
	arena := NewArena(zap.NewNop())
	block := make(chan struct{})
	a := &echoAgent{name: "Morgan", blockCh: block}
	b := &echoAgent{name: "Alex", blockCh: block}

	conv := arena.Start(context.Background(), a, b, "hello", 100)
	if err := arena.Stop(conv.ID); err != nil {
		t.Fatal(err)
	}
	close(block)
	snap := waitDone(t, conv)

	if snap.Status != StatusStopped {
		t.Errorf("status = %s", snap.Status)
	}
	if len(snap.Transcript) >= 100 {
		t.Errorf("stop ignored, transcript %d long", len(snap.Transcript))
	}
}

func TestArenaRecordsAgentError(t *testing.T) {
	arena := NewArena(zap.NewNop())
	a := &echoAgent{name: "Morgan"}
	b := &echoAgent{name: "Alex", failOn: 2}

	conv := arena.Start(context.Background(), a, b, "hello", 10)
	snap := waitDone(t, conv)

	if snap.Status != StatusError || snap.Error == "" {
		t.Errorf("status = %s err = %q", snap.Status, snap.Error)
	}
}

func TestArenaGetListRemove(t *testing.T) {
	arena := NewArena(zap.NewNop())
	a := &echoAgent{name: "Morgan"}
	b := &echoAgent{name: "Alex"}

	conv := arena.Start(context.Background(), a, b, "hi", 1)
	waitDone(t, conv)

	if _, err := arena.Get(conv.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := arena.Get("nope"); !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("err = %v", err)
	}
	if got := arena.List(); len(got) != 1 {
		t.Errorf("list = %v", got)
	}
	if err := arena.Remove(conv.ID); err != nil {
		t.Fatal(err)
	}
	if got := arena.List(); len(got) != 0 {
		t.Errorf("list after remove = %v", got)
	}
}
