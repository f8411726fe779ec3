package agent

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/nworb999/stable-genius/internal/pipeline"
	"github.com/nworb999/stable-genius/internal/psyche"
	"github.com/nworb999/stable-genius/internal/store"
)

// sentinelGen fails every call so turns exercise the fallback paths without
// a real provider.
type sentinelGen struct{}

func (sentinelGen) Generate(_ context.Context, prompt string, _ map[string]string) string {
	return "Error: no provider\nFailed prompt: " + prompt
}

func testManager(t *testing.T) *Manager {
	t.Helper()
	fs, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	policy := pipeline.DefaultTensionPolicy()
	policy.LearnProbability = 0
	factory := func(string) *pipeline.Pipeline {
		return pipeline.Default(sentinelGen{}, policy, false, zap.NewNop())
	}
	return NewManager(fs, factory, zap.NewNop())
}

func TestAgentBootstrapSeedsPsyche(t *testing.T) {
	m := testManager(t)
	a, err := m.Get(context.Background(), "Morgan", "analytical")
	if err != nil {
		t.Fatal(err)
	}

	psy, err := a.Psyche(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(psy.StressfulPhrases) == 0 {
		t.Error("stressors not seeded")
	}
	if psy.Goal != "" {
		t.Errorf("goal = %q, seeding must leave it for planning to establish", psy.Goal)
	}
	if psy.ActiveTactic != "ask targeted questions" {
		t.Errorf("active tactic = %q", psy.ActiveTactic)
	}
}

func TestAgentBootstrapPreservesLearnedState(t *testing.T) {
	m := testManager(t)
	ctx := context.Background()

	a, err := m.Get(ctx, "Morgan", "analytical")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.Receive(ctx, "We missed the deadline again.", "Alex"); err != nil {
		t.Fatal(err)
	}
	before, _ := a.Psyche(ctx)

	// A second bootstrap over the same store must not reset anything.
	a2, err := New(ctx, "Morgan", "analytical", a.store, pipelineOf(), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	after, _ := a2.Psyche(ctx)
	if after.TensionLevel != before.TensionLevel {
		t.Errorf("tension reset: %d -> %d", before.TensionLevel, after.TensionLevel)
	}
	if len(after.Memories) != len(before.Memories) {
		t.Errorf("memories reset")
	}
}

func pipelineOf() *pipeline.Pipeline {
	policy := pipeline.DefaultTensionPolicy()
	policy.LearnProbability = 0
	return pipeline.Default(sentinelGen{}, policy, false, zap.NewNop())
}

func TestAgentReceiveTracksSender(t *testing.T) {
	m := testManager(t)
	ctx := context.Background()

	a, err := m.Get(ctx, "Morgan", "analytical")
	if err != nil {
		t.Fatal(err)
	}
	turn, err := a.Receive(ctx, "We missed the deadline again.", "Alex")
	if err != nil {
		t.Fatal(err)
	}
	if turn.Speech == "" {
		t.Error("no speech produced")
	}
	if turn.Observation != "Alex: We missed the deadline again." {
		t.Errorf("observation = %q", turn.Observation)
	}

	psy, _ := a.Psyche(ctx)
	rel, ok := psy.Relationships["Alex"]
	if !ok || rel.Familiarity != 1 {
		t.Errorf("relationships = %v", psy.Relationships)
	}
	if len(psy.Memories) != 1 {
		t.Errorf("memories = %v", psy.Memories)
	}
}

func TestTurnHookSeesSavedState(t *testing.T) {
	m := testManager(t)
	ctx := context.Background()

	var hooked *psyche.Psyche
	m.OnTurnSaved(func(_ context.Context, p *psyche.Psyche) { hooked = p })

	a, err := m.Get(ctx, "Morgan", "analytical")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.Receive(ctx, "We missed the deadline again.", "Alex"); err != nil {
		t.Fatal(err)
	}

	if hooked == nil {
		t.Fatal("turn hook not called")
	}
	// The hook must see this turn's state: the first contact with Alex is
	// already bumped and the memory already appended.
	rel, ok := hooked.Relationships["Alex"]
	if !ok || rel.Familiarity != 1 {
		t.Errorf("hook saw relationships = %v", hooked.Relationships)
	}
	if len(hooked.Memories) != 1 {
		t.Errorf("hook saw memories = %v", hooked.Memories)
	}
}

func TestManagerReturnsSameInstance(t *testing.T) {
	m := testManager(t)
	ctx := context.Background()

	a1, _ := m.Get(ctx, "Morgan", "analytical")
	a2, _ := m.Get(ctx, "MORGAN", "friendly") // personality ignored after create
	if a1 != a2 {
		t.Error("expected one instance per agent key")
	}
	if names := m.Names(); len(names) != 1 || names[0] != "morgan" {
		t.Errorf("names = %v", names)
	}
}

func TestAgentReset(t *testing.T) {
	m := testManager(t)
	ctx := context.Background()

	a, _ := m.Get(ctx, "Morgan", "analytical")
	if _, err := a.Receive(ctx, "We missed the deadline again.", "Alex"); err != nil {
		t.Fatal(err)
	}
	if err := a.Reset(ctx); err != nil {
		t.Fatal(err)
	}
	psy, _ := a.Psyche(ctx)
	if len(psy.Memories) != 0 || psy.ConversationMemory != "" {
		t.Errorf("memories not cleared: %+v", psy)
	}
	if psy.ActiveTactic == "" || len(psy.Plan) == 0 {
		t.Error("reset must keep plan state")
	}
}
