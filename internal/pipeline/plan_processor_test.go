package pipeline

import (
	"reflect"
	"testing"

	"github.com/nworb999/stable-genius/internal/psyche"
)

func TestProcessPlanFullPlan(t *testing.T) {
	psy := psyche.New("morgan", "analytical")
	raw := `{"goal": "understand the delay", "plan": ["ask for specifics", "analyze responses"], "summary": "I need data."}`

	res := ProcessPlan(raw, false, psy)
	if !res.FullPlan || res.Fallback {
		t.Fatalf("expected clean full plan, got %+v", res)
	}
	if res.Goal != "understand the delay" {
		t.Errorf("goal = %q", res.Goal)
	}
	if !reflect.DeepEqual(res.Plan, []string{"ask for specifics", "analyze responses"}) {
		t.Errorf("plan = %v", res.Plan)
	}
	if res.ActiveTactic != "ask for specifics" {
		t.Errorf("active tactic = %q, want first plan entry", res.ActiveTactic)
	}
}

func TestProcessPlanEmptyGoalPreservesExisting(t *testing.T) {
	psy := psyche.New("morgan", "analytical")
	psy.Goal = "gather information"

	res := ProcessPlan(`{"goal": "", "plan": ["probe gently"]}`, false, psy)
	if res.Goal != "gather information" {
		t.Errorf("goal = %q, want prior goal preserved", res.Goal)
	}
}

func TestProcessPlanTacticSelection(t *testing.T) {
	psy := psyche.New("morgan", "analytical")
	psy.Plan = []string{"a", "b"}
	psy.ActiveTactic = "a"

	res := ProcessPlan(`{"active_tactic": "b", "summary": "time to switch"}`, true, psy)
	if res.FullPlan || res.Fallback {
		t.Fatalf("expected selection result, got %+v", res)
	}
	if res.ActiveTactic != "b" {
		t.Errorf("active tactic = %q", res.ActiveTactic)
	}
}

func TestProcessPlanSentinelFallback(t *testing.T) {
	psy := psyche.New("morgan", "analytical")
	psy.Goal = "existing goal"

	res := ProcessPlan("Error: connection refused\nFailed prompt: ...", false, psy)
	if !res.Fallback || !res.FullPlan {
		t.Fatalf("expected full-plan fallback, got %+v", res)
	}
	if res.Goal != "existing goal" {
		t.Errorf("fallback goal = %q, must reuse existing", res.Goal)
	}
	if len(res.Plan) == 0 || res.ActiveTactic != res.Plan[0] {
		t.Errorf("fallback plan = %v active = %q", res.Plan, res.ActiveTactic)
	}
}

func TestProcessPlanFallbackNeverInventsGoal(t *testing.T) {
	psy := psyche.New("morgan", "analytical")

	res := ProcessPlan("complete garbage, no json at all", false, psy)
	if !res.Fallback {
		t.Fatal("expected fallback")
	}
	if res.Goal != "" {
		t.Errorf("fallback goal = %q, want unset when psyche had none", res.Goal)
	}
}

func TestProcessPlanErrorEnvelope(t *testing.T) {
	psy := psyche.New("morgan", "analytical")
	raw := `{"error": "Error: rate limited", "prompt": "..."}`

	res := ProcessPlan(raw, false, psy)
	if !res.Fallback {
		t.Fatal("JSON failure envelope must trigger fallback")
	}
}

func TestSynthesizePlanPrefersInteriority(t *testing.T) {
	psy := psyche.New("morgan", "analytical")
	psy.Interior.Summary = "I believe in listening before judging and staying curious."

	plan, source := synthesizePlan(psy)
	if source != "interiority" {
		t.Fatalf("source = %q", source)
	}
	want := map[string]bool{"listen actively": true, "ask questions": true}
	for _, tac := range plan {
		if !want[tac] {
			t.Errorf("unexpected tactic %q", tac)
		}
	}
}

func TestSynthesizePlanPersonalityAndNeutral(t *testing.T) {
	friendly, source := synthesizePlan(psyche.New("f", "friendly"))
	if source != "personality" || len(friendly) == 0 {
		t.Errorf("friendly: %v from %q", friendly, source)
	}
	neutral, source := synthesizePlan(psyche.New("n", "stoic"))
	if source != "neutral defaults" || len(neutral) == 0 {
		t.Errorf("neutral: %v from %q", neutral, source)
	}
}
