package pipeline

import (
	"context"

	"github.com/nworb999/stable-genius/internal/prompt"
	"github.com/nworb999/stable-genius/internal/psyche"
)

// PlanComponent maintains the agent's goal, tactic list, and active tactic.
// With no plan in the psyche it builds one from scratch; otherwise it only
// reconsiders the active tactic within the existing plan.
type PlanComponent struct {
	name string
	gen  Generator
}

func NewPlan(gen Generator) *PlanComponent {
	return &PlanComponent{name: "plan", gen: gen}
}

func (c *PlanComponent) Name() string { return c.name }

func (c *PlanComponent) Process(ctx context.Context, turn *Turn, psy *psyche.Psyche) error {
	hasPlan := len(psy.Plan) > 0

	// The rounds counter must reflect this turn before the prompt renders it;
	// SetActiveTactic later zeroes it again only on a real switch.
	if hasPlan {
		psy.RoundsSinceTacticChange++
	}

	var raw string
	if hasPlan {
		raw = turn.Generate(ctx, c.gen, c.name, "tactic selection", prompt.TacticSelection(psy, turn.Recalled))
	} else {
		raw = turn.Generate(ctx, c.gen, c.name, "full planning", prompt.Plan(psy, turn.Recalled))
	}

	result := ProcessPlan(raw, hasPlan, psy)
	turn.Plan = result

	if result.FullPlan {
		psy.ApplyPlan(result.Goal, result.Plan, result.ActiveTactic)
	} else {
		psy.SetActiveTactic(result.ActiveTactic)
	}
	return nil
}
