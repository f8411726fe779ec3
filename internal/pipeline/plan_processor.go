package pipeline

import (
	"fmt"
	"strings"

	"github.com/nworb999/stable-genius/internal/extract"
	"github.com/nworb999/stable-genius/internal/provider"
	"github.com/nworb999/stable-genius/internal/psyche"
)

// interiorTactics maps interiority themes to the tactic they suggest.
// Checked in order so the synthesized plan is stable for a given narrative.
var interiorTactics = []struct {
	keywords []string
	tactic   string
}{
	{[]string{"empathy", "feel", "compassion"}, "show empathy"},
	{[]string{"listen", "attention"}, "listen actively"},
	{[]string{"honest", "truth", "authentic"}, "speak honestly"},
	{[]string{"curio", "learn", "understand"}, "ask questions"},
	{[]string{"connect", "relation", "belong"}, "find common ground"},
	{[]string{"protect", "guard", "caution"}, "keep healthy distance"},
}

// personalityDefaults is the fallback table when no interiority exists.
var personalityDefaults = map[string]struct {
	goal string
	plan []string
}{
	"friendly":   {"build rapport", []string{"friendly conversation", "show empathy"}},
	"analytical": {"gather information", []string{"ask targeted questions", "analyze responses"}},
}

var neutralDefault = struct {
	goal string
	plan []string
}{"maintain conversation", []string{"balanced dialogue"}}

// ProcessPlan turns raw planning text into a structured result. With no
// existing plan (hasPlan false) it produces a full plan; otherwise only a
// tactic selection. On sentinel or unparsable input it falls back to
// synthesized defaults — and in full-plan mode it never invents a goal:
// the psyche's existing goal is reused, or the goal stays unset.
func ProcessPlan(raw string, hasPlan bool, psy *psyche.Psyche) *PlanResult {
	if provider.IsSentinel(raw) {
		return fallbackPlan(hasPlan, psy, "generation failed")
	}
	obj, err := extract.Extract(raw)
	if err != nil {
		return fallbackPlan(hasPlan, psy, "no parsable plan in response")
	}
	// A JSON failure envelope parses cleanly; treat it as a failure.
	if e, ok := obj["error"].(string); ok && strings.HasPrefix(e, provider.ErrorPrefix) {
		return fallbackPlan(hasPlan, psy, "generation failed")
	}

	if hasPlan {
		tactic := extract.String(obj, "active_tactic", "")
		if tactic == "" {
			return fallbackPlan(true, psy, "response lacked active_tactic")
		}
		return &PlanResult{
			ActiveTactic: tactic,
			Rationale:    extract.String(obj, "summary", "kept or switched tactic per generated decision"),
		}
	}

	plan := extract.Strings(obj, "plan")
	if len(plan) == 0 {
		if t := extract.String(obj, "tactic", ""); t != "" {
			plan = []string{t}
		}
	}
	if len(plan) == 0 {
		return fallbackPlan(false, psy, "response lacked a tactic list")
	}

	goal := extract.String(obj, "goal", "")
	if goal == "" {
		// Preserve prior state over a generic replacement.
		goal = psy.Goal
	}
	active := extract.String(obj, "active_tactic", plan[0])
	return &PlanResult{
		Goal:         goal,
		Plan:         plan,
		ActiveTactic: active,
		FullPlan:     true,
		Rationale:    extract.String(obj, "summary", "adopted generated plan"),
	}
}

func fallbackPlan(hasPlan bool, psy *psyche.Psyche, reason string) *PlanResult {
	plan, source := synthesizePlan(psy)
	if hasPlan {
		return &PlanResult{
			ActiveTactic: plan[0],
			Fallback:     true,
			Rationale:    fmt.Sprintf("%s; defaulted to %q from %s", reason, plan[0], source),
		}
	}
	return &PlanResult{
		Goal:         psy.Goal, // existing goal or unset, never a generic default
		Plan:         plan,
		ActiveTactic: plan[0],
		FullPlan:     true,
		Fallback:     true,
		Rationale:    fmt.Sprintf("%s; synthesized %s plan", reason, source),
	}
}

// synthesizePlan derives a default tactic list, preferring interiority
// themes over personality keywords. Returns the plan and its source for the
// rationale string.
func synthesizePlan(psy *psyche.Psyche) ([]string, string) {
	interior := strings.ToLower(psy.Interior.Summary + " " + psy.Interior.Principles)
	if strings.TrimSpace(interior) != "" {
		var plan []string
		for _, entry := range interiorTactics {
			for _, kw := range entry.keywords {
				if strings.Contains(interior, kw) {
					plan = append(plan, entry.tactic)
					break
				}
			}
		}
		if len(plan) > 0 {
			return plan, "interiority"
		}
	}

	lower := strings.ToLower(psy.Personality)
	for key, def := range personalityDefaults {
		if strings.Contains(lower, key) {
			return append([]string(nil), def.plan...), "personality"
		}
	}
	return append([]string(nil), neutralDefault.plan...), "neutral defaults"
}
