package agent

import (
	"strings"

	"github.com/nworb999/stable-genius/internal/psyche"
)

// baseStressors seed every personality; the typed vocabularies replace them
// when the personality is recognized.
var baseStressors = []string{
	"deadline", "urgent", "hurry", "problem", "mistake", "failure",
	"conflict", "argument", "angry", "disappointed",
}

// stressorVocabulary holds per-personality seed stressors. Friendly agents
// are sensitized to social friction, analytical ones to uncertainty and
// error.
var stressorVocabulary = map[string][]string{
	"friendly": {
		"conflict", "argument", "disagree", "angry", "disappointed",
		"rejected", "criticized", "ignored", "disrespected", "rude",
		"unfriendly", "hostile", "mean", "upset", "hurt feelings",
		"misunderstood", "alone", "isolated", "abandoned", "betrayed",
	},
	"analytical": {
		"uncertain", "unclear", "ambiguous", "imprecise", "approximate",
		"error", "mistake", "incorrect", "flawed", "bug", "problem",
		"lacking data", "insufficient", "unverified", "unreliable",
		"inconsistent", "illogical", "irrational", "failure", "deadline",
		"incomplete", "inefficient", "complex", "chaotic", "unpredictable",
	},
}

var seedPlans = map[string][]string{
	"friendly":   {"friendly conversation", "show empathy"},
	"analytical": {"ask targeted questions", "analyze responses"},
}

// seedPsyche fills in the personality-derived defaults on a psyche that is
// missing them. Existing learned state is never overwritten.
func seedPsyche(psy *psyche.Psyche, personality string) {
	if personality != "" && psy.Personality != personality {
		psy.Personality = personality
	}
	lower := strings.ToLower(psy.Personality)

	if len(psy.StressfulPhrases) == 0 {
		vocab := baseStressors
		for key, v := range stressorVocabulary {
			if strings.Contains(lower, key) {
				vocab = v
				break
			}
		}
		psy.StressfulPhrases = append([]string(nil), vocab...)
	}

	if len(psy.Plan) == 0 {
		plan := []string{"balanced dialogue"}
		for key, p := range seedPlans {
			if strings.Contains(lower, key) {
				plan = append([]string(nil), p...)
				break
			}
		}
		psy.Plan = plan
	}
	if psy.ActiveTactic == "" {
		psy.ActiveTactic = psy.Plan[0]
	}
	// No goal at seeding. A goal only exists once planning generates one;
	// until then stages treat it as unset.
}
