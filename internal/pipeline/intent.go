package pipeline

import (
	"context"

	"github.com/nworb999/stable-genius/internal/extract"
	"github.com/nworb999/stable-genius/internal/prompt"
	"github.com/nworb999/stable-genius/internal/psyche"
)

// intentCategories is the closed classification set. Anything outside it is
// coerced to "other" so downstream code can switch on the value safely.
var intentCategories = []string{
	"question", "statement", "command", "greeting", "farewell", "small_talk", "other",
}

// IntentComponent classifies the incoming message. Classification is
// advisory: failures leave an "other" at midpoint confidence rather than an
// error.
type IntentComponent struct {
	name string
	gen  Generator
}

func NewIntent(gen Generator) *IntentComponent {
	return &IntentComponent{name: "intent", gen: gen}
}

func (c *IntentComponent) Name() string { return c.name }

func (c *IntentComponent) Process(ctx context.Context, turn *Turn, psy *psyche.Psyche) error {
	var history []string
	for _, m := range psy.RecentMemories(10) {
		history = append(history, m.String())
	}

	raw := turn.Generate(ctx, c.gen, c.name, "intent classification", prompt.Intent(turn.Observation, history))
	turn.Intent = parseIntent(raw)
	return nil
}

func parseIntent(raw string) *IntentResult {
	fallback := &IntentResult{
		Intent:        "other",
		Confidence:    50,
		EmotionalTone: "neutral",
		Urgency:       "low",
		Category:      "general",
	}

	obj, err := extract.Extract(raw)
	if err != nil {
		return fallback
	}
	if e, ok := obj["error"].(string); ok && e != "" {
		return fallback
	}

	intent := extract.String(obj, "intent", "other")
	if !containsLabel(intentCategories, intent) {
		intent = "other"
	}
	res := &IntentResult{
		Intent:        intent,
		Confidence:    50, // midpoint default when the model omits it
		EmotionalTone: extract.String(obj, "emotional_tone", "neutral"),
		Urgency:       extract.String(obj, "urgency", "low"),
		Category:      extract.String(obj, "category", "general"),
	}
	if n, ok := extract.Number(obj, "confidence"); ok && n >= 0 && n <= 100 {
		res.Confidence = int(n)
	}
	return res
}
