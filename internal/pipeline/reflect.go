package pipeline

import (
	"context"
	"strings"

	"github.com/nworb999/stable-genius/internal/extract"
	"github.com/nworb999/stable-genius/internal/prompt"
	"github.com/nworb999/stable-genius/internal/provider"
	"github.com/nworb999/stable-genius/internal/psyche"
)

// ReflectComponent is the terminal stage: it commits the turn to memory,
// refreshes the tension interpretation when the level moved, mines the input
// for new stressors, and folds reflection insights into the interiority.
type ReflectComponent struct {
	name string
	gen  Generator
}

func NewReflect(gen Generator) *ReflectComponent {
	return &ReflectComponent{name: "reflect", gen: gen}
}

func (c *ReflectComponent) Name() string { return c.name }

func (c *ReflectComponent) Process(ctx context.Context, turn *Turn, psy *psyche.Psyche) error {
	result := &ReflectionResult{}
	turn.Reflection = result

	if turn.Speech != "" {
		psy.AddMemory(turn.Input, turn.Speech)
		result.MemoryAdded = turn.Input + " -> Me: " + turn.Speech
	}

	if psy.TensionInterpretation == "" {
		psy.SetTensionInterpretation(c.interpretTension(ctx, turn, psy))
	}
	result.TensionInterpretation = psy.TensionInterpretation

	result.NewStressors = c.mineStressors(ctx, turn, psy)

	c.reflect(ctx, turn, psy, result)
	return nil
}

// interpretTension regenerates the qualitative reading of the current level.
// A failed generation still yields a usable canned interpretation so prompts
// never render a bare number two turns in a row.
func (c *ReflectComponent) interpretTension(ctx context.Context, turn *Turn, psy *psyche.Psyche) string {
	raw := turn.Generate(ctx, c.gen, c.name, "tension interpretation", prompt.TensionInterpretation(psy))
	if !provider.IsSentinel(raw) {
		if obj, err := extract.Extract(raw); err == nil {
			if _, isErr := obj["error"].(string); !isErr {
				if text := extract.String(obj, "interpretation", ""); text != "" {
					return text
				}
			}
		}
	}
	switch {
	case psy.TensionLevel <= 20:
		return "I feel calm and at ease right now."
	case psy.TensionLevel <= 60:
		return "I'm carrying some tension, enough to keep me alert."
	default:
		return "I'm wound tight and it's taking effort to stay composed."
	}
}

func (c *ReflectComponent) mineStressors(ctx context.Context, turn *Turn, psy *psyche.Psyche) []string {
	raw := turn.Generate(ctx, c.gen, c.name, "stressor mining", prompt.StressorMining(psy, turn.Input))
	if provider.IsSentinel(raw) {
		return nil
	}
	obj, err := extract.Extract(raw)
	if err != nil {
		return nil
	}
	var learned []string
	for _, phrase := range extract.Strings(obj, "phrases") {
		phrase = strings.ToLower(strings.TrimSpace(phrase))
		if phrase == "" {
			continue
		}
		if psy.LearnStressfulPhrase(phrase) {
			learned = append(learned, phrase)
		}
	}
	return learned
}

// reflect runs the inner-monologue pass and applies any interiority updates.
func (c *ReflectComponent) reflect(ctx context.Context, turn *Turn, psy *psyche.Psyche, result *ReflectionResult) {
	raw := turn.Generate(ctx, c.gen, c.name, "reflection", prompt.Reflection(psy, turn.Input, turn.Speech))
	if provider.IsSentinel(raw) {
		return
	}
	obj, err := extract.Extract(raw)
	if err != nil {
		return
	}
	if e, ok := obj["error"].(string); ok && e != "" {
		return
	}

	result.Summary = extract.String(obj, "summary", "")

	if update := strings.TrimSpace(extract.String(obj, "interior_update", "")); update != "" {
		psy.Interior.Summary = update
		result.InteriorUpdated = true
	}
	if insight := strings.TrimSpace(extract.String(obj, "principles_insight", "")); insight != "" {
		if psy.Interior.Principles == "" {
			psy.Interior.Principles = insight
		} else if !strings.Contains(psy.Interior.Principles, insight) {
			psy.Interior.Principles = psy.Interior.Principles + " " + insight
		}
		result.InteriorUpdated = true
	}
}
