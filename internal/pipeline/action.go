package pipeline

import (
	"context"

	"github.com/nworb999/stable-genius/internal/extract"
	"github.com/nworb999/stable-genius/internal/prompt"
	"github.com/nworb999/stable-genius/internal/provider"
	"github.com/nworb999/stable-genius/internal/psyche"
)

// ActionComponent produces the turn's outward speech, guided by the active
// tactic, then optionally runs a style-transfer pass over it. Style transfer
// is best effort: any failure keeps the original speech.
type ActionComponent struct {
	name         string
	gen          Generator
	styleEnabled bool
}

func NewAction(gen Generator, styleEnabled bool) *ActionComponent {
	return &ActionComponent{name: "action", gen: gen, styleEnabled: styleEnabled}
}

func (c *ActionComponent) Name() string { return c.name }

func (c *ActionComponent) Process(ctx context.Context, turn *Turn, psy *psyche.Psyche) error {
	raw := turn.Generate(ctx, c.gen, c.name, "action generation", prompt.Act(psy, turn.Observation, turn.Recalled))
	result := ProcessAction(raw)

	if c.styleEnabled && !result.Fallback {
		if styled := c.restyle(ctx, turn, psy, result.Speech); styled != "" {
			result.StyledSpeech = styled
		}
	}

	if result.ConversationSummary != "" {
		psy.ConversationMemory = result.ConversationSummary
	}

	turn.Action = result
	turn.Speech = result.Speech
	if result.StyledSpeech != "" {
		turn.Speech = result.StyledSpeech
	}
	return nil
}

func (c *ActionComponent) restyle(ctx context.Context, turn *Turn, psy *psyche.Psyche, speech string) string {
	raw := turn.Generate(ctx, c.gen, c.name, "style transfer", prompt.StyleTransfer(psy, speech))
	if provider.IsSentinel(raw) {
		return ""
	}
	obj, err := extract.Extract(raw)
	if err != nil {
		return ""
	}
	if e, ok := obj["error"].(string); ok && e != "" {
		return ""
	}
	return extract.String(obj, "styled_speech", "")
}
