package pipeline

import "context"

// scriptedGen answers generation calls by step title. Unscripted steps get a
// sentinel so fallback paths are exercised by default.
type scriptedGen struct {
	responses map[string]string
	steps     []string
}

func (g *scriptedGen) Generate(_ context.Context, prompt string, meta map[string]string) string {
	g.steps = append(g.steps, meta["step"])
	if r, ok := g.responses[meta["step"]]; ok {
		return r
	}
	return "Error: unscripted step\nFailed prompt: " + prompt
}
