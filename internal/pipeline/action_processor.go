package pipeline

import (
	"strings"

	"github.com/nworb999/stable-genius/internal/extract"
	"github.com/nworb999/stable-genius/internal/provider"
)

const apologySpeech = "I'm having a hard time putting my thoughts together right now. Bear with me."

// ProcessAction turns raw action text into a usable result. It never fails:
// total garbage still yields action "say" with an apology speech.
func ProcessAction(raw string) *ActionResult {
	if provider.IsSentinel(raw) {
		return &ActionResult{Action: "say", Speech: apologySpeech, Fallback: true}
	}

	obj, err := extract.Extract(raw)
	if err != nil {
		// Non-JSON prose is still speech worth using.
		if text := strings.TrimSpace(raw); text != "" {
			return &ActionResult{Action: "say", Speech: text, Fallback: true}
		}
		return &ActionResult{Action: "say", Speech: apologySpeech, Fallback: true}
	}
	if e, ok := obj["error"].(string); ok && strings.HasPrefix(e, provider.ErrorPrefix) {
		return &ActionResult{Action: "say", Speech: apologySpeech, Fallback: true}
	}

	res := &ActionResult{
		Action:              extract.String(obj, "action", "say"),
		Speech:              extract.String(obj, "speech", ""),
		ConversationSummary: extract.String(obj, "conversation_summary", ""),
	}
	if res.Speech == "" {
		res.Speech = apologySpeech
		res.Fallback = true
	}
	return res
}
