// Package psyche holds the persisted per-agent mental state and the
// invariant-preserving mutators that every pipeline stage goes through.
// Stages never write fields directly; the mutators keep tension bounded,
// caches invalidated, and counters honest across turns and restarts.
package psyche

import "strings"

// Bounds and caps enforced by the mutators.
const (
	TensionMin          = 0
	TensionMax          = 100
	MaxStressfulPhrases = 50
	MaxRecentEmotions   = 5
	EmotionExclusion    = 3
)

// MemoryEntry is one stimulus/response pair from a past turn.
type MemoryEntry struct {
	Stimulus string `json:"stimulus"`
	Response string `json:"response"`
}

func (m MemoryEntry) String() string {
	return m.Stimulus + " -> Me: " + m.Response
}

// Relationship tracks per-peer metadata.
type Relationship struct {
	Familiarity int `json:"familiarity"`
}

// Interior is the slowly-evolving personal narrative read by prompts and
// written only by reflection and setup.
type Interior struct {
	Summary    string `json:"summary"`
	Principles string `json:"principles"`
}

// Psyche is one agent's persisted mental state. One instance per named
// agent, keyed by lower-cased name.
type Psyche struct {
	Name                    string                   `json:"name"`
	Personality             string                   `json:"personality"`
	Memories                []MemoryEntry            `json:"memories"`
	ConversationMemory      string                   `json:"conversation_memory"`
	Relationships           map[string]*Relationship `json:"relationships"`
	Goal                    string                   `json:"goal,omitempty"`
	Plan                    []string                 `json:"plan,omitempty"`
	ActiveTactic            string                   `json:"active_tactic,omitempty"`
	RoundsSinceTacticChange int                      `json:"rounds_since_tactic_change"`
	TensionLevel            int                      `json:"tension_level"`
	TensionInterpretation   string                   `json:"tension_interpretation,omitempty"`
	StressfulPhrases        []string                 `json:"stressful_phrases"`
	RecentEmotions          []string                 `json:"recent_emotions"`
	Interior                Interior                 `json:"interior"`
}

// New creates a fresh psyche for the named agent.
func New(name, personality string) *Psyche {
	if personality == "" {
		personality = "neutral"
	}
	return &Psyche{
		Name:          name,
		Personality:   personality,
		Relationships: make(map[string]*Relationship),
	}
}

// Key returns the storage key for an agent name.
func Key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Normalize repairs a psyche loaded from storage: missing maps, tension out
// of range, and an active tactic that is absent while a plan exists.
func (p *Psyche) Normalize() {
	if p.Relationships == nil {
		p.Relationships = make(map[string]*Relationship)
	}
	if p.Personality == "" {
		p.Personality = "neutral"
	}
	p.TensionLevel = clamp(p.TensionLevel)
	if len(p.Plan) > 0 && !contains(p.Plan, p.ActiveTactic) {
		p.ActiveTactic = p.Plan[0]
	}
	if p.RoundsSinceTacticChange < 0 {
		p.RoundsSinceTacticChange = 0
	}
}

// AdjustTension applies a signed delta, clamped to [TensionMin, TensionMax].
// Any actual change invalidates the cached interpretation. It reports the
// delta that was effectively applied.
func (p *Psyche) AdjustTension(delta int) int {
	return p.SetTension(p.TensionLevel + delta)
}

// SetTension sets the tension level, clamping and invalidating the cached
// interpretation when the value changes. Returns the effective delta.
func (p *Psyche) SetTension(level int) int {
	next := clamp(level)
	applied := next - p.TensionLevel
	if applied != 0 {
		p.TensionLevel = next
		p.TensionInterpretation = ""
	}
	return applied
}

// SetTensionInterpretation caches a qualitative description of the current
// tension level. It is cleared again the moment the level moves.
func (p *Psyche) SetTensionInterpretation(text string) {
	p.TensionInterpretation = text
}

// RecordEmotion pushes an emotion label onto the most-recent-first list,
// capped at MaxRecentEmotions.
func (p *Psyche) RecordEmotion(label string) {
	if label == "" {
		return
	}
	p.RecentEmotions = append([]string{label}, p.RecentEmotions...)
	if len(p.RecentEmotions) > MaxRecentEmotions {
		p.RecentEmotions = p.RecentEmotions[:MaxRecentEmotions]
	}
}

// EmotionCandidates returns all labels minus the EmotionExclusion most
// recent ones. With fewer than EmotionExclusion recorded, the full set is
// returned.
func (p *Psyche) EmotionCandidates(all []string) []string {
	if len(p.RecentEmotions) < EmotionExclusion {
		return append([]string(nil), all...)
	}
	recent := make(map[string]bool, EmotionExclusion)
	for _, e := range p.RecentEmotions[:EmotionExclusion] {
		recent[e] = true
	}
	out := make([]string, 0, len(all))
	for _, e := range all {
		if !recent[e] {
			out = append(out, e)
		}
	}
	return out
}

// LearnStressfulPhrase prepends a phrase to the stressor list if not already
// present, evicting from the tail past MaxStressfulPhrases.
func (p *Psyche) LearnStressfulPhrase(phrase string) bool {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" || contains(p.StressfulPhrases, phrase) {
		return false
	}
	p.StressfulPhrases = append([]string{phrase}, p.StressfulPhrases...)
	if len(p.StressfulPhrases) > MaxStressfulPhrases {
		p.StressfulPhrases = p.StressfulPhrases[:MaxStressfulPhrases]
	}
	return true
}

// SetActiveTactic switches the active tactic, resetting the rounds counter
// only when the value actually changes. When a plan exists, tactics outside
// it are rejected in favor of the plan's first element, preserving the
// membership invariant.
func (p *Psyche) SetActiveTactic(tactic string) {
	if len(p.Plan) > 0 && !contains(p.Plan, tactic) {
		tactic = p.Plan[0]
	}
	if tactic == p.ActiveTactic {
		return
	}
	p.ActiveTactic = tactic
	p.RoundsSinceTacticChange = 0
}

// ApplyPlan installs a new plan. An empty goal preserves the previous one;
// failed generations must never wipe an existing goal to a generic default.
func (p *Psyche) ApplyPlan(goal string, plan []string, activeTactic string) {
	if goal != "" {
		p.Goal = goal
	}
	if len(plan) > 0 {
		p.Plan = append([]string(nil), plan...)
	}
	if activeTactic == "" && len(p.Plan) > 0 {
		activeTactic = p.Plan[0]
	}
	p.SetActiveTactic(activeTactic)
}

// AddMemory appends one stimulus/response pair to the append-only log.
func (p *Psyche) AddMemory(stimulus, response string) {
	p.Memories = append(p.Memories, MemoryEntry{Stimulus: stimulus, Response: response})
}

// RecentMemories returns up to n most recent entries, oldest first.
func (p *Psyche) RecentMemories(n int) []MemoryEntry {
	if len(p.Memories) <= n {
		return p.Memories
	}
	return p.Memories[len(p.Memories)-n:]
}

// MeetPeer upserts a relationship record for a peer on first contact.
func (p *Psyche) MeetPeer(peer string) {
	if peer == "" {
		return
	}
	if _, ok := p.Relationships[peer]; !ok {
		p.Relationships[peer] = &Relationship{}
	}
}

// BumpFamiliarity increments the familiarity counter for a known peer and
// returns the new value.
func (p *Psyche) BumpFamiliarity(peer string) int {
	r, ok := p.Relationships[peer]
	if !ok {
		return 0
	}
	r.Familiarity++
	return r.Familiarity
}

// ClearMemories zeroes the memory log and conversation summary while
// preserving identity, goal, and tactic state.
func (p *Psyche) ClearMemories() {
	p.Memories = nil
	p.ConversationMemory = ""
}

func clamp(v int) int {
	if v < TensionMin {
		return TensionMin
	}
	if v > TensionMax {
		return TensionMax
	}
	return v
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
