package pipeline

import (
	"context"
	"time"

	"github.com/nworb999/stable-genius/internal/psyche"
)

// Generator is the generation port as seen by pipeline components: a
// synchronous call that never fails with a Go error. Failures come back as
// sentinel text (see provider.IsSentinel).
type Generator interface {
	Generate(ctx context.Context, prompt string, meta map[string]string) string
}

// GenCall records one generation-port call made during a component's run,
// surfaced to observability callbacks.
type GenCall struct {
	Component string        `json:"component"`
	StepTitle string        `json:"step_title"`
	Prompt    string        `json:"prompt"`
	Response  string        `json:"response"`
	Elapsed   time.Duration `json:"elapsed"`
	Timestamp time.Time     `json:"timestamp"`
}

// IntentResult is the classification written by the intent component.
type IntentResult struct {
	Intent        string `json:"intent"`
	Confidence    int    `json:"confidence"`
	EmotionalTone string `json:"emotional_tone"`
	Urgency       string `json:"urgency"`
	Category      string `json:"category"`
}

// PlanResult is the outcome of the planning stage.
type PlanResult struct {
	Goal         string   `json:"goal,omitempty"`
	Plan         []string `json:"plan,omitempty"`
	ActiveTactic string   `json:"active_tactic"`
	FullPlan     bool     `json:"full_plan"`
	Fallback     bool     `json:"fallback"`
	Rationale    string   `json:"rationale"`
}

// ActionResult is the outcome of the action stage.
type ActionResult struct {
	Action              string `json:"action"`
	Speech              string `json:"speech"`
	StyledSpeech        string `json:"styled_speech,omitempty"`
	ConversationSummary string `json:"conversation_summary,omitempty"`
	Fallback            bool   `json:"fallback"`
}

// TensionAnalysis records how the appraisal stage moved the tension level.
type TensionAnalysis struct {
	Stressful      bool    `json:"stressful"`
	Confidence     float64 `json:"confidence"`
	DeltaSource    string  `json:"delta_source"` // "generated", "classifier", "jitter"
	RequestedDelta int     `json:"requested_delta"`
	AppliedDelta   int     `json:"applied_delta"`
	TensionLevel   int     `json:"tension_level"`
	LearnedPhrase  string  `json:"learned_phrase,omitempty"`
}

// EmotionAnalysis records the chosen emotion for the turn.
type EmotionAnalysis struct {
	Emotion    string   `json:"emotion"`
	Reasoning  string   `json:"reasoning,omitempty"`
	Intensity  int      `json:"intensity"`
	Candidates []string `json:"candidates"`
	Fallback   bool     `json:"fallback"`
}

// ReflectionResult records what the terminal stage wrote back.
type ReflectionResult struct {
	MemoryAdded           string   `json:"memory_added"`
	TensionInterpretation string   `json:"tension_interpretation"`
	NewStressors          []string `json:"new_stressors,omitempty"`
	Summary               string   `json:"summary,omitempty"`
	InteriorUpdated       bool     `json:"interior_updated"`
}

// Turn is the shared per-turn context threaded through the pipeline. Each
// component reads what earlier components wrote and adds its own results;
// the final Turn is the turn's result (speech plus diagnostics).
type Turn struct {
	Input       string `json:"input"`
	Observation string `json:"observation"`
	Personality string `json:"personality"`

	Recalled []string `json:"recalled,omitempty"`

	Intent          *IntentResult     `json:"intent,omitempty"`
	Plan            *PlanResult       `json:"plan,omitempty"`
	Action          *ActionResult     `json:"action,omitempty"`
	Reflection      *ReflectionResult `json:"reflection,omitempty"`
	TensionAnalysis *TensionAnalysis  `json:"tension_analysis,omitempty"`
	EmotionAnalysis *EmotionAnalysis  `json:"emotion_analysis,omitempty"`

	Speech string `json:"speech"`

	// Errors maps component name to the failure it hit; a failing component
	// never aborts the turn.
	Errors map[string]string `json:"errors,omitempty"`

	calls []GenCall
}

// NewTurn builds the turn context for an incoming observation.
func NewTurn(observation, personality string) *Turn {
	return &Turn{
		Input:       observation,
		Observation: observation,
		Personality: personality,
		Errors:      make(map[string]string),
	}
}

// Generate times a generation-port call and records it for the llm_call
// observability callback.
func (t *Turn) Generate(ctx context.Context, g Generator, component, stepTitle, prompt string) string {
	start := time.Now()
	response := g.Generate(ctx, prompt, map[string]string{
		"component": component,
		"step":      stepTitle,
	})
	t.calls = append(t.calls, GenCall{
		Component: component,
		StepTitle: stepTitle,
		Prompt:    prompt,
		Response:  response,
		Elapsed:   time.Since(start),
		Timestamp: start,
	})
	return response
}

// DrainCalls returns and clears the generation calls recorded so far.
func (t *Turn) DrainCalls() []GenCall {
	calls := t.calls
	t.calls = nil
	return calls
}

// Component is one stage of the cognitive pipeline. Process may mutate the
// psyche through its mutators and writes its results onto the Turn. A
// returned error is recorded and the pipeline moves on.
type Component interface {
	Name() string
	Process(ctx context.Context, turn *Turn, psy *psyche.Psyche) error
}
