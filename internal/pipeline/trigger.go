package pipeline

import (
	"context"
	"math/rand"
	"strings"

	"go.uber.org/zap"

	"github.com/nworb999/stable-genius/internal/extract"
	"github.com/nworb999/stable-genius/internal/prompt"
	"github.com/nworb999/stable-genius/internal/psyche"
	"github.com/nworb999/stable-genius/internal/stress"
)

// TriggerComponent appraises the observation for stress, moves the tension
// level, and picks the turn's emotion label.
//
// Tension update policy: a delta is requested from the generation service;
// if one is recoverable it is applied, plus a bonus when the independent
// classifier also flagged stress. With no recoverable delta, a flagged
// observation gets the flat bonus; a calm one gets small signed jitter so
// tension stays dynamic. Every path clamps, and any change invalidates the
// cached interpretation (the psyche mutators own both guarantees).
type TriggerComponent struct {
	name   string
	gen    Generator
	policy TensionPolicy
	rng    *rand.Rand
	logger *zap.Logger
}

// NewTrigger creates the appraisal component. rng may be nil for production
// randomness; tests pass a seeded source.
func NewTrigger(gen Generator, policy TensionPolicy, rng *rand.Rand, logger *zap.Logger) *TriggerComponent {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &TriggerComponent{name: "trigger", gen: gen, policy: policy, rng: rng, logger: logger}
}

func (c *TriggerComponent) Name() string { return c.name }

func (c *TriggerComponent) Process(ctx context.Context, turn *Turn, psy *psyche.Psyche) error {
	analysis := &TensionAnalysis{}
	turn.TensionAnalysis = analysis

	classifier := stress.NewClassifier(psy.StressfulPhrases, stress.NeutralPhrases)
	label, confidence := classifier.Classify(turn.Observation)
	analysis.Confidence = confidence
	analysis.Stressful = label == stress.LabelStressful && confidence >= c.policy.ConfidenceFloor

	raw := turn.Generate(ctx, c.gen, c.name, "tension appraisal", prompt.TensionDelta(psy, turn.Observation))
	delta, recovered := recoverDelta(raw)

	switch {
	case recovered:
		analysis.DeltaSource = "generated"
		analysis.RequestedDelta = delta
		if analysis.Stressful {
			delta += c.policy.StressBonus
		}
		analysis.AppliedDelta = psy.AdjustTension(delta)
	case analysis.Stressful:
		analysis.DeltaSource = "classifier"
		analysis.RequestedDelta = c.policy.StressBonus
		analysis.AppliedDelta = psy.AdjustTension(c.policy.StressBonus)
	default:
		jitter := c.rng.Intn(2*c.policy.JitterRange+1) - c.policy.JitterRange
		analysis.DeltaSource = "jitter"
		analysis.RequestedDelta = jitter
		analysis.AppliedDelta = psy.AdjustTension(jitter)
	}
	analysis.TensionLevel = psy.TensionLevel

	if analysis.Stressful && c.rng.Float64() < c.policy.LearnProbability {
		if phrase := c.samplePhrase(turn.Observation); phrase != "" {
			if psy.LearnStressfulPhrase(phrase) {
				analysis.LearnedPhrase = phrase
			}
		}
	}

	turn.EmotionAnalysis = c.pickEmotion(ctx, turn, psy)
	psy.RecordEmotion(turn.EmotionAnalysis.Emotion)
	return nil
}

// recoverDelta digs a numeric delta out of the appraisal response.
func recoverDelta(raw string) (int, bool) {
	obj, err := extract.Extract(raw)
	if err != nil {
		return 0, false
	}
	if e, ok := obj["error"].(string); ok && e != "" {
		return 0, false
	}
	n, ok := extract.Number(obj, "delta")
	if !ok {
		return 0, false
	}
	return int(n), true
}

// samplePhrase picks a short word window from the observation.
func (c *TriggerComponent) samplePhrase(observation string) string {
	words := strings.Fields(observation)
	if len(words) == 0 {
		return ""
	}
	window := c.policy.PhraseWindow
	if window <= 0 || window > len(words) {
		window = len(words)
	}
	start := 0
	if len(words) > window {
		start = c.rng.Intn(len(words) - window + 1)
	}
	phrase := strings.Join(words[start:start+window], " ")
	return strings.Trim(strings.ToLower(phrase), ".,!?;:\"'")
}

func (c *TriggerComponent) pickEmotion(ctx context.Context, turn *Turn, psy *psyche.Psyche) *EmotionAnalysis {
	candidates := psy.EmotionCandidates(EmotionLabels)
	analysis := &EmotionAnalysis{Candidates: candidates}

	raw := turn.Generate(ctx, c.gen, c.name, "emotion selection", prompt.Emotion(psy, turn.Observation, candidates))
	obj, err := extract.Extract(raw)
	if err != nil {
		return emotionFallback(analysis)
	}
	chosen := extract.String(obj, "emotion", "")
	if !containsLabel(candidates, chosen) {
		return emotionFallback(analysis)
	}
	analysis.Emotion = chosen
	analysis.Reasoning = extract.String(obj, "reasoning", "")
	if n, ok := extract.Number(obj, "intensity"); ok && n >= 1 && n <= 10 {
		analysis.Intensity = int(n)
	} else {
		analysis.Intensity = 5
	}
	return analysis
}

func emotionFallback(analysis *EmotionAnalysis) *EmotionAnalysis {
	analysis.Emotion = DefaultEmotion
	analysis.Intensity = 1
	analysis.Fallback = true
	return analysis
}

func containsLabel(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
