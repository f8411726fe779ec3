package pipeline

// EmotionLabels is the fixed label set the appraisal stage chooses from.
// "neutral" doubles as the failure default.
var EmotionLabels = []string{
	"happy", "sad", "angry", "anxious", "excited",
	"frustrated", "curious", "defensive", "hopeful", "neutral",
}

// DefaultEmotion is pushed when the generation service fails or returns a
// label outside the candidate set.
const DefaultEmotion = "neutral"

// TensionPolicy holds the tunable constants of the tension-update state
// machine. The defaults reproduce observed behavior but are policy, not
// correctness: callers may override any of them.
type TensionPolicy struct {
	// ConfidenceFloor gates whether the stress classifier's "stressful"
	// label is treated as actionable.
	ConfidenceFloor float64 `json:"confidence_floor"`
	// StressBonus is added on top of a generated delta when the classifier
	// independently flagged stress, and applied flat when no delta was
	// recoverable.
	StressBonus int `json:"stress_bonus"`
	// JitterRange bounds the signed random jitter (±JitterRange) applied
	// during calm stretches to keep tension dynamic.
	JitterRange int `json:"jitter_range"`
	// LearnProbability is the chance a stressful observation contributes a
	// sampled word window to the agent's stressor list.
	LearnProbability float64 `json:"learn_probability"`
	// PhraseWindow is the number of words sampled into a learned phrase.
	PhraseWindow int `json:"phrase_window"`
}

// DefaultTensionPolicy returns the observed production constants.
func DefaultTensionPolicy() TensionPolicy {
	return TensionPolicy{
		ConfidenceFloor:  0.2,
		StressBonus:      20,
		JitterRange:      5,
		LearnProbability: 0.3,
		PhraseWindow:     4,
	}
}
