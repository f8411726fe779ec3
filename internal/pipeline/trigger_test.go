package pipeline

import (
	"context"
	"math/rand"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/nworb999/stable-genius/internal/psyche"
)

func analyticalPsyche() *psyche.Psyche {
	psy := psyche.New("Morgan", "analytical")
	psy.StressfulPhrases = []string{
		"missed the deadline", "behind schedule", "this is urgent",
		"the numbers don't add up", "we have a problem",
	}
	return psy
}

func newTestTrigger(gen Generator, policy TensionPolicy, seed int64) *TriggerComponent {
	return NewTrigger(gen, policy, rand.New(rand.NewSource(seed)), zap.NewNop())
}

func TestTriggerGeneratedDeltaPlusStressBonus(t *testing.T) {
	psy := analyticalPsyche()
	psy.SetTensionInterpretation("perfectly calm")
	gen := &scriptedGen{responses: map[string]string{
		"tension appraisal": `{"delta": 5, "reasoning": "deadlines cut deep"}`,
	}}
	policy := DefaultTensionPolicy()
	policy.LearnProbability = 0

	turn := NewTurn("We missed the deadline again.", "analytical")
	trig := newTestTrigger(gen, policy, 1)
	if err := trig.Process(context.Background(), turn, psy); err != nil {
		t.Fatal(err)
	}

	ta := turn.TensionAnalysis
	if !ta.Stressful {
		t.Fatalf("classifier should flag stress, got %+v", ta)
	}
	if ta.DeltaSource != "generated" || ta.AppliedDelta != 5+policy.StressBonus {
		t.Errorf("delta source %q applied %d, want generated %d", ta.DeltaSource, ta.AppliedDelta, 5+policy.StressBonus)
	}
	if psy.TensionLevel != 25 {
		t.Errorf("tension = %d", psy.TensionLevel)
	}
	if psy.TensionInterpretation != "" {
		t.Error("tension change must clear the cached interpretation")
	}
}

func TestTriggerClassifierOnlyBonus(t *testing.T) {
	psy := analyticalPsyche()
	gen := &scriptedGen{} // appraisal unscripted, sentinel comes back
	policy := DefaultTensionPolicy()
	policy.LearnProbability = 0

	turn := NewTurn("We missed the deadline again.", "analytical")
	if err := newTestTrigger(gen, policy, 1).Process(context.Background(), turn, psy); err != nil {
		t.Fatal(err)
	}

	ta := turn.TensionAnalysis
	if ta.DeltaSource != "classifier" || ta.AppliedDelta != policy.StressBonus {
		t.Errorf("source %q applied %d", ta.DeltaSource, ta.AppliedDelta)
	}
}

func TestTriggerCalmJitter(t *testing.T) {
	psy := psyche.New("Morgan", "analytical") // no stressors, untrained classifier
	psy.TensionLevel = 50
	gen := &scriptedGen{}
	policy := DefaultTensionPolicy()
	policy.LearnProbability = 0

	turn := NewTurn("Lovely weather today.", "analytical")
	if err := newTestTrigger(gen, policy, 7).Process(context.Background(), turn, psy); err != nil {
		t.Fatal(err)
	}

	ta := turn.TensionAnalysis
	if ta.DeltaSource != "jitter" {
		t.Fatalf("source = %q", ta.DeltaSource)
	}
	if ta.RequestedDelta < -policy.JitterRange || ta.RequestedDelta > policy.JitterRange {
		t.Errorf("jitter %d outside ±%d", ta.RequestedDelta, policy.JitterRange)
	}
}

func TestTriggerClampsAtCeiling(t *testing.T) {
	psy := analyticalPsyche()
	psy.TensionLevel = 95
	gen := &scriptedGen{responses: map[string]string{
		"tension appraisal": `{"delta": 20}`,
	}}
	policy := DefaultTensionPolicy()
	policy.LearnProbability = 0

	turn := NewTurn("We missed the deadline again.", "analytical")
	if err := newTestTrigger(gen, policy, 1).Process(context.Background(), turn, psy); err != nil {
		t.Fatal(err)
	}

	if psy.TensionLevel != psyche.TensionMax {
		t.Errorf("tension = %d", psy.TensionLevel)
	}
	if turn.TensionAnalysis.AppliedDelta != 5 {
		t.Errorf("applied = %d, want clamped 5", turn.TensionAnalysis.AppliedDelta)
	}
}

func TestTriggerLearnsPhraseFromStressfulInput(t *testing.T) {
	psy := analyticalPsyche()
	gen := &scriptedGen{}
	policy := DefaultTensionPolicy()
	policy.LearnProbability = 1

	turn := NewTurn("We missed the deadline again.", "analytical")
	if err := newTestTrigger(gen, policy, 3).Process(context.Background(), turn, psy); err != nil {
		t.Fatal(err)
	}

	phrase := turn.TensionAnalysis.LearnedPhrase
	if phrase == "" {
		t.Fatal("expected a learned phrase")
	}
	if words := strings.Fields(phrase); len(words) > policy.PhraseWindow {
		t.Errorf("phrase %q exceeds window %d", phrase, policy.PhraseWindow)
	}
	if psy.StressfulPhrases[0] != phrase {
		t.Errorf("learned phrase not newest-first: %v", psy.StressfulPhrases[:2])
	}
}

func TestTriggerEmotionSelection(t *testing.T) {
	psy := analyticalPsyche()
	gen := &scriptedGen{responses: map[string]string{
		"emotion selection": `{"emotion": "anxious", "reasoning": "slipping schedules unsettle me", "intensity": 6}`,
	}}
	policy := DefaultTensionPolicy()
	policy.LearnProbability = 0

	turn := NewTurn("We missed the deadline again.", "analytical")
	if err := newTestTrigger(gen, policy, 1).Process(context.Background(), turn, psy); err != nil {
		t.Fatal(err)
	}

	ea := turn.EmotionAnalysis
	if ea.Emotion != "anxious" || ea.Intensity != 6 || ea.Fallback {
		t.Errorf("got %+v", ea)
	}
	if psy.RecentEmotions[0] != "anxious" {
		t.Errorf("emotion not recorded: %v", psy.RecentEmotions)
	}
}

func TestTriggerEmotionOutsideCandidatesFallsBack(t *testing.T) {
	psy := analyticalPsyche()
	psy.RecentEmotions = []string{"happy", "sad", "angry"} // excluded from candidates
	gen := &scriptedGen{responses: map[string]string{
		"emotion selection": `{"emotion": "happy", "intensity": 9}`,
	}}
	policy := DefaultTensionPolicy()
	policy.LearnProbability = 0

	turn := NewTurn("We missed the deadline again.", "analytical")
	if err := newTestTrigger(gen, policy, 1).Process(context.Background(), turn, psy); err != nil {
		t.Fatal(err)
	}

	ea := turn.EmotionAnalysis
	if !ea.Fallback || ea.Emotion != DefaultEmotion {
		t.Errorf("recently-used emotion must be rejected, got %+v", ea)
	}
	for _, c := range ea.Candidates {
		if c == "happy" || c == "sad" || c == "angry" {
			t.Errorf("candidate set contains recent emotion %q", c)
		}
	}
}
