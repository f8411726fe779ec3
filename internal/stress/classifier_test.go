package stress

import "testing"

var analyticalStressors = []string{
	"deadline", "missed the deadline", "error", "mistake", "incorrect",
	"flawed", "bug", "problem", "failure", "insufficient data",
}

func TestClassifyStressfulObservation(t *testing.T) {
	c := NewClassifier(analyticalStressors, NeutralPhrases)
	label, conf := c.Classify("We missed the deadline again.")
	if label != LabelStressful {
		t.Fatalf("label = %q, conf = %.3f", label, conf)
	}
	if conf < 0.2 {
		t.Errorf("confidence %.3f below actionable floor", conf)
	}
}

func TestClassifyNeutralObservation(t *testing.T) {
	c := NewClassifier(analyticalStressors, NeutralPhrases)
	label, _ := c.Classify("The weather is lovely, thank you so much!")
	if label != LabelNeutral {
		t.Errorf("label = %q", label)
	}
}

func TestClassifyEmptyInput(t *testing.T) {
	c := NewClassifier(analyticalStressors, NeutralPhrases)
	label, conf := c.Classify("")
	if label != LabelNeutral || conf != 0 {
		t.Errorf("got %q %.3f, want neutral 0", label, conf)
	}
}

func TestClassifyUntrainedModel(t *testing.T) {
	c := NewClassifier(nil, nil)
	label, conf := c.Classify("anything at all")
	if label != LabelNeutral || conf != 0 {
		t.Errorf("untrained model returned %q %.3f", label, conf)
	}
}

func TestPerAgentDisagreement(t *testing.T) {
	friendly := NewClassifier([]string{"argument", "rejected", "hurt feelings", "hostile"}, NeutralPhrases)
	analytical := NewClassifier(analyticalStressors, NeutralPhrases)

	text := "There is a bug and the data is insufficient."
	aLabel, _ := analytical.Classify(text)
	fLabel, _ := friendly.Classify(text)
	if aLabel != LabelStressful {
		t.Errorf("analytical agent should flag %q", text)
	}
	if fLabel == LabelStressful {
		t.Errorf("friendly agent should not flag %q", text)
	}
}

func TestConfidenceRange(t *testing.T) {
	c := NewClassifier(analyticalStressors, NeutralPhrases)
	for _, text := range []string{
		"We missed the deadline again.",
		"hello there",
		"deadline deadline deadline",
		"a completely unrelated sentence about gardening",
	} {
		_, conf := c.Classify(text)
		if conf < 0 || conf > 1 {
			t.Errorf("confidence %.3f out of range for %q", conf, text)
		}
	}
}
