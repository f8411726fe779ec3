// Package stress provides a small binary text classifier used to appraise
// whether an observation is stressful for a given agent. It is trained per
// agent from that agent's learned stressful phrases plus a fixed neutral
// corpus, so two agents disagree about the same sentence.
package stress

import (
	"math"
	"strings"
)

// Classification labels.
const (
	LabelStressful = "stressful"
	LabelNeutral   = "neutral"
)

// NeutralPhrases is the fixed counterweight corpus. Agent-specific stressors
// are trained against it.
var NeutralPhrases = []string{
	"hello there",
	"nice to meet you",
	"how are you doing today",
	"the weather is lovely",
	"thank you so much",
	"that sounds interesting",
	"have a great day",
	"see you later",
	"what do you think about this",
	"let's grab a coffee sometime",
	"that reminds me of a story",
	"i enjoyed our conversation",
	"tell me more about yourself",
	"everything is going well",
	"sounds like a plan",
}

// Classifier is a bag-of-words Naive Bayes model over two classes.
type Classifier struct {
	counts    [2]map[string]int
	totals    [2]int
	docs      [2]int
	vocabSize int
}

// NewClassifier trains a classifier from the stressful and neutral corpora.
// Either corpus may be empty; classification then leans entirely on the
// priors and stays low-confidence.
func NewClassifier(stressful, neutral []string) *Classifier {
	c := &Classifier{}
	c.counts[0] = make(map[string]int)
	c.counts[1] = make(map[string]int)
	vocab := make(map[string]bool)

	train := func(class int, docs []string) {
		for _, doc := range docs {
			toks := tokenize(doc)
			if len(toks) == 0 {
				continue
			}
			c.docs[class]++
			for _, t := range toks {
				c.counts[class][t]++
				c.totals[class]++
				vocab[t] = true
			}
		}
	}
	train(0, neutral)
	train(1, stressful)
	c.vocabSize = len(vocab)
	return c
}

// Classify returns the predicted label and a confidence in [0,1]. The
// confidence is the posterior probability of the winning class; callers gate
// on a floor before treating "stressful" as actionable.
func (c *Classifier) Classify(text string) (string, float64) {
	toks := tokenize(text)
	if len(toks) == 0 || c.docs[0]+c.docs[1] == 0 {
		return LabelNeutral, 0
	}

	logp := [2]float64{}
	totalDocs := float64(c.docs[0] + c.docs[1])
	for class := 0; class < 2; class++ {
		prior := (float64(c.docs[class]) + 1) / (totalDocs + 2)
		logp[class] = math.Log(prior)
		denom := float64(c.totals[class] + c.vocabSize + 1)
		for _, t := range toks {
			logp[class] += math.Log((float64(c.counts[class][t]) + 1) / denom)
		}
	}

	// Convert log scores to a posterior via the log-sum-exp trick.
	max := math.Max(logp[0], logp[1])
	p0 := math.Exp(logp[0] - max)
	p1 := math.Exp(logp[1] - max)
	posterior := p1 / (p0 + p1)

	if posterior >= 0.5 {
		return LabelStressful, posterior
	}
	return LabelNeutral, 1 - posterior
}

// tokenize splits text into lowercase word tokens, keeping unicode words and
// dropping single characters.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !((r >= 'a' && r <= 'z') ||
			(r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') ||
			r == '_' || r == '-' ||
			r > 127)
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		w := strings.ToLower(f)
		if len(w) > 1 {
			out = append(out, w)
		}
	}
	return out
}
