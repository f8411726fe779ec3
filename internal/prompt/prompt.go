// Package prompt renders the psyche into the prompts each cognitive stage
// sends through the generation port. Prompts are built without indentation;
// smaller models mangle leading whitespace.
package prompt

import (
	"fmt"
	"strings"

	"github.com/nworb999/stable-genius/internal/psyche"
)

// psycheContext renders the shared header every stage prompt starts with.
// recalled overrides the default last-10 memory window when semantic recall
// produced something better.
func psycheContext(p *psyche.Psyche, recalled []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are %s with a %s personality.\n", p.Name, p.Personality)
	if p.Interior.Summary != "" {
		fmt.Fprintf(&b, "Personal narrative: %s\n", p.Interior.Summary)
	}
	if p.Interior.Principles != "" {
		fmt.Fprintf(&b, "Guiding principles: %s\n", p.Interior.Principles)
	}

	tension := p.TensionInterpretation
	if tension == "" {
		tension = fmt.Sprintf("%d/100 tension", p.TensionLevel)
	}
	fmt.Fprintf(&b, "Current state: %s\n", tension)

	history := recalled
	if len(history) == 0 {
		for _, m := range p.RecentMemories(10) {
			history = append(history, m.String())
		}
	}
	if len(history) == 0 {
		b.WriteString("Recent history: No memories yet\n")
	} else {
		fmt.Fprintf(&b, "Recent history: %s\n", strings.Join(history, " | "))
	}

	peers := make([]string, 0, len(p.Relationships))
	for peer := range p.Relationships {
		peers = append(peers, peer)
	}
	fmt.Fprintf(&b, "Relationships: %s\n", orNone(strings.Join(peers, ", ")))
	fmt.Fprintf(&b, "Conversation memory: %s\n", orDefault(p.ConversationMemory, "No conversation summary yet"))
	fmt.Fprintf(&b, "Current goal: %s\n", orDefault(p.Goal, "No goal set"))
	fmt.Fprintf(&b, "Current plan: %s\n", orDefault(strings.Join(p.Plan, ", "), "No plan set"))
	fmt.Fprintf(&b, "Active tactic: %s", orNone(p.ActiveTactic))
	return b.String()
}

// interiorGuidance prefixes interiority context, falling back to personality
// framing when the agent has no inner narrative yet.
func interiorGuidance(p *psyche.Psyche, narrativeVerb, principlesVerb string) string {
	var b strings.Builder
	if p.Interior.Summary != "" {
		fmt.Fprintf(&b, "%s your personal narrative: %s\n", narrativeVerb, p.Interior.Summary)
	}
	if p.Interior.Principles != "" {
		fmt.Fprintf(&b, "%s your principles: %s\n", principlesVerb, p.Interior.Principles)
	}
	if b.Len() == 0 {
		fmt.Fprintf(&b, "Drawing from your %s personality traits, ", p.Personality)
	}
	return b.String()
}

// Plan asks for a fresh goal and ordered tactic list. Used only when the
// psyche has no plan yet; otherwise use TacticSelection.
func Plan(p *psyche.Psyche, recalled []string) string {
	return fmt.Sprintf(`%s

%s
What should be your goal and plan in this conversation? Your goal and tactics should be deeply rooted in who you are as a person - your personal story, your values, and your guiding principles.

IMPORTANT: Respond ONLY with valid JSON containing 'goal', 'plan', and 'summary' keys.
The 'plan' should be an ordered array of tactics that align with your inner self and principles.
The 'summary' should be a brief present-tense inner monologue on how your personal narrative shapes this plan. Do NOT include any actions such as *anxiously adjusts glasses*
Example response: {"goal": "build genuine connection based on shared values", "plan": ["listen for underlying values", "share relevant personal experience", "find common ground"], "summary": "I need to find something authentic we both care about. That's the only way this feels meaningful to me."}`,
		psycheContext(p, recalled),
		interiorGuidance(p, "Based on", "Guided by"))
}

// TacticSelection asks whether to keep or switch the active tactic within
// the existing plan.
func TacticSelection(p *psyche.Psyche, recalled []string) string {
	return fmt.Sprintf(`%s

%s
You have used the tactic "%s" for %d round(s). Given the current state of the conversation, should you:
1. Keep using "%s" because it aligns with your inner values and the situation calls for it
2. Switch to a different tactic from your plan that better reflects who you are in this moment

IMPORTANT: Respond ONLY with valid JSON containing 'active_tactic' and 'summary' keys. The 'active_tactic' must be one of your plan's tactics.
The 'summary' should be a brief present-tense inner monologue on how your personal narrative guides this choice. Do NOT include any actions such as *anxiously adjusts glasses*
Example response: {"active_tactic": "show vulnerability", "summary": "If I'm really committed to being authentic, I need to let them see the real me, even if it's scary."}`,
		psycheContext(p, recalled),
		interiorGuidance(p, "Reflecting on", "Staying true to"),
		p.ActiveTactic, p.RoundsSinceTacticChange, p.ActiveTactic)
}

// Act asks for the turn's action and speech.
func Act(p *psyche.Psyche, observation string, recalled []string) string {
	return fmt.Sprintf(`%s

%s

How should you respond? Use your active tactic to guide your response.

IMPORTANT: Respond ONLY with valid JSON containing 'action', 'speech', 'conversation_summary', and 'summary' keys.
'conversation_summary' should be a brief 1-2 sentence update of how you perceive the conversation is going.
The 'summary' should be the utterance itself without quotes.
Example response: {"action": "say", "speech": "Hello, how are you doing today?", "conversation_summary": "The conversation just started with a greeting. I need to build rapport.", "summary": "Hello, how are you doing today?"}`,
		psycheContext(p, recalled), observation)
}

// Intent asks for a closed-set intent classification of the last message.
func Intent(lastMessage string, history []string) string {
	context := ""
	if len(history) > 0 {
		if len(history) > 10 {
			history = history[len(history)-10:]
		}
		context = "Previous conversation:\n" + strings.Join(history, "\n") + "\n\n"
	}
	return fmt.Sprintf(`Classify the intent of the following message into one of these categories: question, statement, command, greeting, farewell, small_talk, other.

%sLast message to classify: "%s"

Respond with a JSON object containing:
{"intent": "category", "confidence": 0-100, "emotional_tone": "neutral|warm|hostile|playful|tense", "urgency": "low|medium|high", "category": "general|personal|task|social"}`,
		context, lastMessage)
}

// TensionDelta asks how the observation moves the agent's tension level.
func TensionDelta(p *psyche.Psyche, observation string) string {
	return fmt.Sprintf(`%s

You just heard: "%s"

How does this land on you, given your narrative and current state? Estimate the change to your tension level.

IMPORTANT: Respond ONLY with valid JSON containing 'delta' and 'reasoning' keys.
'delta' is an integer between -20 and 20 (negative means you relax, positive means you tense up).
Example response: {"delta": 8, "reasoning": "Being reminded of the missed deadline puts me on edge because I pride myself on precision."}`,
		psycheContext(p, nil), observation)
}

// Emotion asks the model to pick one emotion from the candidate set.
func Emotion(p *psyche.Psyche, observation string, candidates []string) string {
	return fmt.Sprintf(`%s

You just heard: "%s"

Which of these emotions best matches your reaction: %s?

IMPORTANT: Respond ONLY with valid JSON containing 'emotion', 'reasoning', and 'intensity' keys. 'emotion' must be one of the listed candidates. 'intensity' is an integer from 1 to 10.
Example response: {"emotion": "anxious", "reasoning": "This conversation is drifting toward territory I can't control.", "intensity": 6}`,
		psycheContext(p, nil), observation, strings.Join(candidates, ", "))
}

// TensionInterpretation asks for a qualitative reading of the numeric level.
func TensionInterpretation(p *psyche.Psyche) string {
	return fmt.Sprintf(`%s

Your tension level is %d/100. Describe in one sentence, first person, how this feels for you specifically - filtered through your narrative and principles, not a generic description.

IMPORTANT: Respond ONLY with valid JSON containing an 'interpretation' key.
Example response: {"interpretation": "I'm carrying a low hum of unease that sharpens every time the conversation slows down."}`,
		psycheContext(p, nil), p.TensionLevel)
}

// StressorMining asks directly for new stressful phrases in the input,
// distinct from the passive sampling done during appraisal.
func StressorMining(p *psyche.Psyche, input string) string {
	known := strings.Join(p.StressfulPhrases, ", ")
	if len(p.StressfulPhrases) > 15 {
		known = strings.Join(p.StressfulPhrases[:15], ", ")
	}
	return fmt.Sprintf(`You are %s with a %s personality. Phrases that already stress you: %s

Input: "%s"

List any NEW words or short phrases in this input that would stress you specifically, given who you are. Return an empty list if nothing qualifies.

IMPORTANT: Respond ONLY with valid JSON containing a 'phrases' key holding an array of strings.
Example response: {"phrases": ["missed the deadline", "your fault"]}`,
		p.Name, p.Personality, orNone(known), input)
}

// Reflection asks for the end-of-turn inner monologue and interior updates.
func Reflection(p *psyche.Psyche, input, speech string) string {
	return fmt.Sprintf(`%s

You just processed this interaction:
Input: "%s"
Your response: "%s"

Reflect on this cognitive process. Consider how this interaction relates to your personal narrative and guiding principles. Update your understanding of yourself and the situation.

IMPORTANT: Respond ONLY with valid JSON containing 'summary', 'interior_update', and 'principles_insight' keys.
- 'summary': a brief present-tense inner monologue. Do NOT include any actions such as *anxiously adjusts glasses*
- 'interior_update': update to your personal narrative based on this interaction (empty string if none).
- 'principles_insight': any insight about how your principles applied or evolved (empty string if none).
Example response: {"summary": "That exchange felt natural... I'm getting better at reading between the lines.", "interior_update": "I'm becoming more confident in casual conversations.", "principles_insight": "My principle of being helpful guided me to ask follow-up questions."}`,
		psycheContext(p, nil), input, speech)
}

// StyleTransfer asks for a presentation-persona rewrite of the chosen
// speech, preserving its propositional content.
func StyleTransfer(p *psyche.Psyche, originalSpeech string) string {
	return fmt.Sprintf(`Transform the following speech into reality TV show dialogue style. Make it sound more dramatic, gossipy, and conversational while keeping the core meaning intact.

Original speech: "%s"

Speaker context: %s, current tension: %d/100

Style guidelines:
- Add dramatic flair and emotion
- Use informal language, filler words like "like", "literally", "honestly", and uptalk
- Include subtle shade or passive-aggressive undertones when appropriate
- Do NOT use any actions such as *nods head*

IMPORTANT: Respond ONLY with valid JSON containing 'styled_speech' and 'summary' keys.
Example response: {"styled_speech": "Look, I totally get what you're saying, but honestly? Something's just not adding up for me.", "summary": "Added filler words and made it more direct while keeping the point."}`,
		originalSpeech, p.Name, p.TensionLevel)
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func orNone(s string) string {
	return orDefault(s, "None")
}
