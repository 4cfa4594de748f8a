package pipeline

import (
	"fmt"
	"strings"

	"github.com/bowerhall/goldfish/internal/budget"
	"github.com/bowerhall/goldfish/internal/nlu"
)

const personaPrompt = `You are Goldfish, a warm, conversational interviewer who helps people explore their thoughts and feelings through gentle dialogue.

Core purpose:
- Engage in natural conversation to help users understand themselves better
- Use empathetic listening and gentle questions to uncover deeper insights
- Create a safe space for reflection

Response structure:
- Always start with a conversational filler: "I see..." / "Makes sense..." / "Understandable..." / "I hear you..."
- Add a brief observation about their situation (1-2 clauses) in simple, everyday language
- Then exactly ONE gentle, conversational question
- OR, if the user shows clear insight or growth, acknowledge their progress warmly instead of asking
- Keep the whole response under %d words
- Never use lists or bullet points
- Reference past entries only when they reveal patterns, contrasts, or contradictions

Safety:
- You are not a mental health professional. If the user reveals signs of crisis, self-harm, or severe distress, respond with empathy, state your limitation, and encourage them to reach out to a trusted professional or crisis resource.

Examples:
User: "I'm so angry at my boss. He keeps criticizing my work in front of the team."
Response: "I hear you. It sounds like being called out publicly is the hardest part. What is it about being exposed in front of others that feels different from getting private feedback?"

User: "I've been feeling sad all week but I don't know why."
Response: "Makes sense. Unexplained sadness often has something behind it. What changed or ended in the days before you started feeling this way?"

User: "I miss my ex, but I know getting back together would be bad."
Response: "Understandable. Missing someone is complex. What exactly are you missing, the person, or how you felt when you were together?"`

const greetingSystemPrompt = `You are Goldfish, an empathetic journaling guide. Generate a brief, warm welcome message (under 20 words) that optionally references the user's recent journal entries. Examples: "Welcome back. How have you been?" or "Welcome back. How are you feeling today?"`

const defaultGreeting = "Welcome back. How have you been?"

const unavailableResponse = "I'm having trouble processing that right now. Could you try again?"

var intentPrompts = map[nlu.Intent]string{
	nlu.IntentSelfReflection:    "Engage conversationally to help them reflect on patterns in their thinking. Use warm, simple language, and if they show clear insight, acknowledge it warmly.",
	nlu.IntentPlanning:          "Gently explore their plans through conversation. What feelings or worries might be influencing this decision?",
	nlu.IntentEmotionalRelease:  "This entry has strong feelings. With warmth, help them understand what's behind these emotions using simple, gentle questions.",
	nlu.IntentInsightGeneration: "Notice patterns in what they're sharing. Use conversational language, and if they show awareness, celebrate that insight.",
	nlu.IntentGeneral:           "Engage warmly and simply to understand what they're feeling and thinking. Use easy conversational questions, and acknowledge when they show progress.",
}

func intentPrompt(intent nlu.Intent) string {
	if p, ok := intentPrompts[intent]; ok {
		return p
	}
	return intentPrompts[nlu.IntentGeneral]
}

var greetingPatterns = []string{
	"hello", "hi", "hey", "greetings", "good morning",
	"good afternoon", "good evening", "sup", "what's up",
}

// Self-awareness markers that switch the turn from probing to
// acknowledging. A lexical heuristic; the cadence-based fallback in the
// orchestrator covers entries that show insight without these phrases.
var insightMarkers = []string{
	"i realize", "i realized", "i've realized", "i noticed", "i've noticed",
	"i understand now", "now i understand", "looking back", "i figured out",
	"it finally clicked", "i know why",
}

func showsInsight(text string) bool {
	lower := strings.ToLower(text)
	for _, marker := range insightMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func isGreeting(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	if len(strings.Fields(lower)) > 3 {
		return false
	}
	for _, pattern := range greetingPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// buildSystemPrompt folds the assembled context and routing decisions into
// the persona prompt for one turn.
func (p *Pipeline) buildSystemPrompt(block *budget.Block, facts *nlu.Facts, acknowledge bool) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, personaPrompt, p.cfg.MaxResponseWords)

	if block != nil && !block.Empty() {
		sb.WriteString("\n\nContext for this turn:\n")
		sb.WriteString(block.Render())
		sb.WriteString("\n\nUse this context subtly and naturally, but don't over-reference it.")
	}

	intent := nlu.IntentGeneral
	if facts != nil {
		intent = facts.Intent
	}
	sb.WriteString("\n\nCurrent task: " + intentPrompt(intent))

	if facts != nil && maxIntensity(facts) >= p.cfg.IntensityThreshold {
		sb.WriteString("\n\nThe user's emotions are running high right now. Be especially gentle: soften your observation, and if a question risks adding pressure, acknowledge their feelings instead.")
	}

	if acknowledge {
		sb.WriteString("\n\nFor this turn, do not ask a question. Acknowledge what the user has shared and reflect it back warmly.")
	}

	return sb.String()
}

func maxIntensity(facts *nlu.Facts) int {
	max := 0
	for _, e := range facts.Emotions {
		if e.Intensity > max {
			max = e.Intensity
		}
	}
	return max
}
