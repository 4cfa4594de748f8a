package pipeline

import "strings"

var acknowledgmentPhrases = []string{
	"i hear you", "makes sense", "i see", "understandable", "that sounds",
	"it sounds", "that makes", "well done", "that's real progress",
	"good for you", "i'm glad",
}

func hasAcknowledgment(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range acknowledgmentPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// Format rules for a served response: exactly one question or an explicit
// acknowledgment, no list formatting, and a word ceiling. maxWords is the
// target the model was prompted with; the enforced ceiling is 1.5x that, so
// the occasional long sentence does not force a regeneration. Violations
// trigger one corrective regeneration; a second failure is served anyway
// and flagged.
func validateResponse(text string, maxWords int) []string {
	var violations []string

	switch n := strings.Count(text, "?"); {
	case n > 1:
		violations = append(violations, "more than one question")
	case n == 0 && !hasAcknowledgment(text):
		violations = append(violations, "neither a question nor an acknowledgment")
	}

	if maxWords > 0 {
		limit := maxWords + maxWords/2
		if words := len(strings.Fields(text)); words > limit {
			violations = append(violations, "too long")
		}
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* ") ||
			strings.HasPrefix(trimmed, "• ") || hasNumberedPrefix(trimmed) {
			violations = append(violations, "list formatting")
			break
		}
	}

	return violations
}

func hasNumberedPrefix(line string) bool {
	if len(line) < 3 {
		return false
	}
	if line[0] < '0' || line[0] > '9' {
		return false
	}
	return (line[1] == '.' || line[1] == ')') && line[2] == ' '
}

func correctiveNote(violations []string) string {
	return "\n\nYour previous attempt broke the format (" + strings.Join(violations, "; ") +
		"). Rewrite it: one short warm paragraph, at most one question, no lists."
}
