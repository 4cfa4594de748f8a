package nlu

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var fencePattern = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")

// extractJSONObject pulls a JSON object out of raw model output, tolerating
// markdown fences and surrounding prose.
func extractJSONObject(text string) (string, error) {
	text = strings.TrimSpace(text)

	if m := fencePattern.FindStringSubmatch(text); m != nil {
		candidate := strings.TrimSpace(m[1])
		if json.Valid([]byte(candidate)) {
			return candidate, nil
		}
	}

	start, end := balancedSpan(text, '{', '}')
	if start >= 0 {
		candidate := text[start:end]
		if json.Valid([]byte(candidate)) {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("no JSON object found")
}

// balancedSpan finds the first balanced opener..closer region, respecting
// string literals and escapes. Returns (-1, -1) if none.
func balancedSpan(text string, opener, closer byte) (int, int) {
	start := strings.IndexByte(text, opener)
	if start == -1 {
		return -1, -1
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		c := text[i]

		if escaped {
			escaped = false
			continue
		}

		switch c {
		case '\\':
			escaped = true
		case '"':
			inString = !inString
		case opener:
			if !inString {
				depth++
			}
		case closer:
			if !inString {
				depth--
				if depth == 0 {
					return start, i + 1
				}
			}
		}
	}

	return -1, -1
}
