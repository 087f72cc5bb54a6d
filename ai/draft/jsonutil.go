package draft

import "strings"

// CleanResponse strips markdown code fences (```json ... ``` or plain
// ``` ... ```) from model output. Cleaning is idempotent: text already free
// of fences comes back unchanged.
func CleanResponse(s string) string {
	lines := strings.Split(s, "\n")
	var result []string
	inFence := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			continue
		}
		result = append(result, line)
	}
	return strings.Join(result, "\n")
}

// ExtractJSONObject finds the first balanced { ... } block in the text,
// honoring string literals and escapes. Returns "" when no complete object
// exists.
func ExtractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]

		if escaped {
			escaped = false
			continue
		}
		if c == '\\' && inString {
			escaped = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}

	return ""
}

// cleanCandidate prepares one candidate region for JSON parsing: strip
// fences, then locate the outermost object if the text is not already bare
// JSON.
func cleanCandidate(s string) string {
	cleaned := strings.TrimSpace(CleanResponse(s))
	if strings.HasPrefix(cleaned, "{") && strings.HasSuffix(cleaned, "}") {
		return cleaned
	}
	return ExtractJSONObject(cleaned)
}
