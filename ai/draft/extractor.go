package draft

import (
	"log/slog"
	"regexp"
	"strings"
)

// Fenced draft regions in model output: >>>DRAFT { ... } <<<DRAFT.
// Non-greedy and multiline so multiple regions in one response stay apart.
var draftBlockRegex = regexp.MustCompile(`(?s)>>>DRAFT(.*?)<<<DRAFT`)

// Result is the outcome of extracting drafts from one model response.
type Result struct {
	Drafts         []*Parsed
	Conversational string
	// MalformedBlocks counts fenced regions that were present but could not
	// be parsed. Callers use it to distinguish "no drafts proposed" from
	// "drafts proposed but unusable".
	MalformedBlocks int
}

// Extract recovers typed drafts from free-form model output.
//
// Two strategies, tried in order:
//  1. Fenced-block: each >>>DRAFT ... <<<DRAFT region is cleaned and parsed
//     as one draft object; malformed regions are skipped with a warning.
//     The non-draft remainder becomes the conversational reply.
//  2. Whole-output JSON: only when no fenced region exists, the entire
//     cleaned output is tried as a single draft object.
func Extract(output string) Result {
	matches := draftBlockRegex.FindAllStringSubmatchIndex(output, -1)
	if len(matches) > 0 {
		return extractFenced(output, matches)
	}
	return extractBareJSON(output)
}

func extractFenced(output string, matches [][]int) Result {
	result := Result{}
	var remainder strings.Builder
	prevEnd := 0

	for _, m := range matches {
		remainder.WriteString(output[prevEnd:m[0]])
		prevEnd = m[1]

		candidate := cleanCandidate(output[m[2]:m[3]])
		if candidate == "" {
			slog.Warn("draft extractor: fenced region carries no JSON object")
			result.MalformedBlocks++
			continue
		}
		parsed, err := DecodeObject([]byte(candidate))
		if err != nil {
			slog.Warn("draft extractor: skipping malformed draft region", "error", err)
			result.MalformedBlocks++
			continue
		}
		result.Drafts = append(result.Drafts, parsed)
	}
	remainder.WriteString(output[prevEnd:])

	result.Conversational = tidy(remainder.String())
	return result
}

func extractBareJSON(output string) Result {
	candidate := cleanCandidate(output)
	if candidate == "" {
		return Result{Conversational: tidy(output)}
	}
	parsed, err := DecodeObject([]byte(candidate))
	if err != nil {
		// Not a draft object; the whole output is conversational.
		return Result{Conversational: tidy(output)}
	}
	return Result{Drafts: []*Parsed{parsed}}
}

// tidy collapses the whitespace gaps left behind by removed draft regions.
func tidy(s string) string {
	lines := strings.Split(s, "\n")
	var kept []string
	blank := false
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			if !blank && len(kept) > 0 {
				kept = append(kept, "")
			}
			blank = true
			continue
		}
		blank = false
		kept = append(kept, strings.TrimRight(line, " \t"))
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
