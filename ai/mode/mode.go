// Package mode decides which conversational mode a turn belongs to.
package mode

import "strings"

// Mode is the conversational context that determines which prompt and
// session rules apply to a turn.
type Mode string

const (
	Freeform      Mode = "FREEFORM"
	Capture       Mode = "CAPTURE"
	Planning      Mode = "PLANNING"
	Standup       Mode = "STANDUP"
	Retrospective Mode = "RETROSPECTIVE"
	Review        Mode = "REVIEW"
	Refinement    Mode = "REFINEMENT"
)

// All lists every valid mode.
var All = []Mode{Freeform, Capture, Planning, Standup, Retrospective, Review, Refinement}

// Parse resolves a mode string case-insensitively. The second return value
// is false for anything outside the closed mode set.
func Parse(s string) (Mode, bool) {
	upper := Mode(strings.ToUpper(strings.TrimSpace(s)))
	for _, m := range All {
		if m == upper {
			return m, true
		}
	}
	return "", false
}

func (m Mode) String() string {
	return string(m)
}
