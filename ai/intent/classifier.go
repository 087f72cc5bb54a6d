// Package intent provides deterministic rule-based intent classification.
// It never calls the network; every decision comes from an ordered regex
// table so the whole component is unit-testable offline.
package intent

import (
	"regexp"
	"strings"

	"github.com/mhalter/coachflow/ai/mode"
)

// Intent is a coarse tag for what the user is trying to do this turn.
type Intent string

const (
	IntentCreateTask      Intent = "create_task"
	IntentCreateEvent     Intent = "create_event"
	IntentCreateNote      Intent = "create_note"
	IntentCreateChallenge Intent = "create_challenge"
	IntentUpdateEntity    Intent = "update_entity"
	IntentCompleteEntity  Intent = "complete_entity"
	IntentStartCeremony   Intent = "start_ceremony"
	IntentEndCeremony     Intent = "end_ceremony"
	IntentStatusReport    Intent = "status_report"
	IntentStandupReport   Intent = "standup_report"
	IntentQuestion        Intent = "question"
	IntentGeneralChat     Intent = "general_chat"
)

// The pattern table is ordered by specificity: creation first, then
// update/complete, ceremony control, reporting, and finally the generic
// question catch-all. First match wins.
var patternTable = []struct {
	pattern *regexp.Regexp
	intent  Intent
}{
	{regexp.MustCompile(`(?i)\b(add|create|new|make) (?:a |an )?task\b|\btask to\b|\bneed to (?:do|finish)\b|\btodo\b`), IntentCreateTask},
	{regexp.MustCompile(`(?i)\b(schedule|book|set up) (?:a |an )?(meeting|event|appointment|call)\b|\bput (?:it |this )?on (?:my |the )?calendar\b`), IntentCreateEvent},
	{regexp.MustCompile(`(?i)\b(start|begin|take on) (?:a |the )?challenge\b|\bchallenge myself\b`), IntentCreateChallenge},
	{regexp.MustCompile(`(?i)\b(note|write) (?:this |that |it )?down\b|\b(take|make) a note\b|\bremember that\b`), IntentCreateNote},
	{regexp.MustCompile(`(?i)\b(update|change|move|reschedule|rename|edit)\b`), IntentUpdateEntity},
	{regexp.MustCompile(`(?i)\b(done with|finished|completed?|mark .{0,30}(?:done|complete)|check off)\b`), IntentCompleteEntity},
	{regexp.MustCompile(`(?i)\b(start|begin|kick off) (?:the |my |our )?(standup|planning|retro(?:spective)?|review|refinement)\b`), IntentStartCeremony},
	{regexp.MustCompile(`(?i)\b(end|finish|wrap up|close) (?:the |my |our )?(standup|planning|retro(?:spective)?|review|refinement|session)\b`), IntentEndCeremony},
	{regexp.MustCompile(`(?i)\b(how am i doing|progress|status|summary|overview|where do (?:i|we) stand)\b`), IntentStatusReport},
	{regexp.MustCompile(`(?i)\?\s*$|^(?:what|when|where|who|why|how|can|could|should|would|is|are|do|does)\b`), IntentQuestion},
}

// Creation verbs for the standup short-circuit: if the input carries an
// explicit creation verb, the standup bias must not swallow it.
var creationVerbPattern = regexp.MustCompile(`(?i)\b(add|create|new|make|schedule|book|note|remember|capture)\b`)

// Ceremony-control phrases also escape the standup bias: "wrap up the
// standup" is session control, not a status report, and swallowing it
// would leave the session without a user-driven close.
var ceremonyControlPattern = regexp.MustCompile(`(?i)\b(start|begin|kick off|end|finish|wrap up|close) (?:the |my |our )?(standup|planning|retro(?:spective)?|review|refinement|session)\b`)

// Classify tags the input text with an intent. Empty input or no pattern
// match yields IntentGeneralChat. Under STANDUP mode, input without an
// explicit creation verb or ceremony-control phrase is treated as a
// standup report regardless of the pattern table.
func Classify(text string, m mode.Mode) Intent {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return IntentGeneralChat
	}

	if m == mode.Standup && !creationVerbPattern.MatchString(trimmed) && !ceremonyControlPattern.MatchString(trimmed) {
		return IntentStandupReport
	}

	for _, entry := range patternTable {
		if entry.pattern.MatchString(trimmed) {
			return entry.intent
		}
	}
	return IntentGeneralChat
}

// IsCreation reports whether the intent proposes creating an entity.
func (i Intent) IsCreation() bool {
	switch i {
	case IntentCreateTask, IntentCreateEvent, IntentCreateNote, IntentCreateChallenge:
		return true
	default:
		return false
	}
}

func (i Intent) String() string {
	return string(i)
}
