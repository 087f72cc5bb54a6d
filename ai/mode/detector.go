package mode

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"
)

// Ceremony is an externally tracked scheduled ritual that is currently in
// progress for a user. Kind must be one of "planning", "standup",
// "retrospective", "review", "refinement".
type Ceremony struct {
	Kind string
}

// CeremonyLookup reports ceremonies currently in progress for a user.
// Implementations are expected to return at most one active ceremony per
// user in practice; the detector takes the first.
type CeremonyLookup interface {
	ActiveCeremonies(ctx context.Context, userID int32) ([]Ceremony, error)
}

var ceremonyModes = map[string]Mode{
	"planning":      Planning,
	"standup":       Standup,
	"retrospective": Retrospective,
	"review":        Review,
	"refinement":    Refinement,
}

// Keyword patterns per mode, checked in a fixed order. Standup first since
// its vocabulary ("yesterday I", "today I will") is the most specific.
var (
	standupPattern  = regexp.MustCompile(`(?i)\b(stand-?up|daily (?:check-?in|report)|yesterday i|today i (?:will|plan))\b`)
	planningPattern = regexp.MustCompile(`(?i)\b(plan(?:ning)? (?:my|the|this|next) (?:week|sprint)|sprint planning|weekly plan)\b`)
	retroPattern    = regexp.MustCompile(`(?i)\b(retro(?:spective)?|look(?:ing)? back (?:at|on)|how did (?:i|we) do)\b`)
	capturePattern  = regexp.MustCompile(`(?i)\b(capture|jot (?:this|that|it)? ?down|quick (?:note|thought)|remind me to|don't let me forget)\b`)
)

var orderedKeywordChecks = []struct {
	pattern *regexp.Regexp
	mode    Mode
}{
	{standupPattern, Standup},
	{planningPattern, Planning},
	{retroPattern, Retrospective},
	{capturePattern, Capture},
}

// Detector chooses the conversational mode for a turn via a priority chain:
// explicit override, active ceremony, day/time heuristic (adopted only when
// the text agrees), keyword matching, then FREEFORM.
type Detector struct {
	ceremonies CeremonyLookup
	now        func() time.Time
}

// NewDetector creates a mode detector. ceremonies may be nil, in which case
// the ceremony step of the chain is skipped. now may be nil for wall clock.
func NewDetector(ceremonies CeremonyLookup, now func() time.Time) *Detector {
	if now == nil {
		now = time.Now
	}
	return &Detector{ceremonies: ceremonies, now: now}
}

// Detect resolves the mode for one turn. explicitMode is the raw override
// string from the caller ("" for none); an invalid override logs and falls
// through rather than failing the turn.
func (d *Detector) Detect(ctx context.Context, userID int32, text string, explicitMode string) Mode {
	// 1. Explicit override.
	if explicitMode != "" {
		if m, ok := Parse(explicitMode); ok {
			return m
		}
		slog.Warn("invalid explicit mode, falling through", "mode", explicitMode, "user_id", userID)
	}

	// 2. Ceremony in progress.
	if d.ceremonies != nil {
		ceremonies, err := d.ceremonies.ActiveCeremonies(ctx, userID)
		if err != nil {
			slog.Debug("ceremony lookup failed, skipping", "user_id", userID, "error", err)
		} else if len(ceremonies) > 0 {
			if m, ok := ceremonyModes[strings.ToLower(ceremonies[0].Kind)]; ok {
				return m
			}
		}
	}

	// 3. Day/time heuristic, adopted only if the text agrees. The heuristic
	// never overrides content.
	if candidate, ok := d.timeCandidate(); ok {
		if keywordFor(candidate, text) {
			return candidate
		}
	}

	// 4. Keyword matching across the remaining modes, fixed order.
	for _, check := range orderedKeywordChecks {
		if check.pattern.MatchString(text) {
			return check.mode
		}
	}

	// 5. Fallback.
	return Freeform
}

// timeCandidate returns the mode suggested by the current day and time of
// day, if any: Sunday afternoon leans planning, weekday mornings lean
// standup, Friday late afternoon leans retrospective.
func (d *Detector) timeCandidate() (Mode, bool) {
	now := d.now()
	hour := now.Hour()

	switch now.Weekday() {
	case time.Sunday:
		if hour >= 12 && hour < 18 {
			return Planning, true
		}
	case time.Friday:
		if hour >= 15 && hour < 19 {
			return Retrospective, true
		}
		if hour >= 6 && hour < 11 {
			return Standup, true
		}
	case time.Saturday:
		// No ceremony leanings on Saturday.
	default:
		if hour >= 6 && hour < 11 {
			return Standup, true
		}
	}
	return "", false
}

func keywordFor(m Mode, text string) bool {
	for _, check := range orderedKeywordChecks {
		if check.mode == m {
			return check.pattern.MatchString(text)
		}
	}
	return false
}
