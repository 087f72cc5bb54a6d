// Package prompt stores versioned prompt templates and layers them into
// chat messages.
package prompt

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/mhalter/coachflow/ai/mode"
	"github.com/mhalter/coachflow/store"
)

// Template keys. One mode instruction key per mode, plus the shared persona.
const (
	KeyPersona = "persona.base"

	keyModePrefix = "mode."
)

// ModeKey returns the storage key for a mode's instruction block.
func ModeKey(m mode.Mode) string {
	return keyModePrefix + strings.ToLower(m.String())
}

// Hardcoded fallback templates, used when storage is unavailable or the key
// is disabled. Every key a consumer asks for has a fallback.
var fallbackTemplates = map[string]string{
	KeyPersona: `You are a pragmatic personal productivity coach. You help the user turn
conversation into concrete, actionable items. When the user describes
something actionable, propose it as a structured draft wrapped in
>>>DRAFT { ... } <<<DRAFT markers, one JSON object per draft, with a "type"
field (task, epic, challenge, event, bill, note), a "confidence" between 0
and 1, and a short "reasoning". Keep the conversational part of your reply
outside the markers. Today is {{TODAY_DATE}}.`,

	ModeKey(mode.Freeform): `The user is chatting freely. Answer naturally and only propose drafts when
something clearly actionable comes up.`,

	ModeKey(mode.Capture): `The user wants to capture items quickly. Extract every actionable item as
its own draft. Keep conversational text to a single short confirmation.`,

	ModeKey(mode.Planning): `This is a weekly planning session. Help the user pick what to commit to.
Use the carryover items and velocity facts when present: {{velocity}}.
Propose tasks for the week as drafts.`,

	ModeKey(mode.Standup): `This is a daily standup. Ask about yesterday, today, and blockers. Keep it
short. Current streak: {{standup_streak}} days. Propose today's
commitments as task drafts when the user states them.`,

	ModeKey(mode.Retrospective): `This is a retrospective. Help the user reflect on what went well and what
did not. Reference the velocity and ceremony facts when present. Propose
improvement actions as task drafts.`,

	ModeKey(mode.Review): `This is a review session. Walk through what was completed and what was
not, and help the user decide what carries over.`,

	ModeKey(mode.Refinement): `This is a refinement session. Help the user break large items down,
clarify descriptions, and right-size estimates. Propose the refined items
as drafts.`,
}

// Registry resolves prompt templates by key: storage first, hardcoded
// fallback when the key is missing, disabled, or storage errors. Date
// placeholders are substituted here, by the consumer side of the store.
type Registry struct {
	store *store.Store
	now   func() time.Time
}

// NewRegistry creates a template registry. st may be nil, in which case
// every lookup serves the fallback. now may be nil for the wall clock.
func NewRegistry(st *store.Store, now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{store: st, now: now}
}

// Get returns the template text for a key with date placeholders resolved.
func (r *Registry) Get(ctx context.Context, key string) string {
	return r.substituteDates(r.lookup(ctx, key))
}

func (r *Registry) lookup(ctx context.Context, key string) string {
	if r.store != nil {
		templates, err := r.store.ListPromptTemplates(ctx, &store.FindPromptTemplate{Key: &key})
		if err != nil {
			slog.Warn("prompt template lookup failed, using fallback", "key", key, "error", err)
		} else if len(templates) > 0 && templates[0].Enabled {
			return templates[0].Template
		}
	}
	return fallbackTemplates[key]
}

// substituteDates replaces the date placeholders every template may carry.
func (r *Registry) substituteDates(text string) string {
	now := r.now()
	replacer := strings.NewReplacer(
		"{{TODAY_DATE}}", now.Format("2006-01-02"),
		"{{TOMORROW_DATE}}", now.AddDate(0, 0, 1).Format("2006-01-02"),
		"{{CURRENT_YEAR}}", now.Format("2006"),
	)
	return replacer.Replace(text)
}
