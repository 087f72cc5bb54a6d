// Package assemble builds the mode-specific context facts that ground the
// prompt. Every external lookup is best-effort: a failed lookup omits the
// fact, it never fails the turn.
package assemble

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mhalter/coachflow/ai/mode"
	"github.com/mhalter/coachflow/store"
)

// Sprint is the read DTO the assembler needs from the sprint service.
type Sprint struct {
	ID      int32
	Name    string
	Goal    string
	StartTs int64
	EndTs   int64
}

// Task is the read DTO for carryover items.
type Task struct {
	ID     int32
	Title  string
	Status string
}

// Velocity carries the aggregate throughput metrics used in planning and
// retrospective contexts.
type Velocity struct {
	CompletedLastSprint int
	AveragePerSprint    float64
}

// CeremonyTotals summarizes ceremony participation for review contexts.
type CeremonyTotals struct {
	Standups       int
	Plannings      int
	Retrospectives int
}

// EntityLookup is the read-only collaborator surface the assembler consumes.
// Implementations live outside the core.
type EntityLookup interface {
	GetCurrentSprint(ctx context.Context, userID int32) (*Sprint, error)
	ListInProgressTasks(ctx context.Context, userID int32, sprintID int32) ([]Task, error)
	GetVelocity(ctx context.Context, userID int32) (*Velocity, error)
	GetStandupStreak(ctx context.Context, userID int32) (int, error)
	GetCeremonyTotals(ctx context.Context, userID int32) (*CeremonyTotals, error)
}

// Assembler builds context facts per mode.
type Assembler struct {
	entities EntityLookup
	store    *store.Store
	now      func() time.Time
}

// New creates a context assembler. entities may be nil (all entity facts
// omitted); now may be nil for the wall clock.
func New(entities EntityLookup, st *store.Store, now func() time.Time) *Assembler {
	if now == nil {
		now = time.Now
	}
	return &Assembler{entities: entities, store: st, now: now}
}

// Assemble returns the key/value facts for one turn. sprintID may be nil
// when no sprint is active.
func (a *Assembler) Assemble(ctx context.Context, md mode.Mode, userID int32, sprintID *int32) map[string]string {
	facts := map[string]string{
		"today_date": a.now().Format("Monday, January 2, 2006"),
		"mode":       md.String(),
	}

	switch md {
	case mode.Planning:
		a.sprintFacts(ctx, facts, userID)
		a.carryoverFacts(ctx, facts, userID, sprintID)
		a.velocityFacts(ctx, facts, userID)
	case mode.Standup:
		a.sprintFacts(ctx, facts, userID)
		a.streakFacts(ctx, facts, userID)
	case mode.Retrospective:
		a.sprintFacts(ctx, facts, userID)
		a.velocityFacts(ctx, facts, userID)
		a.ceremonyFacts(ctx, facts, userID)
	case mode.Review, mode.Refinement:
		a.sprintFacts(ctx, facts, userID)
	case mode.Capture, mode.Freeform:
		// Only the shared facts; capture and freeform stay lightweight.
	}

	a.preferenceFacts(ctx, facts, userID)
	return facts
}

// fact runs one best-effort lookup. On error the fact is omitted and the
// failure logged at debug level.
func (a *Assembler) fact(facts map[string]string, key string, fn func() (string, error)) {
	value, err := fn()
	if err != nil {
		slog.Debug("context fact omitted", "key", key, "error", err)
		return
	}
	if value != "" {
		facts[key] = value
	}
}

func (a *Assembler) sprintFacts(ctx context.Context, facts map[string]string, userID int32) {
	if a.entities == nil {
		return
	}
	a.fact(facts, "sprint", func() (string, error) {
		sprint, err := a.entities.GetCurrentSprint(ctx, userID)
		if err != nil || sprint == nil {
			return "", err
		}
		facts["sprint_name"] = sprint.Name
		facts["sprint_goal"] = sprint.Goal
		facts["sprint_dates"] = fmt.Sprintf("%s to %s",
			time.Unix(sprint.StartTs, 0).Format("Jan 2"),
			time.Unix(sprint.EndTs, 0).Format("Jan 2"))
		return "", nil
	})
}

func (a *Assembler) carryoverFacts(ctx context.Context, facts map[string]string, userID int32, sprintID *int32) {
	if a.entities == nil || sprintID == nil {
		return
	}
	a.fact(facts, "carryover_items", func() (string, error) {
		tasks, err := a.entities.ListInProgressTasks(ctx, userID, *sprintID)
		if err != nil {
			return "", err
		}
		if len(tasks) == 0 {
			return "", nil
		}
		titles := make([]string, len(tasks))
		for i, t := range tasks {
			titles[i] = t.Title
		}
		out, err := json.Marshal(titles)
		if err != nil {
			return "", err
		}
		return string(out), nil
	})
}

func (a *Assembler) velocityFacts(ctx context.Context, facts map[string]string, userID int32) {
	if a.entities == nil {
		return
	}
	a.fact(facts, "velocity", func() (string, error) {
		v, err := a.entities.GetVelocity(ctx, userID)
		if err != nil || v == nil {
			return "", err
		}
		return fmt.Sprintf("last sprint: %d completed, average: %.1f per sprint",
			v.CompletedLastSprint, v.AveragePerSprint), nil
	})
}

func (a *Assembler) streakFacts(ctx context.Context, facts map[string]string, userID int32) {
	if a.entities == nil {
		return
	}
	a.fact(facts, "standup_streak", func() (string, error) {
		streak, err := a.entities.GetStandupStreak(ctx, userID)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d", streak), nil
	})
}

func (a *Assembler) ceremonyFacts(ctx context.Context, facts map[string]string, userID int32) {
	if a.entities == nil {
		return
	}
	a.fact(facts, "ceremony_totals", func() (string, error) {
		totals, err := a.entities.GetCeremonyTotals(ctx, userID)
		if err != nil || totals == nil {
			return "", err
		}
		return fmt.Sprintf("standups: %d, plannings: %d, retrospectives: %d",
			totals.Standups, totals.Plannings, totals.Retrospectives), nil
	})
}

// preferenceFacts injects the user's learned correction patterns and
// preferred tone, shared across every mode. Best-effort like the rest.
func (a *Assembler) preferenceFacts(ctx context.Context, facts map[string]string, userID int32) {
	if a.store == nil {
		return
	}
	a.fact(facts, "user_preferences", func() (string, error) {
		pref, err := a.store.GetUserCoachPreference(ctx, userID)
		if err != nil || pref == nil {
			return "", err
		}
		if pref.Tone != "" {
			facts["preferred_tone"] = pref.Tone
		}
		if pref.Patterns != "" {
			facts["learned_patterns"] = pref.Patterns
		}
		return "", nil
	})
}
