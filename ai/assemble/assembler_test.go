package assemble

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhalter/coachflow/ai/mode"
	"github.com/mhalter/coachflow/internal/profile"
	"github.com/mhalter/coachflow/store"
	"github.com/mhalter/coachflow/store/db/sqlite"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	driver, err := sqlite.NewDB(&profile.Profile{
		Mode:   "dev",
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	st := store.New(driver)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// fakeEntities returns canned entity data, with per-call error switches.
type fakeEntities struct {
	sprint     *Sprint
	tasks      []Task
	velocity   *Velocity
	streak     int
	totals     *CeremonyTotals
	sprintErr  error
	tasksErr   error
	streakFail bool
}

func (f *fakeEntities) GetCurrentSprint(ctx context.Context, userID int32) (*Sprint, error) {
	return f.sprint, f.sprintErr
}

func (f *fakeEntities) ListInProgressTasks(ctx context.Context, userID, sprintID int32) ([]Task, error) {
	return f.tasks, f.tasksErr
}

func (f *fakeEntities) GetVelocity(ctx context.Context, userID int32) (*Velocity, error) {
	return f.velocity, nil
}

func (f *fakeEntities) GetStandupStreak(ctx context.Context, userID int32) (int, error) {
	if f.streakFail {
		return 0, errors.New("streak unavailable")
	}
	return f.streak, nil
}

func (f *fakeEntities) GetCeremonyTotals(ctx context.Context, userID int32) (*CeremonyTotals, error) {
	return f.totals, nil
}

func testClock() func() time.Time {
	// Wednesday 2026-09-02.
	return func() time.Time { return time.Date(2026, 9, 2, 14, 0, 0, 0, time.Local) }
}

func TestAssemble_SharedFacts(t *testing.T) {
	a := New(nil, nil, testClock())

	facts := a.Assemble(context.Background(), mode.Freeform, 1, nil)

	assert.Equal(t, "Wednesday, September 2, 2026", facts["today_date"])
	assert.Equal(t, "FREEFORM", facts["mode"])
	assert.Len(t, facts, 2)
}

func TestAssemble_PlanningFacts(t *testing.T) {
	sprintID := int32(7)
	entities := &fakeEntities{
		sprint: &Sprint{
			ID:      sprintID,
			Name:    "Sprint 12",
			Goal:    "Ship the onboarding flow",
			StartTs: time.Date(2026, 8, 31, 0, 0, 0, 0, time.Local).Unix(),
			EndTs:   time.Date(2026, 9, 6, 0, 0, 0, 0, time.Local).Unix(),
		},
		tasks: []Task{
			{ID: 1, Title: "Write docs", Status: "IN_PROGRESS"},
			{ID: 2, Title: "Fix login bug", Status: "IN_PROGRESS"},
		},
		velocity: &Velocity{CompletedLastSprint: 8, AveragePerSprint: 6.5},
	}
	a := New(entities, nil, testClock())

	facts := a.Assemble(context.Background(), mode.Planning, 1, &sprintID)

	assert.Equal(t, "Sprint 12", facts["sprint_name"])
	assert.Equal(t, "Ship the onboarding flow", facts["sprint_goal"])
	assert.Equal(t, "Aug 31 to Sep 6", facts["sprint_dates"])
	assert.Equal(t, `["Write docs","Fix login bug"]`, facts["carryover_items"])
	assert.Equal(t, "last sprint: 8 completed, average: 6.5 per sprint", facts["velocity"])
}

func TestAssemble_StandupFacts(t *testing.T) {
	entities := &fakeEntities{streak: 4}
	a := New(entities, nil, testClock())

	facts := a.Assemble(context.Background(), mode.Standup, 1, nil)

	assert.Equal(t, "4", facts["standup_streak"])
	assert.NotContains(t, facts, "velocity")
	assert.NotContains(t, facts, "carryover_items")
}

func TestAssemble_RetrospectiveFacts(t *testing.T) {
	entities := &fakeEntities{
		velocity: &Velocity{CompletedLastSprint: 5, AveragePerSprint: 5.0},
		totals:   &CeremonyTotals{Standups: 12, Plannings: 3, Retrospectives: 2},
	}
	a := New(entities, nil, testClock())

	facts := a.Assemble(context.Background(), mode.Retrospective, 1, nil)

	assert.Equal(t, "standups: 12, plannings: 3, retrospectives: 2", facts["ceremony_totals"])
	assert.Equal(t, "last sprint: 5 completed, average: 5.0 per sprint", facts["velocity"])
}

func TestAssemble_LookupFailureOmitsFact(t *testing.T) {
	entities := &fakeEntities{
		sprintErr:  errors.New("sprint service down"),
		streakFail: true,
	}
	a := New(entities, nil, testClock())

	facts := a.Assemble(context.Background(), mode.Standup, 1, nil)

	assert.NotContains(t, facts, "sprint_name")
	assert.NotContains(t, facts, "standup_streak")
	assert.Equal(t, "STANDUP", facts["mode"])
}

func TestAssemble_EmptyCarryoverOmitted(t *testing.T) {
	sprintID := int32(7)
	entities := &fakeEntities{tasks: nil}
	a := New(entities, nil, testClock())

	facts := a.Assemble(context.Background(), mode.Planning, 1, &sprintID)

	assert.NotContains(t, facts, "carryover_items")
}

func TestAssemble_PreferenceFacts(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	_, err := st.UpsertUserCoachPreference(ctx, &store.UpsertUserCoachPreference{
		UserID:   1,
		Tone:     "direct",
		Patterns: `[{"field":"lifeWheelAreaId","value":"lw-2","count":3}]`,
	})
	require.NoError(t, err)
	a := New(nil, st, testClock())

	facts := a.Assemble(ctx, mode.Capture, 1, nil)

	assert.Equal(t, "direct", facts["preferred_tone"])
	assert.Equal(t, `[{"field":"lifeWheelAreaId","value":"lw-2","count":3}]`, facts["learned_patterns"])

	// Another user has no preference record; the facts are simply absent.
	facts = a.Assemble(ctx, mode.Capture, 2, nil)
	assert.NotContains(t, facts, "preferred_tone")
	assert.NotContains(t, facts, "learned_patterns")
}
