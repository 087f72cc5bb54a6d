package pipeline

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhalter/coachflow/ai/assemble"
	"github.com/mhalter/coachflow/ai/draft"
	"github.com/mhalter/coachflow/ai/gateway"
	"github.com/mhalter/coachflow/ai/intent"
	"github.com/mhalter/coachflow/ai/llm"
	"github.com/mhalter/coachflow/ai/mode"
	"github.com/mhalter/coachflow/ai/prompt"
	"github.com/mhalter/coachflow/ai/session"
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

// scriptedLLM returns canned responses in order, repeating the last one.
type scriptedLLM struct {
	responses []string
	calls     int
}

func (s *scriptedLLM) Chat(_ context.Context, _ []llm.Message) (string, *llm.CallStats, error) {
	idx := s.calls
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	s.calls++
	return s.responses[idx], &llm.CallStats{PromptTokens: 5, CompletionTokens: 7}, nil
}

func (s *scriptedLLM) Name() string             { return "test/model" }
func (s *scriptedLLM) Warmup(_ context.Context) {}

// emptyEntities reports no host data; context facts degrade per fact.
type emptyEntities struct{}

func (emptyEntities) GetCurrentSprint(context.Context, int32) (*assemble.Sprint, error) {
	return nil, nil
}
func (emptyEntities) ListInProgressTasks(context.Context, int32, int32) ([]assemble.Task, error) {
	return nil, nil
}
func (emptyEntities) GetVelocity(context.Context, int32) (*assemble.Velocity, error) { return nil, nil }
func (emptyEntities) GetStandupStreak(context.Context, int32) (int, error)           { return 0, nil }
func (emptyEntities) GetCeremonyTotals(context.Context, int32) (*assemble.CeremonyTotals, error) {
	return nil, nil
}

type pipelineFixture struct {
	pipeline *Pipeline
	store    *store.Store
	sessions *session.Manager
	llm      *scriptedLLM
	now      time.Time
}

func newFixture(t *testing.T, responses ...string) *pipelineFixture {
	t.Helper()
	st := newTestStore(t)
	f := &pipelineFixture{
		store: st,
		llm:   &scriptedLLM{responses: responses},
		// Wednesday afternoon: no time-heuristic leanings.
		now: time.Date(2026, 9, 2, 14, 0, 0, 0, time.Local),
	}
	clock := func() time.Time { return f.now }

	f.sessions = session.NewManager(st, clock)
	detector := mode.NewDetector(nil, clock)
	contexts := assemble.New(emptyEntities{}, st, clock)
	prompts := prompt.NewAssembler(prompt.NewRegistry(st, clock))
	gw := gateway.New(f.llm, gateway.NewCircuitBreaker(0, 0, clock))
	f.pipeline = New(detector, f.sessions, contexts, prompts, gw, emptyEntities{}, st, clock)
	return f
}

func TestProcessTurn_DraftExtractionAndPersistence(t *testing.T) {
	f := newFixture(t,
		"On it!\n>>>DRAFT\n{\"type\":\"task\",\"title\":\"Call the dentist\",\"confidence\":0.85}\n<<<DRAFT\nWant a reminder too?")
	ctx := context.Background()

	result, err := f.pipeline.ProcessTurn(ctx, TurnRequest{UserID: 1, Text: "  add a task   to call the dentist "})
	require.NoError(t, err)

	assert.False(t, result.Denied)
	assert.Equal(t, mode.Freeform, result.Mode)
	assert.Equal(t, intent.IntentCreateTask, result.Intent)
	assert.Equal(t, "On it!\n\nWant a reminder too?", result.Conversational)
	require.Len(t, result.Drafts, 1)

	persisted := result.Drafts[0]
	assert.NotEmpty(t, persisted.UID)
	assert.Equal(t, "task", persisted.Type)
	assert.Equal(t, store.DraftPendingApproval, persisted.Status)
	assert.Equal(t, 0.85, persisted.Confidence)
	// Normalization blanks out collapsed whitespace before persistence.
	assert.Equal(t, "add a task to call the dentist", persisted.SourceInput)
	assert.Equal(t, f.now.Add(DraftTTL).Unix(), persisted.ExpiresTs)

	// Both turn messages are recorded in order.
	sess, err := f.sessions.GetOrCreateSession(ctx, 1, mode.Freeform)
	require.NoError(t, err)
	assert.Equal(t, result.SessionUID, sess.UID)
	msgs, err := f.sessions.RecentMessages(ctx, sess.ID, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, store.RoleUser, msgs[0].Role)
	assert.Equal(t, "add a task to call the dentist", msgs[0].Content)
	assert.Equal(t, intent.IntentCreateTask.String(), msgs[0].Intent)
	assert.Equal(t, store.RoleAssistant, msgs[1].Role)
}

func TestProcessTurn_EmptyInput(t *testing.T) {
	f := newFixture(t, "unused")

	_, err := f.pipeline.ProcessTurn(context.Background(), TurnRequest{UserID: 1, Text: "   \n\t "})
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.Equal(t, 0, f.llm.calls, "blank input must not reach the connector")
}

func TestProcessTurn_SessionRuleDenialSkipsModel(t *testing.T) {
	f := newFixture(t, "standup summary here")
	ctx := context.Background()

	// Complete a standup earlier today.
	sess, err := f.sessions.GetOrCreateSession(ctx, 1, mode.Standup)
	require.NoError(t, err)
	require.NoError(t, f.sessions.AddTurn(ctx, sess, "yesterday...", "noted", "standup_report"))
	require.NoError(t, f.sessions.CloseSession(ctx, sess.ID))
	callsAfterSetup := f.llm.calls

	result, err := f.pipeline.ProcessTurn(ctx, TurnRequest{UserID: 1, Text: "standup time", ExplicitMode: "STANDUP"})
	require.NoError(t, err)
	assert.True(t, result.Denied)
	assert.NotEmpty(t, result.DenialReason)
	assert.Equal(t, mode.Standup, result.Mode)
	assert.Empty(t, result.SessionUID)
	assert.Equal(t, callsAfterSetup, f.llm.calls, "denied turn must not reach the connector")
}

func TestProcessTurn_AllMalformedDegradesToNote(t *testing.T) {
	f := newFixture(t, "Here it is.\n>>>DRAFT\nnot json\n<<<DRAFT")
	ctx := context.Background()

	result, err := f.pipeline.ProcessTurn(ctx, TurnRequest{UserID: 1, Text: "capture the meeting notes from today"})
	require.NoError(t, err)
	require.Len(t, result.Drafts, 1)

	persisted := result.Drafts[0]
	assert.Equal(t, "note", persisted.Type)

	parsed, err := draft.DecodeObject([]byte(persisted.Payload))
	require.NoError(t, err)
	note := parsed.Draft.(draft.Note)
	assert.Equal(t, "capture the meeting notes from today", note.Content)
	assert.Equal(t, "capture the meeting notes from today", persisted.SourceInput)

	// The reply carries the surviving prose plus the clarifying follow-up.
	assert.Equal(t, "Here it is.\n\n"+draft.ClarifyingQuestions, result.Conversational)
}

func TestProcessTurn_DegradationWithNoProseStillAsks(t *testing.T) {
	f := newFixture(t, ">>>DRAFT\nnot json\n<<<DRAFT")

	result, err := f.pipeline.ProcessTurn(context.Background(), TurnRequest{UserID: 1, Text: "capture this"})
	require.NoError(t, err)
	require.Len(t, result.Drafts, 1)
	assert.Equal(t, draft.ClarifyingQuestions, result.Conversational)
}

func TestProcessTurn_NoDraftsIsNotDegradation(t *testing.T) {
	f := newFixture(t, "Just chatting, nothing to create.")

	result, err := f.pipeline.ProcessTurn(context.Background(), TurnRequest{UserID: 1, Text: "how was your day"})
	require.NoError(t, err)
	assert.Empty(t, result.Drafts)
	assert.Equal(t, "Just chatting, nothing to create.", result.Conversational)
}

func TestProcessTurn_RecentHistoryAccumulates(t *testing.T) {
	f := newFixture(t, "first reply", "second reply")
	ctx := context.Background()

	first, err := f.pipeline.ProcessTurn(ctx, TurnRequest{UserID: 1, Text: "hello there"})
	require.NoError(t, err)
	second, err := f.pipeline.ProcessTurn(ctx, TurnRequest{UserID: 1, Text: "and again"})
	require.NoError(t, err)

	assert.Equal(t, first.SessionUID, second.SessionUID)

	sess, err := f.sessions.GetOrCreateSession(ctx, 1, mode.Freeform)
	require.NoError(t, err)
	msgs, err := f.sessions.RecentMessages(ctx, sess.ID, 10)
	require.NoError(t, err)
	assert.Len(t, msgs, 4)
}

func TestProcessTurn_CeremonyEndEnforcesDailyRule(t *testing.T) {
	f := newFixture(t, "Noted, sounds like a productive day.", "Standup wrapped, see you tomorrow.")
	ctx := context.Background()

	first, err := f.pipeline.ProcessTurn(ctx, TurnRequest{
		UserID: 1, Text: "yesterday I shipped the exporter, today I will write docs", ExplicitMode: "standup",
	})
	require.NoError(t, err)
	assert.Equal(t, intent.IntentStandupReport, first.Intent)

	// Ending the ceremony via conversation closes the session.
	second, err := f.pipeline.ProcessTurn(ctx, TurnRequest{
		UserID: 1, Text: "that is everything, wrap up the standup", ExplicitMode: "standup",
	})
	require.NoError(t, err)
	assert.Equal(t, intent.IntentEndCeremony, second.Intent)

	// The same calendar day, another standup turn is denied outright.
	f.now = f.now.Add(2 * time.Hour)
	third, err := f.pipeline.ProcessTurn(ctx, TurnRequest{
		UserID: 1, Text: "quick standup again", ExplicitMode: "standup",
	})
	require.NoError(t, err)
	assert.True(t, third.Denied)
	assert.NotEmpty(t, third.DenialReason)

	// The next morning the rule resets.
	f.now = f.now.Add(17 * time.Hour)
	fourth, err := f.pipeline.ProcessTurn(ctx, TurnRequest{
		UserID: 1, Text: "yesterday I wrote docs", ExplicitMode: "standup",
	})
	require.NoError(t, err)
	assert.False(t, fourth.Denied)
}

func TestProcessTurn_ExplicitModeOverride(t *testing.T) {
	f := newFixture(t, "capture ack")

	result, err := f.pipeline.ProcessTurn(context.Background(), TurnRequest{
		UserID: 1, Text: "something to keep", ExplicitMode: "capture",
	})
	require.NoError(t, err)
	assert.Equal(t, mode.Capture, result.Mode)
}
