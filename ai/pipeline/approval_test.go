package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhalter/coachflow/ai/draft"
	"github.com/mhalter/coachflow/ai/feedback"
	"github.com/mhalter/coachflow/store"
)

// recordingWriter captures created entities.
type recordingWriter struct {
	created []draft.Draft
	err     error
}

func (w *recordingWriter) CreateEntity(_ context.Context, _ int32, d draft.Draft) (string, error) {
	if w.err != nil {
		return "", w.err
	}
	w.created = append(w.created, d)
	return "entity-1", nil
}

type approverFixture struct {
	approver *Approver
	writer   *recordingWriter
	store    *store.Store
	nowUnix  int64
	seeded   int
}

func newApproverFixture(t *testing.T) *approverFixture {
	t.Helper()
	st := newTestStore(t)
	f := &approverFixture{
		writer:  &recordingWriter{},
		store:   st,
		nowUnix: time.Date(2026, 9, 2, 14, 0, 0, 0, time.Local).Unix(),
	}
	collector := feedback.NewCollector(st, nil)
	f.approver = NewApprover(st, f.writer, collector, func() int64 { return f.nowUnix })
	return f
}

func (f *approverFixture) seedDraft(t *testing.T, payload string) *store.PendingDraft {
	t.Helper()
	f.seeded++
	created, err := f.store.CreatePendingDraft(context.Background(), &store.PendingDraft{
		UID:        fmt.Sprintf("draft-%d", f.seeded),
		UserID:     1,
		Type:       "task",
		Payload:    payload,
		Status:     store.DraftPendingApproval,
		Confidence: 0.8,
		CreatedTs:  f.nowUnix,
		ExpiresTs:  f.nowUnix + int64(DraftTTL.Seconds()),
	})
	require.NoError(t, err)
	return created
}

func (f *approverFixture) loadDraft(t *testing.T, uid string) *store.PendingDraft {
	t.Helper()
	drafts, err := f.store.ListPendingDrafts(context.Background(), &store.FindPendingDraft{UID: &uid})
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	return drafts[0]
}

func TestApproveDraft(t *testing.T) {
	f := newApproverFixture(t)
	d := f.seedDraft(t, `{"type":"task","title":"call dentist"}`)

	result, err := f.approver.ApproveDraft(context.Background(), 1, d.UID, 1500)
	require.NoError(t, err)
	assert.Equal(t, store.DraftApproved, result.Status)
	assert.Equal(t, "entity-1", result.CreatedEntityID)

	require.Len(t, f.writer.created, 1)
	task := f.writer.created[0].(draft.Task)
	assert.Equal(t, "call dentist", task.Title)

	assert.Equal(t, store.DraftApproved, f.loadDraft(t, d.UID).Status)

	// The decision landed in the feedback trail.
	records, err := f.store.ListDraftFeedback(context.Background(), &store.FindDraftFeedback{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, store.FeedbackApproved, records[0].Action)
	assert.Equal(t, int64(1500), records[0].DecisionMs)
}

func TestModifyDraft(t *testing.T) {
	f := newApproverFixture(t)
	d := f.seedDraft(t, `{"type":"task","title":"call dentist","lifeWheelAreaId":"lw-4"}`)

	result, err := f.approver.ModifyDraft(context.Background(), 1, d.UID,
		map[string]any{"lifeWheelAreaId": "lw-2"}, 3000)
	require.NoError(t, err)
	assert.Equal(t, store.DraftModified, result.Status)
	assert.Equal(t, "entity-1", result.CreatedEntityID)

	// The entity carries the merged fields.
	require.Len(t, f.writer.created, 1)
	assert.Equal(t, "lw-2", f.writer.created[0].(draft.Task).LifeWheelAreaID)

	// Stored payload is the merged form; feedback keeps the original as the
	// diff baseline.
	stored := f.loadDraft(t, d.UID)
	assert.Equal(t, store.DraftModified, stored.Status)
	assert.Contains(t, stored.Payload, "lw-2")

	records, err := f.store.ListDraftFeedback(context.Background(), &store.FindDraftFeedback{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, store.FeedbackModified, records[0].Action)
	assert.Contains(t, records[0].OriginalJSON, "lw-4")
	assert.Contains(t, records[0].ModifiedJSON, "lw-2")
}

func TestModifyDraft_TypeImmutable(t *testing.T) {
	f := newApproverFixture(t)
	d := f.seedDraft(t, `{"type":"task","title":"call dentist"}`)

	_, err := f.approver.ModifyDraft(context.Background(), 1, d.UID,
		map[string]any{"type": "event"}, 0)
	require.NoError(t, err)
	assert.IsType(t, draft.Task{}, f.writer.created[0])
}

func TestRejectDraft(t *testing.T) {
	f := newApproverFixture(t)
	d := f.seedDraft(t, `{"type":"task","title":"call dentist"}`)

	result, err := f.approver.RejectDraft(context.Background(), 1, d.UID, "too vague", 500)
	require.NoError(t, err)
	assert.Equal(t, store.DraftRejected, result.Status)
	assert.Empty(t, result.CreatedEntityID)
	assert.Empty(t, f.writer.created, "rejection must not create an entity")

	records, err := f.store.ListDraftFeedback(context.Background(), &store.FindDraftFeedback{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "too vague", records[0].Comment)
}

func TestApproveDraft_AlreadyDecided(t *testing.T) {
	f := newApproverFixture(t)
	d := f.seedDraft(t, `{"type":"task","title":"call dentist"}`)

	_, err := f.approver.ApproveDraft(context.Background(), 1, d.UID, 0)
	require.NoError(t, err)
	_, err = f.approver.ApproveDraft(context.Background(), 1, d.UID, 0)
	assert.ErrorIs(t, err, ErrDraftDecided)
}

func TestApproveDraft_LazyExpiry(t *testing.T) {
	f := newApproverFixture(t)
	d := f.seedDraft(t, `{"type":"task","title":"call dentist"}`)

	f.nowUnix += int64(DraftTTL.Seconds()) + 60
	_, err := f.approver.ApproveDraft(context.Background(), 1, d.UID, 0)
	assert.ErrorIs(t, err, ErrDraftExpired)
	assert.Equal(t, store.DraftExpired, f.loadDraft(t, d.UID).Status)
	assert.Empty(t, f.writer.created)
}

func TestApproveDraft_WrongUser(t *testing.T) {
	f := newApproverFixture(t)
	d := f.seedDraft(t, `{"type":"task","title":"call dentist"}`)

	_, err := f.approver.ApproveDraft(context.Background(), 42, d.UID, 0)
	assert.ErrorIs(t, err, ErrDraftNotFound)
}

func TestApproveDraft_WriterFailureLeavesDraftPending(t *testing.T) {
	f := newApproverFixture(t)
	f.writer.err = errors.New("host system down")
	d := f.seedDraft(t, `{"type":"task","title":"call dentist"}`)

	_, err := f.approver.ApproveDraft(context.Background(), 1, d.UID, 0)
	require.Error(t, err)
	assert.Equal(t, store.DraftPendingApproval, f.loadDraft(t, d.UID).Status)
}

func TestListPendingDrafts_LazyExpiry(t *testing.T) {
	f := newApproverFixture(t)
	fresh := f.seedDraft(t, `{"type":"task","title":"still good"}`)
	stale, err := f.store.CreatePendingDraft(context.Background(), &store.PendingDraft{
		UID:       "stale-draft",
		UserID:    1,
		Type:      "note",
		Payload:   `{"type":"note","content":"old"}`,
		Status:    store.DraftPendingApproval,
		CreatedTs: f.nowUnix - 2*int64(DraftTTL.Seconds()),
		ExpiresTs: f.nowUnix - int64(DraftTTL.Seconds()),
	})
	require.NoError(t, err)

	pending, err := f.approver.ListPendingDrafts(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, fresh.UID, pending[0].UID)
	assert.Equal(t, store.DraftExpired, f.loadDraft(t, stale.UID).Status)
}
