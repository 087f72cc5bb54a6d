package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

func seedDraft(t *testing.T, st *store.Store, userID int32, payload string) *store.PendingDraft {
	t.Helper()
	created, err := st.CreatePendingDraft(context.Background(), &store.PendingDraft{
		UID:       fmt.Sprintf("draft-%d-%d", userID, time.Now().UnixNano()),
		UserID:    userID,
		Type:      "task",
		Payload:   payload,
		Status:    store.DraftPendingApproval,
		CreatedTs: time.Now().Unix(),
		ExpiresTs: time.Now().Add(24 * time.Hour).Unix(),
	})
	require.NoError(t, err)
	return created
}

func seedModification(t *testing.T, st *store.Store, userID int32, originalJSON, modifiedJSON string) {
	t.Helper()
	d := seedDraft(t, st, userID, originalJSON)
	_, err := st.CreateDraftFeedback(context.Background(), &store.DraftFeedback{
		DraftID:      d.ID,
		UserID:       userID,
		Action:       store.FeedbackModified,
		OriginalJSON: originalJSON,
		ModifiedJSON: modifiedJSON,
		CreatedTs:    time.Now().Unix(),
	})
	require.NoError(t, err)
}

func TestLearnFromUser_RecurringCorrectionBecomesPattern(t *testing.T) {
	st := newTestStore(t)
	learner := NewLearner(st)
	ctx := context.Background()

	// Five modifications; three of them move lifeWheelAreaId lw-4 -> lw-2.
	for i := 0; i < 3; i++ {
		seedModification(t, st, 1,
			`{"type":"task","title":"x","lifeWheelAreaId":"lw-4"}`,
			`{"type":"task","title":"x","lifeWheelAreaId":"lw-2"}`)
	}
	seedModification(t, st, 1,
		`{"type":"task","title":"y","sizeEstimate":3}`,
		`{"type":"task","title":"y","sizeEstimate":5}`)
	seedModification(t, st, 1,
		`{"type":"task","title":"z","priorityQuadrant":"q2"}`,
		`{"type":"task","title":"z","priorityQuadrant":"q1"}`)

	patterns, err := learner.LearnFromUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, patterns, 1, "only the recurring correction meets the threshold")
	assert.Equal(t, CorrectionPattern{Field: "lifeWheelAreaId", Value: "lw-2", Count: 3}, patterns[0])

	// Serialized onto the preference aggregate.
	pref, err := st.GetUserCoachPreference(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, pref)
	stored, err := ParsePatterns(pref.Patterns)
	require.NoError(t, err)
	assert.Equal(t, patterns, stored)
}

func TestLearnFromUser_BelowMinimumModifications(t *testing.T) {
	st := newTestStore(t)
	learner := NewLearner(st)

	seedModification(t, st, 1,
		`{"type":"task","title":"x","lifeWheelAreaId":"lw-4"}`,
		`{"type":"task","title":"x","lifeWheelAreaId":"lw-2"}`)
	seedModification(t, st, 1,
		`{"type":"task","title":"x","lifeWheelAreaId":"lw-4"}`,
		`{"type":"task","title":"x","lifeWheelAreaId":"lw-2"}`)

	patterns, err := learner.LearnFromUser(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, patterns)
}

func TestLearnFromUser_IgnoresOtherUsers(t *testing.T) {
	st := newTestStore(t)
	learner := NewLearner(st)

	for i := 0; i < 3; i++ {
		seedModification(t, st, 2,
			`{"type":"task","title":"x","lifeWheelAreaId":"lw-4"}`,
			`{"type":"task","title":"x","lifeWheelAreaId":"lw-2"}`)
	}

	patterns, err := learner.LearnFromUser(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, patterns)
}

func TestLearnFromUser_NonStringValuesCanonicalized(t *testing.T) {
	st := newTestStore(t)
	learner := NewLearner(st)

	for i := 0; i < 3; i++ {
		seedModification(t, st, 1,
			`{"type":"task","title":"x","sizeEstimate":3}`,
			`{"type":"task","title":"x","sizeEstimate":5}`)
	}

	patterns, err := learner.LearnFromUser(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, patterns, 1)
	assert.Equal(t, "sizeEstimate", patterns[0].Field)
	assert.Equal(t, "5", patterns[0].Value)
}

func TestLearnFromUser_PreservesExistingPreferenceFields(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	_, err := st.UpsertUserCoachPreference(ctx, &store.UpsertUserCoachPreference{
		UserID: 1,
		Tone:   "direct",
	})
	require.NoError(t, err)

	learner := NewLearner(st)
	for i := 0; i < 3; i++ {
		seedModification(t, st, 1,
			`{"type":"task","title":"x","lifeWheelAreaId":"lw-4"}`,
			`{"type":"task","title":"x","lifeWheelAreaId":"lw-2"}`)
	}
	_, err = learner.LearnFromUser(ctx, 1)
	require.NoError(t, err)

	pref, err := st.GetUserCoachPreference(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "direct", pref.Tone)
	assert.NotEmpty(t, pref.Patterns)
}

func TestParsePatterns(t *testing.T) {
	patterns, err := ParsePatterns("")
	require.NoError(t, err)
	assert.Empty(t, patterns)

	raw, err := json.Marshal([]CorrectionPattern{{Field: "f", Value: "v", Count: 4}})
	require.NoError(t, err)
	patterns, err = ParsePatterns(string(raw))
	require.NoError(t, err)
	require.Len(t, patterns, 1)
	assert.Equal(t, 4, patterns[0].Count)

	_, err = ParsePatterns("{broken")
	assert.Error(t, err)
}
