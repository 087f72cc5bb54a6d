// Package feedback captures draft decisions and mines them for per-user
// correction patterns and aggregate trends.
package feedback

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mhalter/coachflow/store"
)

// ErrDraftNotFound is returned when feedback references a missing draft.
var ErrDraftNotFound = fmt.Errorf("draft not found")

// Collector records user decisions on pending drafts and keeps the
// per-user running counters current.
type Collector struct {
	store *store.Store
	now   func() time.Time
}

// NewCollector creates a feedback collector. now may be nil for the wall
// clock.
func NewCollector(st *store.Store, now func() time.Time) *Collector {
	if now == nil {
		now = time.Now
	}
	return &Collector{store: st, now: now}
}

// RecordFeedback stores one decision: it loads the draft, snapshots its
// payload as the original JSON, appends the feedback record, and updates
// the user's running counters, creating the preference aggregate lazily on
// first use. modifiedJSON is empty except for MODIFIED actions; decisionMs
// is the client-measured decision latency.
func (c *Collector) RecordFeedback(ctx context.Context, userID, draftID int32, action store.FeedbackAction, modifiedJSON, comment string, decisionMs int64) (*store.DraftFeedback, error) {
	drafts, err := c.store.ListPendingDrafts(ctx, &store.FindPendingDraft{ID: &draftID})
	if err != nil {
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}
	if len(drafts) == 0 {
		return nil, fmt.Errorf("%w: id %d", ErrDraftNotFound, draftID)
	}
	pending := drafts[0]

	record, err := c.store.CreateDraftFeedback(ctx, &store.DraftFeedback{
		DraftID:      draftID,
		UserID:       userID,
		Action:       action,
		OriginalJSON: pending.Payload,
		ModifiedJSON: modifiedJSON,
		Comment:      comment,
		DecisionMs:   decisionMs,
		CreatedTs:    c.now().Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store feedback: %w", err)
	}

	if err := c.bumpCounters(ctx, userID, action); err != nil {
		// The record is already stored; a counter failure must not undo it.
		slog.Warn("failed to update preference counters", "user_id", userID, "error", err)
	}

	return record, nil
}

func (c *Collector) bumpCounters(ctx context.Context, userID int32, action store.FeedbackAction) error {
	pref, err := c.store.GetUserCoachPreference(ctx, userID)
	if err != nil {
		return err
	}
	if pref == nil {
		pref = &store.UserCoachPreference{UserID: userID}
	}

	switch action {
	case store.FeedbackApproved:
		pref.ApprovedCount++
	case store.FeedbackModified:
		pref.ModifiedCount++
	case store.FeedbackRejected:
		pref.RejectedCount++
	}
	pref.TotalCount++

	_, err = c.store.UpsertUserCoachPreference(ctx, &store.UpsertUserCoachPreference{
		UserID:        pref.UserID,
		Tone:          pref.Tone,
		DefaultMode:   pref.DefaultMode,
		Patterns:      pref.Patterns,
		ApprovedCount: pref.ApprovedCount,
		ModifiedCount: pref.ModifiedCount,
		RejectedCount: pref.RejectedCount,
		TotalCount:    pref.TotalCount,
	})
	return err
}
