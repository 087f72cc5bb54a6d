package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mhalter/coachflow/ai/draft"
	"github.com/mhalter/coachflow/ai/feedback"
	"github.com/mhalter/coachflow/store"
)

func defaultUnixClock() int64 { return time.Now().Unix() }

// Approval errors. ErrDraftExpired also covers drafts expired lazily during
// the lookup itself.
var (
	ErrDraftNotFound = fmt.Errorf("draft not found")
	ErrDraftExpired  = fmt.Errorf("draft expired")
	ErrDraftDecided  = fmt.Errorf("draft already decided")
)

// EntityWriter materializes an approved draft into a real entity in the
// host system. Implementations own ID generation and return the created
// entity's identifier.
type EntityWriter interface {
	CreateEntity(ctx context.Context, userID int32, d draft.Draft) (string, error)
}

// DraftActionResult is the outcome of an approval-flow operation.
type DraftActionResult struct {
	DraftUID        string
	Status          store.DraftStatus
	CreatedEntityID string
}

// Approver runs the human side of the draft lifecycle: listing what is
// pending and approving, modifying, or rejecting individual drafts. Every
// decision is also fed to the feedback collector so the learning loop sees
// it.
type Approver struct {
	store     *store.Store
	writer    EntityWriter
	collector *feedback.Collector
	clock     func() int64
}

// NewApprover creates an approver. collector may be nil to skip feedback
// recording; nowUnix may be nil for the wall clock.
func NewApprover(st *store.Store, writer EntityWriter, collector *feedback.Collector, nowUnix func() int64) *Approver {
	if nowUnix == nil {
		nowUnix = defaultUnixClock
	}
	return &Approver{store: st, writer: writer, collector: collector, clock: nowUnix}
}

// ApproveDraft creates the entity from the draft as proposed and marks the
// draft APPROVED. The draft must still be pending and unexpired. decisionMs
// is the caller-measured latency between presenting the draft and the
// decision.
func (a *Approver) ApproveDraft(ctx context.Context, userID int32, draftUID string, decisionMs int64) (*DraftActionResult, error) {
	pending, err := a.loadActionable(ctx, userID, draftUID)
	if err != nil {
		return nil, err
	}

	parsed, err := draft.DecodeObject([]byte(pending.Payload))
	if err != nil {
		return nil, fmt.Errorf("stored draft payload unusable: %w", err)
	}
	entityID, err := a.writer.CreateEntity(ctx, userID, parsed.Draft)
	if err != nil {
		return nil, fmt.Errorf("failed to create entity: %w", err)
	}

	a.record(ctx, userID, pending.ID, store.FeedbackApproved, "", "", decisionMs)
	if err := a.transition(ctx, pending.ID, store.DraftApproved, nil); err != nil {
		return nil, err
	}
	slog.Info("draft approved", "user_id", userID, "draft_uid", draftUID, "entity_id", entityID)
	return &DraftActionResult{DraftUID: draftUID, Status: store.DraftApproved, CreatedEntityID: entityID}, nil
}

// ModifyDraft merges the given field updates over the stored payload,
// creates the entity from the merged draft, and marks the draft MODIFIED
// with the merged payload persisted. The draft type cannot change. Feedback
// is recorded before the payload is replaced so the original survives as
// the diff baseline.
func (a *Approver) ModifyDraft(ctx context.Context, userID int32, draftUID string, updates map[string]any, decisionMs int64) (*DraftActionResult, error) {
	pending, err := a.loadActionable(ctx, userID, draftUID)
	if err != nil {
		return nil, err
	}

	parsed, err := draft.DecodeObject([]byte(pending.Payload))
	if err != nil {
		return nil, fmt.Errorf("stored draft payload unusable: %w", err)
	}
	merged, err := draft.ApplyUpdates(parsed.Draft, updates)
	if err != nil {
		return nil, fmt.Errorf("invalid draft updates: %w", err)
	}
	payload, err := draft.MarshalPayload(merged)
	if err != nil {
		return nil, err
	}

	entityID, err := a.writer.CreateEntity(ctx, userID, merged)
	if err != nil {
		return nil, fmt.Errorf("failed to create entity: %w", err)
	}

	a.record(ctx, userID, pending.ID, store.FeedbackModified, payload, "", decisionMs)
	if err := a.transition(ctx, pending.ID, store.DraftModified, &payload); err != nil {
		return nil, err
	}
	slog.Info("draft modified", "user_id", userID, "draft_uid", draftUID, "entity_id", entityID)
	return &DraftActionResult{DraftUID: draftUID, Status: store.DraftModified, CreatedEntityID: entityID}, nil
}

// RejectDraft marks the draft REJECTED. No entity is created; comment is
// the user's optional reason, mined later for common rejection causes.
func (a *Approver) RejectDraft(ctx context.Context, userID int32, draftUID string, comment string, decisionMs int64) (*DraftActionResult, error) {
	pending, err := a.loadActionable(ctx, userID, draftUID)
	if err != nil {
		return nil, err
	}

	a.record(ctx, userID, pending.ID, store.FeedbackRejected, "", comment, decisionMs)
	if err := a.transition(ctx, pending.ID, store.DraftRejected, nil); err != nil {
		return nil, err
	}
	slog.Info("draft rejected", "user_id", userID, "draft_uid", draftUID)
	return &DraftActionResult{DraftUID: draftUID, Status: store.DraftRejected}, nil
}

// ListPendingDrafts returns the user's actionable drafts. Drafts found past
// their expiry are transitioned to EXPIRED on the way through and omitted.
func (a *Approver) ListPendingDrafts(ctx context.Context, userID int32) ([]*store.PendingDraft, error) {
	pending := store.DraftPendingApproval
	drafts, err := a.store.ListPendingDrafts(ctx, &store.FindPendingDraft{
		UserID: &userID,
		Status: &pending,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pending drafts: %w", err)
	}

	now := a.clock()
	actionable := make([]*store.PendingDraft, 0, len(drafts))
	for _, d := range drafts {
		if d.ExpiresTs > 0 && now >= d.ExpiresTs {
			if err := a.transition(ctx, d.ID, store.DraftExpired, nil); err != nil {
				slog.Warn("failed to expire draft", "draft_uid", d.UID, "error", err)
			}
			continue
		}
		actionable = append(actionable, d)
	}
	return actionable, nil
}

// loadActionable loads a draft by UID and enforces ownership, pending
// status, and expiry. Expiry is lazy: a pending draft found past its expiry
// is transitioned to EXPIRED here and reported as expired.
func (a *Approver) loadActionable(ctx context.Context, userID int32, draftUID string) (*store.PendingDraft, error) {
	drafts, err := a.store.ListPendingDrafts(ctx, &store.FindPendingDraft{
		UID:    &draftUID,
		UserID: &userID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}
	if len(drafts) == 0 {
		return nil, fmt.Errorf("%w: uid %s", ErrDraftNotFound, draftUID)
	}

	pending := drafts[0]
	if pending.Status.Terminal() {
		if pending.Status == store.DraftExpired {
			return nil, fmt.Errorf("%w: uid %s", ErrDraftExpired, draftUID)
		}
		return nil, fmt.Errorf("%w: uid %s is %s", ErrDraftDecided, draftUID, pending.Status)
	}
	if pending.ExpiresTs > 0 && a.clock() >= pending.ExpiresTs {
		if err := a.transition(ctx, pending.ID, store.DraftExpired, nil); err != nil {
			slog.Warn("failed to expire draft", "draft_uid", pending.UID, "error", err)
		}
		return nil, fmt.Errorf("%w: uid %s", ErrDraftExpired, draftUID)
	}
	return pending, nil
}

// record feeds one decision to the collector. The decision itself is
// already made; a recording failure is logged, never propagated.
func (a *Approver) record(ctx context.Context, userID, draftID int32, action store.FeedbackAction, modifiedJSON, comment string, decisionMs int64) {
	if a.collector == nil {
		return
	}
	if _, err := a.collector.RecordFeedback(ctx, userID, draftID, action, modifiedJSON, comment, decisionMs); err != nil {
		slog.Warn("failed to record draft feedback", "draft_id", draftID, "action", action, "error", err)
	}
}

func (a *Approver) transition(ctx context.Context, id int32, status store.DraftStatus, payload *string) error {
	if _, err := a.store.UpdatePendingDraft(ctx, &store.UpdatePendingDraft{
		ID:      id,
		Status:  &status,
		Payload: payload,
	}); err != nil {
		return fmt.Errorf("failed to update draft status: %w", err)
	}
	return nil
}
