package store

// FeedbackAction is the decision a user took on a pending draft.
type FeedbackAction string

const (
	FeedbackApproved FeedbackAction = "APPROVED"
	FeedbackModified FeedbackAction = "MODIFIED"
	FeedbackRejected FeedbackAction = "REJECTED"
)

// DraftFeedback is one append-only record of a user decision on a draft.
// OriginalJSON snapshots the draft payload at decision time; ModifiedJSON is
// set only for MODIFIED actions. DecisionMs is the client-measured latency
// between seeing the draft and deciding.
type DraftFeedback struct {
	Action       FeedbackAction
	OriginalJSON string
	ModifiedJSON string
	Comment      string
	CreatedTs    int64
	DecisionMs   int64
	ID           int32
	DraftID      int32
	UserID       int32
	SessionID    int32
}

// FindDraftFeedback specifies conditions for finding feedback records.
type FindDraftFeedback struct {
	UserID       *int32
	Action       *FeedbackAction
	CreatedAfter *int64
	Limit        int
}
