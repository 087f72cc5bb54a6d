package store

// DraftStatus is the approval state of a pending draft.
type DraftStatus string

const (
	DraftPendingApproval DraftStatus = "PENDING_APPROVAL"
	DraftApproved        DraftStatus = "APPROVED"
	DraftModified        DraftStatus = "MODIFIED"
	DraftRejected        DraftStatus = "REJECTED"
	DraftExpired         DraftStatus = "EXPIRED"
)

// Terminal reports whether the status admits no further transitions.
func (s DraftStatus) Terminal() bool {
	return s != DraftPendingApproval
}

// PendingDraft is the persisted envelope around one AI-proposed entity
// awaiting human approval. Payload holds the draft JSON; Type mirrors the
// payload's discriminant for filtered queries.
type PendingDraft struct {
	UID         string
	Type        string
	Payload     string
	Status      DraftStatus
	Reasoning   string
	SourceInput string
	Confidence  float64
	CreatedTs   int64
	ExpiresTs   int64
	ID          int32
	UserID      int32
}

// FindPendingDraft specifies conditions for finding pending drafts.
type FindPendingDraft struct {
	ID     *int32
	UID    *string
	UserID *int32
	Status *DraftStatus
}

// UpdatePendingDraft specifies a partial draft update.
type UpdatePendingDraft struct {
	Status  *DraftStatus
	Payload *string
	ID      int32
}
