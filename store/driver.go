package store

import "context"

// Driver is an interface for store driver.
// It contains all the methods that the store needs to implement.
type Driver interface {
	GetDB() any
	Close() error

	IsInitialized(ctx context.Context) (bool, error)
	Migrate(ctx context.Context) error

	// ConversationSession model related methods.
	CreateConversationSession(ctx context.Context, create *ConversationSession) (*ConversationSession, error)
	ListConversationSessions(ctx context.Context, find *FindConversationSession) ([]*ConversationSession, error)
	UpdateConversationSession(ctx context.Context, update *UpdateConversationSession) (*ConversationSession, error)

	// ConversationMessage model related methods.
	CreateConversationMessage(ctx context.Context, create *ConversationMessage) (*ConversationMessage, error)
	ListConversationMessages(ctx context.Context, find *FindConversationMessage) ([]*ConversationMessage, error)

	// PendingDraft model related methods.
	CreatePendingDraft(ctx context.Context, create *PendingDraft) (*PendingDraft, error)
	ListPendingDrafts(ctx context.Context, find *FindPendingDraft) ([]*PendingDraft, error)
	UpdatePendingDraft(ctx context.Context, update *UpdatePendingDraft) (*PendingDraft, error)

	// DraftFeedback model related methods.
	CreateDraftFeedback(ctx context.Context, create *DraftFeedback) (*DraftFeedback, error)
	ListDraftFeedback(ctx context.Context, find *FindDraftFeedback) ([]*DraftFeedback, error)

	// UserCoachPreference model related methods.
	UpsertUserCoachPreference(ctx context.Context, upsert *UpsertUserCoachPreference) (*UserCoachPreference, error)
	ListUserCoachPreferences(ctx context.Context, find *FindUserCoachPreference) ([]*UserCoachPreference, error)

	// PromptTemplate model related methods.
	UpsertPromptTemplate(ctx context.Context, upsert *UpsertPromptTemplate) (*PromptTemplate, error)
	ListPromptTemplates(ctx context.Context, find *FindPromptTemplate) ([]*PromptTemplate, error)
}
