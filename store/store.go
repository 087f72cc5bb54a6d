package store

import (
	"context"
)

// Store provides database access to all raw objects.
type Store struct {
	driver Driver
}

// New creates a new instance of Store.
func New(driver Driver) *Store {
	return &Store{driver: driver}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

func (s *Store) CreateConversationSession(ctx context.Context, create *ConversationSession) (*ConversationSession, error) {
	return s.driver.CreateConversationSession(ctx, create)
}

func (s *Store) ListConversationSessions(ctx context.Context, find *FindConversationSession) ([]*ConversationSession, error) {
	return s.driver.ListConversationSessions(ctx, find)
}

func (s *Store) UpdateConversationSession(ctx context.Context, update *UpdateConversationSession) (*ConversationSession, error) {
	return s.driver.UpdateConversationSession(ctx, update)
}

func (s *Store) CreateConversationMessage(ctx context.Context, create *ConversationMessage) (*ConversationMessage, error) {
	return s.driver.CreateConversationMessage(ctx, create)
}

func (s *Store) ListConversationMessages(ctx context.Context, find *FindConversationMessage) ([]*ConversationMessage, error) {
	return s.driver.ListConversationMessages(ctx, find)
}

func (s *Store) CreatePendingDraft(ctx context.Context, create *PendingDraft) (*PendingDraft, error) {
	return s.driver.CreatePendingDraft(ctx, create)
}

func (s *Store) ListPendingDrafts(ctx context.Context, find *FindPendingDraft) ([]*PendingDraft, error) {
	return s.driver.ListPendingDrafts(ctx, find)
}

func (s *Store) UpdatePendingDraft(ctx context.Context, update *UpdatePendingDraft) (*PendingDraft, error) {
	return s.driver.UpdatePendingDraft(ctx, update)
}

func (s *Store) CreateDraftFeedback(ctx context.Context, create *DraftFeedback) (*DraftFeedback, error) {
	return s.driver.CreateDraftFeedback(ctx, create)
}

func (s *Store) ListDraftFeedback(ctx context.Context, find *FindDraftFeedback) ([]*DraftFeedback, error) {
	return s.driver.ListDraftFeedback(ctx, find)
}

func (s *Store) UpsertUserCoachPreference(ctx context.Context, upsert *UpsertUserCoachPreference) (*UserCoachPreference, error) {
	return s.driver.UpsertUserCoachPreference(ctx, upsert)
}

func (s *Store) ListUserCoachPreferences(ctx context.Context, find *FindUserCoachPreference) ([]*UserCoachPreference, error) {
	return s.driver.ListUserCoachPreferences(ctx, find)
}

// GetUserCoachPreference returns the preference aggregate for one user, or
// nil if none has been created yet.
func (s *Store) GetUserCoachPreference(ctx context.Context, userID int32) (*UserCoachPreference, error) {
	list, err := s.driver.ListUserCoachPreferences(ctx, &FindUserCoachPreference{UserID: &userID})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) UpsertPromptTemplate(ctx context.Context, upsert *UpsertPromptTemplate) (*PromptTemplate, error) {
	return s.driver.UpsertPromptTemplate(ctx, upsert)
}

func (s *Store) ListPromptTemplates(ctx context.Context, find *FindPromptTemplate) ([]*PromptTemplate, error) {
	return s.driver.ListPromptTemplates(ctx, find)
}
