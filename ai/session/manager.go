// Package session manages conversational session lifecycle and the
// per-mode business rules that gate a turn before any LLM cost is incurred.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mhalter/coachflow/ai/mode"
	"github.com/mhalter/coachflow/store"
)

// Session lifecycle constants.
const (
	// FreeformMessageLimit is the rotation ceiling: a FREEFORM session that
	// reaches this many recorded messages is closed and a fresh one opened.
	FreeformMessageLimit = 20

	// IdleTimeout is how long a session may sit without a message before
	// the sweep expires it.
	IdleTimeout = 2 * time.Hour
)

// Manager is the persistence-backed conversation state machine. At most one
// ACTIVE session exists per (user, mode); CLOSED and EXPIRED are terminal.
type Manager struct {
	store *store.Store
	now   func() time.Time
}

// NewManager creates a session manager. now may be nil for the wall clock.
func NewManager(st *store.Store, now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{store: st, now: now}
}

// CheckSessionRules is consulted before session creation and may deny the
// turn outright:
//   - STANDUP: denied when a closed standup session already started today
//     (local calendar date).
//   - PLANNING: denied when a closed planning session started on or after
//     the start of the current week (anchored to the most recent Sunday).
//   - all other modes: always allowed.
//
// A denial is a first-class outcome, not an error.
func (m *Manager) CheckSessionRules(ctx context.Context, userID int32, md mode.Mode) (bool, string, error) {
	switch md {
	case mode.Standup:
		dayStart := m.startOfDay().Unix()
		closed, err := m.listClosed(ctx, userID, md, dayStart)
		if err != nil {
			return false, "", err
		}
		if len(closed) > 0 {
			return false, "You already completed a standup today. Next one opens tomorrow.", nil
		}
	case mode.Planning:
		weekStart := m.startOfWeek().Unix()
		closed, err := m.listClosed(ctx, userID, md, weekStart)
		if err != nil {
			return false, "", err
		}
		if len(closed) > 0 {
			return false, "You already ran a planning session this week. The next window opens Sunday.", nil
		}
	default:
	}
	return true, "", nil
}

// GetOrCreateSession returns the existing ACTIVE session for (user, mode),
// rotating a FREEFORM session that has hit the message ceiling: the old
// session is closed and a fresh one opened with its counter reset.
func (m *Manager) GetOrCreateSession(ctx context.Context, userID int32, md mode.Mode) (*store.ConversationSession, error) {
	active, err := m.findActive(ctx, userID, md)
	if err != nil {
		return nil, err
	}

	if active != nil {
		if md == mode.Freeform && active.MessageCount >= FreeformMessageLimit {
			if err := m.CloseSession(ctx, active.ID); err != nil {
				return nil, err
			}
			slog.Info("freeform session rotated",
				"user_id", userID,
				"session_uid", active.UID,
				"message_count", active.MessageCount,
			)
		} else {
			return active, nil
		}
	}

	now := m.now().Unix()
	created, err := m.store.CreateConversationSession(ctx, &store.ConversationSession{
		UID:           uuid.NewString(),
		UserID:        userID,
		Mode:          md.String(),
		Status:        store.SessionActive,
		StartedTs:     now,
		LastMessageTs: now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return created, nil
}

// AddTurn appends exactly two ordered messages (user then assistant) with
// monotonically increasing sequence numbers and bumps the session counter
// by two.
func (m *Manager) AddTurn(ctx context.Context, sess *store.ConversationSession, userText, assistantText string, intentTag string) error {
	now := m.now().Unix()

	userSeq := sess.MessageCount + 1
	if _, err := m.store.CreateConversationMessage(ctx, &store.ConversationMessage{
		SessionID: sess.ID,
		Role:      store.RoleUser,
		Content:   userText,
		Intent:    intentTag,
		Seq:       userSeq,
		CreatedTs: now,
	}); err != nil {
		return fmt.Errorf("failed to append user message: %w", err)
	}
	if _, err := m.store.CreateConversationMessage(ctx, &store.ConversationMessage{
		SessionID: sess.ID,
		Role:      store.RoleAssistant,
		Content:   assistantText,
		Seq:       userSeq + 1,
		CreatedTs: now,
	}); err != nil {
		return fmt.Errorf("failed to append assistant message: %w", err)
	}

	newCount := sess.MessageCount + 2
	updated, err := m.store.UpdateConversationSession(ctx, &store.UpdateConversationSession{
		ID:            sess.ID,
		MessageCount:  &newCount,
		LastMessageTs: &now,
	})
	if err != nil {
		return fmt.Errorf("failed to update session counters: %w", err)
	}
	*sess = *updated
	return nil
}

// RecentMessages returns the most recent messages of a session in
// chronological order.
func (m *Manager) RecentMessages(ctx context.Context, sessionID int32, limit int) ([]*store.ConversationMessage, error) {
	msgs, err := m.store.ListConversationMessages(ctx, &store.FindConversationMessage{
		SessionID:  &sessionID,
		Limit:      limit,
		Descending: true,
	})
	if err != nil {
		return nil, err
	}
	// Reverse back to chronological order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// CloseSession transitions a session to CLOSED.
func (m *Manager) CloseSession(ctx context.Context, sessionID int32) error {
	status := store.SessionClosed
	ended := m.now().Unix()
	if _, err := m.store.UpdateConversationSession(ctx, &store.UpdateConversationSession{
		ID:      sessionID,
		Status:  &status,
		EndedTs: &ended,
	}); err != nil {
		return fmt.Errorf("failed to close session: %w", err)
	}
	return nil
}

// CloseActive closes the user's ACTIVE session for a mode, if one exists.
// Returns false when there was nothing to close.
func (m *Manager) CloseActive(ctx context.Context, userID int32, md mode.Mode) (bool, error) {
	active, err := m.findActive(ctx, userID, md)
	if err != nil {
		return false, err
	}
	if active == nil {
		return false, nil
	}
	if err := m.CloseSession(ctx, active.ID); err != nil {
		return false, err
	}
	return true, nil
}

// ExpireIdleSessions transitions every ACTIVE session whose last message is
// older than the idle timeout to EXPIRED. Safe to run concurrently with
// live turns: it only touches sessions past the cutoff. Returns the number
// of sessions expired; per-item failures are logged and skipped.
func (m *Manager) ExpireIdleSessions(ctx context.Context) (int, error) {
	cutoff := m.now().Add(-IdleTimeout).Unix()
	active := store.SessionActive
	stale, err := m.store.ListConversationSessions(ctx, &store.FindConversationSession{
		Status:        &active,
		LastMsgBefore: &cutoff,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list idle sessions: %w", err)
	}

	expired := 0
	status := store.SessionExpired
	ended := m.now().Unix()
	for _, sess := range stale {
		if _, err := m.store.UpdateConversationSession(ctx, &store.UpdateConversationSession{
			ID:      sess.ID,
			Status:  &status,
			EndedTs: &ended,
		}); err != nil {
			slog.Warn("failed to expire idle session", "session_uid", sess.UID, "error", err)
			continue
		}
		expired++
	}
	return expired, nil
}

func (m *Manager) findActive(ctx context.Context, userID int32, md mode.Mode) (*store.ConversationSession, error) {
	active := store.SessionActive
	modeStr := md.String()
	sessions, err := m.store.ListConversationSessions(ctx, &store.FindConversationSession{
		UserID: &userID,
		Mode:   &modeStr,
		Status: &active,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find active session: %w", err)
	}
	if len(sessions) == 0 {
		return nil, nil
	}
	return sessions[0], nil
}

func (m *Manager) listClosed(ctx context.Context, userID int32, md mode.Mode, startedAfter int64) ([]*store.ConversationSession, error) {
	closed := store.SessionClosed
	modeStr := md.String()
	sessions, err := m.store.ListConversationSessions(ctx, &store.FindConversationSession{
		UserID:       &userID,
		Mode:         &modeStr,
		Status:       &closed,
		StartedAfter: &startedAfter,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list closed sessions: %w", err)
	}
	return sessions, nil
}

func (m *Manager) startOfDay() time.Time {
	now := m.now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// startOfWeek anchors the week to the most recent Sunday.
func (m *Manager) startOfWeek() time.Time {
	day := m.startOfDay()
	return day.AddDate(0, 0, -int(day.Weekday()))
}
