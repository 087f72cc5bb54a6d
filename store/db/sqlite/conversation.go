package sqlite

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/mhalter/coachflow/store"
)

func (d *DB) CreateConversationSession(ctx context.Context, create *store.ConversationSession) (*store.ConversationSession, error) {
	stmt := `INSERT INTO conversation_session (uid, user_id, mode, status, message_count, started_ts, last_message_ts, ended_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt,
		create.UID, create.UserID, create.Mode, create.Status, create.MessageCount,
		create.StartedTs, create.LastMessageTs, create.EndedTs,
	).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create conversation_session")
	}
	return create, nil
}

func (d *DB) ListConversationSessions(ctx context.Context, find *store.FindConversationSession) ([]*store.ConversationSession, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if find.UID != nil {
		where, args = append(where, "uid = ?"), append(args, *find.UID)
	}
	if find.UserID != nil {
		where, args = append(where, "user_id = ?"), append(args, *find.UserID)
	}
	if find.Mode != nil {
		where, args = append(where, "mode = ?"), append(args, *find.Mode)
	}
	if find.Status != nil {
		where, args = append(where, "status = ?"), append(args, string(*find.Status))
	}
	if find.StartedAfter != nil {
		where, args = append(where, "started_ts >= ?"), append(args, *find.StartedAfter)
	}
	if find.LastMsgBefore != nil {
		where, args = append(where, "last_message_ts < ?"), append(args, *find.LastMsgBefore)
	}

	query := `SELECT id, uid, user_id, mode, status, message_count, started_ts, last_message_ts, ended_ts
		FROM conversation_session
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY started_ts DESC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list conversation_sessions")
	}
	defer rows.Close()

	list := make([]*store.ConversationSession, 0)
	for rows.Next() {
		s := &store.ConversationSession{}
		if err := rows.Scan(&s.ID, &s.UID, &s.UserID, &s.Mode, &s.Status, &s.MessageCount, &s.StartedTs, &s.LastMessageTs, &s.EndedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan conversation_session")
		}
		list = append(list, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate conversation_sessions")
	}
	return list, nil
}

func (d *DB) UpdateConversationSession(ctx context.Context, update *store.UpdateConversationSession) (*store.ConversationSession, error) {
	set, args := []string{}, []any{}

	if update.Status != nil {
		set, args = append(set, "status = ?"), append(args, string(*update.Status))
	}
	if update.LastMessageTs != nil {
		set, args = append(set, "last_message_ts = ?"), append(args, *update.LastMessageTs)
	}
	if update.EndedTs != nil {
		set, args = append(set, "ended_ts = ?"), append(args, *update.EndedTs)
	}
	if update.MessageCount != nil {
		set, args = append(set, "message_count = ?"), append(args, *update.MessageCount)
	}
	if len(set) == 0 {
		return nil, errors.New("no fields to update")
	}
	args = append(args, update.ID)

	stmt := `UPDATE conversation_session SET ` + strings.Join(set, ", ") + ` WHERE id = ?
		RETURNING id, uid, user_id, mode, status, message_count, started_ts, last_message_ts, ended_ts`
	s := &store.ConversationSession{}
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(
		&s.ID, &s.UID, &s.UserID, &s.Mode, &s.Status, &s.MessageCount, &s.StartedTs, &s.LastMessageTs, &s.EndedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to update conversation_session")
	}
	return s, nil
}

func (d *DB) CreateConversationMessage(ctx context.Context, create *store.ConversationMessage) (*store.ConversationMessage, error) {
	stmt := `INSERT INTO conversation_message (session_id, role, content, intent, seq, created_ts)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt,
		create.SessionID, create.Role, create.Content, create.Intent, create.Seq, create.CreatedTs,
	).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create conversation_message")
	}
	return create, nil
}

func (d *DB) ListConversationMessages(ctx context.Context, find *store.FindConversationMessage) ([]*store.ConversationMessage, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.SessionID != nil {
		where, args = append(where, "session_id = ?"), append(args, *find.SessionID)
	}

	order := "ASC"
	if find.Descending {
		order = "DESC"
	}
	query := `SELECT id, session_id, role, content, intent, seq, created_ts
		FROM conversation_message
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY seq ` + order
	if find.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list conversation_messages")
	}
	defer rows.Close()

	list := make([]*store.ConversationMessage, 0)
	for rows.Next() {
		m := &store.ConversationMessage{}
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.Intent, &m.Seq, &m.CreatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan conversation_message")
		}
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate conversation_messages")
	}
	return list, nil
}
