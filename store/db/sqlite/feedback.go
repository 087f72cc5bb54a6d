package sqlite

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/mhalter/coachflow/store"
)

func (d *DB) CreateDraftFeedback(ctx context.Context, create *store.DraftFeedback) (*store.DraftFeedback, error) {
	stmt := `INSERT INTO draft_feedback (draft_id, user_id, session_id, action, original_json, modified_json, comment, decision_ms, created_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt,
		create.DraftID, create.UserID, create.SessionID, create.Action,
		create.OriginalJSON, create.ModifiedJSON, create.Comment, create.DecisionMs, create.CreatedTs,
	).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create draft_feedback")
	}
	return create, nil
}

func (d *DB) ListDraftFeedback(ctx context.Context, find *store.FindDraftFeedback) ([]*store.DraftFeedback, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.UserID != nil {
		where, args = append(where, "user_id = ?"), append(args, *find.UserID)
	}
	if find.Action != nil {
		where, args = append(where, "action = ?"), append(args, string(*find.Action))
	}
	if find.CreatedAfter != nil {
		where, args = append(where, "created_ts >= ?"), append(args, *find.CreatedAfter)
	}

	query := `SELECT id, draft_id, user_id, session_id, action, original_json, modified_json, comment, decision_ms, created_ts
		FROM draft_feedback
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC`
	if find.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list draft_feedback")
	}
	defer rows.Close()

	list := make([]*store.DraftFeedback, 0)
	for rows.Next() {
		f := &store.DraftFeedback{}
		if err := rows.Scan(&f.ID, &f.DraftID, &f.UserID, &f.SessionID, &f.Action, &f.OriginalJSON, &f.ModifiedJSON, &f.Comment, &f.DecisionMs, &f.CreatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan draft_feedback")
		}
		list = append(list, f)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate draft_feedback")
	}
	return list, nil
}
