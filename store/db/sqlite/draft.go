package sqlite

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/mhalter/coachflow/store"
)

func (d *DB) CreatePendingDraft(ctx context.Context, create *store.PendingDraft) (*store.PendingDraft, error) {
	stmt := `INSERT INTO pending_draft (uid, user_id, type, payload, status, confidence, reasoning, source_input, created_ts, expires_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt,
		create.UID, create.UserID, create.Type, create.Payload, create.Status,
		create.Confidence, create.Reasoning, create.SourceInput, create.CreatedTs, create.ExpiresTs,
	).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create pending_draft")
	}
	return create, nil
}

func (d *DB) ListPendingDrafts(ctx context.Context, find *store.FindPendingDraft) ([]*store.PendingDraft, error) {
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
	if find.Status != nil {
		where, args = append(where, "status = ?"), append(args, string(*find.Status))
	}

	query := `SELECT id, uid, user_id, type, payload, status, confidence, reasoning, source_input, created_ts, expires_ts
		FROM pending_draft
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list pending_drafts")
	}
	defer rows.Close()

	list := make([]*store.PendingDraft, 0)
	for rows.Next() {
		p := &store.PendingDraft{}
		if err := rows.Scan(&p.ID, &p.UID, &p.UserID, &p.Type, &p.Payload, &p.Status, &p.Confidence, &p.Reasoning, &p.SourceInput, &p.CreatedTs, &p.ExpiresTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan pending_draft")
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate pending_drafts")
	}
	return list, nil
}

func (d *DB) UpdatePendingDraft(ctx context.Context, update *store.UpdatePendingDraft) (*store.PendingDraft, error) {
	set, args := []string{}, []any{}

	if update.Status != nil {
		set, args = append(set, "status = ?"), append(args, string(*update.Status))
	}
	if update.Payload != nil {
		set, args = append(set, "payload = ?"), append(args, *update.Payload)
	}
	if len(set) == 0 {
		return nil, errors.New("no fields to update")
	}
	args = append(args, update.ID)

	stmt := `UPDATE pending_draft SET ` + strings.Join(set, ", ") + ` WHERE id = ?
		RETURNING id, uid, user_id, type, payload, status, confidence, reasoning, source_input, created_ts, expires_ts`
	p := &store.PendingDraft{}
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(
		&p.ID, &p.UID, &p.UserID, &p.Type, &p.Payload, &p.Status, &p.Confidence, &p.Reasoning, &p.SourceInput, &p.CreatedTs, &p.ExpiresTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to update pending_draft")
	}
	return p, nil
}
