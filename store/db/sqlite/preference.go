package sqlite

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/mhalter/coachflow/store"
)

func (d *DB) UpsertUserCoachPreference(ctx context.Context, upsert *store.UpsertUserCoachPreference) (*store.UserCoachPreference, error) {
	stmt := `INSERT INTO user_coach_preference (user_id, tone, default_mode, patterns, approved_count, modified_count, rejected_count, total_count, created_ts, updated_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, strftime('%s','now'), strftime('%s','now'))
		ON CONFLICT (user_id) DO UPDATE SET
			tone = excluded.tone,
			default_mode = excluded.default_mode,
			patterns = excluded.patterns,
			approved_count = excluded.approved_count,
			modified_count = excluded.modified_count,
			rejected_count = excluded.rejected_count,
			total_count = excluded.total_count,
			updated_ts = excluded.updated_ts
		RETURNING user_id, tone, default_mode, patterns, approved_count, modified_count, rejected_count, total_count, created_ts, updated_ts`
	p := &store.UserCoachPreference{}
	if err := d.db.QueryRowContext(ctx, stmt,
		upsert.UserID, upsert.Tone, upsert.DefaultMode, upsert.Patterns,
		upsert.ApprovedCount, upsert.ModifiedCount, upsert.RejectedCount, upsert.TotalCount,
	).Scan(
		&p.UserID, &p.Tone, &p.DefaultMode, &p.Patterns,
		&p.ApprovedCount, &p.ModifiedCount, &p.RejectedCount, &p.TotalCount,
		&p.CreatedTs, &p.UpdatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to upsert user_coach_preference")
	}
	return p, nil
}

func (d *DB) ListUserCoachPreferences(ctx context.Context, find *store.FindUserCoachPreference) ([]*store.UserCoachPreference, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.UserID != nil {
		where, args = append(where, "user_id = ?"), append(args, *find.UserID)
	}

	query := `SELECT user_id, tone, default_mode, patterns, approved_count, modified_count, rejected_count, total_count, created_ts, updated_ts
		FROM user_coach_preference
		WHERE ` + strings.Join(where, " AND ")

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list user_coach_preferences")
	}
	defer rows.Close()

	list := make([]*store.UserCoachPreference, 0)
	for rows.Next() {
		p := &store.UserCoachPreference{}
		if err := rows.Scan(&p.UserID, &p.Tone, &p.DefaultMode, &p.Patterns, &p.ApprovedCount, &p.ModifiedCount, &p.RejectedCount, &p.TotalCount, &p.CreatedTs, &p.UpdatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan user_coach_preference")
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate user_coach_preferences")
	}
	return list, nil
}

func (d *DB) UpsertPromptTemplate(ctx context.Context, upsert *store.UpsertPromptTemplate) (*store.PromptTemplate, error) {
	stmt := `INSERT INTO prompt_template (key, version, template, enabled, updated_ts)
		VALUES (?, ?, ?, ?, strftime('%s','now'))
		ON CONFLICT (key) DO UPDATE SET
			version = excluded.version,
			template = excluded.template,
			enabled = excluded.enabled,
			updated_ts = excluded.updated_ts
		RETURNING key, version, template, enabled, updated_ts`
	t := &store.PromptTemplate{}
	if err := d.db.QueryRowContext(ctx, stmt,
		upsert.Key, upsert.Version, upsert.Template, upsert.Enabled,
	).Scan(&t.Key, &t.Version, &t.Template, &t.Enabled, &t.UpdatedTs); err != nil {
		return nil, errors.Wrap(err, "failed to upsert prompt_template")
	}
	return t, nil
}

func (d *DB) ListPromptTemplates(ctx context.Context, find *store.FindPromptTemplate) ([]*store.PromptTemplate, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.Key != nil {
		where, args = append(where, "key = ?"), append(args, *find.Key)
	}

	query := `SELECT key, version, template, enabled, updated_ts
		FROM prompt_template
		WHERE ` + strings.Join(where, " AND ")

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list prompt_templates")
	}
	defer rows.Close()

	list := make([]*store.PromptTemplate, 0)
	for rows.Next() {
		t := &store.PromptTemplate{}
		if err := rows.Scan(&t.Key, &t.Version, &t.Template, &t.Enabled, &t.UpdatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan prompt_template")
		}
		list = append(list, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate prompt_templates")
	}
	return list, nil
}
