package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/omega-agent/omega/pkg/store"
)

func scanTask(row interface {
	Scan(dest ...any) error
}) (store.Task, error) {
	var t store.Task
	err := row.Scan(&t.ID, &t.Channel, &t.SenderID, &t.ReplyTarget, &t.Description, &t.DueAt,
		&t.Repeat.Kind, &t.Repeat.Minutes, &t.Type, &t.Status, &t.RetryCount, &t.LastError)
	return t, err
}

const taskColumns = `id, channel, sender_id, reply_target, description, due_at, repeat_kind, repeat_minutes, task_type, status, retry_count, last_error`

// CreateTask applies exact and fuzzy dedup against the sender's pending
// tasks before inserting a new row, matching pkg/store/memstore's
// semantics so both backends satisfy the same testable properties.
func (s *Store) CreateTask(ctx context.Context, t store.Task) (store.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE sender_id=? AND status='pending'`, t.SenderID)
	if err != nil {
		return store.Task{}, err
	}
	var existing []store.Task
	for rows.Next() {
		row, err := scanTask(rows)
		if err != nil {
			rows.Close()
			return store.Task{}, err
		}
		existing = append(existing, row)
	}
	rows.Close()

	for _, e := range existing {
		if e.Description == t.Description && e.DueAt == t.DueAt {
			return e, nil
		}
		if store.DescriptionsSimilar(e.Description, t.Description) &&
			store.DueAtsWithin(e.DueAt, t.DueAt, store.FuzzyDedupWindow) {
			return e, nil
		}
	}

	t.ID = newID()
	t.Status = store.TaskPending
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.Channel, t.SenderID, t.ReplyTarget, t.Description, t.DueAt,
		t.Repeat.Kind, t.Repeat.Minutes, t.Type, t.Status, t.RetryCount, t.LastError)
	return t, err
}

func (s *Store) queryTasks(ctx context.Context, query string, args ...any) ([]store.Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE `+query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []store.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) GetDueTasks(ctx context.Context, now time.Time) ([]store.Task, error) {
	return s.queryTasks(ctx, `status='pending' AND due_at <= ? ORDER BY due_at`, now.UTC().Format(store.DueAtLayout))
}

func (s *Store) GetTasksForSender(ctx context.Context, senderID string) ([]store.Task, error) {
	return s.queryTasks(ctx, `sender_id=? AND status='pending' ORDER BY due_at`, senderID)
}

func (s *Store) CompleteTask(ctx context.Context, id string, repeat store.Repeat) error {
	if repeat.Kind == store.RepeatOnce {
		res, err := s.db.ExecContext(ctx, `UPDATE tasks SET status='done' WHERE id=?`, id)
		return checkAffected(res, err)
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return store.ErrNotFound
	} else if err != nil {
		return err
	}
	next := store.AdvanceDueAt(t.DueAt, repeat)
	_, err = s.db.ExecContext(ctx,
		`UPDATE tasks SET due_at=?, retry_count=0, last_error='', status='pending' WHERE id=?`, next, id)
	return err
}

func (s *Store) FailTask(ctx context.Context, id string, reason string, maxRetries int) error {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return store.ErrNotFound
	} else if err != nil {
		return err
	}
	t.RetryCount++
	if t.RetryCount > maxRetries {
		_, err = s.db.ExecContext(ctx, `UPDATE tasks SET status='failed', retry_count=?, last_error=? WHERE id=?`,
			t.RetryCount, reason, id)
		return err
	}
	nextDue := time.Now().Add(2 * time.Minute).UTC().Format(store.DueAtLayout)
	_, err = s.db.ExecContext(ctx,
		`UPDATE tasks SET status='pending', retry_count=?, last_error=?, due_at=? WHERE id=?`,
		t.RetryCount, reason, nextDue, id)
	return err
}

func (s *Store) findTaskIDByPrefix(ctx context.Context, senderID, idPrefix string) (string, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id FROM tasks WHERE sender_id=? AND id=?`, senderID, idPrefix)
	var id string
	if err := row.Scan(&id); err == nil {
		return id, nil
	}
	if len(idPrefix) < 8 {
		return "", nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM tasks WHERE sender_id=? AND id LIKE ?`, senderID, idPrefix+"%")
	if err != nil {
		return "", err
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&id); err != nil {
			return "", err
		}
		return id, nil
	}
	return "", nil
}

func (s *Store) CancelTask(ctx context.Context, senderID, idPrefix string) (bool, error) {
	id, err := s.findTaskIDByPrefix(ctx, senderID, idPrefix)
	if err != nil || id == "" {
		return false, err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *Store) UpdateTask(ctx context.Context, senderID, idPrefix string, patch store.TaskPatch) (bool, error) {
	id, err := s.findTaskIDByPrefix(ctx, senderID, idPrefix)
	if err != nil || id == "" {
		return false, err
	}
	if patch.Description != nil {
		if _, err := s.db.ExecContext(ctx, `UPDATE tasks SET description=? WHERE id=?`, *patch.Description, id); err != nil {
			return false, err
		}
	}
	if patch.DueAt != nil {
		if _, err := s.db.ExecContext(ctx, `UPDATE tasks SET due_at=? WHERE id=?`, *patch.DueAt, id); err != nil {
			return false, err
		}
	}
	if patch.Repeat != nil {
		if _, err := s.db.ExecContext(ctx, `UPDATE tasks SET repeat_kind=?, repeat_minutes=? WHERE id=?`,
			patch.Repeat.Kind, patch.Repeat.Minutes, id); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (s *Store) AppendOutcome(ctx context.Context, o store.Outcome) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO outcomes (sender_id, score, domain, lesson, timestamp) VALUES (?,?,?,?,?)`,
		o.SenderID, o.Score, o.Domain, o.Lesson, o.Timestamp.Format(time.RFC3339))
	return err
}

func (s *Store) RecentOutcomes(ctx context.Context, senderID string, limit int) ([]store.Outcome, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT sender_id, score, domain, lesson, timestamp FROM outcomes WHERE sender_id=? ORDER BY timestamp DESC LIMIT ?`,
		senderID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []store.Outcome
	for rows.Next() {
		var o store.Outcome
		var ts string
		if err := rows.Scan(&o.SenderID, &o.Score, &o.Domain, &o.Lesson, &ts); err != nil {
			return nil, err
		}
		o.Timestamp, _ = time.Parse(time.RFC3339, ts)
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) GetLessons(ctx context.Context, senderID string) ([]store.Lesson, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT sender_id, domain, rule FROM lessons WHERE sender_id=?`, senderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []store.Lesson
	for rows.Next() {
		var l store.Lesson
		if err := rows.Scan(&l.SenderID, &l.Domain, &l.Rule); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Store) AppendLesson(ctx context.Context, l store.Lesson) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO lessons (sender_id, domain, rule) VALUES (?,?,?)`, l.SenderID, l.Domain, l.Rule)
	return err
}

func (s *Store) ResolveSenderID(ctx context.Context, channel, rawSenderID string) (string, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT canonical_sender_id FROM sender_aliases WHERE channel=? AND raw_sender_id=?`, channel, rawSenderID)
	var canonical string
	if err := row.Scan(&canonical); err == nil {
		return canonical, nil
	} else if err != sql.ErrNoRows {
		return "", err
	}
	return rawSenderID, nil
}

// Append implements store.AuditLogger directly on the same connection,
// since the audit log is just another append-only table — no separate
// library earns its keep here.
func (s *Store) Append(ctx context.Context, entry store.AuditEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (timestamp, channel, sender_id, input, output, provider, model, processing_ms, status, denial_reason)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		entry.Timestamp.Format(time.RFC3339), entry.Channel, entry.SenderID, entry.Input, entry.Output,
		entry.Provider, entry.Model, entry.ProcessingMs, entry.Status, entry.DenialReason)
	return err
}

func checkAffected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

var (
	_ store.Store       = (*Store)(nil)
	_ store.AuditLogger = (*Store)(nil)
)
