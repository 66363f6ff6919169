// Package sqlite is the concrete store.Store implementation backing
// production deployments, using database/sql over mattn/go-sqlite3 the
// same way the teacher's own build tooling links the driver.
package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/omega-agent/omega/pkg/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id TEXT PRIMARY KEY,
	channel TEXT NOT NULL,
	sender_id TEXT NOT NULL,
	status TEXT NOT NULL,
	last_activity TEXT NOT NULL,
	summary TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_conversations_sender ON conversations(channel, sender_id, status);

CREATE TABLE IF NOT EXISTS messages (
	conversation_id TEXT NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	timestamp TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id);

CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts5(
	content, conversation_id UNINDEXED, content='messages', content_rowid='rowid'
);

CREATE TABLE IF NOT EXISTS facts (
	sender_id TEXT NOT NULL,
	key TEXT NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY (sender_id, key)
);

CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	channel TEXT NOT NULL,
	sender_id TEXT NOT NULL,
	reply_target TEXT NOT NULL,
	description TEXT NOT NULL,
	due_at TEXT NOT NULL,
	repeat_kind TEXT NOT NULL DEFAULT '',
	repeat_minutes INTEGER NOT NULL DEFAULT 0,
	task_type TEXT NOT NULL,
	status TEXT NOT NULL,
	retry_count INTEGER NOT NULL DEFAULT 0,
	last_error TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_tasks_due ON tasks(status, due_at);
CREATE INDEX IF NOT EXISTS idx_tasks_sender ON tasks(sender_id, status);

CREATE TABLE IF NOT EXISTS outcomes (
	sender_id TEXT NOT NULL,
	score INTEGER NOT NULL,
	domain TEXT NOT NULL,
	lesson TEXT NOT NULL,
	timestamp TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_outcomes_sender ON outcomes(sender_id, timestamp);

CREATE TABLE IF NOT EXISTS lessons (
	sender_id TEXT NOT NULL,
	domain TEXT NOT NULL,
	rule TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sender_aliases (
	channel TEXT NOT NULL,
	raw_sender_id TEXT NOT NULL,
	canonical_sender_id TEXT NOT NULL,
	PRIMARY KEY (channel, raw_sender_id)
);

CREATE TABLE IF NOT EXISTS audit_log (
	timestamp TEXT NOT NULL,
	channel TEXT NOT NULL,
	sender_id TEXT NOT NULL,
	input TEXT NOT NULL,
	output TEXT NOT NULL,
	provider TEXT NOT NULL,
	model TEXT NOT NULL,
	processing_ms INTEGER NOT NULL,
	status TEXT NOT NULL,
	denial_reason TEXT NOT NULL DEFAULT ''
);
`

// Store is the SQLite-backed store.Store and store.AuditLogger.
type Store struct {
	db *sql.DB
}

// Open creates (if necessary) and opens the SQLite database at path,
// applying the schema idempotently.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite3 driver is not safe for concurrent writers
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) GetOrCreateConversation(ctx context.Context, channel, senderID string) (store.Conversation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, status, last_activity, summary FROM conversations WHERE channel=? AND sender_id=? AND status='active'`,
		channel, senderID)
	var c store.Conversation
	var lastActivity string
	if err := row.Scan(&c.ID, &c.Status, &lastActivity, &c.Summary); err == nil {
		c.Channel, c.SenderID = channel, senderID
		c.LastActivity, _ = time.Parse(time.RFC3339, lastActivity)
		return c, nil
	} else if err != sql.ErrNoRows {
		return store.Conversation{}, err
	}

	c = store.Conversation{
		ID: newID(), Channel: channel, SenderID: senderID,
		Status: store.ConversationActive, LastActivity: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, channel, sender_id, status, last_activity, summary) VALUES (?,?,?,?,?,?)`,
		c.ID, c.Channel, c.SenderID, c.Status, c.LastActivity.Format(time.RFC3339), "")
	return c, err
}

func (s *Store) CloseConversation(ctx context.Context, id string, summary string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE conversations SET status='closed', summary=? WHERE id=?`, summary, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) queryConversations(ctx context.Context, query string, args ...any) ([]store.Conversation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []store.Conversation
	for rows.Next() {
		var c store.Conversation
		var lastActivity string
		if err := rows.Scan(&c.ID, &c.Channel, &c.SenderID, &c.Status, &lastActivity, &c.Summary); err != nil {
			return nil, err
		}
		c.LastActivity, _ = time.Parse(time.RFC3339, lastActivity)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) FindIdleConversations(ctx context.Context, olderThan time.Duration) ([]store.Conversation, error) {
	cutoff := time.Now().Add(-olderThan).Format(time.RFC3339)
	return s.queryConversations(ctx,
		`SELECT id, channel, sender_id, status, last_activity, summary FROM conversations WHERE status='active' AND last_activity < ?`,
		cutoff)
}

func (s *Store) FindAllActiveConversations(ctx context.Context) ([]store.Conversation, error) {
	return s.queryConversations(ctx,
		`SELECT id, channel, sender_id, status, last_activity, summary FROM conversations WHERE status='active'`)
}

func (s *Store) RecentSummaries(ctx context.Context, channel, senderID string, limit int) ([]store.Conversation, error) {
	return s.queryConversations(ctx,
		`SELECT id, channel, sender_id, status, last_activity, summary FROM conversations
		 WHERE channel=? AND sender_id=? AND status='closed' AND summary != ''
		 ORDER BY last_activity DESC LIMIT ?`,
		channel, senderID, limit)
}

func (s *Store) AppendMessage(ctx context.Context, msg store.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO messages (conversation_id, role, content, timestamp) VALUES (?,?,?,?)`,
		msg.ConversationID, msg.Role, msg.Content, msg.Timestamp.Format(time.RFC3339)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO messages_fts (rowid, content, conversation_id) VALUES (last_insert_rowid(), ?, ?)`,
		msg.Content, msg.ConversationID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE conversations SET last_activity=? WHERE id=?`, msg.Timestamp.Format(time.RFC3339), msg.ConversationID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) GetConversationMessages(ctx context.Context, conversationID string) ([]store.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT conversation_id, role, content, timestamp FROM messages WHERE conversation_id=? ORDER BY rowid`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []store.Message
	for rows.Next() {
		var m store.Message
		var ts string
		if err := rows.Scan(&m.ConversationID, &m.Role, &m.Content, &ts); err != nil {
			return nil, err
		}
		m.Timestamp, _ = time.Parse(time.RFC3339, ts)
		out = append(out, m)
	}
	return out, rows.Err()
}

// SearchMessages runs an FTS5 match restricted to the sender's own
// conversations, ranked by bm25. The query goes through ftsQuery, which
// quotes every token, so FTS5 syntax characters in user text do not
// cause query errors.
func (s *Store) SearchMessages(ctx context.Context, senderID, query string, limit int) ([]store.Message, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.conversation_id, m.role, m.content, m.timestamp
		FROM messages_fts f
		JOIN messages m ON m.rowid = f.rowid
		JOIN conversations c ON c.id = m.conversation_id
		WHERE c.sender_id = ? AND messages_fts MATCH ?
		ORDER BY bm25(messages_fts)
		LIMIT ?`, senderID, ftsQuery(query), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []store.Message
	for rows.Next() {
		var m store.Message
		var ts string
		if err := rows.Scan(&m.ConversationID, &m.Role, &m.Content, &ts); err != nil {
			return nil, err
		}
		m.Timestamp, _ = time.Parse(time.RFC3339, ts)
		out = append(out, m)
	}
	return out, rows.Err()
}

// ftsQuery turns free text into an FTS5 query by quoting each token,
// which sidesteps FTS5 query-syntax errors on punctuation in user text.
func ftsQuery(text string) string {
	fields := strings.Fields(text)
	quoted := make([]string, 0, len(fields))
	for _, f := range fields {
		quoted = append(quoted, `"`+strings.ReplaceAll(f, `"`, `""`)+`"`)
	}
	return strings.Join(quoted, " OR ")
}

func (s *Store) GetFacts(ctx context.Context, senderID string) ([]store.Fact, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM facts WHERE sender_id=? ORDER BY key`, senderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []store.Fact
	for rows.Next() {
		var f store.Fact
		if err := rows.Scan(&f.Key, &f.Value); err != nil {
			return nil, err
		}
		f.SenderID = senderID
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *Store) setFact(ctx context.Context, senderID, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO facts (sender_id, key, value) VALUES (?,?,?)
		 ON CONFLICT(sender_id, key) DO UPDATE SET value=excluded.value`,
		senderID, key, value)
	return err
}

func (s *Store) SetFact(ctx context.Context, senderID, key, value string) error {
	if store.SystemFactKeys[strings.ToLower(key)] {
		return store.ErrSystemKey
	}
	return s.setFact(ctx, senderID, key, value)
}

func (s *Store) SetSystemFact(ctx context.Context, senderID, key, value string) error {
	return s.setFact(ctx, senderID, key, value)
}

func (s *Store) DeleteNonSystemFacts(ctx context.Context, senderID string) error {
	placeholders := make([]string, 0, len(store.SystemFactKeys))
	args := []any{senderID}
	for k := range store.SystemFactKeys {
		placeholders = append(placeholders, "?")
		args = append(args, k)
	}
	q := fmt.Sprintf(`DELETE FROM facts WHERE sender_id=? AND key NOT IN (%s)`, strings.Join(placeholders, ","))
	_, err := s.db.ExecContext(ctx, q, args...)
	return err
}

func (s *Store) Counts(ctx context.Context) (store.Counts, error) {
	var c store.Counts
	row := s.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM conversations), (SELECT COUNT(*) FROM messages), (SELECT COUNT(*) FROM facts)`)
	if err := row.Scan(&c.Conversations, &c.Messages, &c.Facts); err != nil {
		return store.Counts{}, err
	}
	return c, nil
}

func newID() string {
	var b [6]byte
	_, _ = rand.Read(b[:])
	return fmt.Sprintf("%x", b)
}
