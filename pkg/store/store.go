package store

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors checked with errors.Is by callers.
var (
	ErrNotFound      = errors.New("store: not found")
	ErrSystemKey     = errors.New("store: refusing to write a system fact key")
	ErrDuplicateTask = errors.New("store: duplicate task")
)

// TaskPatch carries partial updates for UpdateTask; a nil field means
// "keep existing", matching the marker protocol's UPDATE_TASK semantics.
type TaskPatch struct {
	Description *string
	DueAt       *string
	Repeat      *Repeat
}

// Store is the persistence contract the gateway core depends on. A
// concrete implementation lives in pkg/store/sqlite; tests use an
// in-memory fake implementing the same interface (see
// pkg/store/memstore).
type Store interface {
	// Conversations
	GetOrCreateConversation(ctx context.Context, channel, senderID string) (Conversation, error)
	CloseConversation(ctx context.Context, id string, summary string) error
	FindIdleConversations(ctx context.Context, olderThan time.Duration) ([]Conversation, error)
	FindAllActiveConversations(ctx context.Context) ([]Conversation, error)
	RecentSummaries(ctx context.Context, channel, senderID string, limit int) ([]Conversation, error)

	// Messages
	AppendMessage(ctx context.Context, msg Message) error
	GetConversationMessages(ctx context.Context, conversationID string) ([]Message, error)
	SearchMessages(ctx context.Context, senderID, query string, limit int) ([]Message, error)

	// Facts
	GetFacts(ctx context.Context, senderID string) ([]Fact, error)
	SetFact(ctx context.Context, senderID, key, value string) error
	SetSystemFact(ctx context.Context, senderID, key, value string) error
	DeleteNonSystemFacts(ctx context.Context, senderID string) error

	// Tasks
	CreateTask(ctx context.Context, t Task) (Task, error) // applies exact + fuzzy dedup
	GetDueTasks(ctx context.Context, now time.Time) ([]Task, error)
	GetTasksForSender(ctx context.Context, senderID string) ([]Task, error)
	CompleteTask(ctx context.Context, id string, repeat Repeat) error
	FailTask(ctx context.Context, id string, reason string, maxRetries int) error
	CancelTask(ctx context.Context, senderID, idPrefix string) (bool, error)
	UpdateTask(ctx context.Context, senderID, idPrefix string, patch TaskPatch) (bool, error)

	// Outcomes and lessons
	AppendOutcome(ctx context.Context, o Outcome) error
	RecentOutcomes(ctx context.Context, senderID string, limit int) ([]Outcome, error)
	GetLessons(ctx context.Context, senderID string) ([]Lesson, error)
	AppendLesson(ctx context.Context, l Lesson) error

	// Sender aliasing: some channels reuse display identities across
	// underlying transport ids; resolve_sender_id normalizes to a single
	// canonical sender key.
	ResolveSenderID(ctx context.Context, channel, rawSenderID string) (string, error)

	// Counts backs the /memory command.
	Counts(ctx context.Context) (Counts, error)

	Close() error
}

// Counts is the /memory command's summary of stored rows.
type Counts struct {
	Conversations int
	Messages      int
	Facts         int
}

// AuditLogger is an append-only recorder of pipeline invocations,
// separate from Store so it can be swapped or disabled independently
// (e.g. for load testing without write amplification).
type AuditLogger interface {
	Append(ctx context.Context, entry AuditEntry) error
}
