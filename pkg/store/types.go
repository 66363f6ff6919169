// Package store defines the persistence contract the gateway core
// depends on (conversations, messages, facts, tasks, outcomes, lessons)
// plus a concrete SQLite-backed implementation in pkg/store/sqlite.
package store

import "time"

// Attachment is a binary blob carried by an IncomingMessage.
type Attachment struct {
	Data []byte
	Type string // "image", "document", "audio"
}

// IncomingMessage is immutable once created.
type IncomingMessage struct {
	ID            string
	Channel       string
	SenderID      string
	SenderName    string
	Text          string
	Timestamp     time.Time
	ReplyTarget   string
	Attachments   []Attachment
	IsGroup       bool
	WebhookSource string // "" unless delivered via the webhook in AI mode
}

// OutgoingMessage is produced by the pipeline and consumed by a channel.
type OutgoingMessage struct {
	Text         string
	ReplyTarget  string
	ProviderName string
	ModelName    string
	ProcessingMs int64
}

// ConversationStatus is the lifecycle state of a Conversation.
type ConversationStatus string

const (
	ConversationActive ConversationStatus = "active"
	ConversationClosed ConversationStatus = "closed"
)

// Conversation groups messages for one (channel, sender) pair.
type Conversation struct {
	ID           string
	Channel      string
	SenderID     string
	Status       ConversationStatus
	LastActivity time.Time
	Summary      string
}

// MessageRole distinguishes user and assistant turns.
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// Message is one append-only turn within a Conversation.
type Message struct {
	ConversationID string
	Role           MessageRole
	Content        string
	Timestamp      time.Time
}

// Fact is a (sender, key, value) profile entry. System keys listed in
// SystemFactKeys govern runtime behavior and cannot be set by the model.
type Fact struct {
	SenderID string
	Key      string
	Value    string
}

// SystemFactKeys are reserved keys the model may never write directly;
// only the gateway itself (command handlers, marker application code)
// may set them.
var SystemFactKeys = map[string]bool{
	"welcomed":              true,
	"preferred_language":    true,
	"active_project":        true,
	"personality":           true,
	"onboarding_stage":      true,
	"pending_build_request": true,
	"pending_setup":         true,
}

// TaskType distinguishes a passive reminder from an action the provider
// is invoked to execute.
type TaskType string

const (
	TaskTypeReminder TaskType = "reminder"
	TaskTypeAction   TaskType = "action"
)

// TaskStatus is the lifecycle state of a Task.
type TaskStatus string

const (
	TaskPending TaskStatus = "pending"
	TaskDone    TaskStatus = "done"
	TaskFailed  TaskStatus = "failed"
)

// RepeatKind mirrors marker.Repeat without importing the marker package,
// keeping the store's dependency graph a leaf.
type RepeatKind string

const (
	RepeatOnce     RepeatKind = ""
	RepeatDaily    RepeatKind = "daily"
	RepeatWeekly   RepeatKind = "weekly"
	RepeatMonthly  RepeatKind = "monthly"
	RepeatHourly   RepeatKind = "hourly"
	RepeatMinutely RepeatKind = "minutely"
)

// Repeat is a task's recurrence rule; Minutes is only meaningful when
// Kind == RepeatMinutely.
type Repeat struct {
	Kind    RepeatKind
	Minutes int
}

// Task is a scheduled reminder or action.
type Task struct {
	ID          string
	Channel     string
	SenderID    string
	ReplyTarget string
	Description string
	DueAt       string // "YYYY-MM-DD HH:MM:SS", UTC
	Repeat      Repeat
	Type        TaskType
	Status      TaskStatus
	RetryCount  int
	LastError   string
}

// Outcome is a scored episode appended by the model via ACTION_OUTCOME
// or future reward markers, read back into system prompts.
type Outcome struct {
	SenderID  string
	Score     int // -1, 0, +1
	Domain    string
	Lesson    string
	Timestamp time.Time
}

// Lesson is a persistent behavioral override for a (sender, domain).
type Lesson struct {
	SenderID string
	Domain   string
	Rule     string
}

// AuditStatus classifies one pipeline invocation for the audit log.
type AuditStatus string

const (
	AuditOK     AuditStatus = "OK"
	AuditDenied AuditStatus = "Denied"
	AuditError  AuditStatus = "Error"
)

// AuditEntry is one append-only audit log row.
type AuditEntry struct {
	Timestamp    time.Time
	Channel      string
	SenderID     string
	Input        string
	Output       string
	Provider     string
	Model        string
	ProcessingMs int64
	Status       AuditStatus
	DenialReason string
}
