// Package memstore is an in-memory store.Store used by package tests
// across the gateway core, mirroring the fake-backend style the teacher
// uses in its own scheduler tests (hand-rolled, no mocking framework).
package memstore

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/omega-agent/omega/pkg/store"
)

const dueAtLayout = store.DueAtLayout

// Store is a thread-safe in-memory implementation of store.Store.
type Store struct {
	mu sync.Mutex

	conversations map[string]store.Conversation
	closedHistory []store.Conversation
	messages      []store.Message
	facts         map[string]map[string]string
	tasks         map[string]store.Task
	outcomes      []store.Outcome
	lessons       []store.Lesson
	aliases       map[string]string
}

// New constructs an empty Store.
func New() *Store {
	return &Store{
		conversations: map[string]store.Conversation{},
		facts:         map[string]map[string]string{},
		tasks:         map[string]store.Task{},
		aliases:       map[string]string{},
	}
}

func newID() string {
	b := make([]byte, 6)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func conversationKey(channel, senderID string) string { return channel + "\x00" + senderID }

func (s *Store) GetOrCreateConversation(_ context.Context, channel, senderID string) (store.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := conversationKey(channel, senderID)
	if c, ok := s.conversations[key]; ok && c.Status == store.ConversationActive {
		return c, nil
	}
	c := store.Conversation{
		ID:           newID(),
		Channel:      channel,
		SenderID:     senderID,
		Status:       store.ConversationActive,
		LastActivity: time.Now(),
	}
	s.conversations[key] = c
	return c, nil
}

func (s *Store) CloseConversation(_ context.Context, id string, summary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, c := range s.conversations {
		if c.ID == id {
			c.Status = store.ConversationClosed
			c.Summary = summary
			s.conversations[key] = c
			s.closedHistory = append(s.closedHistory, c)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) FindIdleConversations(_ context.Context, olderThan time.Duration) ([]store.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().Add(-olderThan)
	var out []store.Conversation
	for _, c := range s.conversations {
		if c.Status == store.ConversationActive && c.LastActivity.Before(cutoff) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) FindAllActiveConversations(_ context.Context) ([]store.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.Conversation
	for _, c := range s.conversations {
		if c.Status == store.ConversationActive {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) RecentSummaries(_ context.Context, channel, senderID string, limit int) ([]store.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.Conversation
	for i := len(s.closedHistory) - 1; i >= 0 && len(out) < limit; i-- {
		c := s.closedHistory[i]
		if c.Channel == channel && c.SenderID == senderID && c.Summary != "" {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) AppendMessage(_ context.Context, msg store.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	for key, c := range s.conversations {
		if c.ID == msg.ConversationID {
			c.LastActivity = msg.Timestamp
			s.conversations[key] = c
			break
		}
	}
	return nil
}

func (s *Store) GetConversationMessages(_ context.Context, conversationID string) ([]store.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.Message
	for _, m := range s.messages {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	return out, nil
}

// SearchMessages implements a naive recency-ordered substring search,
// sufficient for tests; pkg/store/sqlite uses FTS5 for the real thing.
func (s *Store) SearchMessages(_ context.Context, senderID, query string, limit int) ([]store.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	senderConvos := map[string]bool{}
	for _, c := range s.conversations {
		if c.SenderID == senderID {
			senderConvos[c.ID] = true
		}
	}
	lowerQuery := strings.ToLower(query)
	var matches []store.Message
	for i := len(s.messages) - 1; i >= 0 && len(matches) < limit; i-- {
		m := s.messages[i]
		if !senderConvos[m.ConversationID] {
			continue
		}
		if lowerQuery == "" || strings.Contains(strings.ToLower(m.Content), lowerQuery) {
			matches = append(matches, m)
		}
	}
	return matches, nil
}

func (s *Store) GetFacts(_ context.Context, senderID string) ([]store.Fact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket := s.facts[senderID]
	out := make([]store.Fact, 0, len(bucket))
	for k, v := range bucket {
		out = append(out, store.Fact{SenderID: senderID, Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *Store) SetFact(_ context.Context, senderID, key, value string) error {
	if store.SystemFactKeys[strings.ToLower(key)] {
		return store.ErrSystemKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setFactLocked(senderID, key, value)
	return nil
}

func (s *Store) SetSystemFact(_ context.Context, senderID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setFactLocked(senderID, key, value)
	return nil
}

func (s *Store) setFactLocked(senderID, key, value string) {
	if s.facts[senderID] == nil {
		s.facts[senderID] = map[string]string{}
	}
	s.facts[senderID][key] = value
}

func (s *Store) DeleteNonSystemFacts(_ context.Context, senderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket := s.facts[senderID]
	for k := range bucket {
		if !store.SystemFactKeys[k] {
			delete(bucket, k)
		}
	}
	return nil
}

// CreateTask applies exact dedup (same sender+description+due_at returns
// the existing id) and fuzzy dedup (≥3 shared significant words within a
// 30-minute due_at window), per spec.md §3 and §8.
func (s *Store) CreateTask(_ context.Context, t store.Task) (store.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.tasks {
		if existing.SenderID != t.SenderID || existing.Status != store.TaskPending {
			continue
		}
		if existing.Description == t.Description && existing.DueAt == t.DueAt {
			return existing, nil
		}
		if store.DescriptionsSimilar(existing.Description, t.Description) &&
			store.DueAtsWithin(existing.DueAt, t.DueAt, store.FuzzyDedupWindow) {
			return existing, nil
		}
	}

	t.ID = newID()
	t.Status = store.TaskPending
	s.tasks[t.ID] = t
	return t, nil
}

func (s *Store) GetDueTasks(_ context.Context, now time.Time) ([]store.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.Task
	for _, t := range s.tasks {
		if t.Status != store.TaskPending {
			continue
		}
		due, err := time.Parse(dueAtLayout, t.DueAt)
		if err != nil || due.After(now) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueAt < out[j].DueAt })
	return out, nil
}

func (s *Store) GetTasksForSender(_ context.Context, senderID string) ([]store.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.Task
	for _, t := range s.tasks {
		if t.SenderID == senderID && t.Status == store.TaskPending {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueAt < out[j].DueAt })
	return out, nil
}

func (s *Store) CompleteTask(_ context.Context, id string, repeat store.Repeat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return store.ErrNotFound
	}
	if repeat.Kind == store.RepeatOnce {
		t.Status = store.TaskDone
	} else {
		t.DueAt = store.AdvanceDueAt(t.DueAt, repeat)
		t.RetryCount = 0
		t.LastError = ""
		t.Status = store.TaskPending
	}
	s.tasks[id] = t
	return nil
}

func (s *Store) FailTask(_ context.Context, id string, reason string, maxRetries int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return store.ErrNotFound
	}
	t.LastError = reason
	t.RetryCount++
	if t.RetryCount > maxRetries {
		t.Status = store.TaskFailed
	} else {
		t.Status = store.TaskPending
		t.DueAt = time.Now().Add(2 * time.Minute).UTC().Format(dueAtLayout)
	}
	s.tasks[id] = t
	return nil
}

func (s *Store) findBySenderAndPrefix(senderID, idPrefix string) (string, bool) {
	for id, t := range s.tasks {
		if t.SenderID != senderID {
			continue
		}
		if id == idPrefix || (len(idPrefix) >= 8 && strings.HasPrefix(id, idPrefix)) {
			return id, true
		}
	}
	return "", false
}

func (s *Store) CancelTask(_ context.Context, senderID, idPrefix string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.findBySenderAndPrefix(senderID, idPrefix)
	if !ok {
		return false, nil
	}
	delete(s.tasks, id)
	return true, nil
}

func (s *Store) UpdateTask(_ context.Context, senderID, idPrefix string, patch store.TaskPatch) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.findBySenderAndPrefix(senderID, idPrefix)
	if !ok {
		return false, nil
	}
	t := s.tasks[id]
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.DueAt != nil {
		t.DueAt = *patch.DueAt
	}
	if patch.Repeat != nil {
		t.Repeat = *patch.Repeat
	}
	s.tasks[id] = t
	return true, nil
}

func (s *Store) AppendOutcome(_ context.Context, o store.Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes = append(s.outcomes, o)
	return nil
}

func (s *Store) RecentOutcomes(_ context.Context, senderID string, limit int) ([]store.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.Outcome
	for i := len(s.outcomes) - 1; i >= 0 && len(out) < limit; i-- {
		if s.outcomes[i].SenderID == senderID {
			out = append(out, s.outcomes[i])
		}
	}
	return out, nil
}

func (s *Store) GetLessons(_ context.Context, senderID string) ([]store.Lesson, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.Lesson
	for _, l := range s.lessons {
		if l.SenderID == senderID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *Store) AppendLesson(_ context.Context, l store.Lesson) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lessons = append(s.lessons, l)
	return nil
}

func (s *Store) ResolveSenderID(_ context.Context, channel, rawSenderID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := channel + "\x00" + rawSenderID
	if canonical, ok := s.aliases[key]; ok {
		return canonical, nil
	}
	return rawSenderID, nil
}

func (s *Store) Counts(_ context.Context) (store.Counts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	factCount := 0
	for _, bucket := range s.facts {
		factCount += len(bucket)
	}
	return store.Counts{
		Conversations: len(s.conversations),
		Messages:      len(s.messages),
		Facts:         factCount,
	}, nil
}

func (s *Store) Close() error { return nil }

var _ store.Store = (*Store)(nil)
