package textfs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Session is the parsed form of a discovery/setup session file
// (spec.md §6.4): a small keyed-line header followed by a free-form
// body accumulating each round's question/answer exchange.
type Session struct {
	Created         time.Time
	Round           int
	OriginalRequest string
	IdeaBrief       string
	Body            string
}

// ReadSession loads and parses a session file. A missing file is not an
// error; callers start a fresh session in that case.
func ReadSession(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return parseSession(string(data)), nil
}

func parseSession(content string) *Session {
	s := &Session{Round: 1}
	lines := strings.Split(content, "\n")
	bodyStart := 0
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "CREATED:"):
			if t, err := time.Parse(time.RFC3339, strings.TrimSpace(line[len("CREATED:"):])); err == nil {
				s.Created = t
			}
			bodyStart = i + 1
		case strings.HasPrefix(line, "ROUND:"):
			if n, err := strconv.Atoi(strings.TrimSpace(line[len("ROUND:"):])); err == nil {
				s.Round = n
			}
			bodyStart = i + 1
		case strings.HasPrefix(line, "ORIGINAL_REQUEST:"):
			s.OriginalRequest = strings.TrimSpace(line[len("ORIGINAL_REQUEST:"):])
			bodyStart = i + 1
		case strings.HasPrefix(line, "IDEA_BRIEF:"):
			s.IdeaBrief = strings.TrimSpace(line[len("IDEA_BRIEF:"):])
			bodyStart = i + 1
		default:
			goto done
		}
	}
done:
	if bodyStart < len(lines) {
		s.Body = strings.TrimLeft(strings.Join(lines[bodyStart:], "\n"), "\n")
	}
	return s
}

// NewSession starts a fresh round-1 session for an original request.
func NewSession(originalRequest string, now time.Time) *Session {
	return &Session{Created: now, Round: 1, OriginalRequest: originalRequest}
}

// AppendExchange records one more question/answer round in the body.
func (s *Session) AppendExchange(question, answer string) {
	var b strings.Builder
	if s.Body != "" {
		b.WriteString(s.Body)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Q: %s\nA: %s", question, answer)
	s.Body = b.String()
	s.Round++
}

// Write serializes the session to path, creating parent directories as
// needed.
func (s *Session) Write(path string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATED: %s\n", s.Created.Format(time.RFC3339))
	fmt.Fprintf(&b, "ROUND: %d\n", s.Round)
	fmt.Fprintf(&b, "ORIGINAL_REQUEST: %s\n", s.OriginalRequest)
	if s.IdeaBrief != "" {
		fmt.Fprintf(&b, "IDEA_BRIEF: %s\n", s.IdeaBrief)
	}
	if s.Body != "" {
		b.WriteString("\n")
		b.WriteString(s.Body)
		b.WriteString("\n")
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

// TruncateBriefPreview shortens a brief for confirmation messages,
// appending an ellipsis when it was cut.
func TruncateBriefPreview(brief string, maxChars int) string {
	runes := []rune(brief)
	if len(runes) <= maxChars {
		return brief
	}
	return string(runes[:maxChars]) + "..."
}
