package textfs

import "os"

// InboxGuard tracks the files staged for one incoming message's
// attachments and removes them on Close, guaranteeing cleanup
// regardless of how message processing exits (success, error, or a
// panic recovered further up the call stack).
type InboxGuard struct {
	paths []string
}

// NewInboxGuard starts tracking no files; call Track as each attachment
// is staged to disk.
func NewInboxGuard() *InboxGuard { return &InboxGuard{} }

// Track adds a staged file path to the guard's cleanup list.
func (g *InboxGuard) Track(path string) {
	g.paths = append(g.paths, path)
}

// Close removes every tracked file, best-effort (a missing file is not
// an error; it may have already been consumed/moved by the vision
// provider call).
func (g *InboxGuard) Close() error {
	var first error
	for _, p := range g.paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) && first == nil {
			first = err
		}
	}
	g.paths = nil
	return first
}
