// Package heartbeat implements the periodic self-check loop (C7): a
// dynamic-interval tick that reads HEARTBEAT.md, drops suppressed
// sections, asks the provider to review what remains, and forwards
// anything that isn't a clean HEARTBEAT_OK to the configured channel.
package heartbeat

import (
	"os"
	"strings"
)

// Section is one `## NAME — description` block of HEARTBEAT.md. Key is
// the text before " — ", or the whole header when no em-dash is
// present.
type Section struct {
	Key         string
	Description string
	Lines       []string
}

// Checklist is the parsed form of HEARTBEAT.md: free preamble lines
// followed by sections.
type Checklist struct {
	Preamble []string
	Sections []Section
}

// ParseChecklist splits HEARTBEAT.md content into preamble and
// sections.
func ParseChecklist(content string) Checklist {
	var c Checklist
	var current *Section
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "## ") {
			header := strings.TrimSpace(trimmed[3:])
			key, desc := header, ""
			if k, d, ok := strings.Cut(header, " — "); ok {
				key, desc = strings.TrimSpace(k), strings.TrimSpace(d)
			}
			c.Sections = append(c.Sections, Section{Key: key, Description: desc})
			current = &c.Sections[len(c.Sections)-1]
			continue
		}
		if trimmed == "" {
			continue
		}
		if current == nil {
			c.Preamble = append(c.Preamble, trimmed)
		} else {
			current.Lines = append(current.Lines, trimmed)
		}
	}
	return c
}

// ParseSuppressions reads a HEARTBEAT.suppress body: one section name
// per line, case-insensitive, blanks ignored.
func ParseSuppressions(content string) []string {
	var out []string
	for _, line := range strings.Split(content, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// Filter returns the checklist with every section whose key matches a
// suppression (case-insensitive) removed. The preamble is never
// suppressed.
func (c Checklist) Filter(suppressed []string) Checklist {
	out := Checklist{Preamble: c.Preamble}
	for _, s := range c.Sections {
		if matchesAny(s.Key, suppressed) {
			continue
		}
		out.Sections = append(out.Sections, s)
	}
	return out
}

func matchesAny(key string, suppressed []string) bool {
	for _, s := range suppressed {
		if strings.EqualFold(strings.TrimSpace(s), key) {
			return true
		}
	}
	return false
}

// Empty reports whether nothing remains to check this tick: all
// sections suppressed and no preamble items.
func (c Checklist) Empty() bool {
	return len(c.Preamble) == 0 && len(c.Sections) == 0
}

// Render re-serializes the filtered checklist for prompt inclusion.
func (c Checklist) Render() string {
	var b strings.Builder
	for _, line := range c.Preamble {
		b.WriteString(line)
		b.WriteString("\n")
	}
	for _, s := range c.Sections {
		b.WriteString("\n## ")
		b.WriteString(s.Key)
		if s.Description != "" {
			b.WriteString(" — ")
			b.WriteString(s.Description)
		}
		b.WriteString("\n")
		for _, line := range s.Lines {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	return strings.TrimSpace(b.String())
}

// AddItem appends a checklist item line to the heartbeat file,
// creating the file on first use.
func AddItem(path, item string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString("- " + strings.TrimSpace(item) + "\n")
	return err
}

// RemoveMatching deletes every line of the heartbeat file containing
// substring, case-insensitively. A missing file is a no-op.
func RemoveMatching(path, substring string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	needle := strings.ToLower(substring)
	var kept []string
	for _, line := range strings.Split(string(data), "\n") {
		if strings.Contains(strings.ToLower(line), needle) {
			continue
		}
		kept = append(kept, line)
	}
	return os.WriteFile(path, []byte(strings.Join(kept, "\n")), 0o644)
}

// Suppress adds section to the suppress file if not already present.
func Suppress(path, section string) error {
	existing, _ := os.ReadFile(path)
	if matchesAny(section, ParseSuppressions(string(existing))) {
		return nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(strings.TrimSpace(section) + "\n")
	return err
}

// Unsuppress removes section from the suppress file.
func Unsuppress(path, section string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	var kept []string
	for _, line := range strings.Split(string(data), "\n") {
		if strings.EqualFold(strings.TrimSpace(line), strings.TrimSpace(section)) {
			continue
		}
		if strings.TrimSpace(line) != "" {
			kept = append(kept, line)
		}
	}
	out := strings.Join(kept, "\n")
	if out != "" {
		out += "\n"
	}
	return os.WriteFile(path, []byte(out), 0o644)
}
