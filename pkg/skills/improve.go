package skills

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// AppendLesson appends a model-emitted lesson (SKILL_IMPROVE) to the
// named skill's on-disk file under a "## Learned lessons" section,
// creating the section on first use. Skills themselves are never
// otherwise mutated at runtime.
func (c *Catalog) AppendLesson(skillName, lesson string, now time.Time) error {
	s, ok := c.Find(skillName)
	if !ok {
		return fmt.Errorf("skills: unknown skill %q", skillName)
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return fmt.Errorf("skills: read %s: %w", s.Path, err)
	}
	header := ""
	if !strings.Contains(string(data), "## Learned lessons") {
		header = "\n## Learned lessons\n"
	}

	f, err := os.OpenFile(s.Path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("skills: open %s: %w", s.Path, err)
	}
	defer f.Close()
	_, err = fmt.Fprintf(f, "%s\n- [%s] %s\n", header, now.UTC().Format("2006-01-02"), lesson)
	return err
}
