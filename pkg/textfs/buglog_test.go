package textfs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestAppendBugReportGroupsByDay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "BUG.md")
	day1 := time.Date(2026, 2, 17, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 2, 18, 9, 0, 0, 0, time.UTC)

	if err := AppendBugReport(path, "scheduler fires twice", day1); err != nil {
		t.Fatal(err)
	}
	if err := AppendBugReport(path, "welcome message repeats", day1); err != nil {
		t.Fatal(err)
	}
	if err := AppendBugReport(path, "typo in help", day2); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)

	if !strings.HasPrefix(content, "# OMEGA Bug Reports") {
		t.Fatalf("header missing:\n%s", content)
	}
	if strings.Count(content, "## 2026-02-17") != 1 {
		t.Fatalf("day section must appear once:\n%s", content)
	}
	if !strings.Contains(content, "- **scheduler fires twice**") ||
		!strings.Contains(content, "- **welcome message repeats**") {
		t.Fatalf("day-1 entries missing:\n%s", content)
	}
	day17 := strings.Index(content, "## 2026-02-17")
	day18 := strings.Index(content, "## 2026-02-18")
	if day18 < day17 {
		t.Fatalf("day sections out of order:\n%s", content)
	}
	second := strings.Index(content, "welcome message repeats")
	if second > day18 {
		t.Fatalf("day-1 entry landed under day 2:\n%s", content)
	}
}
