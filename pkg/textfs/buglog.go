package textfs

import (
	"os"
	"strings"
	"time"
)

const bugLogHeader = "# OMEGA Bug Reports"

// AppendBugReport records a model-emitted BUG_REPORT in the bug log,
// grouped under a `## YYYY-MM-DD` section per day. The file is created
// with its header on first use.
func AppendBugReport(path, description string, now time.Time) error {
	day := now.UTC().Format("2006-01-02")
	entry := "- **" + strings.TrimSpace(description) + "**\n"

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		content := bugLogHeader + "\n\n## " + day + "\n\n" + entry
		return os.WriteFile(path, []byte(content), 0o644)
	}
	if err != nil {
		return err
	}

	content := string(data)
	daySection := "## " + day
	if strings.Contains(content, daySection) {
		// Insert at the end of today's section: right before the next
		// "## " header, or at EOF.
		idx := strings.Index(content, daySection)
		rest := content[idx+len(daySection):]
		next := strings.Index(rest, "\n## ")
		if next < 0 {
			if !strings.HasSuffix(content, "\n") {
				content += "\n"
			}
			content += entry
		} else {
			insertAt := idx + len(daySection) + next + 1
			content = content[:insertAt] + entry + content[insertAt:]
		}
	} else {
		if !strings.HasSuffix(content, "\n") {
			content += "\n"
		}
		content += "\n" + daySection + "\n\n" + entry
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
