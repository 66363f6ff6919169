package skills

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func writeSkill(t *testing.T, dir, name, content string) {
	t.Helper()
	skillDir := filepath.Join(dir, name)
	if err := os.MkdirAll(skillDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(skillDir, "SKILL.md"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestParseTOMLFrontmatter(t *testing.T) {
	content := `---
name = "gog"
description = "Google Workspace CLI."
requires = ["gog"]
homepage = "https://gogcli.sh"
trigger = "email|calendar"

[mcp.gog]
command = "gog"
args = ["mcp", "serve"]
---

Body text.
`
	fm, ok := parseFrontmatter(content)
	if !ok {
		t.Fatal("expected valid frontmatter")
	}
	if fm.Name != "gog" || fm.Description != "Google Workspace CLI." {
		t.Fatalf("unexpected fields: %+v", fm)
	}
	if len(fm.Requires) != 1 || fm.Requires[0] != "gog" {
		t.Fatalf("unexpected requires: %v", fm.Requires)
	}
	if len(fm.MCPServers) != 1 || fm.MCPServers[0].Command != "gog" || len(fm.MCPServers[0].Args) != 2 {
		t.Fatalf("unexpected mcp servers: %+v", fm.MCPServers)
	}
}

func TestParseYAMLFrontmatter(t *testing.T) {
	content := `---
name: playwright-mcp
description: Browser automation via Playwright MCP.
requires: [npx, playwright-mcp]
trigger: browse|website|click
mcp-playwright: npx playwright-mcp serve
---
`
	fm, ok := parseFrontmatter(content)
	if !ok {
		t.Fatal("expected valid frontmatter")
	}
	if fm.Name != "playwright-mcp" {
		t.Fatalf("unexpected name: %q", fm.Name)
	}
	if len(fm.Requires) != 2 {
		t.Fatalf("unexpected requires: %v", fm.Requires)
	}
	if len(fm.MCPServers) != 1 || fm.MCPServers[0].Name != "playwright" ||
		fm.MCPServers[0].Command != "npx" || len(fm.MCPServers[0].Args) != 2 {
		t.Fatalf("unexpected mcp servers: %+v", fm.MCPServers)
	}
}

func TestParseYAMLMetadataBinsFallback(t *testing.T) {
	content := `---
name: playwright-mcp
description: Browser automation.
metadata: {"openclaw":{"requires":{"bins":["playwright-mcp","npx"]}}}
---
`
	fm, ok := parseFrontmatter(content)
	if !ok {
		t.Fatal("expected valid frontmatter")
	}
	if len(fm.Requires) != 2 || fm.Requires[0] != "playwright-mcp" {
		t.Fatalf("metadata bins not extracted: %v", fm.Requires)
	}
}

func TestParseRejectsMissingNameOrDescription(t *testing.T) {
	if _, ok := parseFrontmatter("---\nname: only-name\n---\n"); ok {
		t.Fatal("frontmatter without description must be rejected")
	}
	if _, ok := parseFrontmatter("no frontmatter at all"); ok {
		t.Fatal("content without delimiters must be rejected")
	}
}

func TestLoadAndMatchTriggers(t *testing.T) {
	dir := t.TempDir()
	// `sh` is on PATH everywhere the tests run, so this skill loads as
	// available; the second requires a binary that cannot exist.
	writeSkill(t, dir, "shell-helper", `---
name: shell-helper
description: Runs shell helpers.
requires: [sh]
trigger: shell|script
mcp-shell: sh -c serve
---
`)
	writeSkill(t, dir, "ghost", `---
name: ghost
description: Never available.
requires: [definitely-not-a-real-binary-xyz]
trigger: ghost
mcp-ghost: ghost serve
---
`)

	catalog := Load(dir, zerolog.Nop())
	if len(catalog.Skills) != 2 {
		t.Fatalf("expected 2 skills, got %d", len(catalog.Skills))
	}

	if servers := catalog.MatchTriggers("run my shell script please"); len(servers) != 1 || servers[0].Name != "shell" {
		t.Fatalf("expected shell mcp server, got %+v", servers)
	}
	if servers := catalog.MatchTriggers("summon the ghost"); len(servers) != 0 {
		t.Fatalf("unavailable skill must not contribute servers, got %+v", servers)
	}
	if servers := catalog.MatchTriggers("nothing relevant"); len(servers) != 0 {
		t.Fatalf("no trigger match must yield no servers, got %+v", servers)
	}
}

func TestAppendLesson(t *testing.T) {
	dir := t.TempDir()
	writeSkill(t, dir, "shell-helper", `---
name: shell-helper
description: Runs shell helpers.
---
Body.
`)
	catalog := Load(dir, zerolog.Nop())
	now := time.Date(2026, 2, 17, 12, 0, 0, 0, time.UTC)
	if err := catalog.AppendLesson("shell-helper", "always quote variables", now); err != nil {
		t.Fatal(err)
	}
	if err := catalog.AppendLesson("shell-helper", "check exit codes", now); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "shell-helper", "SKILL.md"))
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if !strings.Contains(content, "always quote variables") || !strings.Contains(content, "check exit codes") {
		t.Fatalf("lessons missing:\n%s", content)
	}
	if strings.Count(content, "## Learned lessons") != 1 {
		t.Fatalf("lessons header must appear exactly once:\n%s", content)
	}

	if err := catalog.AppendLesson("nope", "x", now); err == nil {
		t.Fatal("unknown skill must error")
	}
}
