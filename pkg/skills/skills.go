// Package skills loads the on-disk capability catalog: one
// `{data_dir}/skills/{name}/SKILL.md` per skill, with TOML-or-YAML
// frontmatter declaring trigger keywords, required CLI tools, and MCP
// servers. Skills are loaded once at process start and never mutated
// except for additive lessons appended via SKILL_IMPROVE.
package skills

import (
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/omega-agent/omega/pkg/provider"
)

// Skill is one loaded capability bundle.
type Skill struct {
	Name        string
	Description string
	Requires    []string
	Homepage    string
	Trigger     string // pipe-separated keywords, "" if none
	MCPServers  []provider.MCPServer
	Available   bool   // all Requires tools found on PATH
	Path        string // absolute path to the SKILL.md file
}

// Catalog is the full set of skills loaded at startup.
type Catalog struct {
	Skills []Skill
}

// Load scans dir (the {data_dir}/skills directory) for
// `{name}/SKILL.md` files and parses each one. Directories without a
// parsable SKILL.md are skipped with a warning; a missing skills
// directory yields an empty catalog, not an error.
func Load(dir string, log zerolog.Logger) *Catalog {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("dir", dir).Msg("skills: cannot read skills directory")
		}
		return &Catalog{}
	}

	var loaded []Skill
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name(), "SKILL.md")
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		fm, ok := parseFrontmatter(string(data))
		if !ok {
			log.Warn().Str("path", path).Msg("skills: no valid frontmatter")
			continue
		}
		loaded = append(loaded, Skill{
			Name:        fm.Name,
			Description: fm.Description,
			Requires:    fm.Requires,
			Homepage:    fm.Homepage,
			Trigger:     fm.Trigger,
			MCPServers:  fm.MCPServers,
			Available:   allOnPath(fm.Requires),
			Path:        path,
		})
	}
	sort.Slice(loaded, func(i, j int) bool { return loaded[i].Name < loaded[j].Name })
	log.Info().Int("count", len(loaded)).Msg("skills: catalog loaded")
	return &Catalog{Skills: loaded}
}

func allOnPath(tools []string) bool {
	for _, t := range tools {
		if _, err := exec.LookPath(t); err != nil {
			return false
		}
	}
	return true
}

// MatchTriggers returns the MCP servers of every available skill whose
// trigger keywords match message (case-insensitive substring),
// deduplicated by server name.
func (c *Catalog) MatchTriggers(message string) []provider.MCPServer {
	if c == nil {
		return nil
	}
	lower := strings.ToLower(message)
	seen := map[string]bool{}
	var servers []provider.MCPServer
	for _, s := range c.Skills {
		if !s.Available || len(s.MCPServers) == 0 || s.Trigger == "" {
			continue
		}
		matched := false
		for _, kw := range strings.Split(s.Trigger, "|") {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" && strings.Contains(lower, kw) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		for _, srv := range s.MCPServers {
			if !seen[srv.Name] {
				seen[srv.Name] = true
				servers = append(servers, srv)
			}
		}
	}
	return servers
}

// PromptBlock renders the skill list appended to action-task system
// prompts. Empty when no skills are loaded.
func (c *Catalog) PromptBlock() string {
	if c == nil || len(c.Skills) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\nYou have the following skills available. " +
		"Before using any skill, you MUST read its file for full instructions. " +
		"If a tool is not installed, the skill file contains installation " +
		"instructions — install it first, then use it.\n\nSkills:\n")
	for _, s := range c.Skills {
		status := "installed"
		if !s.Available {
			status = "not installed"
		}
		b.WriteString("- " + s.Name + " [" + status + "]: " + s.Description + " → Read " + s.Path + "\n")
	}
	return b.String()
}

// Find returns the skill named name, case-insensitively.
func (c *Catalog) Find(name string) (Skill, bool) {
	if c == nil {
		return Skill{}, false
	}
	for _, s := range c.Skills {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return Skill{}, false
}
