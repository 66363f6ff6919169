package skills

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/omega-agent/omega/pkg/provider"
)

// frontmatter is the parsed header of a SKILL.md file.
type frontmatter struct {
	Name        string
	Description string
	Requires    []string
	Homepage    string
	Trigger     string
	MCPServers  []provider.MCPServer
}

type tomlMCP struct {
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
}

type tomlFrontmatter struct {
	Name        string             `toml:"name"`
	Description string             `toml:"description"`
	Requires    []string           `toml:"requires"`
	Homepage    string             `toml:"homepage"`
	Trigger     string             `toml:"trigger"`
	MCP         map[string]tomlMCP `toml:"mcp"`
}

// parseFrontmatter extracts the `---`-delimited header from a SKILL.md
// file, trying TOML first (`key = "value"`, `[mcp.name]` tables) and
// falling back to YAML (`key: value`, `mcp-name: command args`) so
// skill files from any source just work. A file without both a name
// and a description is rejected.
func parseFrontmatter(content string) (frontmatter, bool) {
	block, ok := frontmatterBlock(content)
	if !ok {
		return frontmatter{}, false
	}
	if fm, ok := parseTOML(block); ok {
		return fm, true
	}
	return parseYAML(block)
}

func frontmatterBlock(content string) (string, bool) {
	trimmed := strings.TrimLeft(content, " \t\r\n")
	if !strings.HasPrefix(trimmed, "---") {
		return "", false
	}
	rest := trimmed[3:]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return "", false
	}
	return rest[:end], true
}

func parseTOML(block string) (frontmatter, bool) {
	var t tomlFrontmatter
	if err := toml.Unmarshal([]byte(block), &t); err != nil {
		return frontmatter{}, false
	}
	if t.Name == "" || t.Description == "" {
		return frontmatter{}, false
	}
	return frontmatter{
		Name:        t.Name,
		Description: t.Description,
		Requires:    t.Requires,
		Homepage:    t.Homepage,
		Trigger:     t.Trigger,
		MCPServers:  sortedServers(mcpFromTOML(t.MCP)),
	}, true
}

func mcpFromTOML(m map[string]tomlMCP) []provider.MCPServer {
	out := make([]provider.MCPServer, 0, len(m))
	for name, srv := range m {
		if srv.Command == "" {
			continue
		}
		out = append(out, provider.MCPServer{Name: name, Command: srv.Command, Args: srv.Args})
	}
	return out
}

// yamlMeta is the optional `metadata` field: a JSON blob whose
// openclaw.requires.bins array contributes to Requires when the
// explicit `requires` key is absent.
type yamlMeta struct {
	OpenClaw struct {
		Requires struct {
			Bins []string `json:"bins"`
		} `json:"requires"`
	} `json:"openclaw"`
}

func parseYAML(block string) (frontmatter, bool) {
	var raw map[string]any
	if err := yaml.Unmarshal([]byte(block), &raw); err != nil {
		return frontmatter{}, false
	}
	fm := frontmatter{
		Name:        yamlString(raw["name"]),
		Description: yamlString(raw["description"]),
		Homepage:    yamlString(raw["homepage"]),
		Trigger:     yamlString(raw["trigger"]),
		Requires:    yamlStringList(raw["requires"]),
	}
	if fm.Name == "" || fm.Description == "" {
		return frontmatter{}, false
	}

	// `mcp-<name>: <command> <args...>` declarations.
	var servers []provider.MCPServer
	for key, val := range raw {
		name, ok := strings.CutPrefix(key, "mcp-")
		if !ok || name == "" {
			continue
		}
		fields := strings.Fields(yamlString(val))
		if len(fields) == 0 {
			continue
		}
		servers = append(servers, provider.MCPServer{Name: name, Command: fields[0], Args: fields[1:]})
	}
	fm.MCPServers = sortedServers(servers)

	if len(fm.Requires) == 0 {
		if meta, ok := raw["metadata"]; ok {
			fm.Requires = binsFromMetadata(yamlMetaString(meta))
		}
	}
	return fm, true
}

func binsFromMetadata(metaJSON string) []string {
	var m yamlMeta
	if err := json.Unmarshal([]byte(metaJSON), &m); err != nil {
		return nil
	}
	return m.OpenClaw.Requires.Bins
}

func yamlString(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// yamlMetaString accepts the metadata field either as a raw string or
// as a YAML-decoded map (yaml.v3 parses inline JSON as a map), and
// re-serializes the latter so one JSON path handles both.
func yamlMetaString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(yamlToJSONValue(v))
	if err != nil {
		return ""
	}
	return string(data)
}

// yamlToJSONValue converts yaml.v3's map[string]any/map[any]any trees
// into json.Marshal-able values.
func yamlToJSONValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = yamlToJSONValue(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if ks, ok := k.(string); ok {
				out[ks] = yamlToJSONValue(val)
			}
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = yamlToJSONValue(val)
		}
		return out
	default:
		return v
	}
}

func yamlStringList(v any) []string {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s := yamlString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		// Inline form: "requires: [a, b]" already parses as []any above;
		// this branch catches a bare comma-separated scalar.
		var out []string
		for _, part := range strings.Split(strings.Trim(t, "[]"), ",") {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// sortedServers orders MCP declarations by name so map iteration order
// never leaks into prompts or tests.
func sortedServers(servers []provider.MCPServer) []provider.MCPServer {
	sort.Slice(servers, func(i, j int) bool { return servers[i].Name < servers[j].Name })
	return servers
}
