package skills

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/omega-agent/omega/pkg/provider"
)

// ProbeServer launches a skill-declared MCP server over stdio, performs
// the initialize handshake, and lists its tools. The action-task runner
// uses the returned tool names to build the provider's tool allowlist;
// a server that fails to initialize is dropped from the call rather
// than surfacing an error to the user.
func ProbeServer(ctx context.Context, decl provider.MCPServer) ([]string, error) {
	client := mcp.NewClient(&mcp.Implementation{Name: "omega-gateway", Version: "1.0.0"}, nil)
	cmd := exec.CommandContext(ctx, decl.Command, decl.Args...)
	session, err := client.Connect(ctx, &mcp.CommandTransport{Command: cmd}, nil)
	if err != nil {
		return nil, fmt.Errorf("skills: connect mcp server %s: %w", decl.Name, err)
	}
	defer session.Close()

	res, err := session.ListTools(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("skills: list tools for %s: %w", decl.Name, err)
	}
	names := make([]string, 0, len(res.Tools))
	for _, t := range res.Tools {
		names = append(names, t.Name)
	}
	return names, nil
}

// ProbeAll probes each declared server and returns the declarations
// that responded plus the union of their tool names. Failures are
// reported through the errs slice (one entry per failed server) so the
// caller can log them without aborting the action.
func ProbeAll(ctx context.Context, decls []provider.MCPServer) (alive []provider.MCPServer, tools []string, errs []error) {
	for _, d := range decls {
		names, err := ProbeServer(ctx, d)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		alive = append(alive, d)
		tools = append(tools, names...)
	}
	return alive, tools, errs
}
