// Package mcp provides the parity MCP server, registering the suite,
// compare and inspect tools and publishing model instructions.
package mcp

import (
	"context"
	_ "embed"
	"net/url"
	"sync"
	"time"

	"github.com/deixis/parity"
	"github.com/deixis/parity/internal/config"
	"github.com/deixis/parity/internal/report"
	"github.com/deixis/parity/internal/runner"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

//go:embed instructions.md
var Instructions string

// handler holds shared dependencies for all tool handlers.
type handler struct {
	mu     sync.RWMutex
	loaded *config.LoadResult
	store  report.Store
}

// NewServer creates an MCP server with all parity tools registered.
func NewServer(loaded *config.LoadResult, store report.Store) *mcp.Server {
	h := &handler{loaded: loaded, store: store}

	opts := &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
		InitializedHandler: func(ctx context.Context, req *mcp.InitializedRequest) {
			h.updateWorkspaceFromRoots(ctx, req.Session)
		},
	}
	s := mcp.NewServer(&mcp.Implementation{Name: "parity", Version: parity.Version}, opts)

	mcp.AddTool(s, &mcp.Tool{
		Name: "parity_suite",
		Description: `Run the scenario table against the reference and candidate interpreters.

Every scenario runs both interpreters on the same script and compares exit status, stdout and
(unless the scenario excludes it) stderr. Failing scenarios do not stop the suite.
Results are stored for drill-down via parity_inspect.`,
	}, h.suiteHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "parity_compare",
		Description: `Run two commands once each with identical stdin and timeout and compare them.

Both commands run in the configured fixture directory (the workspace root when no fixtures
directory is set), so relative script paths resolve there, as with "parity compare".

Reports every differing field among those requested (status, stdout, stderr; default all).
A timeout or a command that cannot be started is reported as such, never as a mismatch.`,
	}, h.compareHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "parity_inspect",
		Description: `Show the details of a parity_suite or parity_compare run.

Use the run_id from the tool output. With a scenario name, shows that scenario;
without one, shows every scenario that did not pass. Mismatches include both observed
values and a line diff.`,
	}, h.inspectHandler)

	return s
}

// current returns the current configuration.
func (h *handler) current() *config.LoadResult {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.loaded
}

// newRunner builds a runner for the configured fixture directory.
func (h *handler) newRunner() *runner.Runner {
	loaded := h.current()
	return &runner.Runner{
		Dir:     loaded.FixturesDir(),
		Timeout: loaded.Config.Timeout(),
	}
}

// updateWorkspaceFromRoots queries the client for MCP roots and reloads
// the configuration from the first file root, if any.
// This is called during session initialization, before any tool calls.
func (h *handler) updateWorkspaceFromRoots(ctx context.Context, session *mcp.ServerSession) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	roots, err := session.ListRoots(ctx, &mcp.ListRootsParams{})
	if err != nil {
		return
	}
	if len(roots.Roots) == 0 {
		return
	}

	u, err := url.Parse(roots.Roots[0].URI)
	if err != nil || u.Scheme != "file" {
		return
	}

	loaded, err := config.Load(u.Path)
	if err != nil {
		return
	}

	h.mu.Lock()
	h.loaded = loaded
	h.mu.Unlock()
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult is a helper to build an error tool result.
func errorResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}
