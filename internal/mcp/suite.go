package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/deixis/parity/internal/compare"
	"github.com/deixis/parity/internal/report"
	"github.com/deixis/parity/internal/scenario"
	"github.com/deixis/parity/internal/suite"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type suiteParams struct {
	Run       string `json:"run,omitempty" jsonschema:"regular expression selecting scenarios by name. Defaults to all scenarios."`
	Reference string `json:"reference,omitempty" jsonschema:"reference interpreter path. Defaults to the configured one, or bash."`
	Candidate string `json:"candidate,omitempty" jsonschema:"candidate interpreter path. Defaults to the configured one."`
	Timeout   string `json:"timeout,omitempty" jsonschema:"per-run timeout as a Go duration (e.g. 10s). Defaults to the configured one."`
	Parallel  int    `json:"parallel,omitempty" jsonschema:"number of scenarios to run at once. Default: 1."`
}

func (h *handler) suiteHandler(ctx context.Context, req *mcp.CallToolRequest, params suiteParams) (*mcp.CallToolResult, any, error) {
	loaded := h.current()
	cfg := loaded.Config

	d := &suite.Driver{
		Reference: cfg.ReferencePath(),
		Candidate: cfg.Candidate,
		Dir:       loaded.FixturesDir(),
		Timeout:   cfg.Timeout(),
		Parallel:  cfg.Parallel(),
	}
	if params.Reference != "" {
		d.Reference = params.Reference
	}
	if params.Candidate != "" {
		d.Candidate = params.Candidate
	}
	if d.Candidate == "" {
		return errorResult("No candidate interpreter configured. Set candidate in .parity or pass candidate.")
	}
	if params.Timeout != "" {
		t, err := time.ParseDuration(params.Timeout)
		if err != nil || t <= 0 {
			return errorResult(fmt.Sprintf("invalid timeout %q", params.Timeout))
		}
		d.Timeout = t
	}
	if params.Parallel > 0 {
		d.Parallel = params.Parallel
	}
	d.Comparator = &compare.Comparator{Runner: h.newRunner()}

	table, err := cfg.ScenarioTable()
	if err != nil {
		return errorResult(fmt.Sprintf("invalid scenario table: %v", err))
	}
	table, err = scenario.Filter(table, params.Run)
	if err != nil {
		return errorResult(err.Error())
	}
	if len(table) == 0 {
		return errorResult(fmt.Sprintf("no scenarios match %q", params.Run))
	}

	res, err := d.Run(ctx, table)
	if err != nil {
		return errorResult(fmt.Sprintf("suite failed: %v", err))
	}

	rr := res.Report()
	// Save results for parity_inspect.
	_ = h.store.Save(rr)

	return textResult(formatRun(rr))
}

func formatRun(rr *report.RunResult) string {
	var b strings.Builder

	if rr.Passed() {
		fmt.Fprintln(&b, "Status: PASS")
	} else {
		fmt.Fprintln(&b, "Status: FAIL")
	}
	fmt.Fprintf(&b, "Run: %s\n", rr.ID)
	fmt.Fprintf(&b, "Reference: %s\n", rr.Reference)
	fmt.Fprintf(&b, "Candidate: %s\n", rr.Candidate)
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "Scenarios:")
	for _, s := range rr.Scenarios {
		fmt.Fprintf(&b, "  %s: %s\n", s.Name, statusDetail(s))
	}
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, rr.Summary())

	if !rr.Passed() {
		fmt.Fprintln(&b)
		fmt.Fprintf(&b, "Inspect with parity_inspect(run_id=%q, scenario=\"<name>\").\n", rr.ID)
	}
	return b.String()
}

// statusDetail renders "mismatch (status, stdout)" or "timeout (candidate)".
func statusDetail(s report.ScenarioReport) string {
	switch s.Status {
	case report.StatusMismatch:
		fields := make([]string, len(s.Mismatches))
		for i, m := range s.Mismatches {
			fields[i] = m.Field
		}
		return fmt.Sprintf("%s (%s)", s.Status, strings.Join(fields, ", "))
	case report.StatusTimeout, report.StatusSpawnFailed:
		return fmt.Sprintf("%s (%s)", s.Status, s.Side)
	case report.StatusError:
		return fmt.Sprintf("%s (%s)", s.Status, s.Error)
	}
	return string(s.Status)
}
