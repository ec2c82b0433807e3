package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/deixis/parity/internal/report"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type inspectParams struct {
	RunID    string `json:"run_id" jsonschema:"the run ID from a parity_suite or parity_compare result"`
	Scenario string `json:"scenario,omitempty" jsonschema:"scenario name to show. Defaults to every scenario that did not pass."`
}

func (h *handler) inspectHandler(ctx context.Context, req *mcp.CallToolRequest, params inspectParams) (*mcp.CallToolResult, any, error) {
	if params.RunID == "" {
		return errorResult("run_id is required")
	}

	result, err := h.store.Load(params.RunID)
	if errors.Is(err, report.ErrNotFound) {
		return errorResult(fmt.Sprintf("Unknown run %s. Use the run_id printed by parity_suite or parity_compare.", params.RunID))
	}
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to load run %s: %v", params.RunID, err))
	}

	var scenarios []report.ScenarioReport
	if params.Scenario != "" {
		s, ok := report.ByName(result, params.Scenario)
		if !ok {
			return errorResult(fmt.Sprintf("No scenario %q in run %s (%s).", params.Scenario, params.RunID, result.Kind))
		}
		scenarios = []report.ScenarioReport{*s}
	} else {
		scenarios = report.Failures(result)
		if len(scenarios) == 0 {
			return textResult(fmt.Sprintf("All %d scenarios passed in run %s (%s).", len(result.Scenarios), params.RunID, result.Kind))
		}
	}

	return textResult(formatInspectOutput(result, scenarios))
}

func formatInspectOutput(result *report.RunResult, scenarios []report.ScenarioReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Run: %s (%s)\n", result.ID, result.Kind)
	fmt.Fprintf(&b, "Reference: %s\n", result.Reference)
	fmt.Fprintf(&b, "Candidate: %s\n", result.Candidate)

	for _, s := range scenarios {
		fmt.Fprintln(&b)
		fmt.Fprintf(&b, "%s: %s\n", s.Name, s.Status)
		if s.Script != "" {
			fmt.Fprintf(&b, "  script: %s (%s)\n", s.Script, s.Kind)
		}
		fmt.Fprintf(&b, "  fields: %s\n", strings.Join(s.Fields, ", "))
		if s.Error != "" {
			fmt.Fprintf(&b, "  error: %s\n", s.Error)
		}
		for _, m := range s.Mismatches {
			if m.Diff == "" {
				fmt.Fprintf(&b, "  %s: reference %s, candidate %s\n", m.Field, m.Reference, m.Candidate)
				continue
			}
			fmt.Fprintf(&b, "  %s (-reference +candidate):\n", m.Field)
			for _, line := range strings.Split(strings.TrimRight(m.Diff, "\n"), "\n") {
				fmt.Fprintf(&b, "    %s\n", line)
			}
		}
	}

	return b.String()
}
