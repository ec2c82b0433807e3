package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/deixis/parity/internal/compare"
	"github.com/deixis/parity/internal/suite"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type compareParams struct {
	Reference []string `json:"reference" jsonschema:"reference command: program path followed by its arguments"`
	Candidate []string `json:"candidate" jsonschema:"candidate command: program path followed by its arguments"`
	Fields    []string `json:"fields,omitempty" jsonschema:"fields to compare: any of status, stdout, stderr. Default: all three."`
	Input     *string  `json:"input,omitempty" jsonschema:"text fed to both commands on stdin. Default: none."`
	Timeout   string   `json:"timeout,omitempty" jsonschema:"per-run timeout as a Go duration (e.g. 10s). Defaults to the configured one."`
}

func (h *handler) compareHandler(ctx context.Context, req *mcp.CallToolRequest, params compareParams) (*mcp.CallToolResult, any, error) {
	if len(params.Reference) == 0 || len(params.Candidate) == 0 {
		return errorResult("reference and candidate commands are required")
	}

	fields := compare.AllFields
	if len(params.Fields) > 0 {
		var err error
		if fields, err = compare.ParseFieldSet(params.Fields); err != nil {
			return errorResult(err.Error())
		}
	}

	var opts compare.Options
	if params.Input != nil {
		opts.Input = []byte(*params.Input)
	}
	if params.Timeout != "" {
		t, err := time.ParseDuration(params.Timeout)
		if err != nil || t <= 0 {
			return errorResult(fmt.Sprintf("invalid timeout %q", params.Timeout))
		}
		opts.Timeout = t
	}

	c := &compare.Comparator{Runner: h.newRunner()}
	_, rr, err := suite.CompareCommands(ctx, c, params.Reference, params.Candidate, fields, opts)
	if err != nil {
		return errorResult(fmt.Sprintf("compare failed: %v", err))
	}

	// Save results for parity_inspect.
	_ = h.store.Save(rr)

	return textResult(formatRun(rr))
}
