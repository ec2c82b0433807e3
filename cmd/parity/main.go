// Command parity compares a candidate interpreter against a reference one.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/deixis/parity"
	"github.com/deixis/parity/internal/compare"
	"github.com/deixis/parity/internal/config"
	paritymcp "github.com/deixis/parity/internal/mcp"
	"github.com/deixis/parity/internal/report"
	"github.com/deixis/parity/internal/runner"
	"github.com/deixis/parity/internal/scenario"
	"github.com/deixis/parity/internal/suite"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// usageError marks errors that exit with status 2.
type usageError struct{ error }

func usagef(format string, args ...any) error {
	return usageError{fmt.Errorf(format, args...)}
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("parity: ")

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "run":
		err = runMain(args)
	case "compare":
		err = compareMain(args)
	case "list":
		err = listMain(args)
	case "mcp":
		err = mcpMain(args)
	case "version":
		fmt.Println(parity.Version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "parity: unknown command %q\n", cmd)
		usage()
		os.Exit(2)
	}

	if err != nil {
		log.Print(err)
		var ue usageError
		if errors.As(err, &ue) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: parity <command> [flags]

Commands:
  run         Run the scenario table against both interpreters
  compare     Compare two commands in the fixture directory:
              parity compare [flags] -- REF... -- CAND...
  list        Print the scenario table
  mcp         Start the MCP server
  version     Print the version
  help        Show this help

Use "parity <command> -h" for command-specific flags.`)
}

// --- run ---

func runMain(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configFlag := fs.String("config", "", "config file (default: .parity found from the working directory up)")
	referenceFlag := fs.String("reference", "", "reference interpreter (overrides config)")
	candidateFlag := fs.String("candidate", "", "candidate interpreter (overrides config)")
	timeoutFlag := fs.Duration("timeout", 0, "override configured per-run timeout (e.g. 5s)")
	parallelFlag := fs.Int("parallel", 0, "override configured number of scenarios run at once")
	runFlag := fs.String("run", "", "run only scenarios whose name matches this regular expression")
	jsonFlag := fs.Bool("json", false, "output results as JSON")
	verboseFlag := fs.Bool("v", false, "verbose output")
	_ = fs.Parse(args)

	if fs.NArg() > 0 {
		return usagef("run: unexpected arguments %q", fs.Args())
	}

	loaded, err := loadConfig(*configFlag)
	if err != nil {
		return err
	}
	cfg := loaded.Config

	table, err := cfg.ScenarioTable()
	if err != nil {
		return usagef("%s: %v", configName(loaded), err)
	}
	table, err = scenario.Filter(table, *runFlag)
	if err != nil {
		return usageError{err}
	}
	if len(table) == 0 {
		return usagef("no scenarios match %q", *runFlag)
	}

	d := &suite.Driver{
		Reference: cfg.ReferencePath(),
		Candidate: cfg.Candidate,
		Dir:       loaded.FixturesDir(),
		Timeout:   cfg.Timeout(),
		Parallel:  cfg.Parallel(),
	}
	if *referenceFlag != "" {
		d.Reference = *referenceFlag
	}
	if *candidateFlag != "" {
		d.Candidate = *candidateFlag
	}
	if d.Candidate == "" {
		return usagef("no candidate interpreter: set candidate in %s or pass -candidate", config.FileName)
	}
	if *timeoutFlag > 0 {
		d.Timeout = *timeoutFlag
	}
	if *parallelFlag > 0 {
		d.Parallel = *parallelFlag
	}
	d.Comparator = &compare.Comparator{Runner: &runner.Runner{Dir: d.Dir, Timeout: d.Timeout}}
	if *verboseFlag && !*jsonFlag {
		d.Progress = func(sr suite.ScenarioResult) {
			log.Printf("%s: %s (%s)", sr.Scenario.Name, sr.Status(), sr.Duration.Round(time.Millisecond))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, runErr := d.Run(ctx, table)
	if res == nil {
		return fmt.Errorf("run: %w", runErr)
	}
	rr := res.Report()

	if dir := loaded.ResultsDir(); dir != "" {
		if err := report.NewDiskStore(dir).Save(rr); err != nil {
			log.Printf("saving results: %v", err)
		}
	}

	if *jsonFlag {
		if err := writeJSON(os.Stdout, rr); err != nil {
			return err
		}
	} else {
		fmt.Print(formatRunCLI(rr, *verboseFlag))
	}

	if runErr != nil {
		return runErr
	}
	if !rr.Passed() {
		os.Exit(1)
	}
	return nil
}

// formatRunCLI renders one line per scenario followed by ok/FAIL and the
// summary. With verbose set, mismatches carry their diffs.
func formatRunCLI(rr *report.RunResult, verbose bool) string {
	var b []byte
	w := func(format string, args ...any) {
		b = fmt.Appendf(b, format, args...)
	}

	width := 0
	for _, s := range rr.Scenarios {
		width = max(width, len(s.Name))
	}

	for _, s := range rr.Scenarios {
		if !s.Failed() {
			w("ok    %-*s  %s\n", width, s.Name, formatMs(s.DurationMs))
			continue
		}
		w("FAIL  %-*s  %s\n", width, s.Name, failureDetail(s))
		if verbose {
			b = append(b, formatMismatches(s, "      ")...)
		}
	}
	w("\n")

	if rr.Passed() {
		w("ok\n")
	} else {
		w("FAIL\n")
	}
	w("%s\n", rr.Summary())
	return string(b)
}

func failureDetail(s report.ScenarioReport) string {
	switch s.Status {
	case report.StatusMismatch:
		fields := make([]string, len(s.Mismatches))
		for i, m := range s.Mismatches {
			fields[i] = m.Field
		}
		return fmt.Sprintf("mismatch (%s)", strings.Join(fields, ", "))
	}
	return fmt.Sprintf("%s: %s", s.Status, s.Error)
}

func formatMismatches(s report.ScenarioReport, indent string) string {
	var b strings.Builder
	for _, m := range s.Mismatches {
		if m.Diff == "" {
			fmt.Fprintf(&b, "%s%s: reference %s, candidate %s\n", indent, m.Field, m.Reference, m.Candidate)
			continue
		}
		fmt.Fprintf(&b, "%s%s (-reference +candidate):\n", indent, m.Field)
		for _, line := range strings.Split(strings.TrimRight(m.Diff, "\n"), "\n") {
			fmt.Fprintf(&b, "%s  %s\n", indent, line)
		}
	}
	return b.String()
}

func formatMs(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).String()
}

// --- compare ---

func compareMain(args []string) error {
	fs := flag.NewFlagSet("compare", flag.ExitOnError)
	configFlag := fs.String("config", "", "config file whose fixture directory the commands run in (default: .parity found from the working directory up)")
	stdinFlag := fs.String("stdin", "", "text fed to both commands on stdin")
	timeoutFlag := fs.Duration("timeout", 0, "override configured per-run timeout (e.g. 5s)")
	fields := compare.AllFields
	fs.TextVar(&fields, "fields", compare.AllFields, "comma-separated fields to compare: status, stdout, stderr")
	jsonFlag := fs.Bool("json", false, "output results as JSON")
	verboseFlag := fs.Bool("v", false, "verbose output")
	_ = fs.Parse(args)

	refArgv, candArgv, err := splitCommands(fs.Args())
	if err != nil {
		return usageError{err}
	}

	opts := compare.Options{Timeout: *timeoutFlag}
	stdinSet := false
	fs.Visit(func(f *flag.Flag) {
		stdinSet = stdinSet || f.Name == "stdin"
	})
	if stdinSet {
		opts.Input = []byte(*stdinFlag)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	loaded, err := loadConfig(*configFlag)
	if err != nil {
		return err
	}
	c := &compare.Comparator{Runner: compareRunner(loaded, *timeoutFlag)}

	_, rr, err := suite.CompareCommands(ctx, c, refArgv, candArgv, fields, opts)
	if err != nil {
		return usageError{err}
	}

	if *jsonFlag {
		if err := writeJSON(os.Stdout, rr); err != nil {
			return err
		}
	} else {
		fmt.Print(formatCompareCLI(rr, *verboseFlag))
	}

	if !rr.Passed() {
		os.Exit(1)
	}
	return nil
}

// compareRunner runs both commands in the fixture directory, as parity_compare
// does. Without a .parity file that is the working directory.
func compareRunner(loaded *config.LoadResult, timeout time.Duration) *runner.Runner {
	if timeout <= 0 {
		timeout = loaded.Config.Timeout()
	}
	return &runner.Runner{Dir: loaded.FixturesDir(), Timeout: timeout}
}

// splitCommands splits "REF... -- CAND..." (with an optional leading "--")
// into the two command lines.
func splitCommands(args []string) (ref, cand []string, err error) {
	if len(args) > 0 && args[0] == "--" {
		args = args[1:]
	}
	i := -1
	for j, a := range args {
		if a == "--" {
			i = j
			break
		}
	}
	if i < 0 {
		return nil, nil, errors.New("compare: expected REF... -- CAND...")
	}
	ref, cand = args[:i], args[i+1:]
	if len(ref) == 0 || len(cand) == 0 {
		return nil, nil, errors.New("compare: both commands need at least a program name")
	}
	return ref, cand, nil
}

func formatCompareCLI(rr *report.RunResult, verbose bool) string {
	var b []byte
	w := func(format string, args ...any) {
		b = fmt.Appendf(b, format, args...)
	}

	s := rr.Scenarios[0]
	if !s.Failed() {
		w("ok\n")
		return string(b)
	}

	w("FAIL: %s\n", failureDetail(s))
	if s.Status == report.StatusMismatch {
		// Diffs are always shown; -v adds the run IDs.
		b = append(b, formatMismatches(s, "  ")...)
	}
	if verbose {
		w("\nreference %s: %s\n", s.ReferenceRunID, rr.Reference)
		w("candidate %s: %s\n", s.CandidateRunID, rr.Candidate)
	}
	return string(b)
}

// --- list ---

func listMain(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	configFlag := fs.String("config", "", "config file (default: .parity found from the working directory up)")
	_ = fs.Parse(args)

	loaded, err := loadConfig(*configFlag)
	if err != nil {
		return err
	}
	table, err := loaded.Config.ScenarioTable()
	if err != nil {
		return usagef("%s: %v", configName(loaded), err)
	}
	return writeTable(os.Stdout, table)
}

func writeTable(out io.Writer, table []scenario.Scenario) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tFIELDS\tSCRIPT")
	for _, s := range table {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Name, s.Kind, s.Fields, s.Script)
	}
	return tw.Flush()
}

// --- mcp ---

func mcpMain(args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	configFlag := fs.String("config", "", "config file (default: .parity found from the working directory up)")
	instructions := fs.Bool("instructions", false, "print model instructions and exit")
	httpAddr := fs.String("http", "", "start HTTP server on address (e.g. :9090)")
	_ = fs.Parse(args)

	if *instructions {
		fmt.Print(paritymcp.Instructions)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	loaded, err := loadConfig(*configFlag)
	if err != nil {
		return err
	}

	disk := report.NewDiskStore(loaded.ResultsDir())
	store := report.NewLRUStore(5, disk)

	server := paritymcp.NewServer(loaded, store)

	if *httpAddr != "" {
		return serveHTTP(ctx, server, *httpAddr)
	}
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}

func serveHTTP(ctx context.Context, server *mcpsdk.Server, addr string) error {
	handler := mcpsdk.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcpsdk.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	log.Printf("listening on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// --- shared ---

func loadConfig(path string) (*config.LoadResult, error) {
	if path != "" {
		loaded, err := config.LoadFile(path)
		if err != nil {
			return nil, usageError{fmt.Errorf("loading config: %w", err)}
		}
		return loaded, nil
	}

	workspace, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("determining workspace: %w", err)
	}
	loaded, err := config.Load(workspace)
	if err != nil {
		return nil, usageError{fmt.Errorf("loading config: %w", err)}
	}
	return loaded, nil
}

func configName(loaded *config.LoadResult) string {
	if loaded.Path != "" {
		return loaded.Path
	}
	return "built-in scenarios"
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
