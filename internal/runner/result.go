package runner

import "time"

// Result holds the capture of a command that exited within its timeout.
type Result struct {
	RunID    string        // unique identifier for this run
	ExitCode int           // process exit code; -N when killed by signal N
	Stdout   []byte        // everything written to stdout
	Stderr   []byte        // everything written to stderr
	Duration time.Duration // wall-clock time from spawn to exit
}

// Request describes a single execution.
type Request struct {
	// Argv is the program path followed by its arguments.
	Argv []string
	// Input is fed to the child's stdin, which is then closed.
	// A nil Input closes stdin without writing anything.
	Input []byte
	// Timeout overrides the runner's timeout when positive.
	Timeout time.Duration
}
