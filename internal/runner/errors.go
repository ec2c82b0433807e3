package runner

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrSpawnFailed matches errors for programs that could not be started.
	ErrSpawnFailed = errors.New("spawn failed")
	// ErrTimedOut matches errors for programs killed at their deadline.
	ErrTimedOut = errors.New("timed out")
)

// SpawnError reports that the operating system could not start a program,
// for example because the executable is missing or not executable.
type SpawnError struct {
	Argv []string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("starting %s: %v", programName(e.Argv), e.Err)
}

func (e *SpawnError) Unwrap() []error {
	return []error{ErrSpawnFailed, e.Err}
}

// TimeoutError reports that a program was still running when its timeout
// elapsed. The program has been killed and reaped; its output is discarded.
type TimeoutError struct {
	Argv    []string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", programName(e.Argv), e.Timeout)
}

func (e *TimeoutError) Unwrap() error {
	return ErrTimedOut
}

func programName(argv []string) string {
	if len(argv) == 0 {
		return "<empty argv>"
	}
	return argv[0]
}
