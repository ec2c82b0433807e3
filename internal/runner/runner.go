// Package runner executes a single external program with piped standard
// streams and a wall-clock timeout.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// DefaultTimeout applies when neither the Runner nor the Request sets one.
const DefaultTimeout = 10 * time.Second

// pipeGrace bounds how long Run keeps reading stdout and stderr after the
// child's process group has been killed, in case something escaped the
// group and still holds the pipes.
const pipeGrace = time.Second

// Runner executes commands and captures their exit status and output.
type Runner struct {
	Dir     string        // working directory for children; empty inherits ours
	Timeout time.Duration // zero means DefaultTimeout
}

// Run executes req.Argv. The first element is the program (resolved via
// PATH when it has no separator) and the rest are its arguments.
//
// A program that starts and exits, with any status, yields a Result. Its
// process group is killed as soon as it exits, so background children do
// not outlive it or hold Run open. A program that cannot be started yields
// a *SpawnError. A program still running when the timeout elapses is killed
// and reaped, and Run returns a *TimeoutError with no Result. If ctx is
// cancelled first the child is killed the same way and the context error
// is returned.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	if len(req.Argv) == 0 {
		return nil, &SpawnError{Err: errors.New("empty argv")}
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("running %s: %w", req.Argv[0], err)
	}

	timeout := r.timeout(req.Timeout)
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.Command(req.Argv[0], req.Argv[1:]...)
	cmd.Dir = r.Dir
	// A non-*os.File reader makes exec create a pipe and close it once
	// the input has been copied, even when there is nothing to copy.
	cmd.Stdin = bytes.NewReader(req.Input)
	cmd.WaitDelay = pipeGrace
	configure(cmd)

	// The output pipes are ours rather than exec's, so that Wait returns
	// when the child exits instead of when every writer has gone.
	out, err := newCapture(cmd)
	if err != nil {
		return nil, &SpawnError{Argv: req.Argv, Err: err}
	}
	defer out.close()

	runID := uuid.New().String()
	start := time.Now()

	if err := cmd.Start(); err != nil {
		return nil, &SpawnError{Argv: req.Argv, Err: err}
	}
	out.start()

	exited := make(chan error, 1)
	go func() { exited <- waitExit(cmd) }()

	var exitErr error
	var interrupted error
	select {
	case exitErr = <-exited:
	case <-runCtx.Done():
		interrupted = runCtx.Err()
		_ = killGroup(cmd)
		exitErr = <-exited
	}
	elapsed := time.Since(start)

	// Whatever the child left behind in its process group goes with it.
	_ = killGroup(cmd)
	waitErr := reap(cmd, exitErr)
	out.drain(pipeGrace)

	if interrupted != nil {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("running %s: %w", req.Argv[0], err)
		}
		return nil, &TimeoutError{Argv: req.Argv, Timeout: timeout}
	}
	if waitErr != nil {
		var ee *exec.ExitError
		if !errors.As(waitErr, &ee) && !errors.Is(waitErr, exec.ErrWaitDelay) {
			return nil, fmt.Errorf("waiting for %s: %w", req.Argv[0], waitErr)
		}
	}

	return &Result{
		RunID:    runID,
		ExitCode: exitStatus(cmd.ProcessState),
		Stdout:   out.stdout.Bytes(),
		Stderr:   out.stderr.Bytes(),
		Duration: elapsed,
	}, nil
}

func (r *Runner) timeout(override time.Duration) time.Duration {
	if override > 0 {
		return override
	}
	if r.Timeout > 0 {
		return r.Timeout
	}
	return DefaultTimeout
}

// capture owns the stdout and stderr pipes of one child.
type capture struct {
	stdout, stderr bytes.Buffer

	outR, outW *os.File
	errR, errW *os.File
	done       chan struct{}
}

func newCapture(cmd *exec.Cmd) (*capture, error) {
	c := &capture{done: make(chan struct{})}
	var err error
	if c.outR, c.outW, err = os.Pipe(); err != nil {
		return nil, err
	}
	if c.errR, c.errW, err = os.Pipe(); err != nil {
		c.close()
		return nil, err
	}
	cmd.Stdout = c.outW
	cmd.Stderr = c.errW
	return c, nil
}

// start closes the parent's write ends, which the child now holds, and
// begins copying the read ends.
func (c *capture) start() {
	_ = c.outW.Close()
	_ = c.errW.Close()

	var g errgroup.Group
	g.Go(func() error {
		_, err := io.Copy(&c.stdout, c.outR)
		return err
	})
	g.Go(func() error {
		_, err := io.Copy(&c.stderr, c.errR)
		return err
	})
	go func() {
		_ = g.Wait()
		close(c.done)
	}()
}

// drain waits for both copies to reach EOF. After grace the read ends are
// closed and whatever was read so far is kept.
func (c *capture) drain(grace time.Duration) {
	t := time.NewTimer(grace)
	defer t.Stop()
	select {
	case <-c.done:
	case <-t.C:
		_ = c.outR.Close()
		_ = c.errR.Close()
		<-c.done
	}
}

func (c *capture) close() {
	for _, f := range []*os.File{c.outR, c.outW, c.errR, c.errW} {
		if f != nil {
			_ = f.Close()
		}
	}
}
