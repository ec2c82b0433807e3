//go:build linux

package runner

import (
	"errors"
	"os/exec"

	"golang.org/x/sys/unix"
)

// waitExit blocks until the child exits but leaves it unreaped. Until reap
// runs, its PID, and with it the process group ID, cannot be reused, so
// killGroup can only reach the child's own group.
func waitExit(cmd *exec.Cmd) error {
	var info unix.Siginfo
	for {
		err := unix.Waitid(unix.P_PID, cmd.Process.Pid, &info, unix.WEXITED|unix.WNOWAIT, nil)
		if !errors.Is(err, unix.EINTR) {
			return err
		}
	}
}

// reap collects the exited child and the stdin copy. If waitid failed,
// Wait still reaps the child, only later.
func reap(cmd *exec.Cmd, _ error) error {
	return cmd.Wait()
}
