//go:build !unix

package runner

import (
	"os"
	"os/exec"
)

func configure(cmd *exec.Cmd) {}

// killGroup only reaches the direct child; there are no process groups.
func killGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}

func waitExit(cmd *exec.Cmd) error {
	return cmd.Wait()
}

func reap(cmd *exec.Cmd, exitErr error) error {
	return exitErr
}

func exitStatus(ps *os.ProcessState) int {
	return ps.ExitCode()
}
