//go:build unix && !linux

package runner

import "os/exec"

// waitExit reaps the child as it exits. The group kill that follows can
// then race with reuse of its PID; the window is accepted here.
func waitExit(cmd *exec.Cmd) error {
	return cmd.Wait()
}

func reap(cmd *exec.Cmd, exitErr error) error {
	return exitErr
}
