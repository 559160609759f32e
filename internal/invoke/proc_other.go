//go:build !unix

package invoke

import "os/exec"

func configureProcess(*exec.Cmd) {}

func interruptProcess(cmd *exec.Cmd) error {
	return killProcess(cmd)
}

func killProcess(cmd *exec.Cmd) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}
