//go:build windows

package osutil

import (
	"os"
	"os/exec"
	"syscall"
)

func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}

// Windows has no process groups to signal; only the direct child is killed.
func killProcessGroup(cmd *exec.Cmd) error {
	return cmd.Process.Signal(os.Kill)
}
