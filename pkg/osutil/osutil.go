// Package osutil holds small platform-specific helpers for child processes.
package osutil

import (
	"os/exec"
	"time"
)

// waitDelay bounds how long Wait blocks on output pipes still held by
// grandchildren after the child itself was killed.
const waitDelay = 2 * time.Second

// KillTreeOnCancel makes cancelling the command's context kill the whole
// process tree started by cmd, not only its direct child. Call it before
// cmd.Start.
func KillTreeOnCancel(cmd *exec.Cmd) {
	setProcessGroup(cmd)
	cmd.Cancel = func() error {
		return killProcessGroup(cmd)
	}
	cmd.WaitDelay = waitDelay
}
