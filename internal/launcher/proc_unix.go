//go:build !windows

package launcher

import (
	"os/exec"
	"syscall"
)

// setSysProcAttr places the child in its own process group so batch-style
// launchers that spawn a real engine process can be torn down as a tree.
func setSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// terminateTree sends SIGTERM to the process group, falling back to the
// direct pid when the group signal fails.
func terminateTree(pid int) error {
	if err := syscall.Kill(-pid, syscall.SIGTERM); err != nil {
		return syscall.Kill(pid, syscall.SIGTERM)
	}
	return nil
}

// killTree sends SIGKILL to the process group, falling back to the direct pid.
func killTree(pid int) error {
	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil {
		return syscall.Kill(pid, syscall.SIGKILL)
	}
	return nil
}
