//go:build windows

package launcher

import (
	"os/exec"
	"strconv"
)

func setSysProcAttr(cmd *exec.Cmd) {}

// terminateTree asks taskkill to end the process tree without force.
func terminateTree(pid int) error {
	return exec.Command("taskkill", "/PID", strconv.Itoa(pid), "/T").Run()
}

// killTree force-kills the process tree.
func killTree(pid int) error {
	return exec.Command("taskkill", "/PID", strconv.Itoa(pid), "/T", "/F").Run()
}
