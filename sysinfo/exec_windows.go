//go:build windows

package sysinfo

import (
	"os/exec"
	"syscall"
)

// hideWindow keeps console tools from flashing a window when zfetch runs
// from a GUI shell.
func hideWindow(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{HideWindow: true}
}
