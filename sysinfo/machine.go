package sysinfo

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

var (
	// errNoResult means a probe or GPU tier ran but found nothing to report.
	errNoResult = errors.New("no result")

	// errUnsupported means the probe has no implementation for this platform.
	errUnsupported = errors.New("not supported on " + runtime.GOOS)
)

// machine bundles what the probes need from the host: the target OS, a
// filesystem root for /proc, /sys and /etc, and a way to run tools. Tests
// point it at fixture trees and canned command output.
type machine struct {
	goos string
	root string
	run  commandRunner
}

func newMachine() *machine {
	return &machine{goos: runtime.GOOS, root: "/", run: runCommand}
}

// path joins elem under the machine root.
func (m *machine) path(elem ...string) string {
	return filepath.Join(append([]string{m.root}, elem...)...)
}

// readString reads a small text file under the machine root and trims it.
func (m *machine) readString(elem ...string) (string, error) {
	data, err := os.ReadFile(m.path(elem...))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
