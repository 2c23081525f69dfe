package sysinfo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// formatBattery renders the battery row, e.g. "87% [AC Connected]".
func formatBattery(percent int, plugged bool) string {
	state := "[Discharging]"
	if plugged {
		state = "[AC Connected]"
	}
	return fmt.Sprintf("%d%% %s", percent, state)
}

// battery reports the first battery's charge and power source. Hosts
// without a battery return errNoResult.
func (m *machine) battery(ctx context.Context) (string, error) {
	switch m.goos {
	case "linux":
		return m.sysfsBattery()
	case "darwin":
		out, err := m.run(ctx, "pmset", "-g", "batt")
		if err != nil {
			return "", err
		}
		return parsePMSet(out)
	case "windows":
		return windowsBattery(ctx)
	default:
		return "", errUnsupported
	}
}

// sysfsBattery reads /sys/class/power_supply/BAT*.
func (m *machine) sysfsBattery() (string, error) {
	matches, err := filepath.Glob(m.path("sys", "class", "power_supply", "BAT*"))
	if err != nil {
		return "", err
	}
	sort.Strings(matches)
	for _, dir := range matches {
		capacity, err := readTrimmed(filepath.Join(dir, "capacity"))
		if err != nil {
			continue
		}
		percent, err := strconv.Atoi(capacity)
		if err != nil {
			continue
		}
		status, _ := readTrimmed(filepath.Join(dir, "status"))
		plugged := status == "Charging" || status == "Full"
		return formatBattery(clampBattery(percent), plugged), nil
	}
	return "", errNoResult
}

// parsePMSet reads the first battery line of `pmset -g batt`, e.g.
//
//	-InternalBattery-0 (id=1234)	87%; charging; 1:02 remaining present: true
func parsePMSet(out []byte) (string, error) {
	for _, line := range lines(out) {
		if !strings.Contains(line, "InternalBattery") {
			continue
		}
		fields := strings.Fields(line)
		for i, field := range fields {
			pct, ok := strings.CutSuffix(strings.TrimSuffix(field, ";"), "%")
			if !ok {
				continue
			}
			percent, err := strconv.Atoi(pct)
			if err != nil {
				continue
			}
			state := ""
			if i+1 < len(fields) {
				state = strings.TrimSuffix(fields[i+1], ";")
			}
			plugged := state == "charging" || state == "charged" || state == "finishing" || state == "AC"
			return formatBattery(clampBattery(percent), plugged), nil
		}
	}
	return "", errNoResult
}

func clampBattery(percent int) int {
	return int(clampPercent(float64(percent)))
}

func readTrimmed(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
