// Package sysinfo - Formatting utilities
package sysinfo

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

// FormatKiB renders a size given in KiB as gigabytes with two decimals.
//
// Example: FormatKiB(16 * 1024 * 1024) returns "16.00 GB"
func FormatKiB(kib uint64) string {
	return fmt.Sprintf("%.2f GB", float64(kib)/1024/1024)
}

// FormatBytes renders a byte count the same way as FormatKiB.
func FormatBytes(bytes uint64) string {
	return FormatKiB(bytes / 1024)
}

// FormatUptime renders whole seconds as days, hours and minutes.
//
// Example: FormatUptime(93784) returns "1d 2h 3m"
func FormatUptime(seconds uint64) string {
	days := seconds / 86400
	hours := (seconds % 86400) / 3600
	minutes := (seconds % 3600) / 60
	return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
}

// FormatCPU renders the CPU row. logical is used when the physical core
// count is unknown (zero).
//
// Example: FormatCPU("AMD Ryzen 7 5800X", 8, 16, 3800) returns
// "AMD Ryzen 7 5800X (8 cores) (3.80 GHz)"
func FormatCPU(brand string, physical, logical int, mhz float64) string {
	cores := physical
	if cores <= 0 {
		cores = logical
	}
	brand = strings.TrimSpace(brand)
	if brand == "" {
		brand = Unknown
	}
	return fmt.Sprintf("%s (%d cores) (%.2f GHz)", brand, cores, mhz/1000)
}

// usagePercent returns used/total as a percentage clamped to 0..100.
func usagePercent(used, total uint64) uint8 {
	if total == 0 {
		return 0
	}
	pct := math.Round(float64(used) / float64(total) * 100)
	return clampPercent(pct)
}

func clampPercent(pct float64) uint8 {
	switch {
	case math.IsNaN(pct) || pct < 0:
		return 0
	case pct > 100:
		return 100
	default:
		return uint8(pct)
	}
}

// TruncateString shortens s to at most maxLen runes.
//
// Example: TruncateString("opensuse-tumbleweed", 8) returns "opensuse"
func TruncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen])
}
