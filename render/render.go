// Package render lays out a colorized logo and a bordered info box side by
// side, centered within a fixed terminal width.
package render

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"

	"zfetch/ascii"
	"zfetch/config"
	"zfetch/sysinfo"
)

const (
	// Title heads the info box.
	Title = "System Information"

	// LabelWidth is the minimum width of the label column.
	LabelWidth = 10

	// DefaultGap is the number of spaces between logo and box.
	DefaultGap = 4

	// DefaultTermWidth is the width the output is centered in.
	DefaultTermWidth = 80

	// boxPad separates the left border from the row content.
	boxPad = "  "
)

// Row is one label/value line of the info box.
type Row struct {
	Label string
	Value string
}

// Content renders the row as it appears inside the box, with the label
// left-aligned to LabelWidth.
func (r Row) Content() string {
	return runewidth.FillRight(r.Label, LabelWidth) + ": " + r.Value
}

// Rows selects the rows enabled by cfg, in display order. Absent values
// render as "N/A". Each storage entry adds one "Disk (<name>)" row.
func Rows(cfg config.Config, snap sysinfo.Snapshot) []Row {
	var rows []Row
	add := func(on bool, label, value string) {
		if on {
			rows = append(rows, Row{Label: label, Value: value})
		}
	}
	na := sysinfo.NotAvailable

	add(cfg.ShowUserHost, "User", snap.UserHost.Or(na))
	add(cfg.ShowDistro, "Distro", snap.Distro)
	add(cfg.ShowDistroID, "Distro ID", snap.DistroID)
	add(cfg.ShowKernel, "Kernel", snap.Kernel)
	add(cfg.ShowCPU, "CPU", snap.CPU.Or(na))
	add(cfg.ShowGPU, "GPU", snap.GPU.Or(na))
	add(cfg.ShowMemory, "Memory", usage(snap.MemUsed, snap.MemTotal))
	add(cfg.ShowSwap, "Swap", usage(snap.SwapUsed, snap.SwapTotal))
	add(cfg.ShowLocalIP, "Local IP", snap.LocalIP.Or(na))
	add(cfg.ShowBattery, "Battery", snap.Battery.Or(na))
	add(cfg.ShowUptime, "Uptime", snap.Uptime.Or(na))

	for _, disk := range snap.Storage {
		value := fmt.Sprintf("%s / %s (%d%%) - %s", disk.Used, disk.Total, disk.Percent, disk.FSType)
		if disk.ReadOnly {
			value += " [Read-only]"
		}
		rows = append(rows, Row{Label: fmt.Sprintf("Disk (%s)", disk.Name), Value: value})
	}
	return rows
}

// usage renders "used / total (pct%)". The percentage is 0 when either
// side is absent or unparseable.
func usage(used, total sysinfo.Optional) string {
	pct := 0.0
	if t := parseSize(total); t > 0 {
		pct = math.Round(parseSize(used) / t * 100)
	}
	na := sysinfo.NotAvailable
	return fmt.Sprintf("%s / %s (%.0f%%)", used.Or(na), total.Or(na), pct)
}

func parseSize(o sysinfo.Optional) float64 {
	s, ok := o.Get()
	if !ok {
		return 0
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0
	}
	return float64(n)
}

// Box draws rows inside a single-line border under a centered title. Every
// returned line has the same display width.
func Box(rows []Row) []string {
	border := lipgloss.NormalBorder()

	width := runewidth.StringWidth(Title)
	contents := make([]string, len(rows))
	for i, row := range rows {
		contents[i] = row.Content()
		width = max(width, runewidth.StringWidth(contents[i]))
	}
	rule := strings.Repeat(border.Top, width+len(boxPad))
	line := func(content string) string {
		return border.Left + boxPad + runewidth.FillRight(content, width) + border.Right
	}

	titlePad := (width - runewidth.StringWidth(Title)) / 2
	lines := make([]string, 0, len(rows)+4)
	lines = append(lines,
		border.TopLeft+rule+border.TopRight,
		line(strings.Repeat(" ", titlePad)+Title),
		border.MiddleLeft+rule+border.MiddleRight,
	)
	for _, content := range contents {
		lines = append(lines, line(content))
	}
	lines = append(lines, border.BottomLeft+strings.Repeat(border.Bottom, width+len(boxPad))+border.BottomRight)
	return lines
}

// Renderer composes the final output.
type Renderer struct {
	Config config.Config

	// TermWidth is the width to center within. Zero or less disables
	// centering.
	TermWidth int

	// Gap is the number of spaces between logo and box.
	Gap int

	// Color enables escape sequences. When false all color is stripped,
	// including any already present in the logo.
	Color bool
}

// New returns a Renderer with the default width and gap, color enabled.
func New(cfg config.Config) *Renderer {
	return &Renderer{
		Config:    cfg,
		TermWidth: DefaultTermWidth,
		Gap:       DefaultGap,
		Color:     true,
	}
}

// Lines renders the logo (already colorized) beside the info box for snap.
// The block is left-padded so that it is centered in TermWidth; it is
// never truncated when wider.
func (r *Renderer) Lines(logo string, snap sysinfo.Snapshot) []string {
	logoLines := splitLines(logo)
	box := Box(Rows(r.Config, snap))

	logoWidth := 0
	for _, l := range logoLines {
		logoWidth = max(logoWidth, ansi.StringWidth(l))
	}
	gap := max(r.Gap, 0)
	boxWidth := ansi.StringWidth(box[0])

	padLeft := 0
	if total := logoWidth + gap + boxWidth; r.TermWidth > total {
		padLeft = (r.TermWidth - total) / 2
	}
	indent := strings.Repeat(" ", padLeft)
	separator := strings.Repeat(" ", gap)
	infoColor := ascii.ParsePalette(r.Config.InfoColor).Sequence(1)

	n := max(len(logoLines), len(box))
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		var b strings.Builder
		b.WriteString(indent)

		var logoPart string
		if i < len(logoLines) {
			logoPart = logoLines[i]
		}
		b.WriteString(logoPart)
		b.WriteString(strings.Repeat(" ", logoWidth-ansi.StringWidth(logoPart)))

		b.WriteString(infoColor)
		if i < len(box) {
			b.WriteString(separator)
			b.WriteString(box[i])
		}
		b.WriteString(ascii.Reset)

		line := b.String()
		if !r.Color {
			line = ansi.Strip(line)
		}
		out = append(out, line)
	}
	return out
}

// Render writes Lines to w, one per line, through a single buffered flush.
func (r *Renderer) Render(w io.Writer, logo string, snap sysinfo.Snapshot) error {
	bw := bufio.NewWriter(w)
	for _, line := range r.Lines(logo, snap) {
		if _, err := bw.WriteString(line); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// splitLines splits logo text into lines, dropping CRs and any trailing
// lines with no visible content (such as a lone reset after the final
// newline).
func splitLines(s string) []string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	for len(lines) > 0 && strings.TrimSpace(ansi.Strip(lines[len(lines)-1])) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
