package sysinfo

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"howett.net/plist"
)

// setupAPITimeout bounds the Windows device enumeration tier, which can hang
// on machines with broken drivers.
const setupAPITimeout = 5 * time.Second

// gpuTier is one detection method. It returns a non-empty description or
// an error explaining why it had nothing.
type gpuTier struct {
	name   string
	detect func(ctx context.Context) (string, error)
}

// gpuChain tries tiers in order and stops at the first non-empty result.
type gpuChain []gpuTier

// detect walks the chain. A tier that errors, panics or returns only
// whitespace hands over to the next one. Unknown is returned when every
// tier comes up empty or ctx ends first.
func (c gpuChain) detect(ctx context.Context) string {
	for _, tier := range c {
		if ctx.Err() != nil {
			break
		}
		start := time.Now()
		gpu, err := await(ctx, 0, tier.detect)
		gpu = strings.TrimSpace(gpu)
		if err == nil && gpu == "" {
			err = errNoResult
		}
		if err != nil {
			slog.Debug("gpu tier failed", "tier", tier.name, "error", err, "elapsed", time.Since(start))
			continue
		}
		slog.Debug("gpu tier matched", "tier", tier.name, "elapsed", time.Since(start))
		return gpu
	}
	return Unknown
}

// gpuTiers returns the ordered detection chain for m.goos.
func (m *machine) gpuTiers() gpuChain {
	switch m.goos {
	case "windows":
		return gpuChain{
			{"setupapi", bounded(setupAPITimeout, setupAPIGPUs)},
			{"opengl", m.openGLRenderer},
			{"vulkan", m.vulkanDevices},
			{"wmic", m.wmicVideoControllers},
			{"cim", m.cimVideoControllers},
			{"registry", registryGPUs},
		}
	case "darwin":
		return gpuChain{
			{"ioreg-accelerator", m.ioregAccelerators},
			{"ioreg-pci", m.ioregPCIModel},
			{"system_profiler", m.systemProfilerDisplays},
		}
	case "linux":
		return gpuChain{
			{"drm", m.drmCards},
			{"lspci", m.lspciDisplayDevices},
			{"pci", m.pciDisplayDevices},
			{"opengl", m.openGLRenderer},
			{"vulkan", m.vulkanDevices},
		}
	default:
		return gpuChain{
			{"opengl", m.openGLRenderer},
			{"vulkan", m.vulkanDevices},
		}
	}
}

// bounded caps a tier at d regardless of the caller's deadline.
func bounded(d time.Duration, fn func(context.Context) (string, error)) func(context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		return await(ctx, d, fn)
	}
}

// joinGPUs trims, de-duplicates and joins names with ", ".
func joinGPUs(names []string) string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(strings.Trim(name, "\x00"))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return strings.Join(out, ", ")
}

func (m *machine) openGLRenderer(ctx context.Context) (string, error) {
	out, err := m.run(ctx, "glxinfo", "-B")
	if err != nil {
		return "", err
	}
	return parseGLXInfo(out), nil
}

// parseGLXInfo extracts the renderer string from glxinfo output.
func parseGLXInfo(out []byte) string {
	for _, line := range lines(out) {
		if value, ok := strings.CutPrefix(strings.TrimSpace(line), "OpenGL renderer string:"); ok {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func (m *machine) vulkanDevices(ctx context.Context) (string, error) {
	out, err := m.run(ctx, "vulkaninfo", "--summary")
	if err != nil {
		return "", err
	}
	return parseVulkanSummary(out), nil
}

// parseVulkanSummary collects every deviceName from vulkaninfo --summary.
// Software rasterizers (llvmpipe, SwiftShader) are skipped.
func parseVulkanSummary(out []byte) string {
	var names []string
	for _, line := range lines(out) {
		key, value, ok := strings.Cut(line, "=")
		if !ok || strings.TrimSpace(key) != "deviceName" {
			continue
		}
		value = strings.TrimSpace(value)
		lower := strings.ToLower(value)
		if strings.Contains(lower, "llvmpipe") || strings.Contains(lower, "swiftshader") {
			continue
		}
		names = append(names, value)
	}
	return joinGPUs(names)
}

func (m *machine) wmicVideoControllers(ctx context.Context) (string, error) {
	out, err := m.run(ctx, "wmic", "path", "win32_VideoController", "get", "name")
	if err != nil {
		return "", err
	}
	return parseWMICNames(out), nil
}

// parseWMICNames reads the single Name column of a wmic table. The first
// row is the header.
func parseWMICNames(out []byte) string {
	rows := lines(out)
	if len(rows) < 2 {
		return ""
	}
	var names []string
	for _, row := range rows[1:] {
		if name := strings.TrimSpace(row); name != "" && !isBasicDisplayAdapter(name) {
			names = append(names, name)
		}
	}
	return joinGPUs(names)
}

func (m *machine) cimVideoControllers(ctx context.Context) (string, error) {
	out, err := m.run(ctx, "powershell", "-NoProfile", "-Command",
		"Get-CimInstance Win32_VideoController | Select-Object -Property Name | ConvertTo-Json -Compress")
	if err != nil {
		return "", err
	}
	return parseCIMNames(out)
}

// parseCIMNames accepts either a single object or an array, which is how
// ConvertTo-Json renders one or many controllers.
func parseCIMNames(out []byte) (string, error) {
	out = bytes.TrimSpace(out)
	if len(out) == 0 {
		return "", nil
	}
	type controller struct {
		Name string `json:"Name"`
	}
	var many []controller
	if out[0] != '[' {
		var one controller
		if err := json.Unmarshal(out, &one); err != nil {
			return "", fmt.Errorf("failed to decode video controllers: %w", err)
		}
		many = append(many, one)
	} else if err := json.Unmarshal(out, &many); err != nil {
		return "", fmt.Errorf("failed to decode video controllers: %w", err)
	}

	var names []string
	for _, c := range many {
		if !isBasicDisplayAdapter(c.Name) {
			names = append(names, c.Name)
		}
	}
	return joinGPUs(names), nil
}

func isBasicDisplayAdapter(name string) bool {
	return strings.Contains(strings.ToLower(name), "microsoft basic")
}

func (m *machine) ioregPCIModel(ctx context.Context) (string, error) {
	out, err := m.run(ctx, "ioreg", "-r", "-c", "IOPCIDevice")
	if err != nil {
		return "", err
	}
	return parseIORegModel(out), nil
}

// parseIORegModel finds the first "model" property of a display device in
// ioreg's text output, e.g.  | |   "model" = <"Apple M1 Pro">
func parseIORegModel(out []byte) string {
	for _, line := range lines(out) {
		key, value, ok := strings.Cut(line, "=")
		if !ok || !strings.Contains(key, `"model"`) {
			continue
		}
		if !strings.Contains(value, "Apple") && !strings.Contains(value, "display") && !strings.Contains(value, "GPU") {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), "<>")
		return strings.TrimSpace(strings.ReplaceAll(value, `"`, ""))
	}
	return ""
}

func (m *machine) ioregAccelerators(ctx context.Context) (string, error) {
	out, err := m.run(ctx, "ioreg", "-a", "-r", "-c", "IOAccelerator")
	if err != nil {
		return "", err
	}
	return parseIORegAccelerators(out)
}

// parseIORegAccelerators decodes the plist array that ioreg -a prints and
// collects each accelerator's IOName and model.
func parseIORegAccelerators(out []byte) (string, error) {
	if len(bytes.TrimSpace(out)) == 0 {
		return "", nil
	}
	var entries []map[string]any
	if _, err := plist.Unmarshal(out, &entries); err != nil {
		return "", fmt.Errorf("failed to decode ioreg plist: %w", err)
	}
	var names []string
	for _, entry := range entries {
		names = append(names, plistString(entry["IOName"]), plistString(entry["model"]))
	}
	return joinGPUs(names), nil
}

// plistString renders string or data properties; ioreg stores many names as
// NUL-terminated data.
func plistString(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case []byte:
		return string(bytes.TrimRight(v, "\x00"))
	default:
		return ""
	}
}

func (m *machine) systemProfilerDisplays(ctx context.Context) (string, error) {
	out, err := m.run(ctx, "system_profiler", "SPDisplaysDataType", "-json")
	if err != nil {
		return "", err
	}
	return parseSystemProfilerDisplays(out)
}

// parseSystemProfilerDisplays renders the first display adapter as
// "<model> (<n> cores, <clock>)". The clock is shown only alongside a core
// count, and the parenthesis is dropped when there is no core count.
func parseSystemProfilerDisplays(out []byte) (string, error) {
	var report struct {
		Displays []map[string]any `json:"SPDisplaysDataType"`
	}
	if err := json.Unmarshal(out, &report); err != nil {
		return "", fmt.Errorf("failed to decode system_profiler output: %w", err)
	}
	if len(report.Displays) == 0 {
		return "", nil
	}

	display := report.Displays[0]
	model, _ := display["sppci_model"].(string)
	if model = strings.TrimSpace(model); model == "" {
		model = Unknown
	}
	cores := coreCount(display["spdisplays_gpu_core_count"])
	if cores <= 0 {
		return model, nil
	}
	if clock, _ := display["spdisplays_gpu_core_clock"].(string); strings.TrimSpace(clock) != "" {
		return fmt.Sprintf("%s (%d cores, %s)", model, cores, strings.TrimSpace(clock)), nil
	}
	return fmt.Sprintf("%s (%d cores)", model, cores), nil
}

func coreCount(v any) int {
	switch v := v.(type) {
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(strings.TrimSpace(v))
		return n
	default:
		return 0
	}
}

// isCardDevice reports whether a /sys/class/drm entry is a card ("card0")
// and not a connector ("card0-HDMI-A-1") or render node.
func isCardDevice(name string) bool {
	rest, ok := strings.CutPrefix(name, "card")
	if !ok || rest == "" {
		return false
	}
	_, err := strconv.Atoi(rest)
	return err == nil
}

// drmCards reports "PCI <vendor>:<device>" for each DRM card.
func (m *machine) drmCards(context.Context) (string, error) {
	entries, err := os.ReadDir(m.path("sys", "class", "drm"))
	if err != nil {
		return "", err
	}
	var names []string
	for _, entry := range entries {
		if !isCardDevice(entry.Name()) {
			continue
		}
		vendor, verr := m.readString("sys", "class", "drm", entry.Name(), "device", "vendor")
		device, derr := m.readString("sys", "class", "drm", entry.Name(), "device", "device")
		if verr != nil || derr != nil {
			continue
		}
		names = append(names, fmt.Sprintf("PCI %s:%s", vendor, device))
	}
	return joinGPUs(names), nil
}

// pciDisplayDevices scans the PCI bus for display-class (0x03xxxx) devices.
func (m *machine) pciDisplayDevices(context.Context) (string, error) {
	devices := m.path("sys", "bus", "pci", "devices")
	entries, err := os.ReadDir(devices)
	if err != nil {
		return "", err
	}
	var names []string
	for _, entry := range entries {
		dir := filepath.Join("sys", "bus", "pci", "devices", entry.Name())
		class, err := m.readString(dir, "class")
		if err != nil || !strings.HasPrefix(class, "0x03") {
			continue
		}
		vendor, verr := m.readString(dir, "vendor")
		device, derr := m.readString(dir, "device")
		if verr != nil || derr != nil {
			continue
		}
		names = append(names, fmt.Sprintf("PCI %s:%s", vendor, device))
	}
	return joinGPUs(names), nil
}

func (m *machine) lspciDisplayDevices(ctx context.Context) (string, error) {
	out, err := m.run(ctx, "lspci")
	if err != nil {
		return "", err
	}
	return parseLSPCI(out), nil
}

var lspciDisplayClass = regexp.MustCompile(`(?i)\b(VGA compatible controller|3D controller|Display controller)\b`)

// parseLSPCI keeps the description after the last colon of every display
// device line, e.g. "NVIDIA Corporation GA102 [GeForce RTX 3080] (rev a1)".
func parseLSPCI(out []byte) string {
	var names []string
	for _, line := range lines(out) {
		if !lspciDisplayClass.MatchString(line) {
			continue
		}
		if i := strings.LastIndex(line, ":"); i >= 0 {
			names = append(names, line[i+1:])
		}
	}
	return joinGPUs(names)
}

// lines splits command output into lines without trailing CR.
func lines(out []byte) []string {
	var result []string
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		result = append(result, strings.TrimRight(scanner.Text(), "\r"))
	}
	return result
}
