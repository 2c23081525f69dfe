// Package config holds the flat option set that controls which facts zfetch
// gathers and displays, and the colors used to draw them.
//
// A Config is read-only once loaded. Both the aggregator (to skip probes) and
// the renderer (to skip rows and pick colors) consume the same value.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultLogoColor is the logo palette used when no config file exists.
	DefaultLogoColor = "#00FFFF #FF00FF #FFFF00 #FFFFFF"

	// DefaultInfoColor is the info box color used when no config file exists.
	DefaultInfoColor = "#FFFFFF"

	// White is substituted for any color field a config file leaves out.
	White = "#FFFFFF"

	// DefaultProbeTimeout bounds how long a single probe may run.
	DefaultProbeTimeout = 5 * time.Second

	// FileName is the config file looked up next to the executable.
	FileName = "config.json"

	// EnvVar names the environment variable that may point at a config file.
	EnvVar = "ZFETCH_CONFIG"
)

// ErrNotFound is returned by LoadFile when the file does not exist.
var ErrNotFound = errors.New("config file not found")

// Format identifies the encoding of a config file.
type Format int

const (
	// FormatJSON accepts plain JSON and JSON with comments.
	FormatJSON Format = iota
	// FormatYAML accepts YAML documents.
	FormatYAML
)

// Config is the set of display toggles and colors for a single run.
type Config struct {
	ShowDistro   bool
	ShowDistroID bool
	ShowKernel   bool
	ShowCPU      bool
	ShowGPU      bool
	ShowMemory   bool
	ShowSwap     bool
	ShowLocalIP  bool
	ShowBattery  bool
	ShowStorage  bool
	ShowUptime   bool
	ShowUserHost bool

	// LogoColor is a whitespace or comma separated list of #RRGGBB tokens.
	// Logo text selects entries from it with $1..$9 markers.
	LogoColor string

	// InfoColor is the color of the info box. Only the first token is used.
	InfoColor string

	// ProbeTimeout bounds each probe. Zero disables the bound.
	ProbeTimeout time.Duration
}

// Default returns the configuration used when no config file is present.
func Default() Config {
	return Config{
		ShowDistro:   true,
		ShowDistroID: true,
		ShowKernel:   true,
		ShowCPU:      true,
		ShowGPU:      true,
		ShowMemory:   true,
		ShowSwap:     true,
		ShowLocalIP:  true,
		ShowBattery:  true,
		ShowStorage:  true,
		ShowUptime:   true,
		ShowUserHost: true,
		LogoColor:    DefaultLogoColor,
		InfoColor:    DefaultInfoColor,
		ProbeTimeout: DefaultProbeTimeout,
	}
}

// document mirrors the on-disk layout. Pointer fields distinguish a missing
// key from an explicit false or empty string.
type document struct {
	ShowDistro   *bool   `json:"show_distro" yaml:"show_distro"`
	ShowDistroID *bool   `json:"show_distro_id" yaml:"show_distro_id"`
	ShowKernel   *bool   `json:"show_kernel" yaml:"show_kernel"`
	ShowCPU      *bool   `json:"show_cpu" yaml:"show_cpu"`
	ShowGPU      *bool   `json:"show_gpu" yaml:"show_gpu"`
	ShowMemory   *bool   `json:"show_memory" yaml:"show_memory"`
	ShowSwap     *bool   `json:"show_swap" yaml:"show_swap"`
	ShowLocalIP  *bool   `json:"show_local_ip" yaml:"show_local_ip"`
	ShowBattery  *bool   `json:"show_battery" yaml:"show_battery"`
	ShowStorage  *bool   `json:"show_storage" yaml:"show_storage"`
	ShowUptime   *bool   `json:"show_uptime" yaml:"show_uptime"`
	ShowUserHost *bool   `json:"show_user_host" yaml:"show_user_host"`
	LogoColor    *string `json:"logo_color" yaml:"logo_color"`
	InfoColor    *string `json:"info_color" yaml:"info_color"`
	Color        *string `json:"color" yaml:"color"` // older name for info_color
	ProbeTimeout *string `json:"probe_timeout" yaml:"probe_timeout"`
}

// Parse decodes a config document. Keys the document leaves out are
// enabled (toggles) or white (colors), so a partial file never hides
// anything by accident.
func Parse(data []byte, format Format) (Config, error) {
	var doc document
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return Config{}, fmt.Errorf("failed to parse yaml config: %w", err)
		}
	default:
		if err := json.Unmarshal(jsonc.ToJSON(data), &doc); err != nil {
			return Config{}, fmt.Errorf("failed to parse json config: %w", err)
		}
	}
	return doc.resolve()
}

func (d document) resolve() (Config, error) {
	cfg := Config{
		ShowDistro:   enabled(d.ShowDistro),
		ShowDistroID: enabled(d.ShowDistroID),
		ShowKernel:   enabled(d.ShowKernel),
		ShowCPU:      enabled(d.ShowCPU),
		ShowGPU:      enabled(d.ShowGPU),
		ShowMemory:   enabled(d.ShowMemory),
		ShowSwap:     enabled(d.ShowSwap),
		ShowLocalIP:  enabled(d.ShowLocalIP),
		ShowBattery:  enabled(d.ShowBattery),
		ShowStorage:  enabled(d.ShowStorage),
		ShowUptime:   enabled(d.ShowUptime),
		ShowUserHost: enabled(d.ShowUserHost),
		LogoColor:    colorOrWhite(d.LogoColor),
		InfoColor:    colorOrWhite(d.InfoColor),
		ProbeTimeout: DefaultProbeTimeout,
	}
	if d.InfoColor == nil && d.Color != nil {
		cfg.InfoColor = colorOrWhite(d.Color)
	}
	if d.ProbeTimeout != nil {
		timeout, err := time.ParseDuration(strings.TrimSpace(*d.ProbeTimeout))
		if err != nil {
			return Config{}, fmt.Errorf("invalid probe_timeout %q: %w", *d.ProbeTimeout, err)
		}
		if timeout < 0 {
			return Config{}, fmt.Errorf("invalid probe_timeout %q: must not be negative", *d.ProbeTimeout)
		}
		cfg.ProbeTimeout = timeout
	}
	return cfg, nil
}

func enabled(value *bool) bool {
	return value == nil || *value
}

func colorOrWhite(value *string) string {
	if value == nil || strings.TrimSpace(*value) == "" {
		return White
	}
	return *value
}

// FormatForPath picks the decoder from a file extension. Anything that is
// not YAML is treated as JSON (with comments allowed).
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// LoadFile reads and parses the config file at path. A missing file
// returns an error wrapping ErrNotFound.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg, err := Parse(data, FormatForPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Discover resolves the config for this run and reports where it came from.
//
// An explicit path (from a flag) wins, then the ZFETCH_CONFIG environment
// variable; both must load successfully. Otherwise config.json next to the
// executable is tried, and any problem with it falls back to Default.
func Discover(explicit string) (Config, string, error) {
	if explicit == "" {
		explicit = os.Getenv(EnvVar)
	}
	if explicit != "" {
		cfg, err := LoadFile(explicit)
		if err != nil {
			return Config{}, "", err
		}
		return cfg, explicit, nil
	}

	exe, err := os.Executable()
	if err != nil {
		return Default(), "", nil
	}
	path := filepath.Join(filepath.Dir(exe), FileName)
	cfg, err := LoadFile(path)
	if err != nil {
		return Default(), "", nil
	}
	return cfg, path, nil
}
