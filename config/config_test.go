package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultEnablesEverything(t *testing.T) {
	cfg := Default()
	toggles := []bool{
		cfg.ShowDistro, cfg.ShowDistroID, cfg.ShowKernel, cfg.ShowCPU,
		cfg.ShowGPU, cfg.ShowMemory, cfg.ShowSwap, cfg.ShowLocalIP,
		cfg.ShowBattery, cfg.ShowStorage, cfg.ShowUptime, cfg.ShowUserHost,
	}
	for i, on := range toggles {
		assert.Truef(t, on, "toggle %d should default to true", i)
	}
	assert.Equal(t, DefaultLogoColor, cfg.LogoColor)
	assert.Equal(t, DefaultInfoColor, cfg.InfoColor)
	assert.Equal(t, DefaultProbeTimeout, cfg.ProbeTimeout)
}

func TestParseMissingKeys(t *testing.T) {
	cfg, err := Parse([]byte(`{"show_gpu": false}`), FormatJSON)
	require.NoError(t, err)

	assert.False(t, cfg.ShowGPU)
	assert.True(t, cfg.ShowDistro)
	assert.True(t, cfg.ShowSwap)
	assert.Equal(t, White, cfg.LogoColor, "missing colors fall back to white, not the default palette")
	assert.Equal(t, White, cfg.InfoColor)
	assert.Equal(t, DefaultProbeTimeout, cfg.ProbeTimeout)
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		input  string
	}{
		{
			name:   "json",
			format: FormatJSON,
			input:  `{"show_cpu": false, "logo_color": "#FF0000 #0000FF", "info_color": "#00FF00", "probe_timeout": "250ms"}`,
		},
		{
			name:   "json with comments",
			format: FormatJSON,
			input: `{
				// cpu row hidden
				"show_cpu": false,
				"logo_color": "#FF0000 #0000FF", /* two colors */
				"info_color": "#00FF00",
				"probe_timeout": "250ms",
			}`,
		},
		{
			name:   "yaml",
			format: FormatYAML,
			input:  "show_cpu: false\nlogo_color: \"#FF0000 #0000FF\"\ninfo_color: \"#00FF00\"\nprobe_timeout: 250ms\n",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tc.input), tc.format)
			require.NoError(t, err)
			assert.False(t, cfg.ShowCPU)
			assert.True(t, cfg.ShowMemory)
			assert.Equal(t, "#FF0000 #0000FF", cfg.LogoColor)
			assert.Equal(t, "#00FF00", cfg.InfoColor)
			assert.Equal(t, 250*time.Millisecond, cfg.ProbeTimeout)
		})
	}
}

func TestParseColorAlias(t *testing.T) {
	cfg, err := Parse([]byte(`{"color": "#123456"}`), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "#123456", cfg.InfoColor)

	cfg, err = Parse([]byte(`{"color": "#123456", "info_color": "#654321"}`), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "#654321", cfg.InfoColor, "info_color wins over color")
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte(`{"show_cpu": "yes"}`), FormatJSON)
	assert.Error(t, err)

	_, err = Parse([]byte(`{"probe_timeout": "soon"}`), FormatJSON)
	assert.ErrorContains(t, err, "probe_timeout")

	_, err = Parse([]byte(`{"probe_timeout": "-1s"}`), FormatJSON)
	assert.ErrorContains(t, err, "negative")

	_, err = Parse([]byte("show_cpu: [1, 2"), FormatYAML)
	assert.Error(t, err)
}

func TestFormatForPath(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatForPath("/etc/zfetch/config.yaml"))
	assert.Equal(t, FormatYAML, FormatForPath("config.YML"))
	assert.Equal(t, FormatJSON, FormatForPath("config.json"))
	assert.Equal(t, FormatJSON, FormatForPath("config.jsonc"))
	assert.Equal(t, FormatJSON, FormatForPath("config"))
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFile(filepath.Join(dir, "missing.json"))
	require.ErrorIs(t, err, ErrNotFound)

	path := filepath.Join(dir, "zfetch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("show_battery: false\n"), 0o644))
	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.False(t, cfg.ShowBattery)
	assert.True(t, cfg.ShowStorage)
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"show_uptime": false}`), 0o644))

	t.Run("explicit path", func(t *testing.T) {
		t.Setenv(EnvVar, "")
		cfg, source, err := Discover(path)
		require.NoError(t, err)
		assert.Equal(t, path, source)
		assert.False(t, cfg.ShowUptime)
	})

	t.Run("environment variable", func(t *testing.T) {
		t.Setenv(EnvVar, path)
		cfg, source, err := Discover("")
		require.NoError(t, err)
		assert.Equal(t, path, source)
		assert.False(t, cfg.ShowUptime)
	})

	t.Run("explicit path must exist", func(t *testing.T) {
		t.Setenv(EnvVar, "")
		_, _, err := Discover(filepath.Join(dir, "nope.json"))
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
