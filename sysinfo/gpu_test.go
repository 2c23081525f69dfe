package sysinfo

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticTier(name, result string, err error, calls *int32) gpuTier {
	return gpuTier{name: name, detect: func(context.Context) (string, error) {
		if calls != nil {
			atomic.AddInt32(calls, 1)
		}
		return result, err
	}}
}

func TestGPUChainShortCircuits(t *testing.T) {
	var first, second, third int32
	chain := gpuChain{
		staticTier("a", "", errors.New("missing binary"), &first),
		staticTier("b", "GPU B", nil, &second),
		staticTier("c", "GPU C", nil, &third),
	}
	assert.Equal(t, "GPU B", chain.detect(context.Background()))
	assert.EqualValues(t, 1, first)
	assert.EqualValues(t, 1, second)
	assert.EqualValues(t, 0, third, "tiers after the first success must not run")
}

func TestGPUChainFailureCombinations(t *testing.T) {
	// Every combination of three tiers succeeding or failing.
	for mask := 0; mask < 8; mask++ {
		results := []string{"GPU 0", "GPU 1", "GPU 2"}
		var chain gpuChain
		want := Unknown
		for i := 0; i < 3; i++ {
			if mask&(1<<i) != 0 {
				chain = append(chain, staticTier("ok", results[i], nil, nil))
				if want == Unknown {
					want = results[i]
				}
			} else {
				chain = append(chain, staticTier("fail", "", errNoResult, nil))
			}
		}
		assert.Equalf(t, want, chain.detect(context.Background()), "mask %03b", mask)
	}
}

func TestGPUChainToleratesBadTiers(t *testing.T) {
	chain := gpuChain{
		{name: "panics", detect: func(context.Context) (string, error) { panic("driver exploded") }},
		staticTier("whitespace", "  \n\t", nil, nil),
		staticTier("works", "  Radeon 780M \n", nil, nil),
	}
	assert.Equal(t, "Radeon 780M", chain.detect(context.Background()))
}

func TestGPUChainStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var calls int32
	chain := gpuChain{staticTier("never", "GPU", nil, &calls)}
	assert.Equal(t, Unknown, chain.detect(ctx))
	assert.EqualValues(t, 0, calls)
}

func TestBoundedTier(t *testing.T) {
	slow := func(ctx context.Context) (string, error) {
		select {
		case <-time.After(5 * time.Second):
			return "too late", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	chain := gpuChain{
		{name: "slow", detect: bounded(20*time.Millisecond, slow)},
		staticTier("next", "GPU next", nil, nil),
	}
	start := time.Now()
	assert.Equal(t, "GPU next", chain.detect(context.Background()))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestGPUTiersOrder(t *testing.T) {
	names := func(c gpuChain) []string {
		var out []string
		for _, tier := range c {
			out = append(out, tier.name)
		}
		return out
	}
	assert.Equal(t, []string{"setupapi", "opengl", "vulkan", "wmic", "cim", "registry"},
		names(testMachine(t, "windows", nil).gpuTiers()))
	assert.Equal(t, []string{"ioreg-accelerator", "ioreg-pci", "system_profiler"},
		names(testMachine(t, "darwin", nil).gpuTiers()))
	assert.Equal(t, []string{"drm", "lspci", "pci", "opengl", "vulkan"},
		names(testMachine(t, "linux", nil).gpuTiers()))
	assert.Equal(t, []string{"opengl", "vulkan"},
		names(testMachine(t, "freebsd", nil).gpuTiers()))
}

func TestLinuxGPUFromDRM(t *testing.T) {
	m := testMachine(t, "linux", fakeCommands{
		"glxinfo -B": "OpenGL renderer string: should not be reached\n",
	})
	writeFile(t, m.root, "sys/class/drm/card0/device/vendor", "0x10de\n")
	writeFile(t, m.root, "sys/class/drm/card0/device/device", "0x2684\n")
	writeFile(t, m.root, "sys/class/drm/card0-HDMI-A-1/status", "connected\n")
	writeFile(t, m.root, "sys/class/drm/renderD128/dev", "226:128\n")
	writeFile(t, m.root, "sys/class/drm/card1/device/vendor", "0x8086\n")
	writeFile(t, m.root, "sys/class/drm/card1/device/device", "0x46a6\n")

	assert.Equal(t, "PCI 0x10de:0x2684, PCI 0x8086:0x46a6", m.gpuTiers().detect(context.Background()))
}

func TestLinuxGPUFromPCIBus(t *testing.T) {
	m := testMachine(t, "linux", nil)
	writeFile(t, m.root, "sys/bus/pci/devices/0000:00:02.0/class", "0x030000\n")
	writeFile(t, m.root, "sys/bus/pci/devices/0000:00:02.0/vendor", "0x8086\n")
	writeFile(t, m.root, "sys/bus/pci/devices/0000:00:02.0/device", "0x9a49\n")
	writeFile(t, m.root, "sys/bus/pci/devices/0000:00:14.0/class", "0x0c0330\n")
	writeFile(t, m.root, "sys/bus/pci/devices/0000:00:14.0/vendor", "0x8086\n")
	writeFile(t, m.root, "sys/bus/pci/devices/0000:00:14.0/device", "0xa0ed\n")

	assert.Equal(t, "PCI 0x8086:0x9a49", m.gpuTiers().detect(context.Background()))
}

func TestLinuxGPUFallsThroughToCommands(t *testing.T) {
	m := testMachine(t, "linux", fakeCommands{
		"glxinfo -B": "name of display: :0\nOpenGL vendor string: Intel\nOpenGL renderer string: Mesa Intel(R) UHD Graphics 620 (KBL GT2)\n",
	})
	assert.Equal(t, "Mesa Intel(R) UHD Graphics 620 (KBL GT2)", m.gpuTiers().detect(context.Background()))

	m = testMachine(t, "linux", fakeCommands{
		"lspci": "00:00.0 Host bridge: Intel Corporation Device 9b61\n" +
			"01:00.0 VGA compatible controller: NVIDIA Corporation GA102 [GeForce RTX 3080] (rev a1)\n",
	})
	assert.Equal(t, "NVIDIA Corporation GA102 [GeForce RTX 3080] (rev a1)", m.gpuTiers().detect(context.Background()))

	m = testMachine(t, "linux", nil)
	assert.Equal(t, Unknown, m.gpuTiers().detect(context.Background()))
}

func TestLinuxGPUPrefersLSPCIOverPCIBus(t *testing.T) {
	m := testMachine(t, "linux", fakeCommands{
		"lspci": "01:00.0 VGA compatible controller: NVIDIA Corporation GA102 [GeForce RTX 3080] (rev a1)\n",
	})
	writeFile(t, m.root, "sys/bus/pci/devices/0000:01:00.0/class", "0x030000\n")
	writeFile(t, m.root, "sys/bus/pci/devices/0000:01:00.0/vendor", "0x10de\n")
	writeFile(t, m.root, "sys/bus/pci/devices/0000:01:00.0/device", "0x2206\n")

	assert.Equal(t, "NVIDIA Corporation GA102 [GeForce RTX 3080] (rev a1)", m.gpuTiers().detect(context.Background()))
}

func TestIsCardDevice(t *testing.T) {
	assert.True(t, isCardDevice("card0"))
	assert.True(t, isCardDevice("card12"))
	assert.False(t, isCardDevice("card"))
	assert.False(t, isCardDevice("card0-DP-1"))
	assert.False(t, isCardDevice("renderD128"))
	assert.False(t, isCardDevice("version"))
}

func TestParseVulkanSummary(t *testing.T) {
	out := `Devices:
========
GPU0:
	apiVersion         = 1.3.277
	deviceName         = NVIDIA GeForce RTX 3080
GPU1:
	deviceName         = llvmpipe (LLVM 17.0.6, 256 bits)
GPU2:
	deviceName         = NVIDIA GeForce RTX 3080
`
	assert.Equal(t, "NVIDIA GeForce RTX 3080", parseVulkanSummary([]byte(out)))
	assert.Empty(t, parseVulkanSummary(nil))
}

func TestParseWMICNames(t *testing.T) {
	out := "Name  \r\nNVIDIA GeForce RTX 4070  \r\nMicrosoft Basic Display Adapter\r\nIntel(R) UHD Graphics 770\r\n\r\n"
	assert.Equal(t, "NVIDIA GeForce RTX 4070, Intel(R) UHD Graphics 770", parseWMICNames([]byte(out)))
	assert.Empty(t, parseWMICNames([]byte("Name\r\n")))
}

func TestParseCIMNames(t *testing.T) {
	got, err := parseCIMNames([]byte(`{"Name":"AMD Radeon RX 7900 XTX"}`))
	require.NoError(t, err)
	assert.Equal(t, "AMD Radeon RX 7900 XTX", got)

	got, err = parseCIMNames([]byte(`[{"Name":"Microsoft Basic Display Adapter"},{"Name":"Intel(R) Arc(TM) A770"}]`))
	require.NoError(t, err)
	assert.Equal(t, "Intel(R) Arc(TM) A770", got)

	_, err = parseCIMNames([]byte(`not json`))
	assert.Error(t, err)
}

func TestParseIORegModel(t *testing.T) {
	out := `+-o AppleARMPE  <class IOService>
  | |   "compatible" = <"gpu">
  | |   "model" = <"Apple M1 Pro">
  | |   "model" = <"Apple M2">
`
	assert.Equal(t, "Apple M1 Pro", parseIORegModel([]byte(out)))
	assert.Empty(t, parseIORegModel([]byte(`  | |   "model" = <"Thunderbolt Controller">`)))
}

func TestParseIORegAccelerators(t *testing.T) {
	out := `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<array>
	<dict>
		<key>IOName</key>
		<string>AGXAcceleratorG13X</string>
		<key>model</key>
		<string>Apple M1 Pro</string>
	</dict>
	<dict>
		<key>model</key>
		<data>QU1EIFJhZGVvbiBQcm8gNTUwMFIA</data>
	</dict>
</array>
</plist>
`
	got, err := parseIORegAccelerators([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, "AGXAcceleratorG13X, Apple M1 Pro, AMD Radeon Pro 5500R", got)

	got, err = parseIORegAccelerators([]byte("  \n"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParseSystemProfilerDisplays(t *testing.T) {
	tests := []struct {
		name string
		out  string
		want string
	}{
		{"cores and clock", `{"SPDisplaysDataType":[
			{"sppci_model":"AMD Radeon Pro 5500M","spdisplays_gpu_core_count":24,"spdisplays_gpu_core_clock":"1300 MHz"},
			{"sppci_model":"Intel UHD Graphics 630"}
		]}`, "AMD Radeon Pro 5500M (24 cores, 1300 MHz)"},
		{"cores only", `{"SPDisplaysDataType":[{"sppci_model":"Apple M1 Pro","spdisplays_gpu_core_count":16}]}`, "Apple M1 Pro (16 cores)"},
		{"clock without cores", `{"SPDisplaysDataType":[{"sppci_model":"Apple M3","spdisplays_gpu_core_clock":"1398 MHz"}]}`, "Apple M3"},
		{"missing model", `{"SPDisplaysDataType":[{"spdisplays_vendor":"sppci_vendor_intel"}]}`, Unknown},
		{"no displays", `{"SPDisplaysDataType":[]}`, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseSystemProfilerDisplays([]byte(tc.out))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := parseSystemProfilerDisplays([]byte("not json"))
	assert.Error(t, err)
}

func TestDarwinGPUChain(t *testing.T) {
	m := testMachine(t, "darwin", fakeCommands{
		"ioreg -r -c IOPCIDevice":                  "",
		"system_profiler SPDisplaysDataType -json": `{"SPDisplaysDataType":[{"sppci_model":"Apple M3"}]}`,
	})
	assert.Equal(t, "Apple M3", m.gpuTiers().detect(context.Background()))
}

func TestDarwinGPUPrefersAccelerators(t *testing.T) {
	m := testMachine(t, "darwin", fakeCommands{
		"ioreg -a -r -c IOAccelerator": `<?xml version="1.0" encoding="UTF-8"?>
<plist version="1.0">
<array>
	<dict>
		<key>model</key>
		<string>Apple M2 Max</string>
	</dict>
</array>
</plist>
`,
		"ioreg -r -c IOPCIDevice":                  `  | |   "model" = <"Apple M1 Pro">`,
		"system_profiler SPDisplaysDataType -json": `{"SPDisplaysDataType":[{"sppci_model":"Apple M3"}]}`,
	})
	assert.Equal(t, "Apple M2 Max", m.gpuTiers().detect(context.Background()))

	m = testMachine(t, "darwin", fakeCommands{
		"ioreg -r -c IOPCIDevice":                  `  | |   "model" = <"Apple M1 Pro">`,
		"system_profiler SPDisplaysDataType -json": `{"SPDisplaysDataType":[{"sppci_model":"Apple M3"}]}`,
	})
	assert.Equal(t, "Apple M1 Pro", m.gpuTiers().detect(context.Background()))
}
