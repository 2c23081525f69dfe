//go:build windows

// Package sysinfo - Windows-specific implementation
package sysinfo

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"
)

var (
	modkernel32 = windows.NewLazySystemDLL("kernel32.dll")
	modiphlpapi = windows.NewLazySystemDLL("iphlpapi.dll")

	procGetSystemPowerStatus = modkernel32.NewProc("GetSystemPowerStatus")
	procRtlGetVersion        = windows.NewLazySystemDLL("ntdll.dll").NewProc("RtlGetVersion")
	procGetBestInterface     = modiphlpapi.NewProc("GetBestInterface")
)

// displayClassGUID is the device setup class for display adapters.
const displayClassGUID = "{4d36e968-e325-11ce-bfc1-08002be10318}"

// windowsVersion returns "major.minor.build", e.g. "10.0.22631".
func windowsVersion() (string, error) {
	major, minor, build, err := rtlGetVersion()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d.%d.%d", major, minor, build), nil
}

// rtlGetVersion calls ntdll.RtlGetVersion to obtain accurate Windows version info.
func rtlGetVersion() (major uint32, minor uint32, build uint32, err error) {
	// OSVERSIONINFOEXW
	type osver struct {
		dwOSVersionInfoSize uint32
		dwMajorVersion      uint32
		dwMinorVersion      uint32
		dwBuildNumber       uint32
		dwPlatformID        uint32
		szCSDVersion        [128]uint16
		wServicePackMajor   uint16
		wServicePackMinor   uint16
		wSuiteMask          uint16
		wProductType        byte
		wReserved           byte
	}

	var v osver
	v.dwOSVersionInfoSize = uint32(unsafe.Sizeof(v))

	ret, _, callErr := procRtlGetVersion.Call(uintptr(unsafe.Pointer(&v)))
	if ret != 0 {
		if callErr != nil && callErr != syscall.Errno(0) {
			return 0, 0, 0, callErr
		}
		return 0, 0, 0, fmt.Errorf("RtlGetVersion failed: ret=%d", ret)
	}

	return v.dwMajorVersion, v.dwMinorVersion, v.dwBuildNumber, nil
}

// setupAPIGPUs enumerates present display adapters through SetupAPI and
// returns their device descriptions.
func setupAPIGPUs(ctx context.Context) (string, error) {
	guid, err := windows.GUIDFromString(displayClassGUID)
	if err != nil {
		return "", err
	}
	devices, err := windows.SetupDiGetClassDevsEx(&guid, "", 0, windows.DIGCF_PRESENT, 0, "")
	if err != nil {
		return "", fmt.Errorf("SetupDiGetClassDevsEx: %w", err)
	}
	defer func() { _ = devices.Close() }()

	var names []string
	for i := 0; ctx.Err() == nil; i++ {
		data, err := devices.EnumDeviceInfo(i)
		if errors.Is(err, windows.ERROR_NO_MORE_ITEMS) {
			break
		}
		if err != nil {
			continue
		}
		value, err := devices.DeviceRegistryProperty(data, windows.SPDRP_DEVICEDESC)
		if err != nil {
			continue
		}
		if name, ok := value.(string); ok && !isBasicDisplayAdapter(name) {
			names = append(names, name)
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return joinGPUs(names), nil
}

// registryGPUs enumerates the display class registry keys (0000, 0001, ...)
// and collects their driver descriptions.
func registryGPUs(context.Context) (string, error) {
	classKey := `SYSTEM\CurrentControlSet\Control\Class\` + displayClassGUID

	k, err := registry.OpenKey(registry.LOCAL_MACHINE, classKey, registry.ENUMERATE_SUB_KEYS|registry.QUERY_VALUE)
	if err != nil {
		return "", err
	}
	defer func() { _ = k.Close() }()

	subkeys, err := k.ReadSubKeyNames(-1)
	if err != nil {
		return "", err
	}

	var names []string
	for _, subkey := range subkeys {
		subkeyPath := classKey + `\` + subkey
		for _, value := range []string{"DriverDesc", "HardwareInformation.AdapterString"} {
			if gpu := getRegistryString(registry.LOCAL_MACHINE, subkeyPath, value); gpu != "" && !isBasicDisplayAdapter(gpu) {
				names = append(names, gpu)
				break
			}
		}
	}
	return joinGPUs(names), nil
}

// getRegistryString reads a string value, returning "" on any failure.
func getRegistryString(key registry.Key, path string, valueName string) string {
	k, err := registry.OpenKey(key, path, registry.QUERY_VALUE)
	if err != nil {
		return ""
	}
	defer func() { _ = k.Close() }()

	value, _, err := k.GetStringValue(valueName)
	if err != nil {
		return ""
	}
	return value
}

// bestInterfaceIP uses GetBestInterface to find the interface that routes
// to 8.8.8.8 and returns its first IPv4 address. Returns "" on failure.
func bestInterfaceIP() string {
	destIP := net.ParseIP(probeAddr).To4()
	if destIP == nil {
		return ""
	}

	// GetBestInterface takes the IPv4 address as a DWORD in network byte order.
	dest := binary.BigEndian.Uint32(destIP)

	var ifIndex uint32
	ret, _, _ := procGetBestInterface.Call(uintptr(dest), uintptr(unsafe.Pointer(&ifIndex)))
	if ret != 0 {
		return ""
	}

	ifi, err := net.InterfaceByIndex(int(ifIndex))
	if err != nil {
		return ""
	}
	addrs, err := ifi.Addrs()
	if err != nil {
		return ""
	}
	for _, a := range addrs {
		if ip4 := addrIPv4(a); ip4 != nil && !ip4.IsLoopback() {
			return ip4.String()
		}
	}
	return ""
}

// systemPowerStatus is SYSTEM_POWER_STATUS.
type systemPowerStatus struct {
	ACLineStatus        byte
	BatteryFlag         byte
	BatteryLifePercent  byte
	SystemStatusFlag    byte
	BatteryLifeTime     uint32
	BatteryFullLifeTime uint32
}

const (
	batteryFlagCharging   = 0x08
	batteryFlagNoBattery  = 0x80
	batteryFlagUnknown    = 0xFF
	batteryPercentUnknown = 0xFF
)

// windowsBattery reads GetSystemPowerStatus.
func windowsBattery(context.Context) (string, error) {
	var status systemPowerStatus
	ret, _, callErr := procGetSystemPowerStatus.Call(uintptr(unsafe.Pointer(&status)))
	if ret == 0 {
		return "", fmt.Errorf("GetSystemPowerStatus: %w", callErr)
	}
	if status.BatteryFlag == batteryFlagUnknown || status.BatteryFlag&batteryFlagNoBattery != 0 ||
		status.BatteryLifePercent == batteryPercentUnknown {
		return "", errNoResult
	}
	plugged := status.ACLineStatus == 1 || status.BatteryFlag&batteryFlagCharging != 0
	return formatBattery(int(status.BatteryLifePercent), plugged), nil
}

// systemDriveFallback describes C:\ with GetDiskFreeSpaceEx when wmic is
// unavailable (it is removed from recent Windows 11 builds).
func systemDriveFallback(context.Context) ([]StorageEntry, error) {
	root, err := windows.UTF16PtrFromString(`C:\`)
	if err != nil {
		return nil, err
	}

	var freeBytesAvailable, totalBytes, totalFreeBytes uint64
	if err := windows.GetDiskFreeSpaceEx(root, &freeBytesAvailable, &totalBytes, &totalFreeBytes); err != nil {
		return nil, fmt.Errorf("GetDiskFreeSpaceEx: %w", err)
	}

	entry := StorageEntry{
		Name:    "C:/",
		Used:    FormatBytes(totalBytes - totalFreeBytes),
		Total:   FormatBytes(totalBytes),
		Percent: usagePercent(totalBytes-totalFreeBytes, totalBytes),
		FSType:  Unknown,
	}

	var flags uint32
	fsName := make([]uint16, windows.MAX_PATH+1)
	if err := windows.GetVolumeInformation(root, nil, 0, nil, nil, &flags, &fsName[0], uint32(len(fsName))); err == nil {
		if name := strings.TrimSpace(windows.UTF16ToString(fsName)); name != "" {
			entry.FSType = name
		}
		entry.ReadOnly = flags&windows.FILE_READ_ONLY_VOLUME != 0
	}
	return []StorageEntry{entry}, nil
}
