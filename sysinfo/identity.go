package sysinfo

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/shirou/gopsutil/v4/host"
)

// Family is the coarse OS family used to pick probes and display names.
type Family int

const (
	FamilyOther Family = iota
	FamilyLinux
	FamilyMacOS
	FamilyWindows
)

// OSIdentity is the raw OS type and version before display formatting.
type OSIdentity struct {
	Family  Family
	Type    string
	Version string
}

// unknownIdentity is used when the identity probe fails.
var unknownIdentity = OSIdentity{Family: FamilyOther, Type: Unknown, Version: Unknown}

// DisplayName renders the distro row, e.g. "Mac OS (14.5)",
// "Windows (10.0.22631)" or "Arch Linux (Rolling Release)".
func (id OSIdentity) DisplayName() string {
	switch id.Family {
	case FamilyMacOS:
		return fmt.Sprintf("Mac OS (%s)", id.Version)
	case FamilyWindows:
		return fmt.Sprintf("Windows (%s)", id.Version)
	default:
		return fmt.Sprintf("%s (%s)", id.Type, id.Version)
	}
}

// maxDistroIDLen bounds generic identifiers so logo keys stay short.
const maxDistroIDLen = 16

// DistroID derives the logo key. A Windows version starting with 10.0.22
// or mentioning "Windows 11" maps to "windows_11". Generic types are
// lowercased with spaces removed.
func (id OSIdentity) DistroID() string {
	switch id.Family {
	case FamilyWindows:
		if isWindows11(id.Version) {
			return "windows_11"
		}
		return "windows"
	case FamilyMacOS:
		return "macos"
	default:
		key := strings.ReplaceAll(strings.ToLower(id.Type), " ", "")
		return TruncateString(key, maxDistroIDLen)
	}
}

func isWindows11(version string) bool {
	return strings.HasPrefix(version, "10.0.22") || strings.Contains(version, "Windows 11")
}

// identity resolves the OS family, type and version for m.goos.
func (m *machine) identity(ctx context.Context) (OSIdentity, error) {
	switch m.goos {
	case "linux":
		return m.linuxIdentity()
	case "darwin":
		version, err := platformVersion(ctx)
		if err != nil || version == "" {
			version = Unknown
		}
		return OSIdentity{Family: FamilyMacOS, Type: "Mac OS", Version: version}, nil
	case "windows":
		version, err := windowsVersion()
		if err != nil {
			return OSIdentity{}, fmt.Errorf("failed to read windows version: %w", err)
		}
		return OSIdentity{Family: FamilyWindows, Type: "Windows", Version: version}, nil
	default:
		name, ok := otherOSNames[m.goos]
		if !ok {
			name = Unknown
		}
		version, err := platformVersion(ctx)
		if err != nil || version == "" {
			version = Unknown
		}
		return OSIdentity{Family: FamilyOther, Type: name, Version: version}, nil
	}
}

func platformVersion(ctx context.Context) (string, error) {
	_, _, version, err := host.PlatformInformationWithContext(ctx)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(version), nil
}

var otherOSNames = map[string]string{
	"freebsd":   "FreeBSD",
	"openbsd":   "OpenBSD",
	"netbsd":    "NetBSD",
	"dragonfly": "DragonFly BSD",
	"solaris":   "Solaris",
	"illumos":   "illumos",
	"aix":       "AIX",
}

// linuxTypes maps os-release IDs to their display names.
var linuxTypes = map[string]string{
	"alpine":      "Alpine Linux",
	"amzn":        "Amazon Linux",
	"arch":        "Arch Linux",
	"archarm":     "Arch Linux",
	"centos":      "CentOS",
	"debian":      "Debian",
	"endeavouros": "EndeavourOS",
	"fedora":      "Fedora",
	"garuda":      "Garuda Linux",
	"gentoo":      "Gentoo Linux",
	"kali":        "Kali Linux",
	"linuxmint":   "Linux Mint",
	"manjaro":     "Manjaro",
	"mariner":     "Mariner",
	"nixos":       "NixOS",
	"opensuse":    "openSUSE",
	"pop":         "Pop!_OS",
	"raspbian":    "Raspbian",
	"rhel":        "Red Hat Enterprise Linux",
	"rocky":       "Rocky Linux",
	"almalinux":   "AlmaLinux",
	"ubuntu":      "Ubuntu",
	"void":        "Void Linux",
}

// rollingIDs never publish a VERSION_ID.
var rollingIDs = map[string]bool{
	"arch":        true,
	"archarm":     true,
	"endeavouros": true,
	"garuda":      true,
	"gentoo":      true,
	"void":        true,
	"manjaro":     true,
}

func (m *machine) linuxIdentity() (OSIdentity, error) {
	fields, err := m.osRelease()
	if err != nil {
		return OSIdentity{}, err
	}

	id := strings.ToLower(fields["ID"])
	typ, ok := linuxTypes[id]
	if !ok {
		typ = fields["NAME"]
	}
	if typ == "" {
		typ = "Linux"
	}

	version := fields["VERSION_ID"]
	switch {
	case version != "":
	case fields["BUILD_ID"] == "rolling" || rollingIDs[id]:
		version = "Rolling Release"
	default:
		version = Unknown
	}
	return OSIdentity{Family: FamilyLinux, Type: typ, Version: version}, nil
}

// osRelease reads /etc/os-release, falling back to /usr/lib/os-release.
func (m *machine) osRelease() (map[string]string, error) {
	for _, path := range [][]string{{"etc", "os-release"}, {"usr", "lib", "os-release"}} {
		data, err := os.ReadFile(m.path(path...))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read os-release: %w", err)
		}
		return parseOSRelease(data), nil
	}
	return nil, fmt.Errorf("os-release: %w", os.ErrNotExist)
}

// parseOSRelease parses KEY=value lines, dropping optional quotes.
func parseOSRelease(data []byte) map[string]string {
	fields := make(map[string]string)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		fields[strings.TrimSpace(key)] = strings.Trim(strings.TrimSpace(value), `"'`)
	}
	return fields
}
