// Package sysinfo gathers a point-in-time snapshot of host facts: OS identity,
// kernel, CPU, memory, GPU, storage, battery, network and uptime.
//
// Independent probes run concurrently under a per-probe timeout. Every probe
// is optional: a failure, panic or timeout leaves its field absent instead of
// failing the snapshot. Probes whose category is disabled in the config are
// never started.
package sysinfo

// NotAvailable is displayed for an absent optional field.
const NotAvailable = "N/A"

// Unknown is used when an identity field or the GPU cannot be determined.
const Unknown = "Unknown"

// Optional holds a display value that may be absent.
type Optional struct {
	value string
	set   bool
}

// Some returns a present Optional.
func Some(value string) Optional {
	return Optional{value: value, set: true}
}

// None returns an absent Optional.
func None() Optional {
	return Optional{}
}

// Get returns the value and whether it is present.
func (o Optional) Get() (string, bool) {
	return o.value, o.set
}

// IsSet reports whether the value is present.
func (o Optional) IsSet() bool {
	return o.set
}

// Or returns the value, or fallback when absent.
func (o Optional) Or(fallback string) string {
	if !o.set {
		return fallback
	}
	return o.value
}

// StorageEntry describes one mounted volume.
type StorageEntry struct {
	// Name is the mount point ("/") or drive ("C:/").
	Name string

	// Used and Total are human readable sizes, e.g. "120.53 GB".
	Used  string
	Total string

	// Percent is the used share of the volume, 0 through 100.
	Percent uint8

	// FSType is the filesystem type, e.g. "ext4", "apfs" or "NTFS".
	FSType string

	ReadOnly bool
}

// Snapshot is the merged result of one gather. It is assembled only after
// every probe has finished and is not modified afterwards.
type Snapshot struct {
	// Distro is the display name with version, e.g. "Ubuntu (24.04)".
	Distro string

	// DistroID is the logo key, e.g. "ubuntu" or "windows_11".
	DistroID string

	// Kernel is empty when the kernel version could not be read.
	Kernel string

	CPU       Optional
	GPU       Optional
	MemUsed   Optional
	MemTotal  Optional
	SwapUsed  Optional
	SwapTotal Optional
	LocalIP   Optional
	Battery   Optional
	Uptime    Optional
	UserHost  Optional

	// Storage is empty, never nil, when storage is disabled or unreadable.
	Storage []StorageEntry
}
