package sysinfo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/user"
	"strings"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
)

// CPUStats is the raw result of the CPU probe.
type CPUStats struct {
	Brand         string
	PhysicalCores int
	LogicalCores  int
	MHz           float64
}

// String renders the CPU row.
func (s CPUStats) String() string {
	return FormatCPU(s.Brand, s.PhysicalCores, s.LogicalCores, s.MHz)
}

// MemoryStats is the raw result of the memory probe. The Has* flags record
// which parts were readable.
type MemoryStats struct {
	HasMemory bool
	MemTotal  uint64 // bytes
	MemUsed   uint64 // bytes

	HasSwap   bool
	SwapTotal uint64 // bytes
	SwapUsed  uint64 // bytes
}

func cpuStats(ctx context.Context) (CPUStats, error) {
	infos, err := cpu.InfoWithContext(ctx)
	if err != nil {
		return CPUStats{}, fmt.Errorf("cpu: %w", err)
	}
	if len(infos) == 0 {
		return CPUStats{}, fmt.Errorf("cpu: %w", errNoResult)
	}
	stats := CPUStats{
		Brand: strings.TrimSpace(infos[0].ModelName),
		MHz:   infos[0].Mhz,
	}
	stats.PhysicalCores, _ = cpu.CountsWithContext(ctx, false)
	stats.LogicalCores, _ = cpu.CountsWithContext(ctx, true)
	return stats, nil
}

// memoryStats reads physical memory and swap. It only fails when neither
// could be read. Used memory is total minus available.
func memoryStats(ctx context.Context) (MemoryStats, error) {
	var stats MemoryStats
	var errs []error

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		stats.HasMemory = true
		stats.MemTotal = vm.Total
		stats.MemUsed = vm.Total - min(vm.Available, vm.Total)
	} else {
		errs = append(errs, fmt.Errorf("memory: %w", err))
	}

	if sm, err := mem.SwapMemoryWithContext(ctx); err == nil {
		stats.HasSwap = true
		stats.SwapTotal = sm.Total
		stats.SwapUsed = sm.Used
	} else {
		errs = append(errs, fmt.Errorf("swap: %w", err))
	}

	if !stats.HasMemory && !stats.HasSwap {
		return MemoryStats{}, errors.Join(errs...)
	}
	return stats, nil
}

func kernelVersion(ctx context.Context) (string, error) {
	version, err := host.KernelVersionWithContext(ctx)
	if err != nil {
		return "", err
	}
	if version = strings.TrimSpace(version); version == "" {
		return "", errNoResult
	}
	return version, nil
}

func uptimeSeconds(ctx context.Context) (uint64, error) {
	return host.UptimeWithContext(ctx)
}

// userHost returns "user@host". A Windows DOMAIN\ prefix is dropped.
func userHost(context.Context) (string, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return "", fmt.Errorf("hostname: %w", err)
	}

	name := os.Getenv("USER")
	if name == "" {
		name = os.Getenv("USERNAME")
	}
	if u, err := user.Current(); err == nil && u.Username != "" {
		name = u.Username
	}
	if i := strings.LastIndex(name, `\`); i >= 0 {
		name = name[i+1:]
	}
	if name == "" {
		return "", errNoResult
	}
	return name + "@" + hostname, nil
}
