package sysinfo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"zfetch/config"
)

// Probes is the set of data sources a Gatherer draws from. A nil probe is
// treated as always failing. Tests substitute fakes; HostProbes returns
// the real ones.
type Probes struct {
	// Identity, CPU and Kernel always run. Memory runs when memory or swap
	// is shown. The rest run only when their category is enabled.
	Identity func(context.Context) (OSIdentity, error)
	CPU      func(context.Context) (CPUStats, error)
	Memory   func(context.Context) (MemoryStats, error)
	Kernel   func(context.Context) (string, error)
	Uptime   func(context.Context) (uint64, error)
	GPU      func(context.Context) (string, error)
	LocalIP  func(context.Context) (string, error)
	Battery  func(context.Context) (string, error)
	Storage  func(context.Context) ([]StorageEntry, error)
	UserHost func(context.Context) (string, error)
}

// HostProbes returns probes that read the running host.
func HostProbes() Probes {
	m := newMachine()
	chain := m.gpuTiers()
	return Probes{
		Identity: m.identity,
		CPU:      cpuStats,
		Memory:   memoryStats,
		Kernel:   kernelVersion,
		Uptime:   uptimeSeconds,
		GPU: func(ctx context.Context) (string, error) {
			return chain.detect(ctx), nil
		},
		LocalIP:  localIP,
		Battery:  m.battery,
		Storage:  m.storage,
		UserHost: userHost,
	}
}

// Gatherer runs probes concurrently and merges their results into a
// Snapshot.
type Gatherer struct {
	Probes Probes

	// Timeout bounds each probe individually. Zero means no bound beyond
	// the context passed to Gather.
	Timeout time.Duration
}

// NewGatherer returns a Gatherer over the host probes.
func NewGatherer(timeout time.Duration) *Gatherer {
	return &Gatherer{Probes: HostProbes(), Timeout: timeout}
}

// slot holds one probe's result. Each probe goroutine owns exactly one slot;
// slots are read only after every goroutine has finished.
type slot[T any] struct {
	value T
	ok    bool
}

// Gather runs every probe enabled by cfg and returns the merged snapshot.
// It blocks until all started probes have returned or timed out. Probe
// failures never fail the gather; the affected fields are left absent.
func (g *Gatherer) Gather(ctx context.Context, cfg config.Config) Snapshot {
	var (
		identity slot[OSIdentity]
		cpu      slot[CPUStats]
		memory   slot[MemoryStats]
		kernel   slot[string]
		uptime   slot[uint64]
		gpu      slot[string]
		ip       slot[string]
		battery  slot[string]
		storage  slot[[]StorageEntry]
		userHost slot[string]
	)

	var group errgroup.Group
	start := time.Now()

	schedule(ctx, &group, g.Timeout, "identity", g.Probes.Identity, &identity)
	schedule(ctx, &group, g.Timeout, "cpu", g.Probes.CPU, &cpu)
	schedule(ctx, &group, g.Timeout, "kernel", g.Probes.Kernel, &kernel)
	if cfg.ShowMemory || cfg.ShowSwap {
		schedule(ctx, &group, g.Timeout, "memory", g.Probes.Memory, &memory)
	}
	if cfg.ShowUptime {
		schedule(ctx, &group, g.Timeout, "uptime", g.Probes.Uptime, &uptime)
	}
	if cfg.ShowGPU {
		schedule(ctx, &group, g.Timeout, "gpu", g.Probes.GPU, &gpu)
	}
	if cfg.ShowLocalIP {
		schedule(ctx, &group, g.Timeout, "local_ip", g.Probes.LocalIP, &ip)
	}
	if cfg.ShowBattery {
		schedule(ctx, &group, g.Timeout, "battery", g.Probes.Battery, &battery)
	}
	if cfg.ShowStorage {
		schedule(ctx, &group, g.Timeout, "storage", g.Probes.Storage, &storage)
	}
	if cfg.ShowUserHost {
		schedule(ctx, &group, g.Timeout, "user_host", g.Probes.UserHost, &userHost)
	}

	_ = group.Wait()
	slog.Debug("gather complete", "elapsed", time.Since(start))

	id := unknownIdentity
	if identity.ok {
		id = identity.value
	}
	snap := Snapshot{
		Distro:   id.DisplayName(),
		DistroID: id.DistroID(),
		Kernel:   kernel.value,
		Storage:  []StorageEntry{},
	}

	if cpu.ok && cfg.ShowCPU {
		snap.CPU = Some(cpu.value.String())
	}
	if m := memory.value; memory.ok {
		if cfg.ShowMemory && m.HasMemory {
			snap.MemUsed = Some(FormatBytes(m.MemUsed))
			snap.MemTotal = Some(FormatBytes(m.MemTotal))
		}
		if cfg.ShowSwap && m.HasSwap {
			snap.SwapUsed = Some(FormatBytes(m.SwapUsed))
			snap.SwapTotal = Some(FormatBytes(m.SwapTotal))
		}
	}
	if uptime.ok {
		snap.Uptime = Some(FormatUptime(uptime.value))
	}
	if gpu.ok {
		snap.GPU = Some(gpu.value)
	}
	if ip.ok {
		snap.LocalIP = Some(ip.value)
	}
	if battery.ok {
		snap.Battery = Some(battery.value)
	}
	if userHost.ok {
		snap.UserHost = Some(userHost.value)
	}
	if storage.ok && storage.value != nil {
		snap.Storage = storage.value
	}
	return snap
}

// schedule starts probe on group and stores a successful result in out.
// Errors are logged at debug level and never returned to the group, so one
// failing probe cannot cancel the others.
func schedule[T any](ctx context.Context, group *errgroup.Group, timeout time.Duration, name string,
	probe func(context.Context) (T, error), out *slot[T]) {
	if probe == nil {
		slog.Debug("probe not configured", "probe", name)
		return
	}
	group.Go(func() error {
		start := time.Now()
		value, err := await(ctx, timeout, probe)
		if err != nil {
			slog.Debug("probe failed", "probe", name, "error", err, "elapsed", time.Since(start))
			return nil
		}
		slog.Debug("probe complete", "probe", name, "elapsed", time.Since(start))
		out.value, out.ok = value, true
		return nil
	})
}

// await runs fn in its own goroutine and returns its result, or the context
// error once timeout (if positive) or ctx expires first. A panic in fn is
// returned as an error. fn keeps running in the background after a timeout;
// its late result is discarded.
func await[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		value, err := fn(ctx)
		done <- outcome{value: value, err: err}
	}()

	select {
	case o := <-done:
		return o.value, o.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
