package sysinfo

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// storage describes the system volume. Linux and other Unix hosts use
// `df -k /` with the filesystem type from /proc/mounts, macOS uses `df -k /`
// and Windows uses wmic with a native fallback.
func (m *machine) storage(ctx context.Context) ([]StorageEntry, error) {
	switch m.goos {
	case "windows":
		entries, err := m.wmicLogicalDisks(ctx)
		if err == nil && len(entries) > 0 {
			return entries, nil
		}
		slog.Debug("wmic logicaldisk unavailable, using native fallback", "error", err)
		return systemDriveFallback(ctx)
	case "darwin":
		out, err := m.run(ctx, "df", "-k", "/")
		if err != nil {
			return nil, err
		}
		return parseDarwinDF(out), nil
	default:
		out, err := m.run(ctx, "df", "-k", "/")
		if err != nil {
			return nil, err
		}
		entries := parseDF(out)
		if fsType, readOnly, ok := m.rootMount(); ok {
			for i := range entries {
				entries[i].FSType = fsType
				entries[i].ReadOnly = readOnly
			}
		}
		return entries, nil
	}
}

// parseDF reads POSIX `df -k` output. Every data row with at least six
// columns becomes an entry named after its mount point. Used space is
// total minus available, so blocks reserved for root count as used.
//
//	Filesystem     1K-blocks     Used Available Use% Mounted on
//	/dev/nvme0n1p2 490617784 123456789 342112345  27% /
func parseDF(out []byte) []StorageEntry {
	rows := lines(out)
	entries := []StorageEntry{}
	if len(rows) < 2 {
		return entries
	}
	for _, row := range rows[1:] {
		cols := strings.Fields(row)
		if len(cols) < 6 {
			continue
		}
		total, used, ok := dfUsage(cols)
		if !ok {
			continue
		}
		entries = append(entries, StorageEntry{
			Name:    cols[len(cols)-1],
			Used:    FormatKiB(used),
			Total:   FormatKiB(total),
			Percent: usagePercent(used, total),
			FSType:  Unknown,
		})
	}
	return entries
}

// parseDarwinDF reads macOS `df -k /`, whose extra inode columns push the
// mount point to the end. Only the row mounted at "/" is kept.
//
//	Filesystem     1024-blocks      Used Available Capacity iused     ifree %iused  Mounted on
//	/dev/disk3s1s1   482797652  10116592 226577440     5%  404167 2265774400    0%   /
func parseDarwinDF(out []byte) []StorageEntry {
	rows := lines(out)
	entries := []StorageEntry{}
	if len(rows) < 2 {
		return entries
	}
	for _, row := range rows[1:] {
		cols := strings.Fields(row)
		if len(cols) < 6 || cols[len(cols)-1] != "/" {
			continue
		}
		total, used, ok := dfUsage(cols)
		if !ok {
			continue
		}
		entries = append(entries, StorageEntry{
			Name:    "/",
			Used:    FormatKiB(used),
			Total:   FormatKiB(total),
			Percent: parsePercentColumn(cols[4], used, total),
			FSType:  "apfs",
		})
	}
	return entries
}

// dfUsage returns the total and used KiB of a df row, where used is the
// size column minus the available column.
func dfUsage(cols []string) (total, used uint64, ok bool) {
	total, terr := strconv.ParseUint(cols[1], 10, 64)
	avail, aerr := strconv.ParseUint(cols[3], 10, 64)
	if terr != nil || aerr != nil {
		return 0, 0, false
	}
	return total, total - min(avail, total), true
}

// parsePercentColumn reads a "27%" column, computing used/total instead
// when the column is not a number.
func parsePercentColumn(col string, used, total uint64) uint8 {
	pct, err := strconv.ParseFloat(strings.TrimSuffix(col, "%"), 64)
	if err != nil {
		return usagePercent(used, total)
	}
	return clampPercent(pct)
}

// rootMount returns the filesystem type and read-only flag of "/" from
// /proc/mounts. The last matching line wins since later mounts shadow
// earlier ones.
func (m *machine) rootMount() (fsType string, readOnly bool, ok bool) {
	data, err := os.ReadFile(m.path("proc", "mounts"))
	if err != nil {
		return "", false, false
	}
	for _, line := range lines(data) {
		fields := strings.Fields(line)
		if len(fields) < 4 || fields[1] != "/" {
			continue
		}
		fsType, ok = fields[2], true
		readOnly = false
		for _, opt := range strings.Split(fields[3], ",") {
			if opt == "ro" {
				readOnly = true
			}
		}
	}
	return fsType, readOnly, ok
}

func (m *machine) wmicLogicalDisks(ctx context.Context) ([]StorageEntry, error) {
	out, err := m.run(ctx, "wmic", "logicaldisk", "get", "name,size,freespace,filesystem,drivetype")
	if err != nil {
		return nil, err
	}
	return parseWMICLogicalDisks(out), nil
}

// parseWMICLogicalDisks reads the C: row of a wmic logicaldisk table. wmic
// orders columns alphabetically whatever order they were requested in, so
// columns are located by header name.
//
//	FileSystem  FreeSpace     Name  Size
//	NTFS        120034959360  C:    511101104128
func parseWMICLogicalDisks(out []byte) []StorageEntry {
	entries := []StorageEntry{}
	var header map[string]int
	for _, row := range lines(out) {
		cols := strings.Fields(row)
		if len(cols) == 0 {
			continue
		}
		if header == nil {
			header = make(map[string]int, len(cols))
			for i, col := range cols {
				header[strings.ToLower(col)] = i
			}
			continue
		}
		name, ok := column(cols, header, "name")
		if !ok || !strings.EqualFold(name, "C:") {
			continue
		}
		sizeCol, _ := column(cols, header, "size")
		freeCol, _ := column(cols, header, "freespace")
		total, terr := strconv.ParseUint(sizeCol, 10, 64)
		free, ferr := strconv.ParseUint(freeCol, 10, 64)
		if terr != nil || ferr != nil || free > total {
			continue
		}
		fsType, ok := column(cols, header, "filesystem")
		if !ok {
			fsType = Unknown
		}
		used := total - free
		entries = append(entries, StorageEntry{
			Name:    "C:/",
			Used:    FormatBytes(used),
			Total:   FormatBytes(total),
			Percent: usagePercent(used, total),
			FSType:  fsType,
		})
	}
	return entries
}

func column(cols []string, header map[string]int, name string) (string, bool) {
	i, ok := header[name]
	if !ok || i >= len(cols) {
		return "", false
	}
	return cols[i], true
}
