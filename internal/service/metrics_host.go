package service

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	psnet "github.com/shirou/gopsutil/v3/net"

	"github.com/tazhate/monitorat/internal/domain"
)

const cpuSampleWindow = 100 * time.Millisecond

type gopsutilCollector struct{}

// NewHostCollector reads the local host with gopsutil.
func NewHostCollector() HostCollector { return gopsutilCollector{} }

func (gopsutilCollector) Collect(ctx context.Context, diskPath string, storagePaths []string) (*domain.HostSnapshot, error) {
	snap := &domain.HostSnapshot{At: time.Now()}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("memory: %w", err)
	}
	snap.MemUsed, snap.MemTotal, snap.MemPercent = vm.Used, vm.Total, vm.UsedPercent

	du, err := disk.UsageWithContext(ctx, diskPath)
	if err != nil {
		return nil, fmt.Errorf("disk %s: %w", diskPath, err)
	}
	snap.DiskUsed, snap.DiskTotal, snap.DiskPercent = du.Used, du.Total, du.UsedPercent

	// The rest is best effort; platforms miss some of these.
	if up, err := host.UptimeWithContext(ctx); err == nil {
		snap.Uptime = time.Duration(up) * time.Second
	}
	if avg, err := load.AvgWithContext(ctx); err == nil {
		snap.Load = [3]float64{avg.Load1, avg.Load5, avg.Load15}
	}
	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		snap.CPUs = n
	}
	if pct, err := cpu.PercentWithContext(ctx, cpuSampleWindow, false); err == nil && len(pct) > 0 {
		snap.CPUPercent = pct[0]
	}

	// partial results come back alongside a warnings error
	if temps, _ := host.SensorsTemperaturesWithContext(ctx); len(temps) > 0 {
		readings := make([]sensorReading, 0, len(temps))
		for _, t := range temps {
			readings = append(readings, sensorReading{Key: t.SensorKey, Celsius: t.Temperature})
		}
		snap.TempC, snap.HasTemp = pickTemperature(readings)
	}

	for _, p := range storagePaths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			continue
		}
		su, err := disk.UsageWithContext(ctx, p)
		if err != nil {
			continue
		}
		snap.StorageUsed, snap.StorageTotal, snap.StoragePercent = su.Used, su.Total, su.UsedPercent
		snap.HasStorage = true
		break
	}

	if io, err := disk.IOCountersWithContext(ctx); err == nil {
		counters := make(map[string][2]uint64, len(io))
		for name, c := range io {
			counters[name] = [2]uint64{c.ReadBytes, c.WriteBytes}
		}
		snap.DiskReadBytes, snap.DiskWriteBytes = sumDiskIO(counters)
	}
	if nics, err := psnet.IOCountersWithContext(ctx, false); err == nil && len(nics) > 0 {
		snap.NetRxBytes, snap.NetTxBytes = nics[0].BytesRecv, nics[0].BytesSent
	}
	return snap, nil
}

type sensorReading struct {
	Key     string
	Celsius float64
}

// pickTemperature prefers Intel coretemp, then the Raspberry Pi cpu_thermal
// zone, then AMD k10temp. Otherwise the first plausible reading wins.
func pickTemperature(readings []sensorReading) (float64, bool) {
	for _, chip := range []string{"coretemp", "cpu_thermal", "k10temp"} {
		var best float64
		found := false
		for _, r := range readings {
			if !strings.HasPrefix(r.Key, chip) {
				continue
			}
			if !found || r.Celsius > best {
				best = r.Celsius
			}
			found = true
			if chip == "cpu_thermal" {
				break
			}
		}
		if found {
			return best, true
		}
	}
	for _, r := range readings {
		if r.Celsius > 10 && r.Celsius < 120 {
			return r.Celsius, true
		}
	}
	return 0, false
}

// sumDiskIO totals read and write bytes over whole disks. Partitions such
// as sda1 or nvme0n1p2 are skipped when their parent disk is listed.
func sumDiskIO(counters map[string][2]uint64) (read, write uint64) {
	names := make([]string, 0, len(counters))
	for name := range counters {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		partition := false
		for _, other := range names {
			if other != name && strings.HasPrefix(name, other) {
				partition = true
				break
			}
		}
		if partition {
			continue
		}
		read += counters[name][0]
		write += counters[name][1]
	}
	return read, write
}
