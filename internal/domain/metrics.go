package domain

import (
	"math"
	"time"
)

type MetricLevel string

const (
	LevelOK       MetricLevel = "ok"
	LevelCaution  MetricLevel = "caution"
	LevelCritical MetricLevel = "critical"
)

// HostSnapshot is one reading of the host. Counters are cumulative since
// boot.
type HostSnapshot struct {
	At     time.Time
	Uptime time.Duration
	Load   [3]float64
	CPUs   int

	CPUPercent float64

	MemUsed    uint64
	MemTotal   uint64
	MemPercent float64

	TempC   float64
	HasTemp bool

	DiskUsed    uint64
	DiskTotal   uint64
	DiskPercent float64

	StorageUsed    uint64
	StorageTotal   uint64
	StoragePercent float64
	HasStorage     bool

	DiskReadBytes  uint64
	DiskWriteBytes uint64
	NetRxBytes     uint64
	NetTxBytes     uint64
}

// MetricsSample is a stored history row. Sizes are MiB.
type MetricsSample struct {
	ID            int64     `db:"id" json:"-"`
	Timestamp     time.Time `db:"timestamp" json:"timestamp"`
	CPUPercent    float64   `db:"cpu_percent" json:"cpu_percent"`
	MemoryPercent float64   `db:"memory_percent" json:"memory_percent"`
	DiskReadMB    float64   `db:"disk_read_mb" json:"disk_read_mb"`
	DiskWriteMB   float64   `db:"disk_write_mb" json:"disk_write_mb"`
	NetRxMB       float64   `db:"net_rx_mb" json:"net_rx_mb"`
	NetTxMB       float64   `db:"net_tx_mb" json:"net_tx_mb"`
	Load1         float64   `db:"load_1min" json:"load_1min"`
	TempC         float64   `db:"temp_c" json:"temp_c"`
	Source        string    `db:"source" json:"source"`
}

const mib = 1024 * 1024

func (h *HostSnapshot) Sample(source string) MetricsSample {
	s := MetricsSample{
		Timestamp:     h.At,
		CPUPercent:    round1(h.CPUPercent),
		MemoryPercent: round1(h.MemPercent),
		DiskReadMB:    round1(float64(h.DiskReadBytes) / mib),
		DiskWriteMB:   round1(float64(h.DiskWriteBytes) / mib),
		NetRxMB:       round1(float64(h.NetRxBytes) / mib),
		NetTxMB:       round1(float64(h.NetTxBytes) / mib),
		Load1:         math.Round(h.Load[0]*100) / 100,
		Source:        source,
	}
	if h.HasTemp {
		s.TempC = round1(h.TempC)
	}
	return s
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

// levelFor is ok up to caution, caution up to critical, critical above.
func levelFor(v, caution, critical float64) MetricLevel {
	switch {
	case v <= caution:
		return LevelOK
	case v <= critical:
		return LevelCaution
	default:
		return LevelCritical
	}
}

// LoadLevel judges the 1 minute load per CPU.
func LoadLevel(load float64, cpus int) MetricLevel {
	if cpus > 0 {
		load /= float64(cpus)
	}
	return levelFor(load, 1, 2)
}

func MemoryLevel(percent float64) MetricLevel  { return levelFor(percent, 75, 90) }
func TempLevel(celsius float64) MetricLevel    { return levelFor(celsius, 60, 80) }
func DiskLevel(percent float64) MetricLevel    { return levelFor(percent, 80, 95) }
func StorageLevel(percent float64) MetricLevel { return levelFor(percent, 85, 95) }
