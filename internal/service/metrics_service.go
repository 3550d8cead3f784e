package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
	"unicode"

	"github.com/tazhate/monitorat/config"
	"github.com/tazhate/monitorat/internal/domain"
	"github.com/tazhate/monitorat/internal/storage"
)

const (
	MaxMetricsHistory      = 1000
	defaultMetricsInterval = 60 * time.Second
)

// HostCollector reads the current state of the host.
type HostCollector interface {
	Collect(ctx context.Context, disk string, storage []string) (*domain.HostSnapshot, error)
}

type MetricsService struct {
	config    *config.Provider
	storage   *storage.Storage
	collector HostCollector
	now       func() time.Time
	running   atomic.Bool
}

func NewMetricsService(cfg *config.Provider, s *storage.Storage, collector HostCollector) *MetricsService {
	if collector == nil {
		collector = NewHostCollector()
	}
	return &MetricsService{config: cfg, storage: s, collector: collector, now: time.Now}
}

// MetricsView is what the dashboard widget renders.
type MetricsView struct {
	Metrics  map[string]string             `json:"metrics"`
	Statuses map[string]domain.MetricLevel `json:"metric_statuses"`
}

func (s *MetricsService) collect(ctx context.Context) (*domain.HostSnapshot, error) {
	w := s.config.Snapshot().Widgets.Metrics
	disk := w.Disk
	if disk == "" {
		disk = "/"
	}
	snap, err := s.collector.Collect(ctx, disk, w.Storage)
	if err != nil {
		return nil, fmt.Errorf("collect metrics: %w", err)
	}
	if snap.At.IsZero() {
		snap.At = s.now()
	}
	return snap, nil
}

// Current reads the host and records the reading as a refresh sample.
func (s *MetricsService) Current(ctx context.Context) (*MetricsView, error) {
	snap, err := s.collect(ctx)
	if err != nil {
		return nil, err
	}

	sample := snap.Sample("refresh")
	if err := s.storage.AddMetricsSample(ctx, &sample); err != nil {
		log.Printf("[metrics] record refresh: %v", err)
	}

	loc := s.config.Snapshot().Location
	if loc == nil {
		loc = time.Local
	}
	return buildView(snap, loc), nil
}

func buildView(snap *domain.HostSnapshot, loc *time.Location) *MetricsView {
	v := &MetricsView{
		Metrics: map[string]string{
			"uptime":      FormatUptime(snap.Uptime),
			"load":        fmt.Sprintf("%.2f %.2f %.2f", snap.Load[0], snap.Load[1], snap.Load[2]),
			"memory":      fmt.Sprintf("%.1fGB / %.1fGB", gib(snap.MemUsed), gib(snap.MemTotal)),
			"temp":        "Unknown",
			"disk":        fmt.Sprintf("%.1fGB / %.1fGB (%.0f%%)", gib(snap.DiskUsed), gib(snap.DiskTotal), snap.DiskPercent),
			"storage":     "Not mounted",
			"status":      "Running",
			"lastUpdated": snap.At.In(loc).Format("2006-01-02T15:04:05"),
		},
		Statuses: map[string]domain.MetricLevel{
			"load":    domain.LoadLevel(snap.Load[0], snap.CPUs),
			"memory":  domain.MemoryLevel(snap.MemPercent),
			"temp":    domain.LevelOK,
			"disk":    domain.DiskLevel(snap.DiskPercent),
			"storage": domain.LevelOK,
		},
	}
	if snap.HasTemp {
		v.Metrics["temp"] = fmt.Sprintf("%.1f°C", snap.TempC)
		v.Statuses["temp"] = domain.TempLevel(snap.TempC)
	}
	if snap.HasStorage {
		v.Metrics["storage"] = fmt.Sprintf("%.1fTB / %.1fTB (%.0f%%)", tib(snap.StorageUsed), tib(snap.StorageTotal), snap.StoragePercent)
		v.Statuses["storage"] = domain.StorageLevel(snap.StoragePercent)
	}
	return v
}

func gib(b uint64) float64 { return float64(b) / (1 << 30) }
func tib(b uint64) float64 { return float64(b) / (1 << 40) }

// FormatUptime renders d as "3d 4h 5m", dropping leading zero units.
func FormatUptime(d time.Duration) string {
	total := int(d / time.Minute)
	days, hours, minutes := total/(24*60), total/60%24, total%60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}

// History returns up to the last 1000 samples within period, oldest first.
// An empty period, "all", or one that does not parse returns everything.
func (s *MetricsService) History(ctx context.Context, period string) ([]domain.MetricsSample, error) {
	var since time.Time
	d, err := ParsePeriod(period)
	if err != nil {
		log.Printf("[metrics] %v; returning full history", err)
	} else if d > 0 {
		since = s.now().Add(-d)
	}
	return s.storage.ListMetricsSamplesSince(ctx, since, MaxMetricsHistory)
}

var periodUnits = map[string]time.Duration{
	"s": time.Second, "sec": time.Second, "secs": time.Second, "second": time.Second, "seconds": time.Second,
	"m": time.Minute, "min": time.Minute, "mins": time.Minute, "minute": time.Minute, "minutes": time.Minute,
	"h": time.Hour, "hr": time.Hour, "hrs": time.Hour, "hour": time.Hour, "hours": time.Hour,
	"d": 24 * time.Hour, "day": 24 * time.Hour, "days": 24 * time.Hour,
	"w": 7 * 24 * time.Hour, "wk": 7 * 24 * time.Hour, "week": 7 * 24 * time.Hour, "weeks": 7 * 24 * time.Hour,
	"mo": 30 * 24 * time.Hour, "month": 30 * 24 * time.Hour, "months": 30 * 24 * time.Hour,
	"y": 365 * 24 * time.Hour, "yr": 365 * 24 * time.Hour, "year": 365 * 24 * time.Hour, "years": 365 * 24 * time.Hour,
}

// ParsePeriod reads "1 hour", "30 days", "2w" or a Go duration such as
// "90m". Empty and "all" return zero.
func ParsePeriod(period string) (time.Duration, error) {
	p := strings.ToLower(strings.TrimSpace(period))
	if p == "" || p == "all" {
		return 0, nil
	}
	if d, err := time.ParseDuration(p); err == nil && d > 0 {
		return d, nil
	}

	num := strings.TrimRightFunc(p, unicode.IsLetter)
	unit := p[len(num):]
	num = strings.TrimSpace(num)
	n, err := strconv.ParseFloat(num, 64)
	step, ok := periodUnits[unit]
	if err != nil || !ok || n <= 0 {
		return 0, fmt.Errorf("could not parse period %q", period)
	}
	return time.Duration(n * float64(step)), nil
}

// Run samples the host every widgets.metrics.interval seconds until ctx is
// done. Each sample is stored, checked against alerts.rules and old
// samples beyond the retention are pruned.
func (s *MetricsService) Run(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		log.Println("[metrics] collector already running")
		return
	}
	defer s.running.Store(false)

	interval := time.Duration(s.config.Snapshot().Widgets.Metrics.Interval) * time.Second
	if interval <= 0 {
		interval = defaultMetricsInterval
	}
	log.Printf("[metrics] collecting every %s", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Println("[metrics] collector stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *MetricsService) tick(ctx context.Context) {
	snap, err := s.collect(ctx)
	if err != nil {
		log.Printf("[metrics] %v", err)
		return
	}

	sample := snap.Sample("daemon")
	if err := s.storage.AddMetricsSample(ctx, &sample); err != nil {
		log.Printf("[metrics] record sample: %v", err)
	}

	cfg := s.config.Snapshot()
	CheckAlerts(snap, cfg.Alerts.Rules)

	if days := cfg.Widgets.Metrics.RetentionDays; days > 0 {
		n, err := s.storage.PruneMetricsSamples(ctx, s.now().AddDate(0, 0, -days))
		if err != nil {
			log.Printf("[metrics] prune: %v", err)
		} else if n > 0 {
			log.Printf("[metrics] pruned %d sample(s) older than %d days", n, days)
		}
	}
}

// Alert is a rule whose threshold the current value exceeds.
type Alert struct {
	Rule        string
	Value       float64
	Threshold   float64
	Description string
}

// CheckAlerts compares snap against rules and logs every value above its
// threshold. Rules without a threshold or with an unknown name are skipped.
func CheckAlerts(snap *domain.HostSnapshot, rules map[string]config.AlertRule) []Alert {
	if len(rules) == 0 {
		return nil
	}

	var temp, storagePct float64
	if snap.HasTemp {
		temp = snap.TempC
	}
	if snap.HasStorage {
		storagePct = snap.StoragePercent
	}
	checks := map[string]struct {
		value float64
		desc  string
	}{
		"high_load":   {snap.Load[0], fmt.Sprintf("CPU load: %.2f", snap.Load[0])},
		"high_memory": {snap.MemPercent, fmt.Sprintf("Memory usage: %.1f%%", snap.MemPercent)},
		"high_temp":   {temp, fmt.Sprintf("Temperature: %.1f°C", temp)},
		"low_disk":    {snap.DiskPercent, fmt.Sprintf("Disk usage: %.1f%%", snap.DiskPercent)},
		"low_storage": {storagePct, fmt.Sprintf("Storage usage: %.1f%%", storagePct)},
	}

	names := make([]string, 0, len(rules))
	for name := range rules {
		names = append(names, name)
	}
	sort.Strings(names)

	var alerts []Alert
	for _, name := range names {
		rule := rules[name]
		check, ok := checks[name]
		if !ok || rule.Threshold == nil {
			continue
		}
		if check.value > *rule.Threshold {
			a := Alert{Rule: name, Value: check.value, Threshold: *rule.Threshold, Description: check.desc}
			log.Printf("[metrics] alert %s: %s > %g", a.Rule, a.Description, a.Threshold)
			alerts = append(alerts, a)
		}
	}
	return alerts
}
