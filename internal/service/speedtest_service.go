package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strings"
	"time"

	"github.com/tazhate/monitorat/config"
	"github.com/tazhate/monitorat/internal/domain"
	"github.com/tazhate/monitorat/internal/storage"
)

const (
	DefaultHistoryLimit = 200
	MaxHistoryLimit     = 1000
	DefaultChartDays    = 30
	MaxChartDays        = 365
)

// CommandRunner runs an external command and returns its stdout.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec. A non-zero exit returns stderr as
// the error text.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return stdout.Bytes(), fmt.Errorf("%s: %s", name, msg)
		}
		return stdout.Bytes(), fmt.Errorf("%s: %w", name, err)
	}
	return stdout.Bytes(), nil
}

var ErrSpeedtestTimeout = errors.New("speedtest timed out")

type SpeedtestService struct {
	config  *config.Provider
	storage *storage.Storage
	run     CommandRunner
	now     func() time.Time
}

func NewSpeedtestService(cfg *config.Provider, s *storage.Storage, run CommandRunner) *SpeedtestService {
	if run == nil {
		run = ExecRunner
	}
	return &SpeedtestService{config: cfg, storage: s, run: run, now: time.Now}
}

type speedtestOutput struct {
	Timestamp string  `json:"timestamp"`
	Download  float64 `json:"download"`
	Upload    float64 `json:"upload"`
	Ping      float64 `json:"ping"`
	Server    struct {
		ID      json.RawMessage `json:"id"`
		Sponsor string          `json:"sponsor"`
	} `json:"server"`
}

// Run executes the speed test command and stores the result.
func (s *SpeedtestService) Run(ctx context.Context) (*domain.SpeedtestResult, error) {
	cfg := s.config.Snapshot().Speedtest
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 100 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := s.run(ctx, cfg.Command, "--json")
	if ctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("%w after %d seconds", ErrSpeedtestTimeout, int(timeout.Seconds()))
	}
	if err != nil {
		return nil, fmt.Errorf("run speedtest: %w", err)
	}

	result, err := parseSpeedtest(out, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.storage.AddSpeedtestResult(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

func parseSpeedtest(out []byte, fallback time.Time) (*domain.SpeedtestResult, error) {
	out = bytes.TrimSpace(out)
	if len(out) == 0 {
		return nil, fmt.Errorf("no data returned")
	}

	var raw speedtestOutput
	if err := json.Unmarshal(out, &raw); err != nil {
		return nil, fmt.Errorf("parse speedtest output: %w", err)
	}

	ts := fallback
	if raw.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("parse speedtest timestamp: %w", err)
		}
		ts = parsed
	}

	return &domain.SpeedtestResult{
		Timestamp: ts,
		Download:  raw.Download,
		Upload:    raw.Upload,
		Ping:      raw.Ping,
		Server:    strings.ReplaceAll(raw.Server.Sponsor, ",", " "),
		ServerID:  strings.Trim(string(raw.Server.ID), `"`),
	}, nil
}

// History returns the latest results, newest first. limit is clamped to
// 1..1000; zero means the default of 200.
func (s *SpeedtestService) History(ctx context.Context, limit int) ([]domain.SpeedtestResult, error) {
	return s.storage.ListSpeedtestResults(ctx, ClampHistoryLimit(limit))
}

func ClampHistoryLimit(limit int) int {
	if limit == 0 {
		limit = DefaultHistoryLimit
	}
	return max(1, min(limit, MaxHistoryLimit))
}

// ClampChartDays maps -1 to 0 (all history) and clamps the rest to 1..365.
func ClampChartDays(days int) int {
	if days == -1 {
		return 0
	}
	if days == 0 {
		days = DefaultChartDays
	}
	return max(1, min(days, MaxChartDays))
}

type ChartDataset struct {
	Label           string    `json:"label"`
	Data            []float64 `json:"data"`
	BorderColor     string    `json:"borderColor"`
	BackgroundColor string    `json:"backgroundColor"`
	Tension         float64   `json:"tension"`
	YAxisID         string    `json:"yAxisID"`
}

type Chart struct {
	Labels   []string       `json:"labels"`
	Datasets []ChartDataset `json:"datasets"`
}

// Chart returns the results of the last days days ready for Chart.js.
// days of 0 returns the full history.
func (s *SpeedtestService) Chart(ctx context.Context, days int) (*Chart, error) {
	var since time.Time
	if days > 0 {
		since = s.now().AddDate(0, 0, -days)
	}

	results, err := s.storage.ListSpeedtestResultsSince(ctx, since)
	if err != nil {
		return nil, err
	}

	loc := s.config.Snapshot().Location
	if loc == nil {
		loc = time.Local
	}

	chart := &Chart{Labels: []string{}}
	download := ChartDataset{Label: "Download (Mbps)", Data: []float64{}, BorderColor: "#3b82f6", BackgroundColor: "rgba(59, 130, 246, 0.1)", Tension: 0.1, YAxisID: "speed"}
	upload := ChartDataset{Label: "Upload (Mbps)", Data: []float64{}, BorderColor: "#ef4444", BackgroundColor: "rgba(239, 68, 68, 0.1)", Tension: 0.1, YAxisID: "speed"}
	ping := ChartDataset{Label: "Ping (ms)", Data: []float64{}, BorderColor: "#10b981", BackgroundColor: "rgba(16, 185, 129, 0.1)", Tension: 0.1, YAxisID: "ping"}

	for _, r := range results {
		chart.Labels = append(chart.Labels, r.Timestamp.In(loc).Format("01/02 15:04"))
		download.Data = append(download.Data, round(r.DownloadMbps(), 2))
		upload.Data = append(upload.Data, round(r.UploadMbps(), 2))
		ping.Data = append(ping.Data, round(r.Ping, 1))
	}

	chart.Datasets = []ChartDataset{download, upload, ping}
	return chart, nil
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
