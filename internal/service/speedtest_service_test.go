package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tazhate/monitorat/config"
	"github.com/tazhate/monitorat/internal/storage"
)

const speedtestJSON = `{"download": 93456789.5, "upload": 21000000.0, "ping": 14.237,
 "server": {"id": "1234", "sponsor": "Example, Inc"}, "timestamp": "2026-02-28T20:15:00.123456Z"}`

func newSpeedtestService(t *testing.T, run CommandRunner, timeout int) *SpeedtestService {
	t.Helper()
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		Speedtest: config.SpeedtestConfig{Command: "speedtest-cli", Timeout: timeout},
		Location:  time.UTC,
	}
	svc := NewSpeedtestService(config.NewStaticProvider(cfg), db, run)
	svc.now = func() time.Time { return now }
	return svc
}

func TestSpeedtestRun(t *testing.T) {
	var gotName string
	var gotArgs []string
	run := func(ctx context.Context, name string, args ...string) ([]byte, error) {
		gotName, gotArgs = name, args
		return []byte(speedtestJSON), nil
	}
	svc := newSpeedtestService(t, run, 100)

	res, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if gotName != "speedtest-cli" || len(gotArgs) != 1 || gotArgs[0] != "--json" {
		t.Errorf("ran %s %v", gotName, gotArgs)
	}
	if res.Server != "Example  Inc" || res.ServerID != "1234" || res.Ping != 14.237 {
		t.Errorf("res = %+v", res)
	}

	history, err := svc.History(context.Background(), 0)
	if err != nil || len(history) != 1 {
		t.Fatalf("History = %v, %v", history, err)
	}
}

func TestSpeedtestRunFailure(t *testing.T) {
	run := func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return nil, errors.New("speedtest-cli: cannot retrieve config")
	}
	svc := newSpeedtestService(t, run, 100)

	if _, err := svc.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestSpeedtestRunTimeout(t *testing.T) {
	run := func(ctx context.Context, name string, args ...string) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	svc := newSpeedtestService(t, run, 1)

	_, err := svc.Run(context.Background())
	if !errors.Is(err, ErrSpeedtestTimeout) {
		t.Fatalf("err = %v, want ErrSpeedtestTimeout", err)
	}
}

func TestSpeedtestRunEmptyOutput(t *testing.T) {
	run := func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte("  \n"), nil
	}
	if _, err := newSpeedtestService(t, run, 100).Run(context.Background()); err == nil {
		t.Fatal("expected error for empty output")
	}
}

func TestSpeedtestChart(t *testing.T) {
	run := func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte(speedtestJSON), nil
	}
	svc := newSpeedtestService(t, run, 100)
	if _, err := svc.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	chart, err := svc.Chart(context.Background(), 30)
	if err != nil {
		t.Fatalf("Chart: %v", err)
	}
	if len(chart.Labels) != 1 || chart.Labels[0] != "02/28 20:15" {
		t.Errorf("labels = %v", chart.Labels)
	}
	if len(chart.Datasets) != 3 {
		t.Fatalf("got %d datasets", len(chart.Datasets))
	}
	if chart.Datasets[0].Data[0] != 93.46 || chart.Datasets[1].Data[0] != 21 || chart.Datasets[2].Data[0] != 14.2 {
		t.Errorf("data = %v %v %v", chart.Datasets[0].Data, chart.Datasets[1].Data, chart.Datasets[2].Data)
	}

	svc.now = func() time.Time { return now.AddDate(0, 1, 0) }
	chart, _ = svc.Chart(context.Background(), 7)
	if len(chart.Labels) != 0 {
		t.Errorf("old result included in 7 day chart")
	}
	chart, _ = svc.Chart(context.Background(), 0)
	if len(chart.Labels) != 1 {
		t.Errorf("full history chart has %d points", len(chart.Labels))
	}
}

func TestClampers(t *testing.T) {
	limits := map[int]int{0: 200, -4: 1, 5: 5, 5000: 1000}
	for in, want := range limits {
		if got := ClampHistoryLimit(in); got != want {
			t.Errorf("ClampHistoryLimit(%d) = %d, want %d", in, got, want)
		}
	}
	days := map[int]int{-1: 0, 0: 30, -7: 1, 90: 90, 1000: 365}
	for in, want := range days {
		if got := ClampChartDays(in); got != want {
			t.Errorf("ClampChartDays(%d) = %d, want %d", in, got, want)
		}
	}
}
