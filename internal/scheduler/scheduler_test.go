package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/tazhate/monitorat/config"
)

func newTestScheduler(t *testing.T, at string) (*Scheduler, *config.Provider) {
	t.Helper()
	cfg := &config.Config{Location: time.UTC}
	cfg.Reminders.Time = at
	p := config.NewStaticProvider(cfg)
	s := New(p, nil, nil)
	s.job = func(context.Context) {}
	t.Cleanup(s.Stop)
	return s, p
}

func TestRescheduleKeepsOneEntry(t *testing.T) {
	s, p := newTestScheduler(t, "09:00")

	for i := 0; i < 3; i++ {
		if err := s.Reschedule(p.Snapshot()); err != nil {
			t.Fatalf("Reschedule: %v", err)
		}
	}
	if n := len(s.cron.Entries()); n != 1 {
		t.Errorf("got %d entries, want 1", n)
	}
}

func TestRescheduleInvalidTime(t *testing.T) {
	s, p := newTestScheduler(t, "09:00")
	if err := s.Reschedule(p.Snapshot()); err != nil {
		t.Fatal(err)
	}

	for _, bad := range []string{"", "9am", "25:00", "09:60"} {
		cfg := *p.Snapshot()
		cfg.Reminders.Time = bad
		if err := s.Reschedule(&cfg); err == nil {
			t.Errorf("Reschedule(%q) succeeded", bad)
		}
		if n := len(s.cron.Entries()); n != 0 {
			t.Errorf("Reschedule(%q) left %d entries", bad, n)
		}
		if _, ok := s.NextRun(time.Now()); ok {
			t.Errorf("NextRun reported a run after %q", bad)
		}
	}
}

func TestNextRun(t *testing.T) {
	s, p := newTestScheduler(t, "09:30:15")
	if err := s.Reschedule(p.Snapshot()); err != nil {
		t.Fatal(err)
	}

	after := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	next, ok := s.NextRun(after)
	if !ok {
		t.Fatal("no next run")
	}
	want := time.Date(2026, 3, 2, 9, 30, 15, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}
}

func TestNextRunUsesConfiguredZone(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skip("tzdata not available")
	}
	s, p := newTestScheduler(t, "08:00")
	cfg := *p.Snapshot()
	cfg.Location = loc
	if err := s.Reschedule(&cfg); err != nil {
		t.Fatal(err)
	}

	next, ok := s.NextRun(time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC))
	if !ok {
		t.Fatal("no next run")
	}
	if want := time.Date(2026, 1, 10, 7, 0, 0, 0, time.UTC); !next.Equal(want) {
		t.Errorf("next = %v, want %v", next.UTC(), want)
	}
}

func TestReloadReschedules(t *testing.T) {
	s, p := newTestScheduler(t, "09:00")
	s.Start()

	cfg := *p.Snapshot()
	cfg.Reminders.Time = "18:45"
	p.Replace(&cfg)

	next, ok := s.NextRun(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	if !ok {
		t.Fatal("no next run after reload")
	}
	if next.Hour() != 18 || next.Minute() != 45 {
		t.Errorf("next = %v, want 18:45", next)
	}
	if n := len(s.cron.Entries()); n != 1 {
		t.Errorf("got %d entries after reload, want 1", n)
	}
}

func TestStartIdempotent(t *testing.T) {
	s, _ := newTestScheduler(t, "09:00")
	if s.IsRunning() {
		t.Fatal("running before Start")
	}

	s.Start()
	s.Start()
	if !s.IsRunning() {
		t.Fatal("not running after Start")
	}
	if n := len(s.cron.Entries()); n != 1 {
		t.Errorf("got %d entries, want 1", n)
	}

	s.Stop()
	if s.IsRunning() {
		t.Error("running after Stop")
	}
}

func TestRunNow(t *testing.T) {
	s, _ := newTestScheduler(t, "09:00")
	called := 0
	s.job = func(context.Context) { called++ }

	s.RunNow(context.Background())
	if called != 1 {
		t.Errorf("job ran %d times", called)
	}
}

func TestRestartGivesJobsLiveContext(t *testing.T) {
	s, _ := newTestScheduler(t, "09:00")
	var jobErr error
	s.job = func(ctx context.Context) { jobErr = ctx.Err() }

	s.Start()
	s.Stop()
	s.runJob()
	if jobErr == nil {
		t.Error("job after Stop got a live context")
	}

	s.Start()
	s.runJob()
	if jobErr != nil {
		t.Errorf("job after restart got a dead context: %v", jobErr)
	}
}
