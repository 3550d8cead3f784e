package scheduler

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/tazhate/monitorat/config"
	"github.com/tazhate/monitorat/internal/service"
)

// Scheduler runs the daily reminder check at reminders.time. It owns a
// single cron entry that is replaced on every configuration reload.
type Scheduler struct {
	cron            *cron.Cron
	config          *config.Provider
	reminderService *service.ReminderService
	calendarService *service.CalendarService
	job             func(ctx context.Context)

	mu       sync.Mutex
	running  bool
	ctx      context.Context
	cancel   context.CancelFunc
	entry    cron.EntryID
	hasEntry bool
}

func New(cfg *config.Provider, reminderSvc *service.ReminderService, calendarSvc *service.CalendarService) *Scheduler {
	logger := cron.VerbosePrintfLogger(log.New(os.Stderr, "[scheduler] ", log.LstdFlags))
	c := cron.New(
		cron.WithSeconds(),
		cron.WithLocation(cfg.Snapshot().Location),
		cron.WithChain(cron.Recover(logger)),
	)

	s := &Scheduler{
		cron:            c,
		config:          cfg,
		reminderService: reminderSvc,
		calendarService: calendarSvc,
	}
	s.job = s.dailyCheck

	cfg.OnReload(func(next *config.Config) {
		s.Reschedule(next)
	})
	return s
}

// Start schedules the daily check and starts the cron loop. Calling Start
// on a running scheduler does nothing. Jobs get a context that Stop
// cancels; a later Start gets a fresh one.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.mu.Unlock()

	s.Reschedule(s.config.Snapshot())
	s.cron.Start()
	log.Printf("[scheduler] started")
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Stop halts the cron loop and waits for a running check to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("[scheduler] stopped")
}

// Reschedule drops the current daily entry and registers a new one at
// cfg's reminders.time. A missing or malformed time leaves nothing
// scheduled until the next successful reload.
func (s *Scheduler) Reschedule(cfg *config.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hasEntry {
		s.cron.Remove(s.entry)
		s.hasEntry = false
	}

	spec, err := dailySpec(cfg)
	if err != nil {
		log.Printf("[scheduler] %v; daily check not scheduled", err)
		return err
	}

	id, err := s.cron.AddFunc(spec, s.runJob)
	if err != nil {
		log.Printf("[scheduler] add daily check %q: %v", spec, err)
		return fmt.Errorf("add daily check: %w", err)
	}
	s.entry = id
	s.hasEntry = true

	log.Printf("[scheduler] daily check at %s (%s)", cfg.Reminders.Time, spec)
	return nil
}

// NextRun reports when the daily check fires next.
func (s *Scheduler) NextRun(after time.Time) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasEntry {
		return time.Time{}, false
	}
	entry := s.cron.Entry(s.entry)
	if !entry.Valid() {
		return time.Time{}, false
	}
	return entry.Schedule.Next(after), true
}

// RunNow runs the daily check synchronously.
func (s *Scheduler) RunNow(ctx context.Context) {
	s.job(ctx)
}

func (s *Scheduler) runJob() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	s.job(ctx)
}

// dailySpec builds a seconds-first cron spec. The zone is embedded so a
// reloaded timezone applies without rebuilding the cron.
func dailySpec(cfg *config.Config) (string, error) {
	h, m, sec, err := config.ParseClock(cfg.Reminders.Time)
	if err != nil {
		return "", err
	}
	zone := "Local"
	if cfg.Location != nil {
		zone = cfg.Location.String()
	}
	return fmt.Sprintf("CRON_TZ=%s %d %d %d * * *", zone, sec, m, h), nil
}

func (s *Scheduler) dailyCheck(ctx context.Context) {
	log.Printf("[scheduler] daily check start")

	res, err := s.reminderService.Sweep(ctx)
	if err != nil {
		log.Printf("[scheduler] reminder sweep: %v", err)
		return
	}

	if s.calendarService != nil && s.calendarService.IsConfigured() {
		cfg := s.config.Snapshot()
		if _, err := s.calendarService.Mirror(ctx, res.Statuses, cfg.BaseURL()); err != nil {
			log.Printf("[scheduler] calendar mirror: %v", err)
		}
	}

	log.Printf("[scheduler] daily check end: %d checked, %d notified", res.Checked, res.Notified)
}
