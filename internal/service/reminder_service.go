package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/tazhate/monitorat/config"
	"github.com/tazhate/monitorat/internal/domain"
	"github.com/tazhate/monitorat/internal/notify"
	"github.com/tazhate/monitorat/internal/storage"
)

type ReminderService struct {
	config     *config.Provider
	store      *storage.TouchStore
	dispatcher *notify.Dispatcher
	now        func() time.Time
}

func NewReminderService(cfg *config.Provider, store *storage.TouchStore, dispatcher *notify.Dispatcher) *ReminderService {
	return &ReminderService{
		config:     cfg,
		store:      store,
		dispatcher: dispatcher,
		now:        time.Now,
	}
}

// SweepResult summarises one daily check.
type SweepResult struct {
	Checked  int
	Notified int
	Removed  []string
	Statuses []domain.ReminderStatus
}

// ListStatus classifies every configured reminder, sorted by id. Orphaned
// touch records are pruned first.
func (s *ReminderService) ListStatus() ([]domain.ReminderStatus, error) {
	statuses, _, err := s.evaluate(s.config.Snapshot())
	return statuses, err
}

// Status returns a single reminder.
func (s *ReminderService) Status(id string) (domain.ReminderStatus, error) {
	cfg := s.config.Snapshot()
	def, ok := cfg.Definition(id)
	if !ok {
		return domain.ReminderStatus{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	last, err := s.store.Get(id)
	if err != nil {
		return domain.ReminderStatus{}, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	c := domain.Classify(def, last, cfg.Policy(), s.now())
	return domain.NewReminderStatus(def, last, c), nil
}

// Touch records now as the last touch of id and returns its definition.
func (s *ReminderService) Touch(id string) (domain.Definition, error) {
	def, ok := s.config.Snapshot().Definition(id)
	if !ok {
		return domain.Definition{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if err := s.store.Touch(id, s.now()); err != nil {
		return domain.Definition{}, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	log.Printf("[reminders] touched %s", id)
	return def, nil
}

// SendTestNotification sends the test message to every target.
func (s *ReminderService) SendTestNotification(ctx context.Context, p domain.Priority) notify.Result {
	cfg := s.config.Snapshot()
	res := s.dispatcher.Broadcast(ctx, cfg.Reminders.AppriseURLs, notify.TestMessage(cfg.Site.Name, p))
	log.Printf("[reminders] test notification (%s): %d attempted, %d failed", p, res.Attempted, res.Failed)
	return res
}

// NotifyNow sends the alert for id immediately, whether or not today is a
// configured nudge or urgent day.
func (s *ReminderService) NotifyNow(ctx context.Context, id string) (notify.Result, error) {
	st, err := s.Status(id)
	if err != nil {
		return notify.Result{}, err
	}
	if st.DaysRemaining == nil {
		return notify.Result{}, fmt.Errorf("%w: %s", ErrNeverTouched, id)
	}

	cfg := s.config.Snapshot()
	msg, _ := notify.Compose(st, cfg.Policy(), cfg.BaseURL())
	return s.dispatcher.Broadcast(ctx, cfg.Reminders.AppriseURLs, msg), nil
}

// Sweep reconciles the store and dispatches alerts for reminders whose days
// remaining match a configured nudge or urgent day. One failing reminder
// does not stop the others.
func (s *ReminderService) Sweep(ctx context.Context) (SweepResult, error) {
	cfg := s.config.Snapshot()

	statuses, removed, err := s.evaluate(cfg)
	if err != nil {
		return SweepResult{}, err
	}

	res := SweepResult{Removed: removed, Statuses: statuses}
	policy := cfg.Policy()
	for _, st := range statuses {
		res.Checked++
		if s.notifyOne(ctx, st, policy, cfg.BaseURL()) {
			res.Notified++
		}
	}

	log.Printf("[reminders] sweep: %d checked, %d notified", res.Checked, res.Notified)
	return res, nil
}

func (s *ReminderService) notifyOne(ctx context.Context, st domain.ReminderStatus, policy domain.Policy, baseURL string) (sent bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[reminders] %s: notify panicked: %v", st.ID, r)
			sent = false
		}
	}()
	return s.dispatcher.Notify(ctx, st, policy, baseURL).Sent()
}

func (s *ReminderService) evaluate(cfg *config.Config) ([]domain.ReminderStatus, []string, error) {
	defs := cfg.Definitions()
	if len(defs) == 0 {
		return []domain.ReminderStatus{}, nil, nil
	}

	ids := make(map[string]struct{}, len(defs))
	for _, d := range defs {
		ids[d.ID] = struct{}{}
	}
	removed, err := Reconcile(s.store, ids)
	if err != nil {
		return nil, nil, err
	}

	touches, err := s.store.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	now := s.now()
	policy := cfg.Policy()
	statuses := make([]domain.ReminderStatus, 0, len(defs))
	for _, def := range defs {
		var last *time.Time
		if t, ok := touches[def.ID]; ok {
			last = &t
		}
		statuses = append(statuses, domain.NewReminderStatus(def, last, domain.Classify(def, last, policy, now)))
	}
	return statuses, removed, nil
}
