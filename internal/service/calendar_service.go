package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/emersion/go-ical"
	"github.com/tazhate/monitorat/internal/clients/caldav"
	"github.com/tazhate/monitorat/internal/domain"
	"github.com/tazhate/monitorat/internal/notify"
	"github.com/tazhate/monitorat/internal/storage"
)

// alarmMinutes is how long before the expiry day the mirrored event alerts.
const alarmMinutes = 24 * 60

// CalendarMirror is the subset of the CalDAV client the mirror needs.
type CalendarMirror interface {
	IsConfigured() bool
	PutEvent(ctx context.Context, event *caldav.Event) (string, error)
	DeleteEvent(ctx context.Context, eventPath string) error
}

// CalendarService publishes reminder expiry dates as calendar events.
type CalendarService struct {
	storage *storage.Storage
	now     func() time.Time

	mu     sync.RWMutex
	client CalendarMirror
}

func NewCalendarService(s *storage.Storage, client CalendarMirror) *CalendarService {
	return &CalendarService{
		storage: s,
		client:  client,
		now:     time.Now,
	}
}

// SetClient swaps the CalDAV client after a configuration reload.
func (s *CalendarService) SetClient(client CalendarMirror) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client = client
}

func (s *CalendarService) mirror() CalendarMirror {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client
}

// IsConfigured returns true if CalDAV mirroring is enabled
func (s *CalendarService) IsConfigured() bool {
	client := s.mirror()
	return client != nil && client.IsConfigured()
}

// SyncResult contains sync operation results
type SyncResult struct {
	Added   int
	Updated int
	Deleted int
	Errors  []string
}

// ExpiryEvent returns the all-day event for a touched reminder, or nil.
func ExpiryEvent(st domain.ReminderStatus, baseURL string) *caldav.Event {
	expires := st.ExpiresAt()
	if expires == nil {
		return nil
	}
	touch := notify.TouchURL(baseURL, st.ID)
	return &caldav.Event{
		UID:         caldav.EventUID(st.ID),
		Summary:     st.Name + " expires",
		Description: "Touch to refresh: " + touch,
		URL:         touch,
		Date:        *expires,
		Reminders:   []caldav.Reminder{{MinutesBefore: alarmMinutes}},
	}
}

// Feed builds an iCalendar feed with one event per touched reminder.
func (s *CalendarService) Feed(statuses []domain.ReminderStatus, baseURL string) *ical.Calendar {
	cal := caldav.NewCalendar()
	stamp := s.now()
	for _, st := range statuses {
		if ev := ExpiryEvent(st, baseURL); ev != nil {
			cal.Children = append(cal.Children, caldav.EventComponent(ev, stamp))
		}
	}
	return cal
}

// Mirror writes expiry events to the CalDAV calendar and removes events
// of reminders that are gone or no longer touched. Unchanged events are
// skipped.
func (s *CalendarService) Mirror(ctx context.Context, statuses []domain.ReminderStatus, baseURL string) (*SyncResult, error) {
	client := s.mirror()
	if client == nil || !client.IsConfigured() {
		return nil, fmt.Errorf("CalDAV not configured")
	}

	entries, err := s.storage.ListCalendarEntries(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[string]domain.CalendarEntry, len(entries))
	for _, e := range entries {
		known[e.ReminderID] = e
	}

	result := &SyncResult{}
	keep := make(map[string]bool)

	for _, st := range statuses {
		ev := ExpiryEvent(st, baseURL)
		if ev == nil {
			continue
		}
		keep[st.ID] = true

		day := dateOnly(ev.Date)
		prev, exists := known[st.ID]
		if exists && dateOnly(prev.ExpiresOn).Equal(day) {
			continue
		}

		href, err := client.PutEvent(ctx, ev)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", st.ID, err))
			continue
		}

		entry := &domain.CalendarEntry{
			ReminderID: st.ID,
			UID:        ev.UID,
			Href:       href,
			ExpiresOn:  day,
			SyncedAt:   s.now().UTC(),
		}
		if err := s.storage.UpsertCalendarEntry(ctx, entry); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", st.ID, err))
			continue
		}

		if exists {
			result.Updated++
		} else {
			result.Added++
		}
	}

	for id, e := range known {
		if keep[id] {
			continue
		}
		if err := client.DeleteEvent(ctx, e.Href); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", id, err))
			continue
		}
		if err := s.storage.DeleteCalendarEntry(ctx, id); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", id, err))
			continue
		}
		result.Deleted++
	}

	log.Printf("[calendar] mirror: %d added, %d updated, %d deleted, %d errors",
		result.Added, result.Updated, result.Deleted, len(result.Errors))
	return result, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
