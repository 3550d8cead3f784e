package storage

import (
	"context"
	"fmt"

	"github.com/tazhate/monitorat/internal/domain"
)

// === Calendar mirror ===

func (s *Storage) UpsertCalendarEntry(ctx context.Context, e *domain.CalendarEntry) error {
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO calendar_events (reminder_id, caldav_uid, href, expires_on, synced_at)
		 VALUES (:reminder_id, :caldav_uid, :href, :expires_on, :synced_at)
		 ON CONFLICT(reminder_id) DO UPDATE SET
			caldav_uid = excluded.caldav_uid,
			href = excluded.href,
			expires_on = excluded.expires_on,
			synced_at = excluded.synced_at`,
		e,
	)
	if err != nil {
		return fmt.Errorf("upsert calendar entry: %w", err)
	}
	return nil
}

func (s *Storage) ListCalendarEntries(ctx context.Context) ([]domain.CalendarEntry, error) {
	entries := []domain.CalendarEntry{}
	err := s.db.SelectContext(ctx, &entries,
		`SELECT reminder_id, caldav_uid, href, expires_on, synced_at
		 FROM calendar_events ORDER BY reminder_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list calendar entries: %w", err)
	}
	return entries, nil
}

func (s *Storage) DeleteCalendarEntry(ctx context.Context, reminderID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM calendar_events WHERE reminder_id = ?`, reminderID)
	if err != nil {
		return fmt.Errorf("delete calendar entry: %w", err)
	}
	return nil
}
