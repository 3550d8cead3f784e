package domain

import "time"

// CalendarEntry tracks the CalDAV object mirrored for one reminder.
type CalendarEntry struct {
	ReminderID string    `db:"reminder_id"`
	UID        string    `db:"caldav_uid"`
	Href       string    `db:"href"`
	ExpiresOn  time.Time `db:"expires_on"`
	SyncedAt   time.Time `db:"synced_at"`
}
