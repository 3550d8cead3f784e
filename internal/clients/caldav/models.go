package caldav

import "time"

// Calendar represents a calendar collection on the server
type Calendar struct {
	ID          string // Calendar path/URL
	DisplayName string
	URL         string
}

// Event is an all-day expiry event
type Event struct {
	UID         string // Unique ID in CalDAV
	Summary     string // Title
	Description string
	URL         string
	Date        time.Time
	Reminders   []Reminder
}

// Reminder represents an event alarm
type Reminder struct {
	MinutesBefore int
}
