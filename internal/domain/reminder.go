package domain

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultExpiryDays = 90
	DefaultIcon       = "default.png"

	// Band used when the respective threshold set is empty.
	DefaultBandMin = 0
	DefaultBandMax = 14
)

type Status string

const (
	StatusNever   Status = "never"
	StatusOK      Status = "ok"
	StatusWarning Status = "warning"
	StatusExpired Status = "expired"
)

// Definition is a tracked credential or resource as configured.
type Definition struct {
	ID         string
	Name       string
	URL        string
	Icon       string
	Reason     string
	ExpiryDays int
}

// Policy holds the reminder settings shared by every definition.
type Policy struct {
	Nudges  []int
	Urgents []int
	Time    string   // "HH:MM", local to the configured timezone
	Targets []string // notification target URLs
}

func (p Policy) IsNudge(days int) bool  { return slices.Contains(p.Nudges, days) }
func (p Policy) IsUrgent(days int) bool { return slices.Contains(p.Urgents, days) }

// Band returns the (min, max] range of days remaining classified as warning.
func (p Policy) Band() (int, int) {
	lo, hi := DefaultBandMin, DefaultBandMax
	if len(p.Urgents) > 0 {
		lo = slices.Min(p.Urgents)
	}
	if len(p.Nudges) > 0 {
		hi = slices.Max(p.Nudges)
	}
	return lo, hi
}

type Computed struct {
	Status        Status
	DaysSince     *int
	DaysRemaining *int
}

// Classify derives the staleness of a definition touched at lastTouch.
// A nil lastTouch means the definition was never touched.
func Classify(def Definition, lastTouch *time.Time, policy Policy, now time.Time) Computed {
	if lastTouch == nil {
		return Computed{Status: StatusNever}
	}

	since := floorDays(now.Sub(*lastTouch))
	remaining := def.ExpiryDays - since
	lo, hi := policy.Band()

	status := StatusOK
	switch {
	case remaining <= 0:
		status = StatusExpired
	case lo < remaining && remaining <= hi:
		status = StatusWarning
	}

	return Computed{
		Status:        status,
		DaysSince:     &since,
		DaysRemaining: &remaining,
	}
}

func floorDays(d time.Duration) int {
	days := d / (24 * time.Hour)
	if d < 0 && d%(24*time.Hour) != 0 {
		days--
	}
	return int(days)
}

// ReminderStatus is a definition together with its computed state.
type ReminderStatus struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	URL           string     `json:"url"`
	Icon          string     `json:"icon"`
	Reason        string     `json:"reason"`
	ExpiryDays    int        `json:"expiry_days"`
	LastTouch     *time.Time `json:"last_touch"`
	DaysSince     *int       `json:"days_since"`
	DaysRemaining *int       `json:"days_remaining"`
	Status        Status     `json:"status"`
}

func NewReminderStatus(def Definition, lastTouch *time.Time, c Computed) ReminderStatus {
	return ReminderStatus{
		ID:            def.ID,
		Name:          def.Name,
		URL:           def.URL,
		Icon:          def.Icon,
		Reason:        def.Reason,
		ExpiryDays:    def.ExpiryDays,
		LastTouch:     lastTouch,
		DaysSince:     c.DaysSince,
		DaysRemaining: c.DaysRemaining,
		Status:        c.Status,
	}
}

// ExpiresAt returns when the reminder runs out, or nil if never touched.
func (r ReminderStatus) ExpiresAt() *time.Time {
	if r.LastTouch == nil {
		return nil
	}
	t := r.LastTouch.AddDate(0, 0, r.ExpiryDays)
	return &t
}

func (r ReminderStatus) StatusEmoji() string {
	switch r.Status {
	case StatusOK:
		return "🟢"
	case StatusWarning:
		return "🟠"
	case StatusExpired:
		return "🔴"
	default:
		return "⚪"
	}
}

// Priority follows the numeric scale used by push services.
type Priority int

const (
	PriorityLow    Priority = -1
	PriorityNormal Priority = 0
	PriorityHigh   Priority = 1
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "Low"
	case PriorityNormal:
		return "Normal"
	case PriorityHigh:
		return "High"
	default:
		return "Unknown"
	}
}

// ParsePriority accepts "-1", "0", "1" or "low", "normal", "high".
func ParsePriority(s string) (Priority, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", "normal":
		return PriorityNormal, nil
	case "low":
		return PriorityLow, nil
	case "high":
		return PriorityHigh, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < -1 || n > 1 {
		return PriorityNormal, fmt.Errorf("invalid priority: %q", s)
	}
	return Priority(n), nil
}
