package caldav

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"
)

const productID = "-//monitorat//Reminders//EN"

// uidNamespace scopes the name-based UUIDs of reminder events.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/tazhate/monitorat/reminders"))

// Client is a CalDAV client bound to one calendar collection
type Client struct {
	baseURL      string
	username     string
	password     string
	calendarPath string

	mu     sync.Mutex
	client *caldav.Client
}

// NewClient creates a new CalDAV client
func NewClient(baseURL, username, password, calendarPath string) *Client {
	return &Client{
		baseURL:      baseURL,
		username:     username,
		password:     password,
		calendarPath: calendarPath,
	}
}

// IsConfigured returns true if a server and a calendar are set
func (c *Client) IsConfigured() bool {
	return c.baseURL != "" && c.calendarPath != ""
}

// connect establishes connection to CalDAV server
func (c *Client) connect() (*caldav.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return c.client, nil
	}

	httpClient := &http.Client{
		Transport: &basicAuthTransport{
			username: c.username,
			password: c.password,
		},
		Timeout: 30 * time.Second,
	}

	client, err := caldav.NewClient(httpClient, c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to CalDAV: %w", err)
	}

	c.client = client
	return client, nil
}

// basicAuthTransport adds Basic Auth to HTTP requests
type basicAuthTransport struct {
	username string
	password string
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.username != "" {
		req.SetBasicAuth(t.username, t.password)
	}
	return http.DefaultTransport.RoundTrip(req)
}

// DiscoverCalendars returns all calendars for the user
func (c *Client) DiscoverCalendars(ctx context.Context) ([]Calendar, error) {
	client, err := c.connect()
	if err != nil {
		return nil, err
	}

	principal, err := client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, fmt.Errorf("find principal: %w", err)
	}

	homeSet, err := client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("find home set: %w", err)
	}

	cals, err := client.FindCalendars(ctx, homeSet)
	if err != nil {
		return nil, fmt.Errorf("find calendars: %w", err)
	}

	var result []Calendar
	for _, cal := range cals {
		result = append(result, Calendar{
			ID:          cal.Path,
			DisplayName: cal.Name,
			URL:         cal.Path,
		})
	}

	return result, nil
}

// PutEvent creates or replaces an event and returns its path
func (c *Client) PutEvent(ctx context.Context, event *Event) (string, error) {
	client, err := c.connect()
	if err != nil {
		return "", err
	}
	if c.calendarPath == "" {
		return "", fmt.Errorf("calendar path not specified")
	}

	eventPath := EventPath(c.calendarPath, event.UID)
	if _, err := client.PutCalendarObject(ctx, eventPath, EventToICS(event, time.Now())); err != nil {
		return "", fmt.Errorf("put event: %w", err)
	}

	return eventPath, nil
}

// DeleteEvent deletes the event stored at eventPath
func (c *Client) DeleteEvent(ctx context.Context, eventPath string) error {
	client, err := c.connect()
	if err != nil {
		return err
	}

	if err := client.RemoveAll(ctx, eventPath); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

func EventPath(calendarPath, uid string) string {
	if !strings.HasSuffix(calendarPath, "/") {
		calendarPath += "/"
	}
	return calendarPath + uid + ".ics"
}

// EventUID is stable for a reminder id so repeated syncs overwrite the
// same object.
func EventUID(reminderID string) string {
	return uuid.NewSHA1(uidNamespace, []byte(reminderID)).String()
}

// NewCalendar returns an empty VCALENDAR with the product headers set
func NewCalendar() *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	return cal
}

// EventToICS wraps a single event in a calendar
func EventToICS(event *Event, stamp time.Time) *ical.Calendar {
	cal := NewCalendar()
	cal.Children = append(cal.Children, EventComponent(event, stamp))
	return cal
}

// EventComponent converts an Event to a VEVENT
func EventComponent(event *Event, stamp time.Time) *ical.Component {
	vevent := ical.NewEvent()
	vevent.Props.SetText(ical.PropUID, event.UID)
	vevent.Props.SetText(ical.PropSummary, event.Summary)

	if event.Description != "" {
		vevent.Props.SetText(ical.PropDescription, event.Description)
	}
	if event.URL != "" {
		link := ical.NewProp(ical.PropURL)
		link.SetValueType(ical.ValueURI)
		link.Value = event.URL
		vevent.Props.Set(link)
	}

	// All-day: DTEND is the exclusive next day
	day := time.Date(event.Date.Year(), event.Date.Month(), event.Date.Day(), 0, 0, 0, 0, time.UTC)
	vevent.Props.SetDate(ical.PropDateTimeStart, day)
	vevent.Props.SetDate(ical.PropDateTimeEnd, day.AddDate(0, 0, 1))
	vevent.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())

	for _, r := range event.Reminders {
		alarm := ical.NewComponent(ical.CompAlarm)
		alarm.Props.SetText(ical.PropAction, "DISPLAY")
		alarm.Props.SetText(ical.PropDescription, event.Summary)
		trigger := ical.NewProp(ical.PropTrigger)
		trigger.SetValueType(ical.ValueDuration)
		trigger.Value = fmt.Sprintf("-PT%dM", r.MinutesBefore)
		alarm.Props.Set(trigger)
		vevent.Children = append(vevent.Children, alarm)
	}

	return vevent.Component
}

// SerializeCalendar converts calendar to its text form
func SerializeCalendar(cal *ical.Calendar) (string, error) {
	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return "", err
	}
	return buf.String(), nil
}
