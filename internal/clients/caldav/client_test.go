package caldav

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestEventUIDStable(t *testing.T) {
	a, b := EventUID("github"), EventUID("github")
	if a != b {
		t.Fatalf("EventUID not stable: %s vs %s", a, b)
	}
	if EventUID("vpn") == a {
		t.Fatal("different ids produced the same uid")
	}
	if len(a) != 36 {
		t.Errorf("uid %q is not a uuid", a)
	}
}

func TestEventPath(t *testing.T) {
	if got := EventPath("/cal/work", "abc"); got != "/cal/work/abc.ics" {
		t.Errorf("EventPath = %q", got)
	}
	if got := EventPath("/cal/work/", "abc"); got != "/cal/work/abc.ics" {
		t.Errorf("EventPath = %q", got)
	}
}

func TestEventToICS(t *testing.T) {
	event := &Event{
		UID:       "uid-1",
		Summary:   "GitHub token expires",
		URL:       "http://dash.local/api/reminders/github/touch",
		Date:      time.Date(2026, 5, 30, 17, 45, 0, 0, time.FixedZone("X", 5*3600)),
		Reminders: []Reminder{{MinutesBefore: 1440}},
	}

	out, err := SerializeCalendar(EventToICS(event, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))
	if err != nil {
		t.Fatalf("SerializeCalendar: %v", err)
	}

	for _, want := range []string{
		"BEGIN:VEVENT",
		"UID:uid-1",
		"SUMMARY:GitHub token expires",
		"DTSTART;VALUE=DATE:20260530",
		"DTEND;VALUE=DATE:20260531",
		"URL;VALUE=URI:http://dash.local/api/reminders/github/touch",
		"BEGIN:VALARM",
		"TRIGGER;VALUE=DURATION:-PT1440M",
		"PRODID:-//monitorat//Reminders//EN",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("calendar missing %q:\n%s", want, out)
		}
	}
}

func TestIsConfigured(t *testing.T) {
	if NewClient("", "u", "p", "/cal").IsConfigured() {
		t.Error("client without url reported configured")
	}
	if NewClient("https://dav.example", "", "", "").IsConfigured() {
		t.Error("client without calendar path reported configured")
	}
	if !NewClient("https://dav.example", "", "", "/cal").IsConfigured() {
		t.Error("expected configured client")
	}
}

func TestConnectConcurrent(t *testing.T) {
	c := NewClient("http://dav.example.com", "u", "p", "/cal/reminders")

	const n = 8
	clients := make(chan any, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cl, err := c.connect()
			if err != nil {
				t.Errorf("connect: %v", err)
				return
			}
			clients <- cl
		}()
	}
	wg.Wait()
	close(clients)

	var first any
	for cl := range clients {
		if first == nil {
			first = cl
		} else if cl != first {
			t.Fatal("concurrent connects built more than one client")
		}
	}
}
