package domain

import (
	"testing"
	"time"
)

var base = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func daysAgo(d int) *time.Time {
	t := base.AddDate(0, 0, -d)
	return &t
}

func TestClassifyNever(t *testing.T) {
	def := Definition{ID: "vpn", ExpiryDays: 30}
	c := Classify(def, nil, Policy{Nudges: []int{7}, Urgents: []int{1}}, base)

	if c.Status != StatusNever {
		t.Errorf("Status = %q, want never", c.Status)
	}
	if c.DaysSince != nil || c.DaysRemaining != nil {
		t.Errorf("expected nil day counts, got %v / %v", c.DaysSince, c.DaysRemaining)
	}
}

func TestClassifyExpiredScenario(t *testing.T) {
	def := Definition{ID: "github", ExpiryDays: 90}
	c := Classify(def, daysAgo(95), Policy{Urgents: []int{3, 1}}, base)

	if c.Status != StatusExpired {
		t.Errorf("Status = %q, want expired", c.Status)
	}
	if *c.DaysSince != 95 {
		t.Errorf("DaysSince = %d, want 95", *c.DaysSince)
	}
	if *c.DaysRemaining != -5 {
		t.Errorf("DaysRemaining = %d, want -5", *c.DaysRemaining)
	}
}

func TestClassifyBands(t *testing.T) {
	policy := Policy{Nudges: []int{14, 7, 3, 1}, Urgents: []int{3, 1}}
	def := Definition{ID: "x", ExpiryDays: 90}

	tests := []struct {
		remaining int
		want      Status
	}{
		{remaining: 90, want: StatusOK},
		{remaining: 15, want: StatusOK},
		{remaining: 14, want: StatusWarning},
		{remaining: 10, want: StatusWarning},
		{remaining: 2, want: StatusWarning},
		{remaining: 1, want: StatusOK}, // band is (1, 14]
		{remaining: 0, want: StatusExpired},
		{remaining: -3, want: StatusExpired},
	}

	for _, tt := range tests {
		c := Classify(def, daysAgo(90-tt.remaining), policy, base)
		if *c.DaysRemaining != tt.remaining {
			t.Errorf("remaining %d: DaysRemaining = %d", tt.remaining, *c.DaysRemaining)
		}
		if c.Status != tt.want {
			t.Errorf("remaining %d: Status = %q, want %q", tt.remaining, c.Status, tt.want)
		}
	}
}

func TestBandDefaults(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
		lo, hi int
	}{
		{"empty", Policy{}, 0, 14},
		{"only nudges", Policy{Nudges: []int{30, 10}}, 0, 30},
		{"only urgents", Policy{Urgents: []int{5, 2}}, 2, 14},
		{"both", Policy{Nudges: []int{14, 7, 3, 1}, Urgents: []int{3, 1}}, 1, 14},
	}
	for _, tt := range tests {
		lo, hi := tt.policy.Band()
		if lo != tt.lo || hi != tt.hi {
			t.Errorf("%s: Band() = (%d, %d), want (%d, %d)", tt.name, lo, hi, tt.lo, tt.hi)
		}
	}
}

func TestClassifyTruncatesPartialDays(t *testing.T) {
	def := Definition{ID: "x", ExpiryDays: 10}
	touched := base.Add(-(23*time.Hour + 59*time.Minute))

	c := Classify(def, &touched, Policy{}, base)
	if *c.DaysSince != 0 {
		t.Errorf("DaysSince = %d, want 0", *c.DaysSince)
	}

	touched = base.Add(-(47 * time.Hour))
	c = Classify(def, &touched, Policy{}, base)
	if *c.DaysSince != 1 {
		t.Errorf("DaysSince = %d, want 1", *c.DaysSince)
	}
}

func TestClassifyFutureTouchFloors(t *testing.T) {
	def := Definition{ID: "x", ExpiryDays: 10}
	touched := base.Add(time.Hour)

	c := Classify(def, &touched, Policy{}, base)
	if *c.DaysSince != -1 {
		t.Errorf("DaysSince = %d, want -1", *c.DaysSince)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	def := Definition{ID: "x", ExpiryDays: 45}
	policy := Policy{Nudges: []int{14, 7}, Urgents: []int{3}}
	touched := daysAgo(38)

	first := Classify(def, touched, policy, base)
	for i := 0; i < 5; i++ {
		again := Classify(def, touched, policy, base)
		if again.Status != first.Status || *again.DaysRemaining != *first.DaysRemaining || *again.DaysSince != *first.DaysSince {
			t.Fatalf("run %d differs: %+v vs %+v", i, again, first)
		}
	}
}

func TestClassifyMonotonic(t *testing.T) {
	def := Definition{ID: "x", ExpiryDays: 30}
	policy := Policy{Nudges: []int{14, 7, 3, 1}, Urgents: []int{3, 1}}
	touched := base

	rank := map[Status]int{StatusOK: 0, StatusWarning: 1, StatusExpired: 2}
	prevRemaining := 1 << 30
	prevRank := -1

	for day := 0; day <= 40; day++ {
		now := base.AddDate(0, 0, day).Add(time.Hour)
		c := Classify(def, &touched, policy, now)
		if *c.DaysRemaining >= prevRemaining {
			t.Fatalf("day %d: remaining %d did not decrease from %d", day, *c.DaysRemaining, prevRemaining)
		}
		r := rank[c.Status]
		// The band floor is exclusive, so remaining == min(urgents) reads
		// as ok again. Expired is terminal.
		if prevRank == rank[StatusExpired] && r != prevRank {
			t.Fatalf("day %d: left expired state", day)
		}
		prevRemaining = *c.DaysRemaining
		prevRank = r
	}
}

func TestClassifyAfterTouch(t *testing.T) {
	def := Definition{ID: "x", ExpiryDays: 5}
	c := Classify(def, &base, Policy{Nudges: []int{7}}, base)

	if *c.DaysSince != 0 {
		t.Errorf("DaysSince = %d, want 0", *c.DaysSince)
	}
	if *c.DaysRemaining != 5 || c.Status != StatusWarning {
		t.Errorf("got remaining %d status %q, want 5 warning", *c.DaysRemaining, c.Status)
	}
}

func TestExpiresAt(t *testing.T) {
	r := ReminderStatus{ExpiryDays: 30}
	if r.ExpiresAt() != nil {
		t.Fatal("expected nil expiry for untouched reminder")
	}

	r.LastTouch = ptr(base)
	want := base.AddDate(0, 0, 30)
	if got := r.ExpiresAt(); !got.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", got, want)
	}
}

func TestParsePriority(t *testing.T) {
	tests := []struct {
		in      string
		want    Priority
		wantErr bool
	}{
		{"", PriorityNormal, false},
		{"0", PriorityNormal, false},
		{"-1", PriorityLow, false},
		{"1", PriorityHigh, false},
		{"HIGH", PriorityHigh, false},
		{"low", PriorityLow, false},
		{"2", PriorityNormal, true},
		{"urgent", PriorityNormal, true},
	}
	for _, tt := range tests {
		got, err := ParsePriority(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePriority(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParsePriority(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
