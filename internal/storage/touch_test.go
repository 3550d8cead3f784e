package storage

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestTouchStoreMissingFile(t *testing.T) {
	s := NewTouchStore(t.TempDir(), time.UTC)

	touches, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(touches) != 0 {
		t.Errorf("expected empty store, got %v", touches)
	}

	got, err := s.Get("github")
	if err != nil || got != nil {
		t.Errorf("Get = %v, %v; want nil, nil", got, err)
	}
}

func TestTouchStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := NewTouchStore(filepath.Join(dir, "nested"), time.UTC)
	at := time.Date(2026, 3, 1, 9, 30, 15, 500, time.UTC)

	if err := s.Touch("github", at); err != nil {
		t.Fatalf("Touch: %v", err)
	}

	reopened := NewTouchStore(filepath.Join(dir, "nested"), time.UTC)
	got, err := reopened.Get("github")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || !got.Equal(at.Truncate(time.Second)) {
		t.Errorf("Get = %v, want %v", got, at.Truncate(time.Second))
	}

	entries, _ := os.ReadDir(filepath.Join(dir, "nested"))
	if len(entries) != 1 {
		t.Errorf("expected only the store file, found %d entries", len(entries))
	}
}

func TestTouchStoreCorrupt(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "reminders.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	s := NewTouchStore(dir, time.UTC)

	if _, err := s.Load(); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("Load err = %v, want ErrCorrupt", err)
	}
	if err := s.Touch("x", time.Now()); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("Touch err = %v, want ErrCorrupt", err)
	}

	data, _ := os.ReadFile(filepath.Join(dir, "reminders.json"))
	if string(data) != "{not json" {
		t.Error("corrupt file was overwritten")
	}
}

func TestTouchStoreBadTimestamp(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "reminders.json"), []byte(`{"a": "yesterday"}`), 0644)

	if _, err := NewTouchStore(dir, time.UTC).Load(); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("err = %v, want ErrCorrupt", err)
	}
}

func TestTouchStoreNaiveTimestamps(t *testing.T) {
	dir := t.TempDir()
	body := `{"a": "2026-02-01T08:00:00.123456", "b": "2026-02-01T08:00:00+02:00"}`
	os.WriteFile(filepath.Join(dir, "reminders.json"), []byte(body), 0644)

	loc := time.FixedZone("X", 3*3600)
	touches, err := NewTouchStore(dir, loc).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	wantA := time.Date(2026, 2, 1, 8, 0, 0, 123456000, loc)
	if !touches["a"].Equal(wantA) {
		t.Errorf("a = %v, want %v", touches["a"], wantA)
	}
	wantB := time.Date(2026, 2, 1, 6, 0, 0, 0, time.UTC)
	if !touches["b"].Equal(wantB) {
		t.Errorf("b = %v, want %v", touches["b"], wantB)
	}
}

func TestTouchStoreUpdateSkipsUnchanged(t *testing.T) {
	dir := t.TempDir()
	s := NewTouchStore(dir, time.UTC)

	err := s.Update(func(map[string]time.Time) bool { return false })
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := os.Stat(s.Path()); !os.IsNotExist(err) {
		t.Errorf("store written for unchanged update")
	}
}

func TestTouchStoreConcurrentTouches(t *testing.T) {
	s := NewTouchStore(t.TempDir(), time.UTC)
	ids := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if err := s.Touch(id, at); err != nil {
				t.Errorf("Touch(%s): %v", id, err)
			}
		}(id)
	}
	wg.Wait()

	touches, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(touches) != len(ids) {
		t.Errorf("got %d touches, want %d", len(touches), len(ids))
	}
}

func TestTouchStoreRelocate(t *testing.T) {
	oldDir, newDir := t.TempDir(), t.TempDir()
	s := NewTouchStore(oldDir, time.UTC)
	if err := s.Touch("github", time.Now()); err != nil {
		t.Fatal(err)
	}

	s.Relocate(newDir, time.UTC)
	if s.Path() != filepath.Join(newDir, "reminders.json") {
		t.Errorf("Path = %q", s.Path())
	}
	if got, _ := s.Get("github"); got != nil {
		t.Error("relocated store still reads the old file")
	}
	if err := s.Touch("vpn", time.Now()); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(newDir, "reminders.json")); err != nil {
		t.Errorf("touch not written to new dir: %v", err)
	}
}
