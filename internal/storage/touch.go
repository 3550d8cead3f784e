package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ErrCorrupt is returned when the touch file exists but cannot be decoded.
var ErrCorrupt = errors.New("touch store corrupt")

const touchFile = "reminders.json"

// Timestamps written before offsets were recorded carry no zone and are
// read in the store's location.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// TouchStore persists the last-touch time per reminder id as a JSON object.
type TouchStore struct {
	path string
	loc  *time.Location
	mu   sync.Mutex
}

func NewTouchStore(dataDir string, loc *time.Location) *TouchStore {
	if loc == nil {
		loc = time.Local
	}
	return &TouchStore{
		path: filepath.Join(dataDir, touchFile),
		loc:  loc,
	}
}

func (s *TouchStore) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// Relocate points the store at dataDir and reads naive timestamps in loc
// from then on. Existing records are not moved.
func (s *TouchStore) Relocate(dataDir string, loc *time.Location) {
	if loc == nil {
		loc = time.Local
	}
	path := filepath.Join(dataDir, touchFile)

	s.mu.Lock()
	defer s.mu.Unlock()
	if path != s.path {
		log.Printf("[reminders] touch store moved to %s", path)
	}
	s.path = path
	s.loc = loc
}

// Load returns every recorded touch. A missing file is an empty store.
func (s *TouchStore) Load() (map[string]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Get returns the last touch for id, or nil if it was never touched.
func (s *TouchStore) Get(id string) (*time.Time, error) {
	touches, err := s.Load()
	if err != nil {
		return nil, err
	}
	t, ok := touches[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

// Save replaces the whole store with touches.
func (s *TouchStore) Save(touches map[string]time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(touches)
}

// Update loads the store, applies fn and writes it back if fn reports a
// change. The whole cycle holds the store lock.
func (s *TouchStore) Update(fn func(touches map[string]time.Time) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	touches, err := s.load()
	if err != nil {
		return err
	}
	if !fn(touches) {
		return nil
	}
	return s.save(touches)
}

// Touch records at as the last touch of id.
func (s *TouchStore) Touch(id string, at time.Time) error {
	at = at.Truncate(time.Second)
	return s.Update(func(touches map[string]time.Time) bool {
		touches[id] = at
		return true
	})
}

func (s *TouchStore) load() (map[string]time.Time, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]time.Time), nil
		}
		return nil, fmt.Errorf("read touch store: %w", err)
	}
	if len(data) == 0 {
		return make(map[string]time.Time), nil
	}

	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
	}

	touches := make(map[string]time.Time, len(raw))
	for id, value := range raw {
		t, err := s.parseTime(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: entry %q: %v", ErrCorrupt, s.path, id, err)
		}
		touches[id] = t
	}
	return touches, nil
}

func (s *TouchStore) parseTime(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, value, s.loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}

// save writes to a temp file in the same directory and renames it over the
// store so readers never observe a partial file.
func (s *TouchStore) save(touches map[string]time.Time) error {
	raw := make(map[string]string, len(touches))
	for id, t := range touches {
		raw[id] = t.Format(time.RFC3339)
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal touch store: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, touchFile+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace touch store: %w", err)
	}
	return nil
}
