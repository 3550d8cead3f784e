package service

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/tazhate/monitorat/internal/storage"
)

var (
	ErrNotFound     = errors.New("reminder not found")
	ErrStorage      = errors.New("reminder storage failed")
	ErrNeverTouched = errors.New("reminder was never touched")
)

// Reconcile drops touch records whose id is not in ids and returns the
// removed ids sorted. Nothing is written when nothing is removed.
func Reconcile(store *storage.TouchStore, ids map[string]struct{}) ([]string, error) {
	var removed []string

	err := store.Update(func(touches map[string]time.Time) bool {
		for id := range touches {
			if _, ok := ids[id]; !ok {
				removed = append(removed, id)
				delete(touches, id)
			}
		}
		return len(removed) > 0
	})
	if err != nil {
		return nil, fmt.Errorf("%w: reconcile: %w", ErrStorage, err)
	}

	sort.Strings(removed)
	if len(removed) > 0 {
		log.Printf("[reminders] removed orphaned touch records: %v", removed)
	}
	return removed, nil
}
