package config

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 100 * time.Millisecond

// Watch reloads the configuration whenever the config file changes, until
// ctx is cancelled. The containing directory is watched so editors that
// replace the file by rename are picked up.
func (p *Provider) Watch(ctx context.Context) error {
	if p.path == "" {
		return nil
	}

	target, err := filepath.Abs(p.path)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}

	go p.watch(ctx, watcher, target)
	return nil
}

func (p *Provider) watch(ctx context.Context, watcher *fsnotify.Watcher, target string) {
	defer watcher.Close()

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDebounce, func() {
				if err := p.Reload(); err != nil {
					log.Printf("[config] %v (keeping previous config)", err)
					return
				}
				log.Printf("[config] reloaded %s", target)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[config] watcher error: %v", err)

		case <-ctx.Done():
			return
		}
	}
}
