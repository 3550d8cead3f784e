package cli

import (
	"fmt"
	"log"

	"github.com/tazhate/monitorat/config"
	"github.com/tazhate/monitorat/internal/clients/caldav"
	"github.com/tazhate/monitorat/internal/notify"
	"github.com/tazhate/monitorat/internal/service"
	"github.com/tazhate/monitorat/internal/storage"
)

// app holds the services shared by the commands.
type app struct {
	config    *config.Provider
	db        *storage.Storage
	store     *storage.TouchStore
	reminders *service.ReminderService
	calendar  *service.CalendarService
	speedtest *service.SpeedtestService
	hosts     *service.ServicesService
	metrics   *service.MetricsService
}

func openApp() (*app, error) {
	provider, err := config.NewProvider(configPath, rootDir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg := provider.Snapshot()

	db, err := storage.New(cfg.DataDir())
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	store := storage.NewTouchStore(cfg.DataDir(), cfg.Location)
	dispatcher := notify.NewDispatcher(notify.Options{})

	a := &app{
		config:    provider,
		db:        db,
		store:     store,
		reminders: service.NewReminderService(provider, store, dispatcher),
		calendar:  service.NewCalendarService(db, calendarClient(cfg)),
		speedtest: service.NewSpeedtestService(provider, db, nil),
		hosts:     service.NewServicesService(provider, nil),
		metrics:   service.NewMetricsService(provider, db, nil),
	}

	provider.OnReload(func(next *config.Config) {
		a.store.Relocate(next.DataDir(), next.Location)
		a.calendar.SetClient(calendarClient(next))
	})
	return a, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

// calendarClient returns nil when mirroring is not configured.
func calendarClient(cfg *config.Config) service.CalendarMirror {
	c := cfg.Calendar
	client := caldav.NewClient(c.URL, c.Username, c.Password, c.Path)
	if !client.IsConfigured() {
		return nil
	}
	log.Printf("[calendar] mirroring to %s%s", c.URL, c.Path)
	return client
}
