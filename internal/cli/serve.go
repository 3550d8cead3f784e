package cli

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tazhate/monitorat/internal/bot"
	"github.com/tazhate/monitorat/internal/scheduler"
	"github.com/tazhate/monitorat/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard and the daily reminder check",
	RunE:  runServe,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run the daily reminder check once and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		scheduler.New(a.config, a.reminders, a.calendar).RunNow(cmd.Context())
		return nil
	},
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.config.Watch(ctx); err != nil {
		log.Printf("[config] %v; live reload disabled", err)
	}

	sched := scheduler.New(a.config, a.reminders, a.calendar)
	sched.Start()
	defer sched.Stop()

	go a.metrics.Run(ctx)

	if token := a.config.Snapshot().Bot.Token; token != "" {
		b, err := bot.New(token, a.config, a.reminders)
		if err != nil {
			log.Printf("[bot] %v; telegram bot disabled", err)
		} else {
			go b.Start(ctx)
		}
	}

	srv := server.New(a.config, server.Services{
		Reminders: a.reminders,
		Calendar:  a.calendar,
		Speedtest: a.speedtest,
		Hosts:     a.hosts,
		Metrics:   a.metrics,
		Scheduler: sched,
	}, VersionString())

	log.Printf("monitorat %s started", VersionString())
	if err := srv.ListenAndServe(ctx); err != nil {
		return err
	}
	log.Println("monitorat stopped")
	return nil
}
