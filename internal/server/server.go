package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/tazhate/monitorat/config"
	"github.com/tazhate/monitorat/internal/service"
)

// NextRunner reports the next scheduled daily check.
type NextRunner interface {
	IsRunning() bool
	NextRun(after time.Time) (time.Time, bool)
}

// Services bundles what the HTTP layer calls into.
type Services struct {
	Reminders *service.ReminderService
	Calendar  *service.CalendarService
	Speedtest *service.SpeedtestService
	Hosts     *service.ServicesService
	Metrics   *service.MetricsService
	Scheduler NextRunner
}

// Server is the dashboard HTTP server.
type Server struct {
	config  *config.Provider
	svc     Services
	router  chi.Router
	version string
	started time.Time
}

func New(cfg *config.Provider, svc Services, version string) *Server {
	s := &Server{
		config:  cfg,
		svc:     svc,
		version: version,
		started: time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on the configured address until ctx is done, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := s.config.Snapshot().ListenAddr()
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[server] listening on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Printf("[server] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/config", s.handleConfig)

		r.Route("/reminders", func(r chi.Router) {
			r.Get("/", s.handleReminders)
			r.Get("/calendar.ics", s.handleCalendarFeed)
			r.Post("/test-notification", s.handleTestNotification)
			r.Get("/{id}/touch", s.handleTouch)
			r.Post("/{id}/touch", s.handleTouch)
			r.Post("/{id}/notify", s.handleNotify)
		})

		r.Get("/services", s.handleServices)
		r.Get("/services/status", s.handleServicesStatus)

		r.Post("/speedtest/run", s.handleSpeedtestRun)
		r.Get("/speedtest/history", s.handleSpeedtestHistory)
		r.Get("/speedtest/chart", s.handleSpeedtestChart)

		r.Get("/network/log", s.handleNetworkLog)

		r.Get("/metrics", s.handleMetrics)
		r.Get("/metrics/history", s.handleMetricsHistory)

		r.Get("/wiki/doc", s.handleWikiDoc)

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			jsonError(w, "not found", http.StatusNotFound)
		})
	})

	r.Get("/data/*", s.dirHandler("/data/", func(c *config.Config) string { return c.DataDir() }))
	r.Get("/img/*", s.dirHandler("/img/", func(c *config.Config) string { return c.Resolve(c.Paths.Img) }))
	r.Get("/docs/*", s.dirHandler("/docs/", func(c *config.Config) string { return c.Resolve("docs") }))
	r.Get("/README.md", s.rootFile("README.md"))
	r.Get("/about.md", s.rootFile("about.md"))
	r.Get("/favicon.ico", s.handleFavicon)
	r.Get("/*", s.handleWWW)

	s.router = r
}

// APIResponse is the envelope of every JSON endpoint.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(APIResponse{Success: true, Data: data})
}

func jsonError(w http.ResponseWriter, err string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIResponse{Success: false, Error: err})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
	}
	if sched := s.svc.Scheduler; sched != nil {
		health["scheduler"] = sched.IsRunning()
		if next, ok := sched.NextRun(time.Now()); ok {
			health["next_check"] = next.Format(time.RFC3339)
		}
	}
	jsonResponse(w, health)
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, s.config.Snapshot().Redacted())
}
