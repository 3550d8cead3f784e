package server

import (
	"errors"
	"log"
	"net/http"
	"os"
	"strconv"

	"github.com/tazhate/monitorat/internal/service"
)

// GET /api/services
func (s *Server) handleServices(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, s.svc.Hosts.Groups())
}

// GET /api/services/status
func (s *Server) handleServicesStatus(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, s.svc.Hosts.Status(r.Context()))
}

// POST /api/speedtest/run
func (s *Server) handleSpeedtestRun(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Speedtest.Run(r.Context())
	if err != nil {
		log.Printf("[server] speedtest: %v", err)
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrSpeedtestTimeout) {
			status = http.StatusGatewayTimeout
		}
		jsonError(w, err.Error(), status)
		return
	}
	jsonResponse(w, res)
}

// GET /api/speedtest/history?limit=
func (s *Server) handleSpeedtestHistory(w http.ResponseWriter, r *http.Request) {
	limit, ok := intQuery(w, r, "limit")
	if !ok {
		return
	}

	results, err := s.svc.Speedtest.History(r.Context(), limit)
	if err != nil {
		log.Printf("[server] speedtest history: %v", err)
		jsonError(w, "failed to load history", http.StatusInternalServerError)
		return
	}
	jsonResponse(w, results)
}

// GET /api/speedtest/chart?days=
func (s *Server) handleSpeedtestChart(w http.ResponseWriter, r *http.Request) {
	days, ok := intQuery(w, r, "days")
	if !ok {
		return
	}

	chart, err := s.svc.Speedtest.Chart(r.Context(), service.ClampChartDays(days))
	if err != nil {
		log.Printf("[server] speedtest chart: %v", err)
		jsonError(w, "failed to load chart", http.StatusInternalServerError)
		return
	}
	jsonResponse(w, chart)
}

// GET /api/network/log
func (s *Server) handleNetworkLog(w http.ResponseWriter, r *http.Request) {
	cfg := s.config.Snapshot()
	if cfg.Widgets.Network.LogFile == "" {
		http.Error(w, "network log not configured", http.StatusNotFound)
		return
	}

	path := cfg.Resolve(cfg.Widgets.Network.LogFile)
	info, err := os.Stat(path)
	if err != nil {
		http.Error(w, "network log not found", http.StatusNotFound)
		return
	}
	if !info.Mode().IsRegular() {
		http.Error(w, "network log is not a file", http.StatusBadRequest)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		log.Printf("[server] network log: %v", err)
		http.Error(w, "network log unreadable", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	http.ServeContent(w, r, "", info.ModTime(), f)
}

// GET /api/metrics
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.Metrics.Current(r.Context())
	if err != nil {
		log.Printf("[server] metrics: %v", err)
		jsonError(w, "failed to read metrics", http.StatusInternalServerError)
		return
	}
	jsonResponse(w, view)
}

// GET /api/metrics/history?period=
func (s *Server) handleMetricsHistory(w http.ResponseWriter, r *http.Request) {
	samples, err := s.svc.Metrics.History(r.Context(), r.URL.Query().Get("period"))
	if err != nil {
		log.Printf("[server] metrics history: %v", err)
		jsonError(w, "failed to load history", http.StatusInternalServerError)
		return
	}
	jsonResponse(w, samples)
}

// GET /api/wiki/doc?widget=
func (s *Server) handleWikiDoc(w http.ResponseWriter, r *http.Request) {
	widget := r.URL.Query().Get("widget")
	if widget == "" {
		widget = "wiki"
	}

	cfg := s.config.Snapshot()
	doc, ok := cfg.Widgets.Doc(widget)
	if !ok {
		http.Error(w, "unknown widget", http.StatusNotFound)
		return
	}
	if doc == "" {
		doc = "README.md"
	}

	path := cfg.Resolve(doc)
	if !isFile(path) {
		http.Error(w, "document not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	http.ServeFile(w, r, path)
}

// intQuery reads an optional integer query parameter, writing a 400 when
// it is malformed.
func intQuery(w http.ResponseWriter, r *http.Request, key string) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		jsonError(w, key+" must be an integer", http.StatusBadRequest)
		return 0, false
	}
	return n, true
}
