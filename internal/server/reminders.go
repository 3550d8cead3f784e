package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/tazhate/monitorat/internal/clients/caldav"
	"github.com/tazhate/monitorat/internal/domain"
	"github.com/tazhate/monitorat/internal/notify"
	"github.com/tazhate/monitorat/internal/service"
)

// NotifyResponse reports a fan-out over the notification targets.
type NotifyResponse struct {
	Sent      bool `json:"sent"`
	Attempted int  `json:"attempted"`
	Failed    int  `json:"failed"`
}

func notifyResponse(res notify.Result) NotifyResponse {
	return NotifyResponse{Sent: res.Sent(), Attempted: res.Attempted, Failed: res.Failed}
}

// GET /api/reminders
func (s *Server) handleReminders(w http.ResponseWriter, r *http.Request) {
	statuses, err := s.svc.Reminders.ListStatus()
	if err != nil {
		log.Printf("[server] list reminders: %v", err)
		jsonError(w, "failed to load reminders", http.StatusInternalServerError)
		return
	}
	jsonResponse(w, statuses)
}

// GET|POST /api/reminders/{id}/touch
// Redirects to the reminder URL, or returns the new status with ?format=json.
func (s *Server) handleTouch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	def, err := s.svc.Reminders.Touch(id)
	if err != nil {
		s.reminderError(w, id, err)
		return
	}

	if r.URL.Query().Get("format") == "json" {
		st, err := s.svc.Reminders.Status(id)
		if err != nil {
			s.reminderError(w, id, err)
			return
		}
		jsonResponse(w, st)
		return
	}

	target := def.URL
	if target == "" {
		target = "/"
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// POST /api/reminders/{id}/notify
func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	res, err := s.svc.Reminders.NotifyNow(r.Context(), id)
	if err != nil {
		s.reminderError(w, id, err)
		return
	}
	jsonResponse(w, notifyResponse(res))
}

// POST /api/reminders/test-notification
// Priority comes from ?priority= or a JSON body {"priority": ...}.
func (s *Server) handleTestNotification(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("priority")
	if raw == "" {
		var err error
		raw, err = bodyPriority(r.Body)
		if err != nil {
			jsonError(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
	}

	p := domain.PriorityNormal
	if raw != "" {
		parsed, err := domain.ParsePriority(raw)
		if err != nil {
			jsonError(w, "priority must be low, normal or high", http.StatusBadRequest)
			return
		}
		p = parsed
	}

	res := s.svc.Reminders.SendTestNotification(r.Context(), p)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(APIResponse{Success: res.Sent(), Data: notifyResponse(res)})
}

func bodyPriority(body io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(strings.TrimSpace(string(data))) == 0 {
		return "", nil
	}
	var req struct {
		Priority json.RawMessage `json:"priority"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return "", err
	}
	if string(req.Priority) == "null" {
		return "", nil
	}
	return strings.Trim(string(req.Priority), `"`), nil
}

// GET /api/reminders/calendar.ics
func (s *Server) handleCalendarFeed(w http.ResponseWriter, r *http.Request) {
	statuses, err := s.svc.Reminders.ListStatus()
	if err != nil {
		log.Printf("[server] calendar feed: %v", err)
		http.Error(w, "failed to load reminders", http.StatusInternalServerError)
		return
	}

	cal := s.svc.Calendar.Feed(statuses, s.config.Snapshot().BaseURL())
	body, err := caldav.SerializeCalendar(cal)
	if err != nil {
		log.Printf("[server] calendar feed: %v", err)
		http.Error(w, "failed to build calendar", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="reminders.ics"`)
	io.WriteString(w, body)
}

func (s *Server) reminderError(w http.ResponseWriter, id string, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		jsonError(w, "reminder not found", http.StatusNotFound)
	case errors.Is(err, service.ErrNeverTouched):
		jsonError(w, "reminder has never been touched", http.StatusConflict)
	default:
		log.Printf("[server] reminder %s: %v", id, err)
		jsonError(w, "failed to update reminder", http.StatusInternalServerError)
	}
}
