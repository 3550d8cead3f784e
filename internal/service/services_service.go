package service

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tazhate/monitorat/config"
	"github.com/tazhate/monitorat/internal/domain"
)

const (
	dockerTimeout    = 10 * time.Second
	systemctlTimeout = 5 * time.Second
)

// ServicesService reports docker containers and systemd units.
type ServicesService struct {
	config *config.Provider
	run    CommandRunner
}

func NewServicesService(cfg *config.Provider, run CommandRunner) *ServicesService {
	if run == nil {
		run = ExecRunner
	}
	return &ServicesService{config: cfg, run: run}
}

// Groups returns the configured service groups.
func (s *ServicesService) Groups() map[string]config.ServiceGroup {
	groups := s.config.Snapshot().Services
	if groups == nil {
		return map[string]config.ServiceGroup{}
	}
	return groups
}

// Status maps every container, service and timer name to its state.
func (s *ServicesService) Status(ctx context.Context) map[string]domain.ServiceState {
	status := s.dockerStatus(ctx)

	var units, timers, containers []string
	for _, g := range s.Groups() {
		units = append(units, g.Services...)
		timers = append(timers, g.Timers...)
		containers = append(containers, g.Containers...)
	}

	for _, c := range dedupe(containers) {
		if _, ok := status[c]; !ok {
			status[c] = domain.ServiceUnknown
		}
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	check := func(name, unit string) {
		defer wg.Done()
		state := s.unitStatus(ctx, unit)
		mu.Lock()
		status[name] = state
		mu.Unlock()
	}
	for _, u := range dedupe(units) {
		wg.Add(1)
		go check(u, u)
	}
	for _, t := range dedupe(timers) {
		wg.Add(1)
		go check(t, t+".timer")
	}
	wg.Wait()

	return status
}

func (s *ServicesService) dockerStatus(ctx context.Context) map[string]domain.ServiceState {
	status := make(map[string]domain.ServiceState)

	ctx, cancel := context.WithTimeout(ctx, dockerTimeout)
	defer cancel()

	out, err := s.run(ctx, "docker", "ps", "-a", "--format", "{{.Names}}\t{{.State}}")
	if err != nil {
		log.Printf("[services] docker: %v", err)
		return status
	}

	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		name, state, ok := strings.Cut(line, "\t")
		if !ok {
			continue
		}
		if strings.Contains(strings.ToLower(state), "running") {
			status[name] = domain.ServiceOK
		} else {
			status[name] = domain.ServiceDown
		}
	}
	return status
}

// unitStatus runs systemctl is-active. Inactive units exit non-zero but
// still print their state.
func (s *ServicesService) unitStatus(ctx context.Context, unit string) domain.ServiceState {
	ctx, cancel := context.WithTimeout(ctx, systemctlTimeout)
	defer cancel()

	out, err := s.run(ctx, "systemctl", "is-active", unit)
	state := strings.TrimSpace(string(out))
	switch {
	case state == "active":
		return domain.ServiceOK
	case state != "":
		return domain.ServiceDown
	default:
		log.Printf("[services] systemctl %s: %v", unit, err)
		return domain.ServiceUnknown
	}
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, v := range in {
		if v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
