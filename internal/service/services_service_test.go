package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tazhate/monitorat/config"
	"github.com/tazhate/monitorat/internal/domain"
)

func fakeHost(docker string, units map[string]string) CommandRunner {
	return func(ctx context.Context, name string, args ...string) ([]byte, error) {
		switch name {
		case "docker":
			if docker == "" {
				return nil, errors.New("docker: not found")
			}
			return []byte(docker), nil
		case "systemctl":
			unit := args[len(args)-1]
			state, ok := units[unit]
			if !ok {
				return nil, errors.New("systemctl: exec failed")
			}
			if state != "active" {
				return []byte(state + "\n"), errors.New("exit status 3")
			}
			return []byte(state + "\n"), nil
		}
		return nil, errors.New("unexpected command " + name + " " + strings.Join(args, " "))
	}
}

func TestServicesStatus(t *testing.T) {
	cfg := &config.Config{Services: map[string]config.ServiceGroup{
		"media": {Name: "Media", Containers: []string{"jellyfin", "sonarr"}, Services: []string{"nginx"}},
		"ops":   {Services: []string{"sshd", "nginx"}, Timers: []string{"backup"}},
	}}
	run := fakeHost("jellyfin\tUp 3 hours (running)\nold\texited\n", map[string]string{
		"nginx":        "active",
		"backup.timer": "inactive",
	})

	got := NewServicesService(config.NewStaticProvider(cfg), run).Status(context.Background())

	want := map[string]domain.ServiceState{
		"jellyfin": domain.ServiceOK,
		"old":      domain.ServiceDown,
		"sonarr":   domain.ServiceUnknown,
		"nginx":    domain.ServiceOK,
		"sshd":     domain.ServiceUnknown,
		"backup":   domain.ServiceDown,
	}
	if len(got) != len(want) {
		t.Errorf("got %v, want %v", got, want)
	}
	for name, state := range want {
		if got[name] != state {
			t.Errorf("%s = %q, want %q", name, got[name], state)
		}
	}
}

func TestServicesStatusWithoutDocker(t *testing.T) {
	cfg := &config.Config{Services: map[string]config.ServiceGroup{
		"web": {Services: []string{"nginx"}},
	}}
	got := NewServicesService(config.NewStaticProvider(cfg), fakeHost("", map[string]string{"nginx": "failed"})).
		Status(context.Background())

	if len(got) != 1 || got["nginx"] != domain.ServiceDown {
		t.Errorf("got %v", got)
	}
}

func TestGroupsNeverNil(t *testing.T) {
	svc := NewServicesService(config.NewStaticProvider(&config.Config{}), nil)
	if svc.Groups() == nil {
		t.Error("Groups returned nil")
	}
}
