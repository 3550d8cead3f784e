package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tazhate/monitorat/internal/domain"
)

const testConfig = `
site:
  name: lab
timezone: UTC
reminders:
  nudges: [14, 7]
  urgents: [3, 1]
  time: "09:00"
  items:
    github:
      name: GitHub
      url: https://github.com/settings/tokens
      expiry_days: 90
    vpn:
      name: VPN
      expiry_days: 30
`

func setupConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(testConfig), 0644); err != nil {
		t.Fatal(err)
	}

	oldPath, oldRoot := configPath, rootDir
	t.Cleanup(func() { configPath, rootDir = oldPath, oldRoot })
	configPath, rootDir = path, ""
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return out.String(), err
}

func TestTouchCommand(t *testing.T) {
	dir := setupConfig(t)

	out, err := run(t, "touch", "github", "--config", configPath)
	if err != nil {
		t.Fatalf("touch: %v", err)
	}
	if !strings.Contains(out, "Touched GitHub, next expiry in 90 days") {
		t.Errorf("out = %q", out)
	}

	data, err := os.ReadFile(filepath.Join(dir, "data", "reminders.json"))
	if err != nil {
		t.Fatalf("touch store not written: %v", err)
	}
	if !strings.Contains(string(data), `"github"`) {
		t.Errorf("store = %s", data)
	}
}

func TestTouchUnknown(t *testing.T) {
	setupConfig(t)
	if _, err := run(t, "touch", "nope", "--config", configPath); err == nil || !strings.Contains(err.Error(), `"nope"`) {
		t.Errorf("err = %v", err)
	}
}

func TestRemindersCommand(t *testing.T) {
	setupConfig(t)
	if _, err := run(t, "touch", "vpn", "--config", configPath); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "reminders", "--config", configPath)
	if err != nil {
		t.Fatalf("reminders: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines:\n%s", len(lines), out)
	}
	if f := strings.Fields(lines[1]); len(f) < 5 || f[0] != "github" || f[2] != "never" || f[3] != "-" {
		t.Errorf("github row = %q", lines[1])
	}
	if f := strings.Fields(lines[2]); len(f) < 5 || f[0] != "vpn" || f[2] != "ok" || f[3] != "0" || f[4] != "30" {
		t.Errorf("vpn row = %q", lines[2])
	}
}

func TestNotifyTestWithoutTargets(t *testing.T) {
	setupConfig(t)
	if _, err := run(t, "notify-test", "--config", configPath, "--priority", "high"); err == nil {
		t.Error("expected error with no targets")
	}
	if _, err := run(t, "notify-test", "--config", configPath, "--priority", "loud"); err == nil {
		t.Error("expected error for bad priority")
	}
}

func TestRenderRemindersEmpty(t *testing.T) {
	var buf bytes.Buffer
	renderReminders(&buf, nil)
	if !strings.Contains(buf.String(), "No reminders configured.") {
		t.Errorf("out = %q", buf.String())
	}
}

func TestRenderRemindersColumns(t *testing.T) {
	since, left := 80, 10
	touched := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	renderReminders(&buf, []domain.ReminderStatus{{
		ID: "a-very-long-reminder-id", Name: "Long", Status: domain.StatusWarning,
		LastTouch: &touched, DaysSince: &since, DaysRemaining: &left,
	}})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %q", lines)
	}
	if strings.Index(lines[0], "NAME") != strings.Index(lines[1], "Long") {
		t.Errorf("columns misaligned:\n%s", buf.String())
	}
}

func TestReloadMovesTouchStore(t *testing.T) {
	dir := setupConfig(t)

	a, err := openApp()
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	next := *a.config.Snapshot()
	next.Paths.Data = "moved"
	a.config.Replace(&next)

	if _, err := a.reminders.Touch("github"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "moved", "reminders.json")); err != nil {
		t.Errorf("touch not written under new paths.data: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "data", "reminders.json")); !os.IsNotExist(err) {
		t.Errorf("old touch store written: %v", err)
	}
}
