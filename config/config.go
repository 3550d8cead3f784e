package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/tazhate/monitorat/internal/domain"
)

// ErrInvalid marks a missing or malformed configuration value.
var ErrInvalid = errors.New("invalid configuration")

const envPrefix = "MONITORAT_"

type Config struct {
	Site      SiteConfig              `koanf:"site" json:"site"`
	Server    ServerConfig            `koanf:"server" json:"server"`
	Paths     PathsConfig             `koanf:"paths" json:"paths"`
	Timezone  string                  `koanf:"timezone" json:"timezone"`
	Reminders RemindersConfig         `koanf:"reminders" json:"reminders"`
	Services  map[string]ServiceGroup `koanf:"services" json:"services"`
	Speedtest SpeedtestConfig         `koanf:"speedtest" json:"speedtest"`
	Calendar  CalendarConfig          `koanf:"calendar" json:"calendar"`
	Widgets   WidgetsConfig           `koanf:"widgets" json:"widgets"`
	Alerts    AlertsConfig            `koanf:"alerts" json:"alerts"`
	Bot       BotConfig               `koanf:"bot" json:"bot"`

	// Root is the directory relative paths resolve against.
	Root     string         `koanf:"-" json:"-"`
	Location *time.Location `koanf:"-" json:"-"`
}

type SiteConfig struct {
	Name    string `koanf:"name" json:"name"`
	BaseURL string `koanf:"base_url" json:"base_url"`
}

type ServerConfig struct {
	Bind string `koanf:"bind" json:"bind"`
	Port int    `koanf:"port" json:"port"`
}

type PathsConfig struct {
	Data    string `koanf:"data" json:"data"`
	WWW     string `koanf:"www" json:"www"`
	Img     string `koanf:"img" json:"img"`
	Favicon string `koanf:"favicon" json:"favicon,omitempty"`
}

type RemindersConfig struct {
	Nudges      []int                   `koanf:"nudges" json:"nudges"`
	Urgents     []int                   `koanf:"urgents" json:"urgents"`
	Time        string                  `koanf:"time" json:"time"`
	AppriseURLs []string                `koanf:"apprise_urls" json:"apprise_urls"`
	Items       map[string]ReminderItem `koanf:"items" json:"items,omitempty"`
}

type ReminderItem struct {
	Name       string `koanf:"name" json:"name"`
	URL        string `koanf:"url" json:"url,omitempty"`
	Icon       string `koanf:"icon" json:"icon,omitempty"`
	Reason     string `koanf:"reason" json:"reason,omitempty"`
	ExpiryDays *int   `koanf:"expiry_days" json:"expiry_days"`
}

type ServiceGroup struct {
	Name       string   `koanf:"name" json:"name,omitempty"`
	URL        string   `koanf:"url" json:"url,omitempty"`
	Icon       string   `koanf:"icon" json:"icon,omitempty"`
	Services   []string `koanf:"services" json:"services,omitempty"`
	Timers     []string `koanf:"timers" json:"timers,omitempty"`
	Containers []string `koanf:"containers" json:"containers,omitempty"`
}

type SpeedtestConfig struct {
	Command string `koanf:"command" json:"command"`
	Timeout int    `koanf:"timeout" json:"timeout"` // seconds
}

type CalendarConfig struct {
	URL      string `koanf:"url" json:"url,omitempty"`
	Username string `koanf:"username" json:"username"`
	Password string `koanf:"password" json:"password"`
	Path     string `koanf:"path" json:"path"`
}

type WidgetsConfig struct {
	Wiki    WikiWidgetConfig    `koanf:"wiki" json:"wiki"`
	Network NetworkWidgetConfig `koanf:"network" json:"network"`
	Metrics MetricsWidgetConfig `koanf:"metrics" json:"metrics"`
}

// Doc returns the markdown document configured for a widget. An empty
// path means the project README.
func (w WidgetsConfig) Doc(widget string) (string, bool) {
	switch widget {
	case "wiki":
		return w.Wiki.Doc, true
	case "network":
		return w.Network.Doc, true
	case "metrics":
		return w.Metrics.Doc, true
	}
	return "", false
}

type WikiWidgetConfig struct {
	Doc string `koanf:"doc" json:"doc,omitempty"`
}

type NetworkWidgetConfig struct {
	LogFile string `koanf:"log_file" json:"log_file"`
	Doc     string `koanf:"doc" json:"doc,omitempty"`
}

type MetricsWidgetConfig struct {
	Interval      int      `koanf:"interval" json:"interval"` // seconds
	RetentionDays int      `koanf:"retention_days" json:"retention_days"`
	Disk          string   `koanf:"disk" json:"disk"`
	Storage       []string `koanf:"storage" json:"storage"`
	Doc           string   `koanf:"doc" json:"doc,omitempty"`
}

// AlertsConfig holds metric thresholds keyed by rule name: high_load,
// high_memory, high_temp, low_disk and low_storage.
type AlertsConfig struct {
	Rules map[string]AlertRule `koanf:"rules" json:"rules,omitempty"`
}

type AlertRule struct {
	Threshold *float64 `koanf:"threshold" json:"threshold"`
}

// BotConfig enables the Telegram bot. Only users in AllowedUsers may
// talk to it.
type BotConfig struct {
	Token        string  `koanf:"token" json:"token"`
	AllowedUsers []int64 `koanf:"allowed_users" json:"allowed_users"`
}

func (b BotConfig) IsAllowedUser(telegramID int64) bool {
	return slices.Contains(b.AllowedUsers, telegramID)
}

// policyKeys are the non-definition keys allowed directly under reminders.
var policyKeys = map[string]bool{
	"nudges":       true,
	"urgents":      true,
	"time":         true,
	"apprise_urls": true,
	"items":        true,
}

// Load reads defaults, the YAML file at path (if it exists) and MONITORAT_*
// environment variables, in that order. root defaults to the directory of
// the config file.
func Load(path, root string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(NewDefaultProvider(), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load config file: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat config file: %w", err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := foldLegacyReminders(k, &cfg); err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %v", ErrInvalid, cfg.Timezone, err)
	}
	cfg.Location = loc

	if root == "" {
		root, err = defaultRoot(path)
		if err != nil {
			return nil, err
		}
	}
	cfg.Root = root

	return &cfg, nil
}

// envKey maps MONITORAT_SITE__BASE_URL to site.base_url.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// foldLegacyReminders moves definitions written directly under reminders
// (next to nudges/urgents) into Items.
func foldLegacyReminders(k *koanf.Koanf, cfg *Config) error {
	if cfg.Reminders.Items == nil {
		cfg.Reminders.Items = make(map[string]ReminderItem)
	}

	for _, key := range k.MapKeys("reminders") {
		if policyKeys[key] {
			continue
		}
		if _, ok := k.Get("reminders." + key).(map[string]interface{}); !ok {
			log.Printf("[config] ignoring reminders.%s: not a reminder definition", key)
			continue
		}
		if _, exists := cfg.Reminders.Items[key]; exists {
			continue
		}

		var item ReminderItem
		if err := k.Unmarshal("reminders."+key, &item); err != nil {
			return fmt.Errorf("%w: reminders.%s: %v", ErrInvalid, key, err)
		}
		cfg.Reminders.Items[key] = item
	}
	return nil
}

func defaultRoot(path string) (string, error) {
	if path != "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("resolve config path: %w", err)
		}
		return filepath.Dir(abs), nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working dir: %w", err)
	}
	return wd, nil
}

// Resolve returns p unchanged if absolute, otherwise joined to Root.
func (c *Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root, p)
}

func (c *Config) DataDir() string { return c.Resolve(c.Paths.Data) }

func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

// BaseURL returns site.base_url without a trailing slash.
func (c *Config) BaseURL() string {
	return strings.TrimRight(c.Site.BaseURL, "/")
}

func (c *Config) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

// Definitions returns the configured reminders sorted by id, with defaults
// applied.
func (c *Config) Definitions() []domain.Definition {
	ids := make([]string, 0, len(c.Reminders.Items))
	for id := range c.Reminders.Items {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	defs := make([]domain.Definition, 0, len(ids))
	for _, id := range ids {
		item := c.Reminders.Items[id]
		def := domain.Definition{
			ID:         id,
			Name:       item.Name,
			URL:        item.URL,
			Icon:       item.Icon,
			Reason:     item.Reason,
			ExpiryDays: domain.DefaultExpiryDays,
		}
		if def.Name == "" {
			def.Name = id
		}
		if def.Icon == "" {
			def.Icon = domain.DefaultIcon
		}
		if item.ExpiryDays != nil {
			def.ExpiryDays = *item.ExpiryDays
		}
		defs = append(defs, def)
	}
	return defs
}

// Definition looks up a single reminder by id.
func (c *Config) Definition(id string) (domain.Definition, bool) {
	if _, ok := c.Reminders.Items[id]; !ok {
		return domain.Definition{}, false
	}
	for _, d := range c.Definitions() {
		if d.ID == id {
			return d, true
		}
	}
	return domain.Definition{}, false
}

func (c *Config) Policy() domain.Policy {
	return domain.Policy{
		Nudges:  c.Reminders.Nudges,
		Urgents: c.Reminders.Urgents,
		Time:    c.Reminders.Time,
		Targets: c.Reminders.AppriseURLs,
	}
}

// ParseClock parses "HH:MM" or "HH:MM:SS".
func ParseClock(s string) (hour, minute, second int, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0, 0, fmt.Errorf("%w: reminders.time is not set", ErrInvalid)
	}

	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("%w: invalid time format: %s", ErrInvalid, s)
	}

	limits := []int{23, 59, 59}
	vals := make([]int, 3)
	for i, p := range parts {
		n, convErr := strconv.Atoi(p)
		if convErr != nil || len(p) != 2 || n < 0 || n > limits[i] {
			return 0, 0, 0, fmt.Errorf("%w: invalid time format: %s", ErrInvalid, s)
		}
		vals[i] = n
	}
	return vals[0], vals[1], vals[2], nil
}

// Redacted returns a copy safe to expose over HTTP.
func (c *Config) Redacted() Config {
	out := *c
	out.Reminders.AppriseURLs = make([]string, len(c.Reminders.AppriseURLs))
	for i, u := range c.Reminders.AppriseURLs {
		scheme, _, _ := strings.Cut(u, "://")
		out.Reminders.AppriseURLs[i] = scheme + "://***"
	}
	if out.Calendar.Password != "" {
		out.Calendar.Password = "***"
	}
	if out.Bot.Token != "" {
		out.Bot.Token = "***"
	}
	return out
}

// Listener is called with the new snapshot after a successful reload.
type Listener func(*Config)

// Provider holds the current configuration snapshot and notifies
// listeners when it is replaced. Snapshots are read-only.
type Provider struct {
	path string
	root string

	mu        sync.RWMutex
	cfg       *Config
	listeners []Listener
}

func NewProvider(path, root string) (*Provider, error) {
	cfg, err := Load(path, root)
	if err != nil {
		return nil, err
	}
	return &Provider{path: path, root: root, cfg: cfg}, nil
}

// NewStaticProvider wraps an already built configuration. Reload is a
// no-op that only re-notifies listeners.
func NewStaticProvider(cfg *Config) *Provider {
	return &Provider{cfg: cfg}
}

func (p *Provider) Path() string { return p.path }

func (p *Provider) Snapshot() *Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg
}

func (p *Provider) OnReload(fn Listener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

// Reload re-reads every layer. On error the previous snapshot stays active.
func (p *Provider) Reload() error {
	cfg := p.Snapshot()
	if p.path != "" {
		next, err := Load(p.path, p.root)
		if err != nil {
			return fmt.Errorf("reload config: %w", err)
		}
		cfg = next
	}
	p.Replace(cfg)
	return nil
}

// Replace swaps the snapshot and notifies listeners.
func (p *Provider) Replace(cfg *Config) {
	p.mu.Lock()
	p.cfg = cfg
	listeners := append([]Listener(nil), p.listeners...)
	p.mu.Unlock()

	for _, fn := range listeners {
		fn(cfg)
	}
}
