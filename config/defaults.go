package config

import (
	"github.com/knadh/koanf/providers/confmap"
)

// nudges, urgents and time have no defaults: empty threshold sets fall back
// to the default band and a missing time disables the daily check.
func DefaultConfig() map[string]interface{} {
	return map[string]interface{}{
		"site": map[string]interface{}{
			"name":     "monitor@",
			"base_url": "http://localhost:6161",
		},
		"server": map[string]interface{}{
			"bind": "127.0.0.1",
			"port": 6161,
		},
		"paths": map[string]interface{}{
			"data":    "data",
			"www":     "www",
			"img":     "img",
			"favicon": "",
		},
		"timezone": "Local",
		"reminders": map[string]interface{}{
			"apprise_urls": []string{},
		},
		"speedtest": map[string]interface{}{
			"command": "speedtest-cli",
			"timeout": 100,
		},
		"calendar": map[string]interface{}{
			"url":      "",
			"username": "",
			"password": "",
			"path":     "",
		},
		"widgets": map[string]interface{}{
			"metrics": map[string]interface{}{
				"interval":       60,
				"retention_days": 90,
				"disk":           "/",
				"storage":        []string{},
			},
		},
		"bot": map[string]interface{}{
			"token":         "",
			"allowed_users": []int64{},
		},
	}
}

func NewDefaultProvider() *confmap.Confmap {
	return confmap.Provider(DefaultConfig(), ".")
}

func GetDefaultConfigPath() string {
	return "config.yaml"
}
