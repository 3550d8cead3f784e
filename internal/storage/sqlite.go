package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const dbFile = "monitorat.db"

// Storage is the SQLite database holding dashboard history.
type Storage struct {
	db *sqlx.DB
}

// New opens (or creates) monitorat.db inside dataDir and applies migrations.
func New(dataDir string) (*Storage, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	return Open(filepath.Join(dataDir, dbFile) + "?_journal_mode=WAL&_busy_timeout=5000")
}

// Open connects to an explicit DSN, e.g. ":memory:" in tests.
func Open(dsn string) (*Storage, error) {
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &Storage{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS speedtest_results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp DATETIME NOT NULL,
			download REAL NOT NULL DEFAULT 0,
			upload REAL NOT NULL DEFAULT 0,
			ping REAL NOT NULL DEFAULT 0,
			server TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_speedtest_timestamp ON speedtest_results(timestamp)`,
		// CalDAV objects written by the expiry mirror
		`CREATE TABLE IF NOT EXISTS calendar_events (
			reminder_id TEXT PRIMARY KEY,
			caldav_uid TEXT NOT NULL,
			href TEXT NOT NULL DEFAULT '',
			expires_on DATE NOT NULL,
			synced_at DATETIME NOT NULL
		)`,
		`ALTER TABLE speedtest_results ADD COLUMN server_id TEXT NOT NULL DEFAULT ''`,
		`CREATE TABLE IF NOT EXISTS metrics_samples (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp DATETIME NOT NULL,
			cpu_percent REAL NOT NULL DEFAULT 0,
			memory_percent REAL NOT NULL DEFAULT 0,
			disk_read_mb REAL NOT NULL DEFAULT 0,
			disk_write_mb REAL NOT NULL DEFAULT 0,
			net_rx_mb REAL NOT NULL DEFAULT 0,
			net_tx_mb REAL NOT NULL DEFAULT 0,
			load_1min REAL NOT NULL DEFAULT 0,
			temp_c REAL NOT NULL DEFAULT 0,
			source TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_metrics_timestamp ON metrics_samples(timestamp)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			// Ignore "duplicate column" errors for ALTER TABLE
			if !strings.Contains(err.Error(), "duplicate column") {
				return fmt.Errorf("exec migration: %w", err)
			}
		}
	}
	return nil
}
