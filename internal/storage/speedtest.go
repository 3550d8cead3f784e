package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/tazhate/monitorat/internal/domain"
)

// === Speed test ===

func (s *Storage) AddSpeedtestResult(ctx context.Context, r *domain.SpeedtestResult) error {
	r.Timestamp = r.Timestamp.UTC()
	res, err := s.db.NamedExecContext(ctx,
		`INSERT INTO speedtest_results (timestamp, download, upload, ping, server, server_id)
		 VALUES (:timestamp, :download, :upload, :ping, :server, :server_id)`,
		r,
	)
	if err != nil {
		return fmt.Errorf("insert speedtest result: %w", err)
	}
	id, _ := res.LastInsertId()
	r.ID = id
	return nil
}

// ListSpeedtestResults returns the latest limit results, newest first.
func (s *Storage) ListSpeedtestResults(ctx context.Context, limit int) ([]domain.SpeedtestResult, error) {
	results := []domain.SpeedtestResult{}
	err := s.db.SelectContext(ctx, &results,
		`SELECT id, timestamp, download, upload, ping, server, server_id
		 FROM speedtest_results ORDER BY timestamp DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list speedtest results: %w", err)
	}
	return results, nil
}

// ListSpeedtestResultsSince returns results at or after since, oldest first.
// A zero since returns the full history.
func (s *Storage) ListSpeedtestResultsSince(ctx context.Context, since time.Time) ([]domain.SpeedtestResult, error) {
	results := []domain.SpeedtestResult{}
	err := s.db.SelectContext(ctx, &results,
		`SELECT id, timestamp, download, upload, ping, server, server_id
		 FROM speedtest_results WHERE timestamp >= ? ORDER BY timestamp, id`,
		since.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list speedtest results: %w", err)
	}
	return results, nil
}
