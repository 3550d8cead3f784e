package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/tazhate/monitorat/internal/domain"
)

// === Host metrics ===

func (s *Storage) AddMetricsSample(ctx context.Context, m *domain.MetricsSample) error {
	m.Timestamp = m.Timestamp.UTC()
	res, err := s.db.NamedExecContext(ctx,
		`INSERT INTO metrics_samples (timestamp, cpu_percent, memory_percent, disk_read_mb, disk_write_mb,
		                              net_rx_mb, net_tx_mb, load_1min, temp_c, source)
		 VALUES (:timestamp, :cpu_percent, :memory_percent, :disk_read_mb, :disk_write_mb,
		         :net_rx_mb, :net_tx_mb, :load_1min, :temp_c, :source)`,
		m,
	)
	if err != nil {
		return fmt.Errorf("insert metrics sample: %w", err)
	}
	id, _ := res.LastInsertId()
	m.ID = id
	return nil
}

// ListMetricsSamplesSince returns the latest limit samples at or after
// since, oldest first. A zero since covers the full history.
func (s *Storage) ListMetricsSamplesSince(ctx context.Context, since time.Time, limit int) ([]domain.MetricsSample, error) {
	samples := []domain.MetricsSample{}
	err := s.db.SelectContext(ctx, &samples,
		`SELECT * FROM (
			SELECT id, timestamp, cpu_percent, memory_percent, disk_read_mb, disk_write_mb,
			       net_rx_mb, net_tx_mb, load_1min, temp_c, source
			FROM metrics_samples WHERE timestamp >= ?
			ORDER BY timestamp DESC, id DESC LIMIT ?
		) ORDER BY timestamp, id`,
		since.UTC(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list metrics samples: %w", err)
	}
	return samples, nil
}

// PruneMetricsSamples deletes samples older than before.
func (s *Storage) PruneMetricsSamples(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM metrics_samples WHERE timestamp < ?`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune metrics samples: %w", err)
	}
	return res.RowsAffected()
}
