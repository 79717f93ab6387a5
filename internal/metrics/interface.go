package metrics

import (
	"context"

	"codeberg.org/mutker/sysmon/internal/sampler"
)

// MetricsCollector records sampler snapshots as history.
type MetricsCollector interface {
	Record(ctx context.Context, snapshot *sampler.Snapshot) error
	Close() error
}

// MetricsRepository defines the interface for metrics data storage
type MetricsRepository interface {
	Record(snapshot *sampler.Snapshot) error
	Close() error
}
