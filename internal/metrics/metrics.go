// Package metrics keeps a sqlite history of sampler snapshots. Inserts are
// batched and flushed when the batch fills, on a timer and on Close.
package metrics

import (
	"context"

	"codeberg.org/mutker/sysmon/internal/errors"
	"codeberg.org/mutker/sysmon/internal/logger"
	"codeberg.org/mutker/sysmon/internal/sampler"
)

type service struct {
	repo     MetricsRepository
	log      logger.Logger
	recorded int
}

type noopCollector struct{}

// NewService opens the history database described by cfg. A disabled config
// yields a collector that discards every snapshot.
func NewService(cfg Config, log logger.Logger) (MetricsCollector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.New().Wrap(ErrInvalidConfig, err)
	}

	if !cfg.Enabled {
		log.Debug().Msg("Metrics history disabled")
		return noopCollector{}, nil
	}

	repo, err := NewRepository(cfg, log)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("db_path", cfg.DBPath).
		Int("batch_size", cfg.BatchSize).
		Dur("batch_timeout", cfg.BatchTimeout).
		Msg("Metrics history opened")

	return &service{repo: repo, log: log}, nil
}

func (s *service) Record(ctx context.Context, snap *sampler.Snapshot) error {
	errFactory := errors.New()

	if snap == nil {
		return errFactory.New(ErrInvalidMetrics)
	}
	if err := ctx.Err(); err != nil {
		return errFactory.Wrap(ErrOperationTimeout, err)
	}

	if err := s.repo.Record(snap); err != nil {
		return errFactory.Wrap(ErrMetricsCollection, err)
	}
	s.recorded++

	return nil
}

func (s *service) Close() error {
	if err := s.repo.Close(); err != nil {
		return errors.New().Wrap(ErrServiceShutdown, err)
	}

	s.log.Debug().Int("snapshots", s.recorded).Msg("Metrics history closed")

	return nil
}

func (noopCollector) Record(context.Context, *sampler.Snapshot) error { return nil }

func (noopCollector) Close() error { return nil }
