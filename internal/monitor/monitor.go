// Package monitor drives the sampler: every tick it refreshes the counters,
// takes a snapshot and hands it to the configured recorders.
package monitor

import (
	"context"
	"sync"
	"time"

	"codeberg.org/mutker/sysmon/internal/errors"
	"codeberg.org/mutker/sysmon/internal/logger"
	"codeberg.org/mutker/sysmon/internal/sampler"
)

// Sampler is the part of *sampler.System the monitor uses.
type Sampler interface {
	Refresh()
	Snapshot() sampler.Snapshot
}

// Recorder consumes one snapshot per tick.
type Recorder interface {
	Record(ctx context.Context, snap *sampler.Snapshot) error
	Close() error
}

type Monitor struct {
	mu        sync.Mutex
	sys       Sampler
	recorders []Recorder
	log       logger.Logger
	ticks     uint64
}

func New(sys Sampler, log logger.Logger, recorders ...Recorder) *Monitor {
	if log == nil {
		log = logger.Nop()
	}

	return &Monitor{
		sys:       sys,
		recorders: recorders,
		log:       log,
	}
}

// Tick refreshes the sampler and records the resulting snapshot. Recorder
// failures are logged and do not stop the tick. It is safe to call from
// several goroutines; ticks never overlap.
func (m *Monitor) Tick(ctx context.Context) sampler.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sys.Refresh()
	snap := m.sys.Snapshot()
	m.ticks++

	for _, r := range m.recorders {
		if err := r.Record(ctx, &snap); err != nil {
			var coded errors.Error
			if errors.As(err, &coded) {
				m.log.ErrorWithCode(coded).Msg("Failed to record sample")
			} else {
				m.log.Error().Err(err).Msg("Failed to record sample")
			}
		}
	}

	m.logSummary(&snap)

	return snap
}

func (m *Monitor) logSummary(snap *sampler.Snapshot) {
	var usage float64
	for _, cpu := range snap.CPUs {
		usage += cpu.TotalUsage
	}
	if len(snap.CPUs) > 0 {
		usage /= float64(len(snap.CPUs))
	}

	var read, written int64
	for i := range snap.Disks {
		read += snap.Disks[i].ReadBytes()
		written += snap.Disks[i].WriteBytes()
	}

	var rx, tx uint64
	for _, iface := range snap.Interfaces {
		rx += iface.DeltaRxBytes
		tx += iface.DeltaTxBytes
	}

	m.log.Debug().
		Uint64("tick", m.ticks).
		Int("cpus", len(snap.CPUs)).
		Float64("cpu_usage", usage).
		Int64("ram_used", snap.RAMUsed).
		Int("disks", len(snap.Disks)).
		Int64("disk_read", read).
		Int64("disk_write", written).
		Int("interfaces", len(snap.Interfaces)).
		Uint64("net_rx", rx).
		Uint64("net_tx", tx).
		Int("batteries", len(snap.Batteries)).
		Msg("Sample")
}

// Run ticks every interval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return errors.New().WithData(errors.ErrInvalidInterval, interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.log.Info().Dur("interval", interval).Msg("Monitoring started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Tick(ctx)
		}
	}
}

// Ticks returns how many ticks have run.
func (m *Monitor) Ticks() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ticks
}

// Close closes the recorders in reverse order.
func (m *Monitor) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for i := len(m.recorders) - 1; i >= 0; i-- {
		if err := m.recorders[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	m.recorders = nil

	if len(errs) > 0 {
		return errors.New().Wrap(errors.ErrShutdownFailed, errors.Join(errs...))
	}

	return nil
}
