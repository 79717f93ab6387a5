package sampler

import (
	"path"

	"codeberg.org/mutker/sysmon/internal/handle"
	"github.com/spf13/afero"
)

const maxInterfaceNameLen = 15

// Interface is a network interface. Deltas are bytes transferred during the
// last tick; a failed read reports zero and keeps the previous totals.
type Interface struct {
	Name             string
	LastTotalRxBytes uint64
	LastTotalTxBytes uint64
	DeltaRxBytes     uint64
	DeltaTxBytes     uint64

	rx *handle.Handle
	tx *handle.Handle
}

func (s *System) netDir() string {
	return path.Join(s.opts.sysRoot, "class", "net")
}

func (s *System) discoverInterfaces() {
	entries, err := afero.ReadDir(s.opts.fs, s.netDir())
	if err != nil {
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		if len(name) > maxInterfaceNameLen {
			continue
		}
		if _, ok := s.ifaces.get(name); ok {
			continue
		}

		stats := path.Join(s.netDir(), name, "statistics")
		rx, err := handle.Open(s.opts.fs, path.Join(stats, "rx_bytes"))
		if err != nil {
			continue
		}
		tx, err := handle.Open(s.opts.fs, path.Join(stats, "tx_bytes"))
		if err != nil {
			handle.CloseAll(rx)
			continue
		}

		s.ifaces.add(name, &Interface{Name: name, rx: rx, tx: tx})
		s.opts.log.Debug().Str("interface", name).Msg("interface added")
	}
}

func (s *System) sampleInterfaces() {
	s.ifaces.each(func(iface *Interface) {
		iface.DeltaRxBytes = 0
		if v, ok := s.readCounter(iface.rx); ok {
			iface.DeltaRxBytes = uint64(v) - iface.LastTotalRxBytes
			iface.LastTotalRxBytes = uint64(v)
		}

		iface.DeltaTxBytes = 0
		if v, ok := s.readCounter(iface.tx); ok {
			iface.DeltaTxBytes = uint64(v) - iface.LastTotalTxBytes
			iface.LastTotalTxBytes = uint64(v)
		}
	})
}
