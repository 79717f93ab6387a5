package sampler

import (
	"path"
	"strings"

	"codeberg.org/mutker/sysmon/internal/handle"
	"codeberg.org/mutker/sysmon/internal/textparse"
	"github.com/spf13/afero"
)

// Indices into Disk.LastStats and Disk.StatsDelta, in /sys/block/<dev>/stat
// column order.
const (
	StatReadIOs = iota
	StatReadMerges
	StatReadSectors
	StatReadTicks
	StatWriteIOs
	StatWriteMerges
	StatWriteSectors
	StatWriteTicks

	StatFields
)

const (
	// SectorSize is the unit of the sector counters regardless of the
	// device's physical sector size.
	SectorSize = 512

	maxDiskNameLen = 31
)

// Disk is a block device. StatsDelta holds the change of each counter over
// the last tick.
type Disk struct {
	Name       string
	LastStats  [StatFields]int64
	StatsDelta [StatFields]int64

	stat    *handle.Handle
	evicted bool
}

// ReadBytes returns the bytes read during the last tick.
func (d *Disk) ReadBytes() int64 {
	return d.StatsDelta[StatReadSectors] * SectorSize
}

// WriteBytes returns the bytes written during the last tick.
func (d *Disk) WriteBytes() int64 {
	return d.StatsDelta[StatWriteSectors] * SectorSize
}

func (s *System) blockDir() string {
	return path.Join(s.opts.sysRoot, "block")
}

func diskNameAllowed(name string) bool {
	return !strings.HasPrefix(name, "loop") &&
		!strings.HasPrefix(name, ".") &&
		len(name) <= maxDiskNameLen
}

// discoverDisks adds block devices that appeared since the last pass. A stat
// file that cannot be opened is skipped until the next listing.
func (s *System) discoverDisks() {
	entries, err := afero.ReadDir(s.opts.fs, s.blockDir())
	if err != nil {
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		if !diskNameAllowed(name) {
			continue
		}
		if _, ok := s.disks.get(name); ok {
			continue
		}

		h, err := handle.Open(s.opts.fs, path.Join(s.blockDir(), name, "stat"))
		if err != nil {
			continue
		}

		s.disks.add(name, &Disk{Name: name, stat: h})
		s.opts.log.Debug().Str("disk", name).Msg("disk added")
	}
}

func (s *System) sampleDisks() {
	s.disks.each(func(d *Disk) {
		n, err := d.stat.ReadRetry(&s.buf)
		if err != nil {
			d.evicted = true
			s.opts.log.Debug().Str("disk", d.Name).Err(err).Msg("disk evicted")
			return
		}

		var stats [StatFields]int64
		copy(stats[:], textparse.ParseInts(string(s.buf[:n])))

		for i := range stats {
			d.StatsDelta[i] = stats[i] - d.LastStats[i]
		}
		d.LastStats = stats
	})

	for _, d := range s.disks.removeIf(func(d *Disk) bool { return d.evicted }) {
		d.stat.Close()
	}
}
