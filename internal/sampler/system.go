// Package sampler discovers the CPUs, block devices, network interfaces,
// batteries and thermal sensors of a Linux host and turns their procfs and
// sysfs counters into per-tick rates.
//
// A System is not safe for concurrent use. Code that hands data to other
// goroutines should take a Snapshot.
package sampler

import (
	"path"

	"codeberg.org/mutker/sysmon/internal/handle"
	"codeberg.org/mutker/sysmon/internal/textparse"
	"github.com/spf13/afero"
)

// System is the sampled state of the host. The RAM figures are in bytes.
type System struct {
	RAMUsed    int64
	RAMBuffers int64
	RAMCached  int64

	opts *options

	cpus      []CPU
	cpuByID   map[int]int
	disks     *deviceSet[Disk]
	ifaces    *deviceSet[Interface]
	batteries *deviceSet[Battery]

	procStat    *handle.Handle
	procMeminfo *handle.Handle

	// Scratch buffer shared by every bulk read in a tick.
	buf []byte
}

// Init discovers the CPUs, opens the procfs counters and runs a first
// Refresh. Missing files leave the corresponding figures at zero.
func Init(opts ...Option) *System {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	s := &System{
		opts:      o,
		disks:     newDeviceSet[Disk](),
		ifaces:    newDeviceSet[Interface](),
		batteries: newDeviceSet[Battery](),
		buf:       make([]byte, 0, textparse.GrowStep),
	}

	s.discoverCPUs()

	var err error
	if s.procStat, err = handle.Open(o.fs, path.Join(o.procRoot, "stat")); err != nil {
		o.log.Debug().Err(err).Msg("cpu usage unavailable")
	}
	if s.procMeminfo, err = handle.Open(o.fs, path.Join(o.procRoot, "meminfo")); err != nil {
		o.log.Debug().Err(err).Msg("memory usage unavailable")
	}

	s.Refresh()

	return s
}

// Refresh reconciles the hot-pluggable device sets with the filesystem and
// recomputes every metric. Rates cover the time since the previous call.
func (s *System) Refresh() {
	if s.disks == nil {
		return
	}

	s.discoverDisks()
	s.discoverInterfaces()
	s.discoverBatteries()

	s.sampleCPUFreq()
	s.sampleCPUUsage()
	s.sampleThermal()
	s.sampleMemory()
	s.sampleDisks()
	s.sampleInterfaces()
	s.sampleBatteries()
}

// Shutdown closes every handle and drops all device records. Calling it
// again, or calling Refresh afterwards, does nothing.
func (s *System) Shutdown() {
	if s.disks == nil {
		return
	}

	for i := range s.cpus {
		handle.CloseAll(s.cpus[i].freq)
	}
	s.disks.each(func(d *Disk) { handle.CloseAll(d.stat) })
	s.ifaces.each(func(iface *Interface) { handle.CloseAll(iface.rx, iface.tx) })
	s.batteries.each(func(bat *Battery) { handle.CloseAll(bat.capacity, bat.current, bat.voltage) })
	handle.CloseAll(s.procStat, s.procMeminfo)

	s.cpus = nil
	s.cpuByID = nil
	s.disks = nil
	s.ifaces = nil
	s.batteries = nil
	s.procStat = nil
	s.procMeminfo = nil
	s.buf = nil
}

// CPUs returns the CPUs ordered by package, core and id.
func (s *System) CPUs() []CPU {
	out := make([]CPU, len(s.cpus))
	copy(out, s.cpus)
	return out
}

// Disks returns the block devices in discovery order.
func (s *System) Disks() []Disk {
	if s.disks == nil {
		return nil
	}
	return s.disks.values()
}

// Interfaces returns the network interfaces in discovery order.
func (s *System) Interfaces() []Interface {
	if s.ifaces == nil {
		return nil
	}
	return s.ifaces.values()
}

// Batteries returns the batteries in discovery order.
func (s *System) Batteries() []Battery {
	if s.batteries == nil {
		return nil
	}
	return s.batteries.values()
}

// readCounter re-reads a single-value counter file. An empty or failed read
// reports false.
func (s *System) readCounter(h *handle.Handle) (int64, bool) {
	n, err := h.ReadAll(&s.buf)
	if err != nil || n == 0 {
		return 0, false
	}

	return textparse.Atoi(string(s.buf[:n])), true
}

// readIntFile reads a one-shot attribute. Unreadable files count as zero.
func (s *System) readIntFile(name string) int64 {
	data, err := afero.ReadFile(s.opts.fs, name)
	if err != nil {
		return 0
	}

	return textparse.Atoi(string(data))
}
