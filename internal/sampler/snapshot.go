package sampler

import "time"

// Snapshot is a deep copy of a System taken after a Refresh. It holds no
// file handles and may be passed between goroutines.
type Snapshot struct {
	Timestamp time.Time

	CPUs       []CPU
	Disks      []Disk
	Interfaces []Interface
	Batteries  []Battery

	RAMUsed    int64
	RAMBuffers int64
	RAMCached  int64
}

// Snapshot copies the current state.
func (s *System) Snapshot() Snapshot {
	snap := Snapshot{
		Timestamp:  time.Now(),
		CPUs:       s.CPUs(),
		Disks:      s.Disks(),
		Interfaces: s.Interfaces(),
		Batteries:  s.Batteries(),
		RAMUsed:    s.RAMUsed,
		RAMBuffers: s.RAMBuffers,
		RAMCached:  s.RAMCached,
	}

	for i := range snap.CPUs {
		snap.CPUs[i].freq = nil
	}
	for i := range snap.Disks {
		snap.Disks[i].stat = nil
	}
	for i := range snap.Interfaces {
		snap.Interfaces[i].rx, snap.Interfaces[i].tx = nil, nil
	}
	for i := range snap.Batteries {
		b := &snap.Batteries[i]
		b.capacity, b.current, b.voltage = nil, nil, nil
	}

	return snap
}

// CPU returns the CPU with the given id.
func (s *Snapshot) CPU(id int) (CPU, bool) {
	for _, cpu := range s.CPUs {
		if cpu.ID == id {
			return cpu, true
		}
	}
	return CPU{}, false
}

// Disk returns the block device with the given name.
func (s *Snapshot) Disk(name string) (Disk, bool) {
	for _, d := range s.Disks {
		if d.Name == name {
			return d, true
		}
	}
	return Disk{}, false
}

// Interface returns the network interface with the given name.
func (s *Snapshot) Interface(name string) (Interface, bool) {
	for _, iface := range s.Interfaces {
		if iface.Name == name {
			return iface, true
		}
	}
	return Interface{}, false
}

// Battery returns the battery with the given name.
func (s *Snapshot) Battery(name string) (Battery, bool) {
	for _, b := range s.Batteries {
		if b.Name == name {
			return b, true
		}
	}
	return Battery{}, false
}
