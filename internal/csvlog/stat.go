package csvlog

import (
	"fmt"
	"strconv"
	"strings"

	"codeberg.org/mutker/sysmon/internal/errors"
	"codeberg.org/mutker/sysmon/internal/sampler"
)

// Kind identifies the metric a column records.
type Kind int

const (
	CPUFrequency Kind = iota
	CPUUsage
	CPUTemperature
	DiskRead
	DiskWrite
	InterfaceRead
	InterfaceWrite
	BatteryCharge
	BatteryCurrent
	BatteryVoltage
)

// Stat is one CSV column: a metric of a CPU (by id) or of a named device.
type Stat struct {
	Kind   Kind
	CPU    int
	Device string
}

var deviceSuffixes = map[string]map[string]Kind{
	"disk_": {
		"r": DiskRead, "read": DiskRead,
		"w": DiskWrite, "write": DiskWrite,
	},
	"iface_": {
		"r": InterfaceRead, "read": InterfaceRead,
		"w": InterfaceWrite, "write": InterfaceWrite,
	},
	"battery_": {
		"c": BatteryCharge, "charge": BatteryCharge,
		"cu": BatteryCurrent, "current": BatteryCurrent,
		"v": BatteryVoltage, "voltage": BatteryVoltage,
	},
}

var cpuSuffixes = map[string]Kind{
	"u": CPUUsage, "usage": CPUUsage,
	"t": CPUTemperature, "temp": CPUTemperature,
	"f": CPUFrequency, "freq": CPUFrequency,
}

// ParseStat parses a selector such as cpu0usage, cpu3t, disk_sda_read,
// iface_eth0_w or battery_BAT0_cu. The device name runs up to the last
// underscore.
func ParseStat(selector string) (Stat, error) {
	invalid := errors.New().WithData(ErrInvalidStat, selector)

	if rest, ok := strings.CutPrefix(selector, "cpu"); ok {
		end := 0
		for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
			end++
		}
		if end == 0 {
			return Stat{}, invalid
		}

		id, err := strconv.Atoi(rest[:end])
		if err != nil {
			return Stat{}, invalid
		}
		kind, ok := cpuSuffixes[rest[end:]]
		if !ok {
			return Stat{}, invalid
		}

		return Stat{Kind: kind, CPU: id}, nil
	}

	for prefix, suffixes := range deviceSuffixes {
		rest, ok := strings.CutPrefix(selector, prefix)
		if !ok {
			continue
		}

		sep := strings.LastIndexByte(rest, '_')
		if sep <= 0 {
			return Stat{}, invalid
		}
		kind, ok := suffixes[rest[sep+1:]]
		if !ok {
			return Stat{}, invalid
		}

		return Stat{Kind: kind, Device: rest[:sep]}, nil
	}

	return Stat{}, invalid
}

// ParseStats parses every selector, failing on the first invalid one.
func ParseStats(selectors []string) ([]Stat, error) {
	stats := make([]Stat, 0, len(selectors))
	for _, sel := range selectors {
		stat, err := ParseStat(sel)
		if err != nil {
			return nil, err
		}
		stats = append(stats, stat)
	}

	return stats, nil
}

// Header returns the column title.
func (s Stat) Header() string {
	switch s.Kind {
	case CPUFrequency:
		return fmt.Sprintf("CPU%d Frequency (KHz)", s.CPU)
	case CPUUsage:
		return fmt.Sprintf("CPU%d Usage", s.CPU)
	case CPUTemperature:
		return fmt.Sprintf("CPU%d Temperature", s.CPU)
	case DiskRead:
		return fmt.Sprintf("Disk %s Read Speed (B/s)", s.Device)
	case DiskWrite:
		return fmt.Sprintf("Disk %s Write Speed (B/s)", s.Device)
	case InterfaceRead:
		return fmt.Sprintf("Interface %s Download Speed (B/s)", s.Device)
	case InterfaceWrite:
		return fmt.Sprintf("Interface %s Upload Speed (B/s)", s.Device)
	case BatteryCharge:
		return fmt.Sprintf("Battery %s Charge (%%)", s.Device)
	case BatteryCurrent:
		return fmt.Sprintf("Battery %s Current (uA)", s.Device)
	case BatteryVoltage:
		return fmt.Sprintf("Battery %s Voltage (uV)", s.Device)
	}

	return ""
}

// Value formats the stat for snap. Devices missing from the snapshot log 0.
func (s Stat) Value(snap *sampler.Snapshot) string {
	switch s.Kind {
	case CPUFrequency, CPUUsage, CPUTemperature:
		cpu, _ := snap.CPU(s.CPU)
		switch s.Kind {
		case CPUFrequency:
			return strconv.FormatInt(cpu.CurFreq, 10)
		case CPUUsage:
			return strconv.FormatFloat(cpu.TotalUsage*100, 'f', 6, 64)
		default:
			return strconv.FormatFloat(float64(cpu.CurTemp)/1000, 'f', 6, 64)
		}

	case DiskRead, DiskWrite:
		disk, _ := snap.Disk(s.Device)
		if s.Kind == DiskRead {
			return strconv.FormatInt(disk.ReadBytes(), 10)
		}
		return strconv.FormatInt(disk.WriteBytes(), 10)

	case InterfaceRead, InterfaceWrite:
		iface, _ := snap.Interface(s.Device)
		if s.Kind == InterfaceRead {
			return strconv.FormatUint(iface.DeltaRxBytes, 10)
		}
		return strconv.FormatUint(iface.DeltaTxBytes, 10)

	case BatteryCharge, BatteryCurrent, BatteryVoltage:
		bat, _ := snap.Battery(s.Device)
		switch s.Kind {
		case BatteryCharge:
			return strconv.FormatInt(bat.Charge, 10)
		case BatteryCurrent:
			return strconv.FormatInt(bat.Current, 10)
		default:
			return strconv.FormatInt(bat.Voltage, 10)
		}
	}

	return ""
}
