package sampler

import (
	"path"
	"sort"
	"strconv"
	"strings"

	"codeberg.org/mutker/sysmon/internal/handle"
	"codeberg.org/mutker/sysmon/internal/textparse"
	"github.com/spf13/afero"
)

// Indices into CPU.Times, in /proc/stat column order.
const (
	TimeUser = iota
	TimeNice
	TimeSystem
	TimeIdle
	TimeIOWait
	TimeIRQ
	TimeSoftIRQ
	TimeSteal
	TimeGuest
	TimeGuestNice

	TimeFields
)

// CPU is one logical processor. Frequencies are in KHz and CurTemp in
// millidegrees Celsius; TotalUsage is the busy share of the last tick.
type CPU struct {
	ID        int
	CoreID    int
	PackageID int

	MinFreq int64
	MaxFreq int64
	CurFreq int64
	CurTemp int64

	TotalUsage float64
	Times      [TimeFields]int64

	freq *handle.Handle
}

func (s *System) cpuDevicesDir() string {
	return path.Join(s.opts.sysRoot, "bus", "cpu", "devices")
}

// discoverCPUs enumerates cpuN entries once. The set never changes
// afterwards.
func (s *System) discoverCPUs() {
	entries, err := afero.ReadDir(s.opts.fs, s.cpuDevicesDir())
	if err != nil {
		return
	}

	for _, entry := range entries {
		id, ok := cpuIndex(entry.Name())
		if !ok {
			continue
		}

		dir := path.Join(s.cpuDevicesDir(), entry.Name())
		cpu := CPU{
			ID:        id,
			CoreID:    int(s.readIntFile(path.Join(dir, "topology", "core_id"))),
			PackageID: int(s.readIntFile(path.Join(dir, "topology", "physical_package_id"))),
			MinFreq:   s.readIntFile(path.Join(dir, "cpufreq", "cpuinfo_min_freq")),
			MaxFreq:   s.readIntFile(path.Join(dir, "cpufreq", "cpuinfo_max_freq")),
		}

		h, err := handle.Open(s.opts.fs, path.Join(dir, "cpufreq", "scaling_cur_freq"))
		if err != nil {
			s.opts.log.Debug().Int("cpu", id).Msg("no frequency counter")
		} else {
			cpu.freq = h
		}

		s.cpus = append(s.cpus, cpu)
	}

	sort.SliceStable(s.cpus, func(i, j int) bool {
		a, b := s.cpus[i], s.cpus[j]
		if a.PackageID != b.PackageID {
			return a.PackageID < b.PackageID
		}
		if a.CoreID != b.CoreID {
			return a.CoreID < b.CoreID
		}
		return a.ID < b.ID
	})

	s.cpuByID = make(map[int]int, len(s.cpus))
	for i := range s.cpus {
		s.cpuByID[s.cpus[i].ID] = i
	}

	s.opts.log.Debug().Int("count", len(s.cpus)).Msg("discovered cpus")
}

// cpuIndex returns N for names of the form cpuN.
func cpuIndex(name string) (int, bool) {
	digits, ok := strings.CutPrefix(name, "cpu")
	if !ok || digits == "" {
		return 0, false
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, false
		}
	}

	id, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}

	return id, true
}

func (s *System) sampleCPUFreq() {
	for i := range s.cpus {
		cpu := &s.cpus[i]
		if cpu.freq == nil {
			continue
		}
		if v, ok := s.readCounter(cpu.freq); ok {
			cpu.CurFreq = v
		}
	}
}

// sampleCPUUsage reads the per-CPU lines of /proc/stat and turns the change
// in time accounting since the previous tick into a busy ratio.
func (s *System) sampleCPUUsage() {
	if s.procStat == nil {
		return
	}

	n, err := s.procStat.ReadAll(&s.buf)
	if err != nil {
		s.opts.log.Debug().Err(err).Msg("read proc stat")
		return
	}

	text := string(s.buf[:n])

	// The first line is the aggregate over all CPUs.
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	} else {
		return
	}

	for len(text) > 0 {
		var line string
		if nl := strings.IndexByte(text, '\n'); nl >= 0 {
			line, text = text[:nl], text[nl+1:]
		} else {
			line, text = text, ""
		}

		name, rest, _ := strings.Cut(strings.TrimLeft(line, " \t"), " ")
		id, ok := cpuIndex(name)
		if !ok {
			break
		}

		idx, known := s.cpuByID[id]
		if !known {
			continue
		}

		var times [TimeFields]int64
		copy(times[:], textparse.ParseInts(rest))

		updateUsage(&s.cpus[idx], times)
	}
}

// updateUsage stores times as the CPU's latest vector and sets TotalUsage
// from the difference to the previous one, clamped to [0, 1].
func updateUsage(cpu *CPU, times [TimeFields]int64) {
	var delta [TimeFields]int64
	for i := range times {
		delta[i] = times[i] - cpu.Times[i]
	}

	var total int64
	for i := TimeUser; i <= TimeSteal; i++ {
		total += delta[i]
	}
	idle := delta[TimeIdle] + delta[TimeIOWait]

	usage := float64(total-idle) / float64(total)
	switch {
	case !(usage >= 0):
		usage = 0
	case usage > 1:
		usage = 1
	}

	cpu.TotalUsage = usage
	cpu.Times = times
}
