package sampler

import (
	"path"
	"strings"

	"codeberg.org/mutker/sysmon/internal/handle"
	"github.com/spf13/afero"
)

const maxBatteryNameLen = 7

// Battery holds instantaneous readings: Charge in percent, Current in µA and
// Voltage in µV.
type Battery struct {
	Name    string
	Charge  int64
	Current int64
	Voltage int64

	capacity *handle.Handle
	current  *handle.Handle
	voltage  *handle.Handle
}

func (s *System) powerSupplyDir() string {
	return path.Join(s.opts.sysRoot, "class", "power_supply")
}

func (s *System) discoverBatteries() {
	entries, err := afero.ReadDir(s.opts.fs, s.powerSupplyDir())
	if err != nil {
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "BAT") || len(name) > maxBatteryNameLen {
			continue
		}
		if _, ok := s.batteries.get(name); ok {
			continue
		}

		dir := path.Join(s.powerSupplyDir(), name)
		bat := &Battery{Name: name}
		var err error
		if bat.capacity, err = handle.Open(s.opts.fs, path.Join(dir, "capacity")); err != nil {
			continue
		}
		if bat.current, err = handle.Open(s.opts.fs, path.Join(dir, "current_now")); err != nil {
			handle.CloseAll(bat.capacity)
			continue
		}
		if bat.voltage, err = handle.Open(s.opts.fs, path.Join(dir, "voltage_now")); err != nil {
			handle.CloseAll(bat.capacity, bat.current)
			continue
		}

		s.batteries.add(name, bat)
		s.opts.log.Debug().Str("battery", name).Msg("battery added")
	}
}

func (s *System) sampleBatteries() {
	s.batteries.each(func(bat *Battery) {
		if v, ok := s.readCounter(bat.capacity); ok {
			bat.Charge = v
		}
		if v, ok := s.readCounter(bat.current); ok {
			bat.Current = v
		}
		if v, ok := s.readCounter(bat.voltage); ok {
			bat.Voltage = v
		}
	})
}
