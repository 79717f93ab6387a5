package sampler

import (
	"path"
	"regexp"
	"strconv"

	"github.com/spf13/afero"
)

var (
	tempLabelFile = regexp.MustCompile(`^temp(\d+)_label$`)
	coreLabel     = regexp.MustCompile(`^Core (\d+)\n$`)
)

func (s *System) hwmonDir() string {
	return path.Join(s.opts.sysRoot, "class", "hwmon")
}

// sampleThermal assigns hwmon "Core N" temperatures to every CPU whose
// CoreID is N. Sensors are rescanned on every tick; CPUs without a matching
// sensor read 0.
func (s *System) sampleThermal() {
	for i := range s.cpus {
		s.cpus[i].CurTemp = 0
	}

	monitors, err := afero.ReadDir(s.opts.fs, s.hwmonDir())
	if err != nil {
		return
	}

	for _, monitor := range monitors {
		dir := path.Join(s.hwmonDir(), monitor.Name())
		files, err := afero.ReadDir(s.opts.fs, dir)
		if err != nil {
			continue
		}

		for _, file := range files {
			m := tempLabelFile.FindStringSubmatch(file.Name())
			if m == nil {
				continue
			}

			label, err := afero.ReadFile(s.opts.fs, path.Join(dir, file.Name()))
			if err != nil {
				continue
			}
			core := coreLabel.FindSubmatch(label)
			if core == nil {
				continue
			}
			coreID, err := strconv.Atoi(string(core[1]))
			if err != nil {
				continue
			}

			temp := s.readIntFile(path.Join(dir, "temp"+m[1]+"_input"))
			for c := range s.cpus {
				if s.cpus[c].CoreID == coreID {
					s.cpus[c].CurTemp = temp
				}
			}
		}
	}
}
