package sampler_test

import (
	"fmt"
	"path"
	"strings"
	"testing"

	"codeberg.org/mutker/sysmon/internal/logger"
	"codeberg.org/mutker/sysmon/internal/sampler"
	"codeberg.org/mutker/sysmon/internal/testutil"
	"github.com/spf13/afero"
)

// fakeHost builds a synthetic /proc and /sys tree.
type fakeHost struct {
	t     *testing.T
	base  afero.Fs
	flaky *testutil.FlakyFs
}

func newFakeHost(t *testing.T) *fakeHost {
	t.Helper()
	base := afero.NewMemMapFs()
	return &fakeHost{t: t, base: base, flaky: testutil.NewFlakyFs(base)}
}

func (h *fakeHost) write(name, content string) {
	h.t.Helper()
	testutil.WriteFile(h.t, h.base, name, content)
}

func (h *fakeHost) init(opts ...sampler.Option) *sampler.System {
	h.t.Helper()
	opts = append([]sampler.Option{sampler.WithFs(h.flaky), sampler.WithLogger(logger.Nop())}, opts...)
	s := sampler.Init(opts...)
	h.t.Cleanup(s.Shutdown)
	return s
}

func (h *fakeHost) cpu(id, core, pkg int, curFreq int64) {
	dir := fmt.Sprintf("/sys/bus/cpu/devices/cpu%d", id)
	h.write(path.Join(dir, "topology/core_id"), fmt.Sprintf("%d\n", core))
	h.write(path.Join(dir, "topology/physical_package_id"), fmt.Sprintf("%d\n", pkg))
	h.write(path.Join(dir, "cpufreq/cpuinfo_min_freq"), "800000\n")
	h.write(path.Join(dir, "cpufreq/cpuinfo_max_freq"), "4200000\n")
	h.write(path.Join(dir, "cpufreq/scaling_cur_freq"), fmt.Sprintf("%d\n", curFreq))
}

func (h *fakeHost) setFreq(id int, curFreq int64) {
	h.write(fmt.Sprintf("/sys/bus/cpu/devices/cpu%d/cpufreq/scaling_cur_freq", id), fmt.Sprintf("%d\n", curFreq))
}

// procStat writes /proc/stat with an aggregate line followed by lines.
func (h *fakeHost) procStat(lines ...string) {
	h.write("/proc/stat", "cpu  1 1 1 1 1 1 1 1 0 0\n"+strings.Join(lines, "\n")+"\nintr 12345 0 0\nctxt 999\n")
}

func (h *fakeHost) meminfo(content string) {
	h.write("/proc/meminfo", content)
}

func diskStat(readSectors, writeSectors int64) string {
	return fmt.Sprintf("    1200      30 %8d     400     900      20 %8d     700        0     500    1100\n",
		readSectors, writeSectors)
}

func (h *fakeHost) disk(name string, readSectors, writeSectors int64) {
	h.write("/sys/block/"+name+"/stat", diskStat(readSectors, writeSectors))
}

func (h *fakeHost) iface(name string, rx, tx uint64) {
	dir := "/sys/class/net/" + name + "/statistics/"
	h.write(dir+"rx_bytes", fmt.Sprintf("%d\n", rx))
	h.write(dir+"tx_bytes", fmt.Sprintf("%d\n", tx))
}

func (h *fakeHost) battery(name string, charge, current, voltage int64) {
	dir := "/sys/class/power_supply/" + name + "/"
	h.write(dir+"capacity", fmt.Sprintf("%d\n", charge))
	h.write(dir+"current_now", fmt.Sprintf("%d\n", current))
	h.write(dir+"voltage_now", fmt.Sprintf("%d\n", voltage))
}

func diskNames(disks []sampler.Disk) []string {
	names := make([]string, 0, len(disks))
	for _, d := range disks {
		names = append(names, d.Name)
	}
	return names
}
