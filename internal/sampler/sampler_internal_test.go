package sampler

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpdateUsage(t *testing.T) {
	tests := []struct {
		name  string
		prev  [TimeFields]int64
		next  [TimeFields]int64
		usage float64
	}{
		{
			name:  "from zero",
			next:  [TimeFields]int64{100, 0, 100, 800},
			usage: 0.2,
		},
		{
			name:  "iowait counts as idle",
			prev:  [TimeFields]int64{100, 0, 100, 800},
			next:  [TimeFields]int64{150, 0, 150, 850, 50},
			usage: 0.5,
		},
		{
			name:  "guest time is not part of the total",
			prev:  [TimeFields]int64{0, 0, 0, 0},
			next:  [TimeFields]int64{50, 0, 0, 50, 0, 0, 0, 0, 1000, 1000},
			usage: 0.5,
		},
		{
			name:  "identical vectors",
			prev:  [TimeFields]int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
			next:  [TimeFields]int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
			usage: 0,
		},
		{
			name:  "above one is clamped",
			prev:  [TimeFields]int64{0, 0, 0, 500},
			next:  [TimeFields]int64{300, 0, 0, 300},
			usage: 1,
		},
		{
			name:  "below zero is clamped",
			prev:  [TimeFields]int64{100, 0, 0, 0},
			next:  [TimeFields]int64{50, 0, 0, 100},
			usage: 0,
		},
		{
			name:  "only busy time went backwards",
			prev:  [TimeFields]int64{100},
			next:  [TimeFields]int64{0},
			usage: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cpu := CPU{Times: tt.prev}
			updateUsage(&cpu, tt.next)

			assert.False(t, math.IsNaN(cpu.TotalUsage))
			assert.InDelta(t, tt.usage, cpu.TotalUsage, 1e-9)
			assert.Equal(t, tt.next, cpu.Times)
		})
	}
}

func TestCPUIndex(t *testing.T) {
	id, ok := cpuIndex("cpu12")
	assert.True(t, ok)
	assert.Equal(t, 12, id)

	for _, name := range []string{"cpu", "cpufreq", "cpuidle", "cpu1a", "node0", ""} {
		_, ok := cpuIndex(name)
		assert.False(t, ok, name)
	}
}

func TestDeviceSet(t *testing.T) {
	set := newDeviceSet[Disk]()
	for _, name := range []string{"sda", "sdb", "sdc", "sdd"} {
		set.add(name, &Disk{Name: name})
	}

	sdc, ok := set.get("sdc")
	assert.True(t, ok)
	sdc.LastStats[StatReadSectors] = 42

	removed := set.removeIf(func(d *Disk) bool {
		return d.Name == "sdb" || d.Name == "sdd"
	})
	assert.Len(t, removed, 2)
	assert.Equal(t, 2, set.len())

	var names []string
	for _, d := range set.values() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"sda", "sdc"}, names)

	_, ok = set.get("sdb")
	assert.False(t, ok)

	got, _ := set.get("sdc")
	assert.Equal(t, int64(42), got.LastStats[StatReadSectors])

	set.add("sdb", &Disk{Name: "sdb"})
	names = names[:0]
	set.each(func(d *Disk) { names = append(names, d.Name) })
	assert.Equal(t, []string{"sda", "sdc", "sdb"}, names)
}
