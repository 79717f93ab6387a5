package ui

import (
	"fmt"
	"strings"
	"time"

	"codeberg.org/mutker/sysmon/internal/sampler"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// HostInfo identifies the machine in the header.
type HostInfo struct {
	Hostname string
	Platform string
	Kernel   string
	Uptime   time.Duration
	Load1    float64
	Load5    float64
	Load15   float64
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("45"))
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("81")).Bold(true)
	hotStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

// usage at or above this ratio is highlighted.
const hotUsage = 0.9

// Render lays out one snapshot: CPUs, memory, disks, interfaces and, when
// present, batteries. Byte counts are per tick; interval scales them to
// per-second rates.
func Render(snap *sampler.Snapshot, host HostInfo, interval time.Duration) string {
	sections := []string{
		renderHeader(snap, host),
		renderCPUs(snap.CPUs),
		renderMemory(snap),
		renderDisks(snap.Disks, interval),
		renderInterfaces(snap.Interfaces, interval),
	}
	if len(snap.Batteries) > 0 {
		sections = append(sections, renderBatteries(snap.Batteries))
	}
	sections = append(sections, subtleStyle.Render("q: quit"))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func renderHeader(snap *sampler.Snapshot, host HostInfo) string {
	var parts []string
	if host.Hostname != "" {
		parts = append(parts, host.Hostname)
	}
	if host.Platform != "" || host.Kernel != "" {
		parts = append(parts, strings.TrimSpace(host.Platform+" "+host.Kernel))
	}
	if host.Uptime > 0 {
		parts = append(parts, "up "+host.Uptime.Truncate(time.Minute).String())
	}
	if host.Load1 > 0 || host.Load5 > 0 || host.Load15 > 0 {
		parts = append(parts, fmt.Sprintf("load %.2f %.2f %.2f", host.Load1, host.Load5, host.Load15))
	}
	if !snap.Timestamp.IsZero() {
		parts = append(parts, snap.Timestamp.Format(time.TimeOnly))
	}

	return titleStyle.Render("sysmon") + "  " + subtleStyle.Render(strings.Join(parts, " · ")) + "\n"
}

// renderCPUs prints one line per CPU. The temperature is a per-core
// reading, so it is shown only on the first thread of each core.
func renderCPUs(cpus []sampler.CPU) string {
	var b strings.Builder
	for i, cpu := range cpus {
		usage := int(cpu.TotalUsage * 100)
		line := fmt.Sprintf("CPU %d : %4d MHz %3d%% usage", cpu.ID, cpu.CurFreq/1000, usage)
		if i == 0 || cpu.CoreID != cpus[i-1].CoreID || cpu.PackageID != cpus[i-1].PackageID {
			line += fmt.Sprintf(" %3dC", cpu.CurTemp/1000)
		}
		if cpu.TotalUsage >= hotUsage {
			line = hotStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}

	return b.String()
}

func renderMemory(snap *sampler.Snapshot) string {
	return fmt.Sprintf("%s %s used  %s buffers  %s cached\n",
		labelStyle.Render("RAM"),
		size(snap.RAMUsed), size(snap.RAMBuffers), size(snap.RAMCached))
}

func renderDisks(disks []sampler.Disk, interval time.Duration) string {
	var b strings.Builder
	b.WriteString(labelStyle.Render("Disk            Read       Write"))
	b.WriteByte('\n')
	for i := range disks {
		d := &disks[i]
		fmt.Fprintf(&b, "%-8s %11s %11s\n", d.Name, rate(d.ReadBytes(), interval), rate(d.WriteBytes(), interval))
	}

	return b.String()
}

func renderInterfaces(ifaces []sampler.Interface, interval time.Duration) string {
	var b strings.Builder
	b.WriteString(labelStyle.Render("Interface   Download      Upload"))
	b.WriteByte('\n')
	for _, iface := range ifaces {
		fmt.Fprintf(&b, "%-8s %11s %11s\n", iface.Name,
			urate(iface.DeltaRxBytes, interval), urate(iface.DeltaTxBytes, interval))
	}

	return b.String()
}

func renderBatteries(bats []sampler.Battery) string {
	var b strings.Builder
	b.WriteString(labelStyle.Render("Battery   Charge Current Voltage"))
	b.WriteByte('\n')
	for _, bat := range bats {
		fmt.Fprintf(&b, "%-8s %6d%% %6.2fA %6.2fV\n", bat.Name, bat.Charge,
			float64(bat.Current)/1e6, float64(bat.Voltage)/1e6)
	}

	return b.String()
}

// rate formats a per-tick byte count as bytes per second. Negative values
// come from counter wraparound and are shown as zero.
func rate(n int64, interval time.Duration) string {
	if n < 0 {
		n = 0
	}
	return urate(uint64(n), interval)
}

func urate(n uint64, interval time.Duration) string {
	if interval > 0 && interval != time.Second {
		n = uint64(float64(n) / interval.Seconds())
	}
	return humanize.IBytes(n) + "/s"
}

func size(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}
