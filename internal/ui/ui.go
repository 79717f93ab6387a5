// Package ui is the full-screen terminal view: it ticks the monitor at the
// configured interval and redraws the latest snapshot.
package ui

import (
	"context"
	"time"

	"codeberg.org/mutker/sysmon/internal/errors"
	"codeberg.org/mutker/sysmon/internal/sampler"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
)

// Ticker produces a fresh snapshot per call; *monitor.Monitor satisfies it.
type Ticker interface {
	Tick(ctx context.Context) sampler.Snapshot
}

// Model renders snapshots produced by a Ticker.
type Model struct {
	ctx      context.Context
	mon      Ticker
	interval time.Duration
	host     HostInfo
	latest   sampler.Snapshot
	width    int
	height   int
}

func New(ctx context.Context, mon Ticker, interval time.Duration, info HostInfo) *Model {
	return &Model{
		ctx:      ctx,
		mon:      mon,
		interval: interval,
		host:     info,
	}
}

// Messages
type (
	tickMsg     struct{}
	snapshotMsg sampler.Snapshot
)

func (m *Model) tickCmd() tea.Cmd {
	return tea.Tick(m.interval, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m *Model) sampleCmd() tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(m.mon.Tick(m.ctx))
	}
}

func (m *Model) Init() tea.Cmd { return m.sampleCmd() }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "Q", "ctrl+c":
			return m, tea.Quit
		}
	case tickMsg:
		return m, m.sampleCmd()
	case snapshotMsg:
		m.latest = sampler.Snapshot(msg)
		if uptime, err := host.UptimeWithContext(m.ctx); err == nil {
			m.host.Uptime = time.Duration(uptime) * time.Second
		}
		if avg, err := load.AvgWithContext(m.ctx); err == nil {
			m.host.Load1, m.host.Load5, m.host.Load15 = avg.Load1, avg.Load5, avg.Load15
		}
		return m, m.tickCmd()
	}
	return m, nil
}

func (m *Model) View() string {
	return Render(&m.latest, m.host, m.interval)
}

// Latest returns the snapshot on screen.
func (m *Model) Latest() sampler.Snapshot {
	return m.latest
}

// LookupHost reads the static host identity. Failures leave fields empty.
func LookupHost(ctx context.Context) HostInfo {
	var info HostInfo
	stat, err := host.InfoWithContext(ctx)
	if err != nil {
		return info
	}

	info.Hostname = stat.Hostname
	info.Platform = stat.Platform
	info.Kernel = stat.KernelVersion
	info.Uptime = time.Duration(stat.Uptime) * time.Second

	return info
}

// Run shows the UI until the user quits or ctx is cancelled.
func Run(ctx context.Context, mon Ticker, interval time.Duration) error {
	p := tea.NewProgram(
		New(ctx, mon, interval, LookupHost(ctx)),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return errors.New().Wrap(errors.ErrRunUI, err)
	}

	return nil
}
