package monitor_test

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"codeberg.org/mutker/sysmon/internal/errors"
	"codeberg.org/mutker/sysmon/internal/logger"
	"codeberg.org/mutker/sysmon/internal/monitor"
	"codeberg.org/mutker/sysmon/internal/sampler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSampler struct {
	mu        sync.Mutex
	refreshes int
}

func (f *fakeSampler) Refresh() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
}

func (f *fakeSampler) Snapshot() sampler.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return sampler.Snapshot{
		Timestamp: time.Now(),
		CPUs:      []sampler.CPU{{ID: 0, TotalUsage: 0.5}},
		RAMUsed:   int64(f.refreshes),
	}
}

type fakeRecorder struct {
	name     string
	closed   *[]string
	recorded []int64
	err      error
	closeErr error
}

func (r *fakeRecorder) Record(_ context.Context, snap *sampler.Snapshot) error {
	r.recorded = append(r.recorded, snap.RAMUsed)
	return r.err
}

func (r *fakeRecorder) Close() error {
	*r.closed = append(*r.closed, r.name)
	return r.closeErr
}

func TestTickFansOut(t *testing.T) {
	var closed []string
	sys := &fakeSampler{}
	failing := &fakeRecorder{name: "csv", closed: &closed, err: errors.New().New(errors.ErrRecordFailed)}
	ok := &fakeRecorder{name: "metrics", closed: &closed}

	var logs bytes.Buffer
	m := monitor.New(sys, logger.New(&logs, logger.DebugLevel), failing, ok)

	snap := m.Tick(context.Background())
	assert.Equal(t, int64(1), snap.RAMUsed)
	m.Tick(context.Background())

	assert.Equal(t, []int64{1, 2}, failing.recorded)
	assert.Equal(t, []int64{1, 2}, ok.recorded)
	assert.Equal(t, uint64(2), m.Ticks())
	assert.Contains(t, logs.String(), `"error_code":"`+string(errors.ErrRecordFailed)+`"`)
	assert.Contains(t, logs.String(), `"message":"Sample"`)

	require.NoError(t, m.Close())
	assert.Equal(t, []string{"metrics", "csv"}, closed)
}

func TestCloseReportsErrors(t *testing.T) {
	var closed []string
	a := &fakeRecorder{name: "a", closed: &closed, closeErr: assert.AnError}
	b := &fakeRecorder{name: "b", closed: &closed}

	m := monitor.New(&fakeSampler{}, nil, a, b)
	err := m.Close()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrShutdownFailed))
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, []string{"b", "a"}, closed)

	require.NoError(t, m.Close())
}

func TestRun(t *testing.T) {
	sys := &fakeSampler{}
	m := monitor.New(sys, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx, 5*time.Millisecond) }()

	require.Eventually(t, func() bool { return m.Ticks() >= 3 }, 2*time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunInvalidInterval(t *testing.T) {
	m := monitor.New(&fakeSampler{}, logger.Nop())
	err := m.Run(context.Background(), 0)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidInterval))
}
