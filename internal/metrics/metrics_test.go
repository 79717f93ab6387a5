package metrics_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/sysmon/internal/errors"
	"codeberg.org/mutker/sysmon/internal/logger"
	"codeberg.org/mutker/sysmon/internal/metrics"
	"codeberg.org/mutker/sysmon/internal/sampler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot(ts time.Time) *sampler.Snapshot {
	disk := sampler.Disk{Name: "sda"}
	disk.StatsDelta[sampler.StatReadSectors] = 512
	disk.StatsDelta[sampler.StatReadIOs] = 4

	return &sampler.Snapshot{
		Timestamp: ts,
		CPUs: []sampler.CPU{
			{ID: 0, CoreID: 0, CurFreq: 3100000, CurTemp: 45000, TotalUsage: 0.25},
			{ID: 1, CoreID: 0, CurFreq: 2900000, CurTemp: 45000, TotalUsage: 1},
		},
		Disks:      []sampler.Disk{disk},
		Interfaces: []sampler.Interface{{Name: "eth0", DeltaRxBytes: 1500, DeltaTxBytes: 1<<64 - 1}},
		Batteries:  []sampler.Battery{{Name: "BAT0", Charge: 80, Current: -900000, Voltage: 12000000}},
		RAMUsed:    4 << 30,
		RAMBuffers: 1 << 20,
		RAMCached:  2 << 30,
	}
}

func testConfig(t *testing.T) metrics.Config {
	t.Helper()
	cfg := metrics.DefaultConfig()
	cfg.Enabled = true
	cfg.DBPath = filepath.Join(t.TempDir(), "db", "metrics.db")
	cfg.BatchSize = 0
	return cfg
}

func countRows(t *testing.T, path, table string) int {
	t.Helper()
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestDisabledServiceIsNoop(t *testing.T) {
	c, err := metrics.NewService(metrics.DefaultConfig(), logger.Nop())
	require.NoError(t, err)

	assert.NoError(t, c.Record(context.Background(), nil))
	assert.NoError(t, c.Close())
}

func TestConfigValidate(t *testing.T) {
	cfg := metrics.DefaultConfig()
	cfg.Enabled = true
	cfg.DBPath = ""

	_, err := metrics.NewService(cfg, logger.Nop())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, metrics.ErrInvalidConfig))
	assert.True(t, errors.HasCode(err, metrics.ErrInvalidDBPath))

	cfg = metrics.DefaultConfig()
	cfg.BatchSize = -1
	assert.Error(t, cfg.Validate())
}

func TestRecordUnbatched(t *testing.T) {
	cfg := testConfig(t)
	c, err := metrics.NewService(cfg, logger.Nop())
	require.NoError(t, err)

	require.NoError(t, c.Record(context.Background(), testSnapshot(time.Now())))
	assert.Equal(t, 1, countRows(t, cfg.DBPath, "samples"))
	assert.Equal(t, 2, countRows(t, cfg.DBPath, "cpu_samples"))

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	db, err := sql.Open("sqlite3", cfg.DBPath)
	require.NoError(t, err)
	defer db.Close()

	var readBytes, readIOs int64
	require.NoError(t, db.QueryRow(
		"SELECT read_bytes, read_ios FROM disk_samples WHERE name = 'sda'",
	).Scan(&readBytes, &readIOs))
	assert.Equal(t, int64(262144), readBytes)
	assert.Equal(t, int64(4), readIOs)

	var tx int64
	require.NoError(t, db.QueryRow("SELECT tx_bytes FROM interface_samples").Scan(&tx))
	assert.Equal(t, int64(-1), tx)

	var current int64
	require.NoError(t, db.QueryRow("SELECT current_ua FROM battery_samples").Scan(&current))
	assert.Equal(t, int64(-900000), current)
}

func TestRecordBatchedFlushesOnClose(t *testing.T) {
	cfg := testConfig(t)
	cfg.BatchSize = 3
	cfg.BatchTimeout = time.Hour

	c, err := metrics.NewService(cfg, logger.Nop())
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, c.Record(context.Background(), testSnapshot(now)))
	require.NoError(t, c.Record(context.Background(), testSnapshot(now.Add(time.Second))))
	assert.Zero(t, countRows(t, cfg.DBPath, "samples"))

	require.NoError(t, c.Close())
	assert.Equal(t, 2, countRows(t, cfg.DBPath, "samples"))
	assert.Equal(t, 2, countRows(t, cfg.DBPath, "interface_samples"))
}

func TestRecordBatchedFlushesWhenFull(t *testing.T) {
	cfg := testConfig(t)
	cfg.BatchSize = 2
	cfg.BatchTimeout = time.Hour

	c, err := metrics.NewService(cfg, logger.Nop())
	require.NoError(t, err)
	defer c.Close()

	now := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, c.Record(context.Background(), testSnapshot(now.Add(time.Duration(i)*time.Second))))
	}
	assert.Equal(t, 2, countRows(t, cfg.DBPath, "samples"))
}

func TestRecordCancelled(t *testing.T) {
	c, err := metrics.NewService(testConfig(t), logger.Nop())
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = c.Record(ctx, testSnapshot(time.Now()))
	assert.True(t, errors.HasCode(err, metrics.ErrOperationTimeout))
	assert.ErrorIs(t, err, context.Canceled)

	err = c.Record(context.Background(), nil)
	assert.True(t, errors.HasCode(err, metrics.ErrInvalidMetrics))
}

func TestSchemaMismatchIsBackedUp(t *testing.T) {
	cfg := testConfig(t)
	cfg.BackupDir = filepath.Join(t.TempDir(), "backups")
	require.NoError(t, os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755))

	old, err := sql.Open("sqlite3", cfg.DBPath)
	require.NoError(t, err)
	_, err = old.Exec(`
		CREATE TABLE schema_versions (version INTEGER PRIMARY KEY, applied_at TEXT NOT NULL);
		INSERT INTO schema_versions VALUES (99, datetime('now'));
		CREATE TABLE samples (id INTEGER PRIMARY KEY, legacy TEXT);
	`)
	require.NoError(t, err)
	require.NoError(t, old.Close())

	c, err := metrics.NewService(cfg, logger.Nop())
	require.NoError(t, err)
	require.NoError(t, c.Record(context.Background(), testSnapshot(time.Now())))
	require.NoError(t, c.Close())

	backups, err := filepath.Glob(filepath.Join(cfg.BackupDir, "metrics_v99_*.db"))
	require.NoError(t, err)
	assert.Len(t, backups, 1)

	db, err := sql.Open("sqlite3", cfg.DBPath)
	require.NoError(t, err)
	defer db.Close()

	version, err := metrics.GetSchemaVersion(db)
	require.NoError(t, err)
	assert.Equal(t, metrics.SchemaVersion, version)

	exists, err := metrics.TableExists(db, "battery_samples")
	require.NoError(t, err)
	assert.True(t, exists)
}
