package metrics

import (
	"database/sql"

	"codeberg.org/mutker/sysmon/internal/errors"
	"codeberg.org/mutker/sysmon/internal/logger"
)

const (
	SchemaVersion = 1

	createTablesSQL = `
	   CREATE TABLE IF NOT EXISTS schema_versions (
	       version     INTEGER PRIMARY KEY,
	       applied_at  TEXT NOT NULL
	   );
	   CREATE TABLE IF NOT EXISTS samples (
	       id          INTEGER PRIMARY KEY AUTOINCREMENT,
	       timestamp   INTEGER NOT NULL CHECK (typeof(timestamp) = 'integer'),
	       ram_used    INTEGER NOT NULL,
	       ram_buffers INTEGER NOT NULL,
	       ram_cached  INTEGER NOT NULL
	   );
	   CREATE INDEX IF NOT EXISTS samples_timestamp ON samples (timestamp);
	   CREATE TABLE IF NOT EXISTS cpu_samples (
	       sample_id   INTEGER NOT NULL REFERENCES samples (id) ON DELETE CASCADE,
	       cpu_id      INTEGER NOT NULL,
	       core_id     INTEGER NOT NULL,
	       package_id  INTEGER NOT NULL,
	       freq_khz    INTEGER NOT NULL,
	       temp_mc     INTEGER NOT NULL,
	       usage       REAL    NOT NULL CHECK (usage >= 0.0 AND usage <= 1.0),
	       PRIMARY KEY (sample_id, cpu_id)
	   );
	   CREATE TABLE IF NOT EXISTS disk_samples (
	       sample_id   INTEGER NOT NULL REFERENCES samples (id) ON DELETE CASCADE,
	       name        TEXT    NOT NULL,
	       read_bytes  INTEGER NOT NULL,
	       write_bytes INTEGER NOT NULL,
	       read_ios    INTEGER NOT NULL,
	       write_ios   INTEGER NOT NULL,
	       PRIMARY KEY (sample_id, name)
	   );
	   CREATE TABLE IF NOT EXISTS interface_samples (
	       sample_id   INTEGER NOT NULL REFERENCES samples (id) ON DELETE CASCADE,
	       name        TEXT    NOT NULL,
	       rx_bytes    INTEGER NOT NULL,
	       tx_bytes    INTEGER NOT NULL,
	       PRIMARY KEY (sample_id, name)
	   );
	   CREATE TABLE IF NOT EXISTS battery_samples (
	       sample_id   INTEGER NOT NULL REFERENCES samples (id) ON DELETE CASCADE,
	       name        TEXT    NOT NULL,
	       charge      INTEGER NOT NULL,
	       current_ua  INTEGER NOT NULL,
	       voltage_uv  INTEGER NOT NULL,
	       PRIMARY KEY (sample_id, name)
	   );`

	insertSampleSQL = `
    INSERT INTO samples (timestamp, ram_used, ram_buffers, ram_cached)
    VALUES (?, ?, ?, ?)`

	insertCPUSampleSQL = `
    INSERT INTO cpu_samples (
        sample_id, cpu_id, core_id, package_id, freq_khz, temp_mc, usage
    ) VALUES (?, ?, ?, ?, ?, ?, ?)`

	insertDiskSampleSQL = `
    INSERT INTO disk_samples (
        sample_id, name, read_bytes, write_bytes, read_ios, write_ios
    ) VALUES (?, ?, ?, ?, ?, ?)`

	insertInterfaceSampleSQL = `
    INSERT INTO interface_samples (sample_id, name, rx_bytes, tx_bytes)
    VALUES (?, ?, ?, ?)`

	insertBatterySampleSQL = `
    INSERT INTO battery_samples (sample_id, name, charge, current_ua, voltage_uv)
    VALUES (?, ?, ?, ?, ?)`
)

// Tables in drop order: children before the table they reference.
var tables = []string{
	"cpu_samples",
	"disk_samples",
	"interface_samples",
	"battery_samples",
	"samples",
	"schema_versions",
}

// InitSchema creates a new database schema with the current version
func InitSchema(db *sql.DB, log logger.Logger) error {
	errFactory := errors.New()

	log.Debug().Msg("Creating database...")

	tx, err := db.Begin()
	if err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}

	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
				log.Debug().Err(err).Msg("Failed to rollback transaction")
			}
		}
	}()

	if _, err := tx.Exec(createTablesSQL); err != nil {
		return errFactory.WithData(ErrSchemaInitFailed, struct {
			Phase string
			Error string
		}{
			Phase: "create_tables",
			Error: err.Error(),
		})
	}

	if _, err := tx.Exec(`
        INSERT INTO schema_versions (version, applied_at)
        VALUES (?, datetime('now'))
    `, SchemaVersion); err != nil {
		return errFactory.WithData(ErrSchemaInitFailed, struct {
			Phase string
			Error string
		}{
			Phase: "record_version",
			Error: err.Error(),
		})
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}
	committed = true

	log.Info().
		Int("version", SchemaVersion).
		Msg("Schema initialized successfully")

	return nil
}

// GetSchemaVersion returns the newest recorded schema version, or 0 for an
// empty database.
func GetSchemaVersion(db *sql.DB) (int, error) {
	errFactory := errors.New()

	exists, err := TableExists(db, "schema_versions")
	if err != nil {
		return 0, errFactory.Wrap(ErrSchemaValidationFailed, err)
	}
	if !exists {
		return 0, nil
	}

	var version int
	err = db.QueryRow(`
        SELECT version
        FROM schema_versions
        ORDER BY version DESC
        LIMIT 1
    `).Scan(&version)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, errFactory.WithData(ErrSchemaValidationFailed, struct {
			Phase string
			Error string
		}{
			Phase: "get_version",
			Error: err.Error(),
		})
	}

	return version, nil
}

// TableExists checks if a table exists
func TableExists(db *sql.DB, tableName string) (bool, error) {
	var exists bool
	err := db.QueryRow(`
        SELECT EXISTS (
            SELECT 1 FROM sqlite_master
            WHERE type='table' AND name=?
        )
    `, tableName).Scan(&exists)
	if err != nil {
		return false, errors.New().WithData(ErrSchemaValidationFailed, struct {
			Phase string
			Table string
			Error string
		}{
			Phase: "check_table_exists",
			Table: tableName,
			Error: err.Error(),
		})
	}
	return exists, nil
}
