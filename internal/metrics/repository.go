package metrics

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"codeberg.org/mutker/sysmon/internal/errors"
	"codeberg.org/mutker/sysmon/internal/logger"
	"codeberg.org/mutker/sysmon/internal/sampler"
	_ "github.com/mattn/go-sqlite3"
)

type repository struct {
	db            *sql.DB
	logger        logger.Logger
	cfg           Config
	mu            sync.Mutex
	buffer        []*sampler.Snapshot
	flushTicker   *time.Ticker
	shutdownChan  chan struct{}
	flushDoneChan chan struct{}
	closeOnce     sync.Once
	closeErr      error
}

func NewRepository(cfg Config, log logger.Logger) (MetricsRepository, error) {
	errFactory := errors.New()

	if cfg.DBPath == "" {
		return nil, errFactory.New(ErrInvalidDBPath)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), defaultDirPerm); err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Path  string
			Error string
		}{
			Phase: "create_directory",
			Path:  cfg.DBPath,
			Error: err.Error(),
		})
	}

	dsn := "file:" + cfg.DBPath + "?_journal=WAL&_auto_vacuum=2&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "open_database",
			Error: err.Error(),
		})
	}
	// A single connection keeps WAL checkpoints and VACUUM INTO on the
	// same handle as the inserts.
	db.SetMaxOpenConns(1)

	if err := ValidateAndUpdateSchema(db, cfg.backupDir(), log); err != nil {
		db.Close()
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	log.Info().
		Str("path", cfg.DBPath).
		Int("schema_version", SchemaVersion).
		Int("batch_size", cfg.BatchSize).
		Dur("batch_timeout", cfg.BatchTimeout).
		Msg("Metrics repository initialized")

	repo := &repository{
		db:            db,
		logger:        log,
		cfg:           cfg,
		buffer:        make([]*sampler.Snapshot, 0, max(cfg.BatchSize, 1)),
		shutdownChan:  make(chan struct{}),
		flushDoneChan: make(chan struct{}),
	}

	if cfg.batching() {
		repo.flushTicker = time.NewTicker(cfg.BatchTimeout)
		go repo.flusher()
	}

	return repo, nil
}

func (r *repository) Record(snapshot *sampler.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buffer = append(r.buffer, snapshot)

	if len(r.buffer) >= r.cfg.BatchSize {
		return r.flush()
	}

	return nil
}

// Close flushes what is buffered, checkpoints the WAL and closes the
// database. Later calls return the result of the first.
func (r *repository) Close() error {
	r.closeOnce.Do(func() {
		r.closeErr = r.close()
	})
	return r.closeErr
}

func (r *repository) close() error {
	if r.flushTicker != nil {
		close(r.shutdownChan)
		r.flushTicker.Stop()
		<-r.flushDoneChan
	} else {
		r.mu.Lock()
		if err := r.flush(); err != nil {
			r.logger.Error().Err(err).Msg("Final flush failed")
		}
		r.mu.Unlock()
	}

	if _, err := r.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		r.db.Close()
		return errors.New().WithData(ErrStorageClose, struct {
			Phase string
			Error string
		}{
			Phase: "checkpoint_wal",
			Error: err.Error(),
		})
	}

	if err := r.db.Close(); err != nil {
		return errors.New().WithData(ErrStorageClose, struct {
			Phase string
			Error string
		}{
			Phase: "close_database",
			Error: err.Error(),
		})
	}

	r.logger.Info().Msg("Metrics repository closed gracefully")

	return nil
}

func (r *repository) flusher() {
	defer close(r.flushDoneChan)

	for {
		select {
		case <-r.flushTicker.C:
			r.mu.Lock()
			r.flush()
			r.mu.Unlock()
		case <-r.shutdownChan:
			r.mu.Lock()
			r.flush()
			r.mu.Unlock()
			return
		}
	}
}

type insertStmts struct {
	sample, cpu, disk, iface, battery *sql.Stmt
}

func prepareInserts(tx *sql.Tx) (*insertStmts, error) {
	var (
		s   insertStmts
		err error
	)
	for _, p := range []struct {
		stmt  **sql.Stmt
		query string
	}{
		{&s.sample, insertSampleSQL},
		{&s.cpu, insertCPUSampleSQL},
		{&s.disk, insertDiskSampleSQL},
		{&s.iface, insertInterfaceSampleSQL},
		{&s.battery, insertBatterySampleSQL},
	} {
		if *p.stmt, err = tx.Prepare(p.query); err != nil {
			s.close()
			return nil, err
		}
	}

	return &s, nil
}

func (s *insertStmts) close() {
	for _, stmt := range []*sql.Stmt{s.sample, s.cpu, s.disk, s.iface, s.battery} {
		if stmt != nil {
			stmt.Close()
		}
	}
}

func (s *insertStmts) insert(snap *sampler.Snapshot) error {
	res, err := s.sample.Exec(snap.Timestamp.UnixMilli(), snap.RAMUsed, snap.RAMBuffers, snap.RAMCached)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}

	for _, cpu := range snap.CPUs {
		if _, err := s.cpu.Exec(id, cpu.ID, cpu.CoreID, cpu.PackageID, cpu.CurFreq, cpu.CurTemp, cpu.TotalUsage); err != nil {
			return err
		}
	}
	for _, d := range snap.Disks {
		if _, err := s.disk.Exec(id, d.Name, d.ReadBytes(), d.WriteBytes(),
			d.StatsDelta[sampler.StatReadIOs], d.StatsDelta[sampler.StatWriteIOs]); err != nil {
			return err
		}
	}
	for _, iface := range snap.Interfaces {
		// sqlite integers are signed; a wrapped delta is stored as its
		// two's complement.
		if _, err := s.iface.Exec(id, iface.Name, int64(iface.DeltaRxBytes), int64(iface.DeltaTxBytes)); err != nil {
			return err
		}
	}
	for _, b := range snap.Batteries {
		if _, err := s.battery.Exec(id, b.Name, b.Charge, b.Current, b.Voltage); err != nil {
			return err
		}
	}

	return nil
}

// flush writes the buffer in one transaction. A failed batch is dropped so
// the buffer cannot grow without bound while the database is unwritable.
func (r *repository) flush() error {
	if len(r.buffer) == 0 {
		return nil
	}

	errFactory := errors.New()
	count := len(r.buffer)
	defer func() {
		clear(r.buffer)
		r.buffer = r.buffer[:0]
	}()

	tx, err := r.db.Begin()
	if err != nil {
		r.logger.Error().Err(err).Int("dropped", count).Msg("Failed to begin transaction")
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	stmts, err := prepareInserts(tx)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to prepare statement")
		if err := tx.Rollback(); err != nil {
			r.logger.Error().Err(err).Msg("Failed to roll back transaction")
		}
		return errFactory.Wrap(ErrTransactionFailed, err)
	}
	defer stmts.close()

	for _, snapshot := range r.buffer {
		if err := stmts.insert(snapshot); err != nil {
			r.logger.Error().Err(err).Int("dropped", count).Msg("Failed to execute insert")
			if err := tx.Rollback(); err != nil {
				r.logger.Error().Err(err).Msg("Failed to roll back transaction")
			}
			return errFactory.Wrap(ErrTransactionFailed, err)
		}
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error().Err(err).Int("dropped", count).Msg("Failed to commit transaction")
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	r.logger.Debug().Int("records", count).Msg("Flushed metrics to database")

	return nil
}
