package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethpandaops/runmonitor/pkg/config"
	"github.com/ethpandaops/runmonitor/pkg/generator"
	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const recordBatchSize = 100

// Store provides persistence for runs and their records.
type Store interface {
	// Start opens the database and ensures both tables exist. It never
	// drops existing data.
	Start(ctx context.Context) error
	Stop() error

	// CreateRun inserts a run and returns its identity. It must be called
	// before AddRecords for that run.
	CreateRun(ctx context.Context, summary generator.RunSummary) (uint, error)
	// AddRecords inserts drafts for runID in the supplied order.
	AddRecords(ctx context.Context, runID uint, drafts []generator.RecordDraft) error
	// CreateRunWithRecords inserts a run and its records in one transaction.
	CreateRunWithRecords(
		ctx context.Context,
		summary generator.RunSummary,
		drafts []generator.RecordDraft,
	) (uint, error)

	// ListRuns returns up to limit runs, newest identity first.
	ListRuns(ctx context.Context, limit int) ([]RunView, error)
	// GetLatestRun returns the newest run, or nil when none exist.
	GetLatestRun(ctx context.Context) (*RunView, error)
	// ListRecords returns the records of runID in ascending identity order.
	ListRecords(ctx context.Context, runID uint) ([]RecordView, error)
}

// Compile-time interface check.
var _ Store = (*store)(nil)

type store struct {
	log logrus.FieldLogger
	cfg *config.DatabaseConfig
	db  *gorm.DB
}

// NewStore creates a new Store backed by the configured database driver.
func NewStore(
	log logrus.FieldLogger,
	cfg *config.DatabaseConfig,
) Store {
	return &store{
		log: log.WithField("component", "store"),
		cfg: cfg,
	}
}

// Start opens the database connection and runs migrations.
func (s *store) Start(ctx context.Context) error {
	var dialector gorm.Dialector

	gormCfg := &gorm.Config{
		Logger: logger.Discard,
	}

	switch s.cfg.Driver {
	case "sqlite":
		if err := ensureSQLiteDirectory(s.cfg.SQLite.Path); err != nil {
			return storageErr("preparing sqlite directory", err)
		}

		dialector = sqlite.Open(sqliteDSN(s.cfg.SQLite.Path))
	case "postgres":
		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			s.cfg.Postgres.Host,
			s.cfg.Postgres.Port,
			s.cfg.Postgres.User,
			s.cfg.Postgres.Password,
			s.cfg.Postgres.Database,
			s.cfg.Postgres.SSLMode,
		)
		dialector = postgres.Open(dsn)
	default:
		return storageErr("opening database",
			fmt.Errorf("unsupported database driver: %s", s.cfg.Driver))
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return storageErr("opening database", err)
	}

	if s.cfg.Driver == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return storageErr("getting underlying db", err)
		}

		// A single connection keeps :memory: databases and the
		// foreign_keys pragma consistent across calls.
		sqlDB.SetMaxOpenConns(1)
	}

	s.db = db

	if err := s.db.WithContext(ctx).AutoMigrate(
		&Run{},
		&Record{},
	); err != nil {
		return storageErr("running migrations", err)
	}

	s.log.WithField("driver", s.cfg.Driver).
		Info("Database connected")

	return nil
}

// Stop closes the underlying database connection.
func (s *store) Stop() error {
	if s.db == nil {
		return nil
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return storageErr("getting underlying db", err)
	}

	if err := sqlDB.Close(); err != nil {
		return storageErr("closing database", err)
	}

	return nil
}

// CreateRun inserts one run row.
func (s *store) CreateRun(
	ctx context.Context, summary generator.RunSummary,
) (uint, error) {
	if err := summary.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %w", generator.ErrInvalidParameter, err)
	}

	if s.db == nil {
		return 0, storageErr("creating run", errNotStarted)
	}

	row := newRunRow(&summary)

	if err := s.db.WithContext(ctx).Omit("Records").Create(row).Error; err != nil {
		return 0, storageErr("creating run", err)
	}

	s.log.WithField("run_id", row.ID).Debug("Run created")

	return row.ID, nil
}

// AddRecords bulk-inserts the drafts for a run inside one transaction.
func (s *store) AddRecords(
	ctx context.Context, runID uint, drafts []generator.RecordDraft,
) error {
	if len(drafts) == 0 {
		return nil
	}

	if s.db == nil {
		return storageErr("adding records", errNotStarted)
	}

	rows := newRecordRows(runID, drafts)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(rows, recordBatchSize).Error
	})
	if err != nil {
		return storageErr("adding records", err)
	}

	s.log.WithFields(logrus.Fields{
		"run_id":  runID,
		"records": len(rows),
	}).Debug("Records added")

	return nil
}

// CreateRunWithRecords inserts a run and all of its records atomically.
func (s *store) CreateRunWithRecords(
	ctx context.Context,
	summary generator.RunSummary,
	drafts []generator.RecordDraft,
) (uint, error) {
	if err := summary.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %w", generator.ErrInvalidParameter, err)
	}

	if s.db == nil {
		return 0, storageErr("creating run with records", errNotStarted)
	}

	row := newRunRow(&summary)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Records").Create(row).Error; err != nil {
			return fmt.Errorf("creating run: %w", err)
		}

		if len(drafts) == 0 {
			return nil
		}

		if err := tx.CreateInBatches(
			newRecordRows(row.ID, drafts), recordBatchSize,
		).Error; err != nil {
			return fmt.Errorf("adding records: %w", err)
		}

		return nil
	})
	if err != nil {
		return 0, storageErr("creating run with records", err)
	}

	return row.ID, nil
}

// ListRuns returns up to limit runs ordered by identity descending.
func (s *store) ListRuns(ctx context.Context, limit int) ([]RunView, error) {
	if limit <= 0 {
		return []RunView{}, nil
	}

	if s.db == nil {
		return nil, storageErr("listing runs", errNotStarted)
	}

	var rows []Run
	if err := s.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, storageErr("listing runs", err)
	}

	views := make([]RunView, 0, len(rows))

	for i := range rows {
		v, err := rows[i].view()
		if err != nil {
			return nil, storageErr("listing runs", err)
		}

		views = append(views, v)
	}

	return views, nil
}

// GetLatestRun returns the run with the highest identity, or nil.
func (s *store) GetLatestRun(ctx context.Context) (*RunView, error) {
	runs, err := s.ListRuns(ctx, 1)
	if err != nil {
		return nil, err
	}

	if len(runs) == 0 {
		return nil, nil
	}

	return &runs[0], nil
}

// ListRecords returns all records of a run ordered by identity ascending.
func (s *store) ListRecords(ctx context.Context, runID uint) ([]RecordView, error) {
	if s.db == nil {
		return nil, storageErr("listing records", errNotStarted)
	}

	var rows []Record
	if err := s.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, storageErr("listing records", err)
	}

	views := make([]RecordView, 0, len(rows))

	for i := range rows {
		v, err := rows[i].view()
		if err != nil {
			return nil, storageErr("listing records", err)
		}

		views = append(views, v)
	}

	return views, nil
}

var errNotStarted = errors.New("store not started")

// sqliteDSN enables foreign key enforcement on the given path.
func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}

	return path + sep + "_pragma=foreign_keys(1)"
}

// ensureSQLiteDirectory creates the parent directory of a file-backed
// database.
func ensureSQLiteDirectory(path string) error {
	candidate := strings.TrimSpace(path)
	if candidate == "" || strings.Contains(candidate, ":memory:") {
		return nil
	}

	candidate = strings.TrimPrefix(candidate, "file:")
	if idx := strings.Index(candidate, "?"); idx >= 0 {
		candidate = candidate[:idx]
	}

	dir := filepath.Dir(candidate)
	if dir == "" || dir == "." {
		return nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating sqlite directory %q: %w", dir, err)
	}

	return nil
}
