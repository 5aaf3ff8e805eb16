// Package store persists benchmark aggregates to a local database so
// overhead can be tracked across runs on the same host.
package store

import (
	"context"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tracebench/tracebench/pkg/config"
	"github.com/tracebench/tracebench/pkg/result"
)

// Store provides persistence for benchmark history.
type Store interface {
	Start(ctx context.Context) error
	Stop() error

	AppendRun(ctx context.Context, runID string, records []result.Aggregate) error
	ListRun(ctx context.Context, runID string) ([]Record, error)
	ListRunIDs(ctx context.Context) ([]string, error)
	ListByScenario(ctx context.Context, scenario string) ([]Record, error)
}

// Compile-time interface check.
var _ Store = (*store)(nil)

type store struct {
	log logrus.FieldLogger
	cfg *config.HistoryConfig
	db  *gorm.DB
}

// NewStore creates a Store backed by the configured SQLite file.
func NewStore(log logrus.FieldLogger, cfg *config.HistoryConfig) Store {
	return &store{
		log: log.WithField("component", "store"),
		cfg: cfg,
	}
}

// Start opens the database and runs migrations.
func (s *store) Start(ctx context.Context) error {
	db, err := gorm.Open(sqlite.Open(s.cfg.Path), &gorm.Config{
		Logger: logger.Discard,
	})
	if err != nil {
		return fmt.Errorf("opening history database: %w", err)
	}

	s.db = db

	if err := s.db.WithContext(ctx).AutoMigrate(&Record{}); err != nil {
		return fmt.Errorf("running history migrations: %w", err)
	}

	s.log.WithField("path", s.cfg.Path).Info("History database connected")

	return nil
}

// Stop closes the underlying database connection.
func (s *store) Stop() error {
	if s.db == nil {
		return nil
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("getting underlying db: %w", err)
	}

	return sqlDB.Close()
}

// AppendRun stores all aggregates of one suite execution in a single
// transaction, keyed by the run ID.
func (s *store) AppendRun(ctx context.Context, runID string, records []result.Aggregate) error {
	if len(records) == 0 {
		return nil
	}

	rows := make([]Record, 0, len(records))
	for _, a := range records {
		rows = append(rows, newRecord(runID, a))
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("inserting history records: %w", err)
		}

		return nil
	})
}

// ListRun returns all records of one run ordered the way the suite
// produced them.
func (s *store) ListRun(ctx context.Context, runID string) ([]Record, error) {
	var rows []Record
	if err := s.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing run records: %w", err)
	}

	return rows, nil
}

// ListRunIDs returns the distinct run IDs, most recent first.
func (s *store) ListRunIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := s.db.WithContext(ctx).
		Model(&Record{}).
		Distinct("run_id").
		Order("run_id DESC").
		Pluck("run_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("listing run ids: %w", err)
	}

	return ids, nil
}

// ListByScenario returns the history of one scenario across all runs.
func (s *store) ListByScenario(ctx context.Context, scenario string) ([]Record, error) {
	var rows []Record
	if err := s.db.WithContext(ctx).
		Where("scenario = ?", scenario).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing scenario history: %w", err)
	}

	return rows, nil
}
