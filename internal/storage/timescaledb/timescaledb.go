// Package timescaledb stores analysis runs in PostgreSQL/TimescaleDB via GORM.
package timescaledb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/chrissnell/gravnoise/internal/log"
	"github.com/chrissnell/gravnoise/internal/storage"
)

// Store is a storage.RunStore backed by PostgreSQL.
type Store struct {
	DB     *gorm.DB
	logger *zap.SugaredLogger
}

var _ storage.RunStore = (*Store)(nil)

// CreateConnection opens a GORM connection whose log output goes through zap.
func CreateConnection(connectionString string) (*gorm.DB, error) {
	dbLogger := logger.New(
		zap.NewStdLog(log.GetZapLogger()),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	return gorm.Open(postgres.Open(connectionString), &gorm.Config{Logger: dbLogger})
}

// New connects to the database and migrates the run tables.
func New(ctx context.Context, connectionString string, logger *zap.SugaredLogger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	logger.Info("connecting to TimescaleDB...")
	db, err := CreateConnection(connectionString)
	if err != nil {
		logger.Warnw("unable to create a TimescaleDB connection", "error", err)
		return nil, err
	}

	return NewWithDB(ctx, db, logger)
}

// NewWithDB wraps an existing GORM handle and migrates the run tables.
func NewWithDB(ctx context.Context, db *gorm.DB, logger *zap.SugaredLogger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	logger.Info("migrating run tables...")
	if err := db.WithContext(ctx).AutoMigrate(&runModel{}, &dayRecordModel{}, &psdBinModel{}); err != nil {
		return nil, fmt.Errorf("could not migrate run tables: %w", err)
	}

	return &Store{DB: db, logger: logger}, nil
}

// SaveRun inserts the run with its records and bins in one transaction.
func (s *Store) SaveRun(ctx context.Context, run *storage.Run) error {
	m := toModel(run)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Records", "Bins").Create(m).Error; err != nil {
			return fmt.Errorf("could not store run: %w", err)
		}
		if len(m.Records) > 0 {
			if err := tx.CreateInBatches(m.Records, 500).Error; err != nil {
				return fmt.Errorf("could not store day records: %w", err)
			}
		}
		if len(m.Bins) > 0 {
			if err := tx.CreateInBatches(m.Bins, 1000).Error; err != nil {
				return fmt.Errorf("could not store PSD bins: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Errorw("could not store run", "id", run.ID, "error", err)
		return err
	}
	return nil
}

// GetRun loads a run with its records and bins.
func (s *Store) GetRun(ctx context.Context, id uuid.UUID) (*storage.Run, error) {
	var m runModel
	err := s.DB.WithContext(ctx).
		Preload("Records", func(db *gorm.DB) *gorm.DB { return db.Order("day_index") }).
		Preload("Bins", func(db *gorm.DB) *gorm.DB { return db.Order("bin") }).
		First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", storage.ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("error querying run %s: %w", id, err)
	}
	return fromModel(&m), nil
}

// ListRuns returns run summaries, newest first, with their selected days.
func (s *Store) ListRuns(ctx context.Context) ([]storage.Run, error) {
	var models []runModel
	err := s.DB.WithContext(ctx).
		Preload("Records", "selected_rank IS NOT NULL").
		Order("created_at DESC").Order("id").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("error querying runs: %w", err)
	}

	runs := make([]storage.Run, 0, len(models))
	for i := range models {
		runs = append(runs, fromModel(&models[i]).Summary())
	}
	return runs, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
