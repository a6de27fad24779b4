package managers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chrissnell/gravnoise/internal/storage"
	"github.com/chrissnell/gravnoise/internal/storage/sqlite"
	"github.com/chrissnell/gravnoise/internal/storage/timescaledb"
	"github.com/chrissnell/gravnoise/pkg/config"
)

var timeNow = time.Now

// StorageManager holds our active storage backends. Runs are written to
// every backend; reads are served by the first one configured.
type StorageManager struct {
	Engines []StorageEngine
	health  *storage.HealthManager
	logger  *zap.SugaredLogger
}

// StorageEngine is a named storage backend.
type StorageEngine struct {
	Name  string
	Store storage.RunStore
}

var _ storage.RunStore = (*StorageManager)(nil)

// NewStorageManager creates a StorageManager populated with all configured
// backends. SQLite comes first so that it serves reads when both exist.
func NewStorageManager(ctx context.Context, sd config.StorageData, logger *zap.SugaredLogger) (*StorageManager, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := &StorageManager{
		health: storage.NewHealthManager(),
		logger: logger,
	}

	if sd.SQLite != nil && sd.SQLite.Path != "" {
		store, err := sqlite.New(ctx, sd.SQLite.Path, logger)
		if err != nil {
			return s, fmt.Errorf("could not add SQLite storage backend: %w", err)
		}
		s.AddEngine("sqlite", store)
	}

	if sd.TimescaleDB != nil && sd.TimescaleDB.ConnectionString != "" {
		store, err := timescaledb.New(ctx, sd.TimescaleDB.ConnectionString, logger)
		if err != nil {
			return s, fmt.Errorf("could not add TimescaleDB storage backend: %w", err)
		}
		s.AddEngine("timescaledb", store)
	}

	return s, nil
}

// AddEngine adds a named backend.
func (s *StorageManager) AddEngine(name string, store storage.RunStore) {
	s.Engines = append(s.Engines, StorageEngine{Name: name, Store: store})
}

// Health returns the health manager updated by SaveRun and CheckHealth.
func (s *StorageManager) Health() *storage.HealthManager {
	return s.health
}

// SaveRun fans the run out to every backend concurrently. Each backend's
// health is updated with the outcome of its write.
func (s *StorageManager) SaveRun(ctx context.Context, run *storage.Run) error {
	if len(s.Engines) == 0 {
		s.logger.Debugw("no storage backends configured; run not persisted", "id", run.ID)
		return nil
	}

	// A failing backend must not cancel writes to the others.
	var g errgroup.Group
	for _, e := range s.Engines {
		e := e
		g.Go(func() error {
			err := e.Store.SaveRun(ctx, run)
			s.recordWrite(e.Name, err)
			if err != nil {
				return fmt.Errorf("%s: %w", e.Name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	s.logger.Infow("stored run", "id", run.ID, "backends", len(s.Engines))
	return nil
}

func (s *StorageManager) recordWrite(name string, err error) {
	h := &storage.HealthData{Status: storage.StatusHealthy, Message: "last write succeeded"}
	if err != nil {
		h.Status = storage.StatusUnhealthy
		h.Message = "last write failed"
		h.Error = err.Error()
	}
	h.LastCheck = timeNow()
	s.health.UpdateHealth(name, h)
}

// CheckHealth probes every backend that supports it and records the result.
func (s *StorageManager) CheckHealth(ctx context.Context) *storage.HealthData {
	overall := &storage.HealthData{LastCheck: timeNow(), Status: storage.StatusHealthy, Message: "all backends operational"}
	for _, e := range s.Engines {
		checker, ok := e.Store.(storage.HealthChecker)
		if !ok {
			continue
		}
		h := checker.CheckHealth(ctx)
		s.health.UpdateHealth(e.Name, h)
		if h.Status != storage.StatusHealthy {
			overall.Status = storage.StatusUnhealthy
			overall.Message = e.Name + ": " + h.Message
			overall.Error = h.Error
		}
	}
	return overall
}

func (s *StorageManager) primary() (storage.RunStore, error) {
	if len(s.Engines) == 0 {
		return nil, errors.New("no storage backends configured")
	}
	return s.Engines[0].Store, nil
}

// GetRun reads from the primary backend.
func (s *StorageManager) GetRun(ctx context.Context, id uuid.UUID) (*storage.Run, error) {
	p, err := s.primary()
	if err != nil {
		return nil, err
	}
	return p.GetRun(ctx, id)
}

// ListRuns reads from the primary backend.
func (s *StorageManager) ListRuns(ctx context.Context) ([]storage.Run, error) {
	p, err := s.primary()
	if err != nil {
		return nil, err
	}
	return p.ListRuns(ctx)
}

// Close closes every backend.
func (s *StorageManager) Close() error {
	var errs []error
	for _, e := range s.Engines {
		if err := e.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.Name, err))
		}
	}
	return errors.Join(errs...)
}
