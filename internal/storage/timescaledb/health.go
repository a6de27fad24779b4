package timescaledb

import (
	"context"
	"time"

	"github.com/chrissnell/gravnoise/internal/storage"
)

// CheckHealth pings the server and runs a trivial query.
func (s *Store) CheckHealth(ctx context.Context) *storage.HealthData {
	health := &storage.HealthData{
		LastCheck: time.Now(),
		Status:    storage.StatusHealthy,
		Message:   "TimescaleDB operational - ping: OK, query test: OK",
	}

	if s.DB == nil {
		health.Status = storage.StatusUnhealthy
		health.Message = "No database connection"
		health.Error = "TimescaleDB connection is nil"
		return health
	}

	sqlDB, err := s.DB.DB()
	if err != nil {
		health.Status = storage.StatusUnhealthy
		health.Message = "Failed to get underlying database connection"
		health.Error = err.Error()
		return health
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		health.Status = storage.StatusUnhealthy
		health.Message = "Database ping failed"
		health.Error = err.Error()
		return health
	}

	var result int
	if err := s.DB.WithContext(ctx).Raw("SELECT 1").Scan(&result).Error; err != nil {
		health.Status = storage.StatusUnhealthy
		health.Message = "Database query test failed"
		health.Error = err.Error()
	}
	return health
}
