package storage

import (
	"context"
	"sync"
	"time"
)

// Health status values.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// HealthData is the last known state of a storage backend.
type HealthData struct {
	LastCheck time.Time `json:"last_check"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Error     string    `json:"error,omitempty"`
}

// HealthChecker is implemented by stores that can probe their backend.
type HealthChecker interface {
	CheckHealth(ctx context.Context) *HealthData
}

// HealthManager keeps the health of each named backend in memory.
type HealthManager struct {
	mu     sync.RWMutex
	health map[string]*HealthData
}

// NewHealthManager creates an empty health manager.
func NewHealthManager() *HealthManager {
	return &HealthManager{
		health: make(map[string]*HealthData),
	}
}

// UpdateHealth records the health of backend name.
func (hm *HealthManager) UpdateHealth(name string, health *HealthData) {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	// Clone so callers cannot mutate stored state.
	healthCopy := *health
	hm.health[name] = &healthCopy
}

// GetHealth returns a copy of the recorded health of backend name.
func (hm *HealthManager) GetHealth(name string) (*HealthData, bool) {
	hm.mu.RLock()
	defer hm.mu.RUnlock()

	health, exists := hm.health[name]
	if !exists {
		return nil, false
	}

	healthCopy := *health
	return &healthCopy, true
}

// GetAllHealth returns a copy of every recorded backend health.
func (hm *HealthManager) GetAllHealth() map[string]*HealthData {
	hm.mu.RLock()
	defer hm.mu.RUnlock()

	out := make(map[string]*HealthData, len(hm.health))
	for name, health := range hm.health {
		healthCopy := *health
		out[name] = &healthCopy
	}
	return out
}

// IsHealthy reports whether backend name was healthy within maxAge.
func (hm *HealthManager) IsHealthy(name string, maxAge time.Duration) bool {
	health, exists := hm.GetHealth(name)
	if !exists {
		return false
	}

	if time.Since(health.LastCheck) > maxAge {
		return false
	}

	return health.Status == StatusHealthy
}
