package managers

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/chrissnell/gravnoise/internal/controllers/restserver"
	"github.com/chrissnell/gravnoise/pkg/config"
)

// ControllerManager interface for the controller manager
type ControllerManager interface {
	StartControllers() error
}

// Controller is an interface that provides standard methods for various controller backends
type Controller interface {
	StartController() error
}

// NewControllerManager creates a controller manager serving the runs held
// by storage.
func NewControllerManager(ctx context.Context, wg *sync.WaitGroup, c *config.ConfigData, storage *StorageManager, logger *zap.SugaredLogger) (ControllerManager, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	cm := &controllerManager{
		ctx:         ctx,
		wg:          wg,
		config:      c,
		logger:      logger,
		controllers: make([]Controller, 0),
	}

	rest, err := restserver.NewController(ctx, wg, c.REST, storage, storage.Health(), logger)
	if err != nil {
		return nil, fmt.Errorf("error creating REST controller: %w", err)
	}
	cm.controllers = append(cm.controllers, rest)

	return cm, nil
}

type controllerManager struct {
	ctx         context.Context
	wg          *sync.WaitGroup
	config      *config.ConfigData
	logger      *zap.SugaredLogger
	controllers []Controller
}

func (c *controllerManager) StartControllers() error {
	c.logger.Info("starting controller manager...")

	for _, controller := range c.controllers {
		if err := controller.StartController(); err != nil {
			return fmt.Errorf("error starting controller: %v", err)
		}
	}

	c.logger.Infof("started %d controllers", len(c.controllers))
	return nil
}
