package service

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"evidence-stamp/internal/config"
	deliveryhttp "evidence-stamp/internal/delivery/http"
	"evidence-stamp/internal/infrastructure/database"
	"evidence-stamp/internal/infrastructure/document"
	"evidence-stamp/internal/infrastructure/logger"
	"evidence-stamp/internal/infrastructure/repository"
	"evidence-stamp/internal/server"
	"evidence-stamp/internal/usecase"
)

// Modules is the full HTTP service graph.
var Modules = fx.Options(
	// Configuration
	config.Module,

	// Infrastructure
	logger.Module,
	database.Module,
	document.Module,
	repository.Module,

	// Business Logic
	usecase.Module,

	// Delivery
	deliveryhttp.Module,

	// Server
	server.Module,

	fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
		return &fxevent.ZapLogger{Logger: log.Named("fx")}
	}),
)

// Application wraps the fx.App for service management
type Application struct {
	app      *fx.App
	ctx      context.Context
	cancel   context.CancelFunc
	doneChan chan struct{}
}

// NewApplication creates a new Application instance
func NewApplication() *Application {
	ctx, cancel := context.WithCancel(context.Background())
	return &Application{
		ctx:      ctx,
		cancel:   cancel,
		doneChan: make(chan struct{}),
	}
}

// Run starts the application and blocks until a signal or Shutdown.
func (a *Application) Run() error {
	defer close(a.doneChan)

	a.app = fx.New(Modules)

	if err := a.app.Start(a.ctx); err != nil {
		return err
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-sigChan:
		a.Shutdown()
	case <-a.ctx.Done():
		// Shutdown was called
	}
	return nil
}

// Shutdown gracefully shuts down the application
func (a *Application) Shutdown() {
	a.cancel()
	if a.app != nil {
		ctx, cancel := context.WithTimeout(context.Background(), fx.DefaultTimeout)
		defer cancel()
		a.app.Stop(ctx)
	}
}

// Wait blocks until the application exits
func (a *Application) Wait() {
	<-a.doneChan
}
