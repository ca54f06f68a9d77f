package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"TradePilot/internal/usecase"
	"TradePilot/pkg/config"
	xhttp "TradePilot/pkg/http"
	applogger "TradePilot/pkg/logger"
)

// Lifecycle is a component the App starts in order and stops in reverse.
type Lifecycle interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	engine     *usecase.Engine
	feed       Lifecycle
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	lgr *applogger.Logger,
	engine *usecase.Engine,
	feed *usecase.MarketFeed,
	httpServer *xhttp.Server,
) *App {
	a := &App{
		cfg:        cfg,
		logger:     lgr.Component("app"),
		engine:     engine,
		httpServer: httpServer,
	}
	if feed != nil {
		a.feed = feed
	}
	return a
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts the market feed, the engine and the HTTP server, then
// blocks until ctx is done and shuts everything down.
func (a *App) RunContext(ctx context.Context) error {
	// the feed reconnects on its own; a failed first connect only delays snapshots
	if a.feed != nil {
		if err := a.feed.Start(ctx); err != nil {
			a.logger.Error("market feed start error", applogger.Error(err))
		} else {
			a.logger.Info("market feed started", applogger.Strings("symbols", a.cfg.Trading.Symbols))
		}
	}

	if err := a.engine.Start(context.WithoutCancel(ctx)); err != nil {
		a.logger.Error("engine start error", applogger.Error(err))
		return errors.Join(err, a.shutdown())
	}
	a.logger.Info("engine started",
		applogger.String("mode", a.cfg.Trading.Mode),
		applogger.Bool("dry_run", a.cfg.Trading.DryRun),
	)

	if a.httpServer != nil {
		if err := a.httpServer.Start(); err != nil {
			a.logger.Error("http server start error", applogger.Error(err))
			return errors.Join(err, a.shutdown())
		}
	}

	<-ctx.Done()
	a.logger.Info("shutdown signal received")
	return a.shutdown()
}

// shutdown gracefully stops all services. Infrastructure clients are closed
// by the DI cleanup afterwards.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout+a.cfg.Trading.StopTimeout)
	defer cancel()

	var errs []error
	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.logger.Error("http shutdown error", applogger.Error(err))
			errs = append(errs, err)
		}
	}

	if err := a.engine.Stop(ctx); err != nil {
		a.logger.Warn("engine stop error", applogger.Error(err))
		errs = append(errs, err)
	}

	if a.feed != nil {
		if err := a.feed.Stop(ctx); err != nil {
			a.logger.Warn("market feed stop error", applogger.Error(err))
			errs = append(errs, err)
		}
	}

	a.logger.Info("shutdown complete")
	return errors.Join(errs...)
}
