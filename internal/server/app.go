// Package server wires the LiveOn components together and runs the HTTP
// server, the backup runner and the housekeeping scheduler until the
// process is signalled.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/liveon/internal/logging"
	"github.com/dmitrijs2005/liveon/internal/server/api"
	"github.com/dmitrijs2005/liveon/internal/server/auth"
	"github.com/dmitrijs2005/liveon/internal/server/backups"
	"github.com/dmitrijs2005/liveon/internal/server/blob"
	"github.com/dmitrijs2005/liveon/internal/server/config"
	"github.com/dmitrijs2005/liveon/internal/server/graph"
	"github.com/dmitrijs2005/liveon/internal/server/jobs"
	"github.com/dmitrijs2005/liveon/internal/server/payments"
	"github.com/dmitrijs2005/liveon/internal/server/repositories/repomanager"
)

const shutdownTimeout = 15 * time.Second

type App struct {
	config    *config.Config
	logger    logging.Logger
	db        *sql.DB
	runner    *backups.Runner
	scheduler *jobs.Scheduler
	handler   http.Handler
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if c.SecretKey == config.DefaultSecretKey {
		logger.Warn(ctx, "SESSION_SECRET is the built-in default; set it before exposing the server")
	}

	keys, err := auth.DeriveKeys(c.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("derive keys: %w", err)
	}

	blobs, err := newBlobStore(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("blob store init error: %w", err)
	}
	if err := blobs.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket %s: %w", c.S3Bucket, err)
	}

	db, err := repomanager.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	runs := rm.Runs(db)
	store := backups.NewStore(blobs)
	gc := graph.NewClient(c, logger)
	orch := backups.NewOrchestrator(store, gc, runs, c.StaleThreshold, logger)
	runner := backups.NewRunner(orch, c.Workers, c.QueueSize, logger)

	var proc payments.Processor
	if c.PaymentsEnabled() {
		proc = payments.NewStripe(c.StripeSecretKey, payments.ProductFromConfig(c))
	} else {
		logger.Info(ctx, "payments disabled, downloads are not gated")
	}

	h := api.NewHandler(api.Deps{
		Config:   c,
		Logger:   logger,
		Keys:     keys,
		Graph:    gc,
		Leases:   orch,
		Queue:    runner,
		Store:    store,
		DB:       db,
		Repos:    rm,
		Payments: proc,
	})

	return &App{
		config:    c,
		logger:    logger,
		db:        db,
		runner:    runner,
		scheduler: jobs.NewScheduler(runs, c.HousekeepingSchedule, c.StaleThreshold, logger),
		handler:   h.Routes(),
	}, nil
}

func newBlobStore(ctx context.Context, c *config.Config) (blob.Store, error) {
	switch c.BlobBackend {
	case "memory":
		return blob.NewMemoryStore(c.S3Bucket), nil
	case "s3":
		return blob.NewS3Store(ctx, c)
	}
	return nil, fmt.Errorf("unknown blob backend %q", c.BlobBackend)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	srv := &http.Server{
		Addr:              app.config.HTTPAddr,
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "http shutdown", "error", err)
		}
	}()

	app.logger.Info(ctx, "http server listening", "addr", app.config.HTTPAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, "http server failed", "error", err)
		cancelFunc()
	}
}

// Run blocks until ctx is cancelled or a termination signal arrives, then
// stops the HTTP server, the runner and the scheduler.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "environment", app.config.Environment)

	app.initSignalHandler(cancelFunc)

	app.runner.Start(ctx)
	if err := app.scheduler.Start(); err != nil {
		app.logger.Error(ctx, "housekeeping disabled", "error", err)
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.scheduler.Stop()
	app.runner.Stop()
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close", "error", err)
	}

	app.logger.Info(ctx, "app stopped")
}
