// Package server initializes and runs the Lightning Gem server. It wires the
// store, the lnd client, the auction services, and the HTTP surface, and
// manages the run loops and graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sangaman/lightninggem/internal/lightning"
	"github.com/sangaman/lightninggem/internal/logging"
	"github.com/sangaman/lightninggem/internal/server/config"
	"github.com/sangaman/lightninggem/internal/server/listeners"
	"github.com/sangaman/lightninggem/internal/server/repositories/repomanager"
	"github.com/sangaman/lightninggem/internal/server/services"
	"github.com/sangaman/lightninggem/internal/server/web"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	node        *lightning.LndClient
	subscriber  *lightning.Subscriber
	registry    *listeners.Registry
	secrets     *services.SecretService
	auction     *services.AuctionService
	invoices    *services.InvoiceService
	web         *web.Server
}

func NewApp(c *config.Config) (*App, error) {

	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slogger)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	node, err := lightning.NewLndClient(c.LndHost, c.LndTLSCertPath, c.LndMacaroonPath)
	if err != nil {
		return nil, fmt.Errorf("lnd init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	registry := listeners.NewRegistry()
	secrets := services.NewSecretService(db, rm, c, logger)
	auction := services.NewAuctionService(db, rm, node, secrets, registry, c, logger)
	subscriber := lightning.NewSubscriber(node, auction.HandleSettlement, logger)
	invoices := services.NewInvoiceService(db, rm, node, auction, subscriber.Alive, logger)
	webServer := web.NewServer(c.EndpointAddrHTTP, c.PublicDir, invoices, auction, registry, logger)

	return &App{
		config:      c,
		logger:      logger,
		db:          db,
		repomanager: rm,
		node:        node,
		subscriber:  subscriber,
		registry:    registry,
		secrets:     secrets,
		auction:     auction,
		invoices:    invoices,
		web:         webServer,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// runMonitor ticks on the configured interval: it forces a reset when the
// owner stalled past the deadline, and restarts the settlement subscription
// when it has died.
func (app *App) runMonitor(ctx context.Context) {
	ticker := time.NewTicker(app.config.MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			app.auction.CheckTimeout(ctx)
			if !app.subscriber.Running() {
				go func() {
					_ = app.subscriber.Run(ctx)
				}()
			}
		}
	}
}

// Run starts the application and blocks until shutdown. Startup failures
// (store unreachable, initialization errors) are returned and fatal.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting app")

	app.initSignalHandler(cancelFunc)

	if err := app.repomanager.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}
	if err := app.auction.Init(ctx); err != nil {
		return fmt.Errorf("auction init error: %w", err)
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(app.config.RevealCronSpec, func() {
		if err := app.secrets.RevealPrevious(ctx); err != nil {
			app.logger.Error(ctx, "secret reveal failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("reveal schedule error: %w", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.web.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		// The monitor resubscribes if this first subscription dies.
		_ = app.subscriber.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.runMonitor(ctx)
	}()

	wg.Wait()

	if err := app.node.Close(); err != nil {
		app.logger.Error(ctx, "closing lnd connection failed", "error", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "closing db failed", "error", err)
	}

	return nil
}
