// Package app wires the local store, the offline write path, the sync
// engine, the print queue and the local API into one process, and runs the
// background loops that keep them moving.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/litepos/internal/api"
	"github.com/dmitrijs2005/litepos/internal/client"
	"github.com/dmitrijs2005/litepos/internal/config"
	"github.com/dmitrijs2005/litepos/internal/eventbus"
	"github.com/dmitrijs2005/litepos/internal/logging"
	"github.com/dmitrijs2005/litepos/internal/offline"
	"github.com/dmitrijs2005/litepos/internal/printing"
	"github.com/dmitrijs2005/litepos/internal/repositories/orders"
	"github.com/dmitrijs2005/litepos/internal/repositories/products"
	"github.com/dmitrijs2005/litepos/internal/services"
	"github.com/dmitrijs2005/litepos/internal/store"
	"github.com/dmitrijs2005/litepos/internal/syncengine"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

const remoteTimeout = 10 * time.Second

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *store.Store
	bus     *eventbus.Bus
	remote  *client.HTTPClient
	outbox  *offline.DataStore
	sync    *syncengine.Engine
	printer *printing.Manager
	orders  services.OrderService
	api     *api.Server
}

func NewApp(c *config.Config) (*App, error) {
	logger := logging.New(c.LogLevel, os.Stderr)
	ctx := context.Background()

	db, err := store.Open(ctx, c.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	remote, err := client.NewHTTPClient(c.RemoteBaseURL, remoteTimeout)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("remote client init error: %w", err)
	}

	device, err := newDevice(c)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("print device init error: %w", err)
	}

	bus := eventbus.New()
	outbox := offline.New(db, bus, remote, logger)
	engine := syncengine.New(db, outbox, remote, bus, logger)
	printer := printing.New(db, device, bus, logger)
	svc := services.NewOrderService(outbox, orders.NewStoreRepository(db, orders.WithLogger(logger)), products.NewStoreRepository(db), printer, logger)

	gin.SetMode(gin.ReleaseMode)
	srv := api.NewServer(c.ListenAddr, api.Deps{
		Orders: svc,
		Sync:   engine,
		Outbox: outbox,
		Jobs:   printer,
		Bus:    bus,
		Log:    logger,
	})

	return &App{
		config:  c,
		logger:  logger,
		db:      db,
		bus:     bus,
		remote:  remote,
		outbox:  outbox,
		sync:    engine,
		printer: printer,
		orders:  svc,
		api:     srv,
	}, nil
}

func newDevice(c *config.Config) (printing.Device, error) {
	if c.PrintSpoolDir == "" {
		return printing.NewWriterDevice(os.Stdout), nil
	}
	return printing.NewSpoolDevice(c.PrintSpoolDir)
}

func (app *App) Store() *store.Store           { return app.db }
func (app *App) Bus() *eventbus.Bus            { return app.bus }
func (app *App) Outbox() *offline.DataStore    { return app.outbox }
func (app *App) Sync() *syncengine.Engine      { return app.sync }
func (app *App) Printer() *printing.Manager    { return app.printer }
func (app *App) Orders() services.OrderService { return app.orders }

// Probe checks the remote API once and records the result.
func (app *App) Probe(ctx context.Context) bool {
	online := probe(ctx, app.remote)
	app.outbox.SetOnline(online)
	return online
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run resumes queued print jobs and runs the connectivity watcher, the sync
// scheduler and the local API until ctx is cancelled or a signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "db", app.config.DatabasePath, "remote", app.config.RemoteBaseURL)

	app.initSignalHandler(cancelFunc)
	app.printer.Resume()

	wake := make(chan struct{}, 1)
	cancelWake := app.bus.Subscribe(eventbus.KindOnline, func(eventbus.Event) {
		select {
		case wake <- struct{}{}:
		default:
		}
	})
	defer cancelWake()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		watchConnectivity(gctx, app.remote, app.outbox, app.config.OnlineCheckInterval)
		return nil
	})
	g.Go(func() error {
		scheduleSync(gctx, app.sync, app.outbox.Online, wake, app.config.SyncInterval, app.logger)
		return nil
	})
	g.Go(func() error {
		return app.api.Run(gctx)
	})

	err := g.Wait()
	app.logger.Info(ctx, "App stopped")
	return err
}

// Close stops the background workers and closes the database.
func (app *App) Close() error {
	app.api.Close()
	app.printer.Close()
	app.outbox.Close()
	return app.db.Close()
}
