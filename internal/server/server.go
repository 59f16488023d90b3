// Package server wires configuration, storage, brokers and services
// together and runs the HTTP server until its context is cancelled.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/Artssj1234/mesa-y-pedidos-app/app/models"
	"github.com/Artssj1234/mesa-y-pedidos-app/app/repositories"
	"github.com/Artssj1234/mesa-y-pedidos-app/app/routes"
	"github.com/Artssj1234/mesa-y-pedidos-app/app/services"
	"github.com/Artssj1234/mesa-y-pedidos-app/config"
	"github.com/Artssj1234/mesa-y-pedidos-app/internal/kernel"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/auth"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/cache"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/crypt"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/database"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/logger"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/migration"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/notify"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/schedule"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/session"
	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/ws"
)

const shutdownTimeout = 10 * time.Second

// App is the fully wired service.
type App struct {
	DB       *gorm.DB
	Notifier notify.Notifier
	Services routes.Services

	closers []func() error
}

// Close releases everything Boot opened, newest first.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.L.Warn("shutdown step failed", "error", err)
		}
	}
	a.closers = nil
}

func (a *App) onClose(fn func() error) { a.closers = append(a.closers, fn) }

func workers() int {
	n, err := strconv.Atoi(config.Get("NOTIFY_WORKERS", "4"))
	if err != nil || n < 1 {
		return 4
	}
	return n
}

// Boot connects to the database, migrates it, picks the notifier and the
// session store, and builds the services. The caller owns Close.
func Boot(ctx context.Context) (*App, error) {
	if err := config.Load(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	app := &App{}
	ok := false
	defer func() {
		if !ok {
			app.Close()
		}
	}()

	if uri := config.LogMongoURI(); uri != "" {
		closeSink, err := logger.EnableMongo(uri, config.LogMongoDatabase())
		if err != nil {
			logger.L.Warn("mongo log sink unavailable", "error", err)
		} else {
			app.onClose(func() error { closeSink(); return nil })
		}
	}

	secret, err := config.RequireJWTSecret()
	if err != nil {
		return nil, err
	}
	issuer, err := auth.NewIssuer(secret, config.TokenTTL())
	if err != nil {
		return nil, err
	}

	db, err := database.Connect(ctx, config.DatabaseDriver(), config.DatabaseDSN())
	if err != nil {
		return nil, err
	}
	app.DB = db
	app.onClose(func() error { return database.Close(db) })

	if _, err := migration.New(db, nil).Run(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	n, err := NewNotifier(ctx, db)
	if err != nil {
		return nil, err
	}
	app.Notifier = n
	app.onClose(n.Close)

	store, err := NewSessionStore(ctx, config.Get("SESSION_KEY", secret))
	if err != nil {
		return nil, err
	}
	app.onClose(cache.Close)

	repos := repositories.New(db, n)
	catalog := services.NewCatalogStore(repos)
	orders := services.NewOrderManager(repos, catalog)
	app.Services = routes.Services{
		Gate:    services.NewIdentityGate(repos.Users, services.NewSessions(store, config.SessionTTL()), issuer),
		Catalog: catalog,
		Orders:  orders,
		Admin:   services.NewAdminPanel(repos, catalog),
		Hub:     ws.NewHub(logger.L),
		Changes: n,
	}

	ok = true
	return app, nil
}

// NewNotifier returns the ChangeNotifier selected by NOTIFY_DRIVER.
func NewNotifier(ctx context.Context, db *gorm.DB) (notify.Notifier, error) {
	log := logger.L.With("component", "notify")

	switch driver := config.NotifyDriver(); driver {
	case "redis":
		rdb, err := cache.Connect(ctx)
		if err != nil {
			return nil, err
		}
		return notify.NewRedis(ctx, rdb, notify.DefaultRedisPrefix, workers(), log)

	case "amqp":
		return notify.DialAMQP(config.AMQPURL(), notify.DefaultExchange, workers(), log)

	case "postgres":
		if config.DatabaseDriver() != "postgres" {
			return nil, errors.New("notify: postgres driver needs DB_DRIVER=postgres")
		}
		return notify.ListenPostgres(ctx, config.DatabaseDSN(), notify.DefaultPGChannel, workers(), log)

	case "poll":
		return notify.NewPoller(repositories.Fingerprint(db), config.PollInterval(), models.Collections, workers(), log), nil

	default:
		return notify.NewMemory(workers(), log), nil
	}
}

// NewSessionStore returns the store selected by SESSION_DRIVER. Records
// that leave the process are sealed with key.
func NewSessionStore(ctx context.Context, key string) (session.Store, error) {
	var store session.Store
	switch config.SessionDriver() {
	case "memory":
		return session.NewMemoryStore(), nil
	case "redis":
		rdb, err := cache.Connect(ctx)
		if err != nil {
			return nil, err
		}
		store = session.NewRedisStore(rdb)
	default:
		files, err := session.NewFileStore(config.SessionDir())
		if err != nil {
			return nil, err
		}
		store = files
	}

	box, err := crypt.New(key)
	if err != nil {
		return nil, fmt.Errorf("session key: %w", err)
	}
	return session.NewSealedStore(store, box), nil
}

// Start boots the app, loads both snapshots, starts the background loops
// and serves HTTP until ctx is cancelled.
func Start(ctx context.Context) error {
	app, err := Boot(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	k, err := kernel.NewHTTPKernel(app.Services)
	if err != nil {
		return err
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	s := app.Services
	if err := s.Catalog.Refresh(runCtx); err != nil {
		return fmt.Errorf("initial catalog load: %w", err)
	}
	if err := s.Orders.Refresh(runCtx); err != nil {
		return fmt.Errorf("initial order load: %w", err)
	}
	if err := s.Catalog.Start(runCtx, app.Notifier); err != nil {
		return err
	}
	if err := s.Orders.Start(runCtx, app.Notifier); err != nil {
		return err
	}

	go s.Hub.Run(runCtx)
	feed, err := s.Hub.Attach(app.Notifier)
	if err != nil {
		return err
	}
	defer feed.Unsubscribe()

	go k.Limiter().Run(runCtx)

	// Periodic full reloads catch anything a lost notification missed.
	jobs := schedule.New(logger.L.With("component", "schedule"))
	jobs.Every(config.ResyncInterval()).Name("resync catalog").WithoutOverlapping().Run(s.Catalog.Refresh)
	jobs.Every(config.ResyncInterval()).Name("resync orders").WithoutOverlapping().Run(s.Orders.Refresh)
	go jobs.Start(runCtx)

	srv := &http.Server{
		Addr:              ":" + config.AppPort(),
		Handler:           k.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.L.Info("mesa listening", "addr", srv.Addr, "env", config.AppEnv(),
			"notify", config.NotifyDriver(), "sessions", config.SessionDriver())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.L.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
