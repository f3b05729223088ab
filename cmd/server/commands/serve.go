package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/crew-booking/internal/config"
	"github.com/iliyamo/crew-booking/internal/database"
	"github.com/iliyamo/crew-booking/internal/handler"
	"github.com/iliyamo/crew-booking/internal/logging"
	"github.com/iliyamo/crew-booking/internal/middleware"
	"github.com/iliyamo/crew-booking/internal/queue"
	"github.com/iliyamo/crew-booking/internal/repository"
	"github.com/iliyamo/crew-booking/internal/repository/memstore"
	"github.com/iliyamo/crew-booking/internal/router"
	"github.com/iliyamo/crew-booking/internal/service"
)

// backend is everything the HTTP layer needs from storage.  Both the MySQL
// repositories and the in-memory store provide it.
type backend interface {
	service.Store
	handler.UserStore
	handler.TokenStore
}

// ServeCmd starts the HTTP API and blocks until the context is cancelled.
func ServeCmd(app *AppContext) *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(app, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending migrations before serving")
	return cmd
}

func serve(app *AppContext, migrate bool) error {
	cfg, log := app.Cfg, app.Logger

	var (
		store backend
		db    handler.Pinger
	)
	switch cfg.StorageDriver {
	case config.StorageMemory:
		log.Warn("Using in-memory storage; data is lost on restart")
		store = memstore.New()
	default:
		sqlDB, err := database.Open(app.Ctx, cfg.DSN())
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer sqlDB.Close()
		if migrate {
			ran, err := database.RunMigrations(app.Ctx, sqlDB)
			if err != nil {
				return err
			}
			log.Info("Migrations applied", zap.Strings("files", ran))
		}
		store, db = repository.NewStore(sqlDB), sqlDB
		log.Info("Database connected", zap.String("host", cfg.DBHost), zap.String("name", cfg.DBName))
	}

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		log.Warn("Redis unavailable; response cache off, rate limiting per process", zap.String("addr", cfg.Redis.Address()))
	} else {
		defer rdb.Close()
	}

	var auditor service.Auditor
	if cfg.AuditQueueEnabled {
		auditor = queue.NewPublisher(cfg.RabbitMQURL)
		auditLog, err := logging.InitAuditLogger()
		if err != nil {
			return fmt.Errorf("failed to initialize audit logger: %w", err)
		}
		defer func() { _ = auditLog.Sync() }()
		go func() {
			err := queue.NewConsumer(cfg.RabbitMQURL, log, auditLog).Run(app.Ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Error("audit consumer stopped", zap.Error(err))
			}
		}()
	}

	reconciler := service.NewReconciler(store, service.StatusPolicy{IgnoreDeclined: cfg.BookingIgnoreDeclined}, log)
	engine := service.NewEngine(store, reconciler, auditor, service.BookingPolicy{CapPositions: cfg.BookingCapPositions}, log)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(log))
	e.Use(middleware.Timeout(cfg.RequestTimeout))

	limit := middleware.NewTokenBucket(cfg.RateLimit, rdb, log)
	cache := middleware.NewRedisCache(cfg.Cache, rdb, log)

	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(*cfg, store, store, log), cfg.JWTSecret, limit)
	router.RegisterAvailability(e, handler.NewAvailabilityHandler(service.NewAvailabilityService(store, log), log), cfg.JWTSecret, limit, cache)
	router.RegisterEvents(e, handler.NewEventHandler(service.NewEventService(store, log), log), cfg.JWTSecret, limit, cache)
	router.RegisterBookings(e, handler.NewBookingHandler(engine, service.NewNeedsProjector(store), log), cfg.JWTSecret, limit, cache)

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info("Listening", zap.String("addr", addr), zap.String("storage", cfg.StorageDriver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-app.Ctx.Done():
	}

	log.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(ctx)
}
