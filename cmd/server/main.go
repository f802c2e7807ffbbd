package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	glog "github.com/labstack/gommon/log"

	"github.com/iliyamo/event-booking/internal/clock"
	"github.com/iliyamo/event-booking/internal/config"
	"github.com/iliyamo/event-booking/internal/database"
	"github.com/iliyamo/event-booking/internal/handler"
	"github.com/iliyamo/event-booking/internal/middleware"
	"github.com/iliyamo/event-booking/internal/queue"
	"github.com/iliyamo/event-booking/internal/repository"
	"github.com/iliyamo/event-booking/internal/router"
	"github.com/iliyamo/event-booking/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()

	db, err := database.Open(database.Options{
		User:               cfg.DBUser,
		Pass:               cfg.DBPass,
		Host:               cfg.DBHost,
		Port:               cfg.DBPort,
		Name:               cfg.DBName,
		LockWaitTimeoutSec: cfg.LockWaitTimeoutSec,
	})
	if err != nil {
		log.Fatalf("connect to db: %v", err)
	}
	defer db.Close()

	migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.Migrate(migrateCtx, db); err != nil {
		cancel()
		log.Fatalf("apply migrations: %v", err)
	}
	cancel()

	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(glog.INFO)
	e.Validator = handler.Validator{}
	e.HTTPErrorHandler = handler.HTTPErrorHandler
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{AllowOrigins: cfg.CORSOrigins}))
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			c.Logger().Infoj(glog.JSON{
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency_ms": v.Latency.Milliseconds(),
			})
			return nil
		},
	}))

	// Redis is optional; without it the limiter and the cache pass through.
	rdb := config.NewRedisClient()
	if rdb == nil {
		e.Logger.Warn("redis unreachable, rate limiting and response cache disabled")
	} else {
		defer rdb.Close()
	}
	cache := middleware.NewResponseCache(config.LoadCacheConfig(), rdb)
	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	var pub service.Publisher
	if cfg.RabbitURL != "" {
		p := queue.NewPublisher(cfg.RabbitURL)
		defer p.Close()
		pub = p
	}

	txr := repository.NewTxRunner(db)
	events := repository.NewEventRepo(db)
	bookings := repository.NewBookingRepo(db)
	clk := clock.NewSystem()

	bookingSvc := service.NewBookingService(txr, events, bookings, pub, clk, e.Logger, cfg.BookingTxTimeout)
	eventSvc := service.NewEventService(txr, events, e.Logger)
	statsSvc := service.NewStatsService(txr, repository.NewStatsRepo(db), clk)

	bookingH := handler.NewBookingHandler(bookingSvc)
	eventH := handler.NewEventHandler(eventSvc)

	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db)), cfg.JWTSecret)
	router.RegisterPublic(e, eventH, cache)
	router.RegisterBookings(e, bookingH, cfg.JWTSecret, limit, cache)
	router.RegisterAdmin(e, eventH, bookingH, handler.NewStatsHandler(statsSvc), cfg.JWTSecret, cache)

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.BookingLogConsumer && cfg.RabbitURL != "" {
		consumer := queue.NewConsumer(cfg.RabbitURL, cfg.BookingLogDir)
		go func() {
			if err := consumer.Run(stopCtx); err != nil && !errors.Is(err, context.Canceled) {
				e.Logger.Errorf("booking log consumer: %v", err)
			}
		}()
	}

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	srvErr := make(chan error, 1)
	go func() { srvErr <- e.Start(addr) }()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("server error: %v", err)
		}
	case <-stopCtx.Done():
		log.Printf("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("server shutdown error: %v", err)
	}
	log.Printf("server stopped")
}
