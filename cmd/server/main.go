package main

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
	"go.uber.org/zap"

	"github.com/JoseLuizMendes/barber-pro/internal/booking"
	"github.com/JoseLuizMendes/barber-pro/internal/cache"
	"github.com/JoseLuizMendes/barber-pro/internal/config"
	"github.com/JoseLuizMendes/barber-pro/internal/database"
	"github.com/JoseLuizMendes/barber-pro/internal/handler"
	"github.com/JoseLuizMendes/barber-pro/internal/logger"
	"github.com/JoseLuizMendes/barber-pro/internal/middleware"
	"github.com/JoseLuizMendes/barber-pro/internal/queue"
	"github.com/JoseLuizMendes/barber-pro/internal/repository"
	"github.com/JoseLuizMendes/barber-pro/internal/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	lg, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DB)
	if err != nil {
		lg.Fatal("database: open failed", zap.String("driver", cfg.DB.Driver), zap.Error(err))
	}
	defer db.Close()
	dialect, err := repository.DialectFor(cfg.DB.Driver)
	if err != nil {
		lg.Fatal("database: dialect", zap.Error(err))
	}
	store := repository.NewSQLStore(db, dialect)
	if err := store.Migrate(ctx); err != nil {
		lg.Fatal("database: migrate failed", zap.Error(err))
	}

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		lg.Warn("redis: unavailable, caching and rate limiting disabled")
	} else {
		defer rdb.Close()
	}
	availCache := cache.NewAvailability(cfg.Cache, rdb, lg)

	sinks := booking.Fanout{availCache}
	if cfg.RabbitURL != "" {
		pub, err := queue.NewPublisher(cfg.RabbitURL, cfg.BookingExchange, lg)
		if err != nil {
			lg.Warn("rabbitmq: publisher unavailable, events will not be published", zap.Error(err))
		} else {
			defer pub.Close()
			sinks = append(sinks, pub)
		}
	}

	coord := booking.NewCoordinator(store, sinks, booking.SystemClock, lg)
	coord.RejectPast = cfg.RejectPast
	lifecycle := booking.NewLifecycle(store, sinks, booking.SystemClock, lg)
	avail := booking.NewAvailabilityService(store, availCache)
	sweeper := booking.NewSweeper(store, sinks, cfg.Sweep.BatchSize, lg)
	runner := booking.NewSweepRunner(sweeper, cfg.Sweep.Interval, booking.SystemClock, lg)
	go runner.Run(ctx)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(lg))
	router.Register(e, router.Deps{
		JWTSecret: cfg.JWTSecret,
		DB:        db,
		Bookings:  handler.NewBookingHandler(coord, avail, lifecycle),
		Ops:       handler.NewOpsHandler(runner, booking.NewAuditor(store)),
		RateLimit: middleware.NewTokenBucket(cfg.RateLimit, rdb, lg),
	})

	go func() {
		addr := ":" + cfg.Port
		lg.Info("http: listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("db", cfg.DB.Driver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("http: server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	lg.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		lg.Error("http: shutdown", zap.Error(err))
	}
}
