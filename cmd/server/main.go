package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gigwallet/config"
	"gigwallet/internal/cache"
	"gigwallet/internal/database"
	"gigwallet/internal/jobs"
	"gigwallet/internal/metrics"
	"gigwallet/internal/router"
	"gigwallet/internal/service"
	"gigwallet/internal/ws"

	log "github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("config")
	}
	setupLogging(cfg.Log)

	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("database")
	}
	if err := database.AutoMigrate(db); err != nil {
		log.WithError(err).Fatal("migrate")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New("gigwallet")
	var store cache.Store = cache.NewMemoryStore()
	if cfg.Redis.URL != "" {
		client, err := cache.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			log.WithError(err).Fatal("redis")
		}
		redisStore := cache.NewRedisStore(client, "gigwallet:")
		defer redisStore.Close()
		store = redisStore
		log.Info("rate limiting backed by redis")
	}

	reconciler := service.NewReconciler(db, cfg.Reconcile.BatchSize, cfg.Ledger.TxTimeout, m)
	if cfg.Reconcile.Enabled {
		scheduler, err := jobs.NewScheduler(reconciler, cfg.Reconcile.Schedule)
		if err != nil {
			log.WithError(err).Fatal("scheduler")
		}
		if err := scheduler.Start(ctx); err != nil {
			log.WithError(err).Fatal("scheduler")
		}
		defer scheduler.Stop()
	}

	engine := router.Setup(cfg, db, router.Deps{
		Metrics:    m,
		Cache:      store,
		Hub:        ws.NewHub(),
		Reconciler: reconciler,
	})
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		log.WithFields(log.Fields{
			"port":        cfg.Server.Port,
			"env":         cfg.Server.Env,
			"fee_percent": cfg.Ledger.PlatformFeePercent.String(),
			"currency":    cfg.Ledger.DefaultCurrency,
		}).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("listen")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.WithField("signal", sig.String()).Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown")
	}
	cancel()
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info("server stopped")
}

func setupLogging(cfg config.LogConfig) {
	if cfg.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}
	log.SetOutput(os.Stdout)
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		log.WithField("level", cfg.Level).Warn("unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
}
