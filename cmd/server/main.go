package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"TaiexCache/internal/api"
	"TaiexCache/internal/app"
	"TaiexCache/internal/config"
	"TaiexCache/internal/logger"
	"TaiexCache/internal/scheduler"
)

func main() {
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Environment); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("config validation", logger.ErrorField(err))
	}
	logger.Info("TaiexCache server starting",
		logger.String("backend", cfg.Cache.Backend),
		logger.String("provider", cfg.DataSource.Provider),
		logger.Strings("instruments", cfg.Cache.Instruments))

	a, err := app.New(cfg)
	if err != nil {
		logger.Fatal("init app", logger.ErrorField(err))
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	prewarmer := scheduler.NewPrewarmer(a.Cache, cfg.Cache.Instruments, a.Recorder, a.Notifier)
	sched := scheduler.NewScheduler(ctx, prewarmer, a.Location)
	if err := sched.Register(cfg.Schedule.PrewarmCron); err != nil {
		logger.Fatal("register cron tasks", logger.ErrorField(err))
	}
	sched.Start()
	defer sched.Stop()

	if os.Getenv("RUN_ON_START") == "true" {
		logger.Info("RUN_ON_START enabled, pre-warming now")
		go sched.RunNow()
	}

	handler := api.NewHandler(a.Cache, a.Recorder, cfg.Cache.Instruments)
	for name, check := range a.HealthChecks() {
		handler.AddHealthCheck(name, check)
	}
	router := api.NewRouter(handler, a.Metrics.Handler())
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.ChainMiddleware(api.LoggingMiddleware(), api.RecoveryMiddleware())(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start HTTP server", logger.ErrorField(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutdown signal received, stopping")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down HTTP server", logger.ErrorField(err))
	}
	logger.Info("TaiexCache server stopped")
}
