// Command prewarm force-refreshes every configured instrument once and
// exits non-zero if any of them failed. It is meant to run from cron before
// the market opens.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"TaiexCache/internal/app"
	"TaiexCache/internal/config"
	"TaiexCache/internal/logger"
	"TaiexCache/internal/scheduler"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 1
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Environment); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Error("config validation", logger.ErrorField(err))
		return 1
	}

	a, err := app.New(cfg)
	if err != nil {
		logger.Error("init app", logger.ErrorField(err))
		return 1
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result := scheduler.NewPrewarmer(a.Cache, cfg.Cache.Instruments, a.Recorder, a.Notifier).Run(ctx)
	if n := result.Failed(); n > 0 {
		logger.Error("prewarm incomplete", logger.Int("failed", n), logger.Int("total", len(result.Results)))
		return 1
	}
	return 0
}
