package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap/zapcore"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/logger"
)

func main() {
	configPath := flag.String("config", "", "path to the configuration file")
	flag.Parse()

	fmt.Println("Mudra - Gesture Control Surface")

	cfg, err := config.Load(*configPath)
	if err != nil {
		// Run on defaults when no file exists at the default location;
		// an explicitly given path must load.
		if *configPath != "" || !errors.Is(err, os.ErrNotExist) {
			logger.Logger().Fatalw("configuration failed", "error", err)
		}
		cfg = config.Default()
	}

	if level, ok := logger.ParseLogLevel(cfg.LogLevel); ok {
		logger.SetLevel(level)
	} else {
		logger.SetLevel(zapcore.InfoLevel)
	}

	a, err := app.New(cfg)
	if err != nil {
		logger.Logger().Fatalw("startup failed", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil {
		logger.Logger().Fatalw("pipeline failed", "error", err)
	}
	logger.Logger().Infow("shutdown complete")
}
