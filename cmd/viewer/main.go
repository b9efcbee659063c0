// Package main is the entry point for the gridview scene viewer.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/gridview/internal/config"
	"github.com/Faultbox/gridview/internal/logger"
)

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	cfg, path, err := config.LoadWithPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== gridview ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	a, err := newApp(cfg, path)
	if err != nil {
		logger.Error("failed to start viewer", zap.Error(err))
		os.Exit(1)
	}
	defer a.Close()

	a.Run()
	logger.Info("viewer closed normally")
}
