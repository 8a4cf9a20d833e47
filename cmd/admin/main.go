package main

import (
	"errors"
	"log"
	"os"

	"go.uber.org/zap"

	"satpam/internal/config"
	"satpam/internal/logger"
)

func main() {
	if err := config.LoadDotEnv(os.Getenv("ENV_FILE")); err != nil {
		log.Fatalf("config: %v", err)
	}
	cfg := config.Load()

	logg, err := logger.New(cfg.LogLevel, "console", "satpam-admin")
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logg.Sync() }()

	cli := newCommandLine(cfg, os.Stdout)
	defer cli.close()
	if err := cli.run(os.Args); err != nil {
		if !errors.Is(err, errHelp) {
			logg.Error("command failed", zap.Error(err))
		}
		cli.close()
		os.Exit(1)
	}
}
