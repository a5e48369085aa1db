package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/vbonduro/floodzone/internal/app"
	"github.com/vbonduro/floodzone/internal/config"
	"github.com/vbonduro/floodzone/internal/db"
	"github.com/vbonduro/floodzone/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile, os.Stderr)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := app.New(cfg, database, logger)
	a.Session.Start(ctx)

	sh := newShell(a, os.Stdout)
	defer sh.Close()

	if len(os.Args) > 1 {
		if err := sh.Exec(ctx, os.Args[1:]); err != nil {
			logger.Error("command failed", "error", err)
			os.Exit(1)
		}
		return
	}
	sh.Run(ctx, os.Stdin)
}
