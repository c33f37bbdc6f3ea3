package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mama165/sdk-go/logs"

	"github.com/thereayou/eventchat/internal/config"
)

func main() {
	bootLog := logs.GetLoggerFromString("INFO")

	cfg, err := config.Load(bootLog)
	if err != nil {
		bootLog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	log := logs.GetLoggerFromString(strings.ToUpper(cfg.LogLevel))

	srv, err := NewServer(cfg, log)
	if err != nil {
		log.Error("Failed to start", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = srv.Run(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
