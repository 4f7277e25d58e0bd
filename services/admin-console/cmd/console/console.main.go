package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/services/admin-console/internal/config"
	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/services/admin-console/internal/server"
	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/utils/logger"
)

func main() {
	cfg := config.Load()

	lg, err := logger.New("admin-console", cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.NewServer(cfg, lg)
	if err != nil {
		lg.Fatal("failed to build server", zap.Error(err))
	}
	if err := srv.Run(ctx); err != nil {
		lg.Fatal("admin console failed", zap.Error(err))
	}
}
