package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"caseworker-tasks/internal/app"
	"caseworker-tasks/internal/core/config"
	"caseworker-tasks/internal/core/logger"
	"caseworker-tasks/internal/core/server"
	"caseworker-tasks/internal/transport/http/router"
)

// The admin binary shares the database with the api and listens on its
// own, normally internal, address.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "admin:", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()
	cfg, err := config.Load("")
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	// the api binary owns the schema
	cfg.DB.AutoMigrate = false

	log, cleanup := logger.FromConfig(cfg.Log)
	defer cleanup()
	defer logger.RedirectStdLog(log, zapcore.InfoLevel)()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log.Named("admin"))
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("close", zap.Error(err))
		}
	}()

	srv := server.FromConfig(cfg.App.Admin.Host, cfg.App.Admin.Port, cfg.App.HTTP, router.NewAdminEngine(a.Deps))
	log.Info("caseworker admin starting", zap.String("addr", srv.Addr), zap.String("admin", "/admin/v1"))
	return server.Run(ctx, srv, log, 10*time.Second)
}
