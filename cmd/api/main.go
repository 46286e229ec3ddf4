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

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "api:", err)
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

	log, cleanup := logger.FromConfig(cfg.Log)
	defer cleanup()
	defer logger.RedirectStdLog(log, zapcore.InfoLevel)()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("close", zap.Error(err))
		}
	}()

	h := cfg.App.HTTP
	srv := server.FromConfig(h.Host, h.Port, h, router.NewAPIEngine(a.Deps))
	log.Info("caseworker api starting",
		zap.String("env", cfg.App.Env),
		zap.String("addr", srv.Addr),
		zap.String("api", "/api"),
	)
	return server.Run(ctx, srv, log, 10*time.Second)
}
