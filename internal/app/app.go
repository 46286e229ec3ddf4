// Package app wires configuration into the database, cache, services and
// router dependencies shared by the binaries.
package app

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"caseworker-tasks/internal/core/auth"
	"caseworker-tasks/internal/core/cache"
	"caseworker-tasks/internal/core/config"
	"caseworker-tasks/internal/core/database"
	"caseworker-tasks/internal/repo"
	"caseworker-tasks/internal/service"
	"caseworker-tasks/internal/transport/http/router"
)

type App struct {
	Cfg   *config.Config
	Log   *zap.Logger
	DB    *gorm.DB
	Cache *cache.Cache // nil without redis.addr
	Deps  router.Deps
}

func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	db, err := database.NewGorm(database.OptsFromConfig(cfg.DB, log))
	if err != nil {
		return nil, err
	}
	if err := database.Ping(ctx, db); err != nil {
		_ = database.Close(db)
		return nil, err
	}
	log.Info("database connected", zap.String("driver", cfg.DB.Driver))

	if cfg.DB.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			_ = database.Close(db)
			return nil, err
		}
		log.Info("automigrate done")
	}

	a := &App{Cfg: cfg, Log: log, DB: db}

	var taskOpts []service.TaskOption
	if c := cache.FromConfig(cfg.Redis); c != nil {
		if err := c.Ping(ctx); err != nil {
			// reads fall through to the database while redis is down
			log.Warn("redis unreachable, stats cache degraded", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		a.Cache = c
		taskOpts = append(taskOpts, service.WithStatsCache(c, time.Duration(cfg.Redis.StatsTTLSec)*time.Second))
	}

	jwt := auth.NewJWTer(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.TTLHours)*time.Hour)
	hasher := auth.NewHasher(cfg.Auth.BcryptCost)

	a.Deps = router.Deps{
		Log:   log,
		App:   cfg.App,
		JWT:   jwt,
		Users: service.NewUserService(repo.NewUserRepo(db), hasher, jwt, log),
		Tasks: service.NewTaskService(repo.NewTaskRepo(db), log, taskOpts...),
	}
	return a, nil
}

func (a *App) Close() error {
	var errs []error
	if a.Cache != nil {
		errs = append(errs, a.Cache.Close())
	}
	errs = append(errs, database.Close(a.DB))
	return errors.Join(errs...)
}
