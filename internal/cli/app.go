package cli

import (
	"context"
	"io"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"daily-tasks/internal/config"
	"daily-tasks/internal/logging"
	"daily-tasks/internal/planner"
	"daily-tasks/internal/repository"
)

// app holds what every command needs: settings, logger and the open store.
type app struct {
	cfg   config.Config
	log   zerolog.Logger
	db    *gorm.DB
	tasks *repository.TaskRepository
}

// openApp loads configuration, builds the logger on logOut and opens the database.
func openApp(logOut io.Writer) (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat, logOut)

	db, err := repository.NewDB(cfg.DatabaseURL, log)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, log: log, db: db, tasks: repository.NewTaskRepository(db)}, nil
}

// loadPlanner builds a planner over the store and fills it.
func (a *app) loadPlanner(ctx context.Context, opts ...planner.Option) (*planner.Planner, error) {
	opts = append([]planner.Option{planner.WithLogger(logging.Component(a.log, "planner"))}, opts...)
	p := planner.New(a.tasks, opts...)
	if err := p.Load(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

func (a *app) Close() {
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
