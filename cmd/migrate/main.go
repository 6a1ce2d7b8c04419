package main

import (
	"log"

	"go.uber.org/zap"

	"github.com/gppalanpur/portal-api/migrations"
	"github.com/gppalanpur/portal-api/pkg/config"
	"github.com/gppalanpur/portal-api/pkg/database"
	"github.com/gppalanpur/portal-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	if err := migrations.Migrate(db.DB); err != nil {
		logr.Fatal("migrations failed", zap.Error(err))
	}

	logr.Info("migrations applied")
}
