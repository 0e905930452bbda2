package main

import (
	"context"
	"fmt"

	config "github.com/NordCoder/apirun/internal/config/apirun"
	pg "github.com/NordCoder/apirun/internal/repository/postgres"
	"go.uber.org/zap"
)

type dbHandle = *pg.DB

// initDB connects and applies the embedded migrations.
func initDB(ctx context.Context, cfg *config.Config, logger *zap.Logger) (dbHandle, error) {
	db, err := pg.NewDB(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	if err := pg.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("db migrate: %w", err)
	}
	logger.Info("run history enabled")
	return db, nil
}
