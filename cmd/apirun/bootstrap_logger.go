package main

import (
	config "github.com/NordCoder/apirun/internal/config/apirun"
	"github.com/NordCoder/apirun/internal/obs"
	"go.uber.org/zap"
)

func initLogger(cfg *config.Config, runID string) (*zap.Logger, error) {
	return obs.NewLogger(cfg.Log.AsLoggerConfig(cfg.App, runID))
}
