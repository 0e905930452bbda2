package main

import (
	"github.com/NordCoder/apirun/internal/chart"
	config "github.com/NordCoder/apirun/internal/config/apirun"
	"github.com/NordCoder/apirun/internal/engine"
	"github.com/NordCoder/apirun/internal/httpclient"
	"github.com/NordCoder/apirun/internal/report"
	"github.com/NordCoder/apirun/internal/services/pipeline"
	"github.com/NordCoder/apirun/internal/telegram"
	"go.uber.org/zap"
)

func httpConfig(c config.HTTP) httpclient.Config {
	return httpclient.Config{Timeout: c.Timeout, UserAgent: c.UserAgent, VerifyTLS: c.VerifyTLS}
}

func buildPipeline(cfg *config.Config, logger *zap.Logger) *pipeline.Pipeline {
	newman := engine.NewNewman(engine.Config{
		Bin:              cfg.Newman.Bin,
		CollectionsDir:   cfg.Newman.CollectionsDir,
		DelayRequest:     cfg.Newman.DelayRequest,
		Reporters:        cfg.Newman.Reporters,
		Environment:      cfg.Newman.EnvFile,
		AllureResultsDir: cfg.Allure.ResultsDir,
		WorkDir:          cfg.Work.Dir,
		KeepExport:       cfg.Work.KeepArtifacts,
	}, logger)

	allure := report.NewGenerator(report.Config{
		Bin:        cfg.Allure.Bin,
		ResultsDir: cfg.Allure.ResultsDir,
		ReportDir:  cfg.Allure.ReportDir,
	}, logger)

	charts := chart.NewClient(chart.Config{
		BaseURL:         cfg.Chart.BaseURL,
		Format:          cfg.Chart.Format,
		Width:           cfg.Chart.Width,
		Height:          cfg.Chart.Height,
		BackgroundColor: cfg.Chart.BackgroundColor,
	}, httpclient.New("chart", httpConfig(cfg.Chart.HTTP)), logger)

	botHTTP := httpConfig(cfg.Telegram.HTTP)
	botHTTP.Secrets = []string{cfg.Telegram.Token}
	bot := telegram.NewClient(telegram.Config{
		APIBase:       cfg.Telegram.APIBase,
		Token:         cfg.Telegram.Token,
		ChatID:        cfg.Telegram.ChatID,
		RetryAttempts: cfg.Telegram.RetryAttempts,
	}, httpclient.New("telegram", botHTTP)).WithLogger(logger)

	return pipeline.New(pipeline.Config{
		WorkDir:         cfg.Work.Dir,
		KeepArtifacts:   cfg.Work.KeepArtifacts,
		EngineTimeout:   cfg.Stages.EngineTimeout,
		ReportTimeout:   cfg.Stages.ReportTimeout,
		ChartTimeout:    cfg.Stages.ChartTimeout,
		ProgressMessage: cfg.Notify.ProgressMessage,
		FailureAlert:    cfg.Notify.FailureAlert,
	},
		newman,
		allure,
		charts,
		telegram.NewNotifier(bot, cfg.Stages.NotifyTimeout, logger),
		logger,
	)
}
