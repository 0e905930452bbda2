package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/NordCoder/apirun/internal/config/apirun"
	"github.com/NordCoder/apirun/internal/obs"
	kafkax "github.com/NordCoder/apirun/internal/repository/kafka"
	pg "github.com/NordCoder/apirun/internal/repository/postgres"
	"github.com/NordCoder/apirun/internal/services/pipeline"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	os.Exit(execute())
}

func execute() int {
	code := 0
	cmd := newRootCmd(&code)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if code == 0 {
			code = 1
		}
	}
	return code
}

func newRootCmd(code *int) *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "apirun <collection>",
		Short: "Run an API test collection and report the result to Telegram",
		Long: `apirun runs <collections_dir>/<collection>.json with newman, builds the allure
report and sends a chart, the report and a summary to the configured chat.

TELEGRAM_TOKEN and TELEGRAM_CHAT_ID are read from the environment or .env.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			c, err := run(ctx, cfgPath, args[0])
			*code = c
			return err
		},
	}
	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", os.Getenv("APIRUN_CONFIG"), "path to yaml config")
	cmd.AddCommand(
		newMigrateCmd(&cfgPath),
		newKafkaInitCmd(&cfgPath),
		newHistoryCmd(&cfgPath),
	)
	return cmd
}

func run(ctx context.Context, cfgPath, collection string) (int, error) {
	// init
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return 1, fmt.Errorf("config: %w", err)
	}
	runID := uuid.NewString()

	// logger
	logger, err := initLogger(cfg, runID)
	if err != nil {
		return 1, fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting apirun",
		zap.String("collection", collection),
		zap.String("env", cfg.App.Env),
		zap.String("ver", cfg.App.Version),
	)

	otelShutdown, err := initOTel(ctx, cfg)
	if err != nil {
		logger.Error("otel init", zap.Error(err))
		return 1, err
	}
	defer func() {
		shCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shCtx); err != nil {
			logger.Warn("otel shutdown", zap.Error(err))
		}
	}()

	p := buildPipeline(cfg, logger)

	var db dbHandle
	if cfg.DB.Enabled() {
		if db, err = initDB(ctx, cfg, logger); err != nil {
			logger.Warn("run history disabled", zap.Error(err))
			db = nil
		} else {
			defer db.Close()
		}
	}

	var prod *kafkax.Producer
	if cfg.Kafka.Enabled() {
		prod = initProducer(ctx, cfg, logger)
		defer func() { _ = prod.Close() }()
	}

	switch {
	case db != nil:
		hist := pg.NewHistory(db, pg.NewTransactor(db, logger))
		if prod != nil {
			hist = hist.WithOutbox(pg.NewOutboxRepo(db))
		}
		p = p.WithHistory(hist)
	case prod != nil:
		p = p.WithEvents(kafkax.NewRunEventsKafka(prod))
	}

	out, runErr := p.Run(ctx, runID, collection)
	if db != nil && prod != nil {
		drainOutbox(ctx, cfg, db, prod, logger)
	}
	if cfg.Notify.SummaryTable {
		pipeline.RenderTable(os.Stdout, out)
	}

	if err := obs.PushMetrics(context.WithoutCancel(ctx), cfg.Metrics.AsPushConfig(),
		map[string]string{"collection": collection}, logger); err != nil {
		logger.Warn("push metrics", zap.Error(err))
	}

	if runErr != nil {
		logger.Error("run failed", zap.String("state", string(out.Record.State)), zap.Error(runErr))
	}
	logger.Info("bye", zap.Int("exit_code", out.ExitCode()))
	return out.ExitCode(), nil
}
