package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	config "github.com/NordCoder/apirun/internal/config/apirun"
	kafkax "github.com/NordCoder/apirun/internal/repository/kafka"
	pg "github.com/NordCoder/apirun/internal/repository/postgres"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// readAdmin loads config without the pipeline checks: admin commands need
// neither the bot token nor the tool binaries.
func readAdmin(cfgPath string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Read(cfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	logger, err := initLogger(cfg, "")
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	return cfg, logger, nil
}

func newMigrateCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply run history migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := readAdmin(*cfgPath)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			if !cfg.DB.Enabled() {
				return errors.New("db.dsn (DB_DSN) is empty")
			}
			db, err := initDB(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			db.Close()
			logger.Info("migrations: up OK")
			return nil
		},
	}
}

func newKafkaInitCmd(cfgPath *string) *cobra.Command {
	var (
		partitions int
		rf         int
		wait       time.Duration
	)
	cmd := &cobra.Command{
		Use:   "kafka-init",
		Short: "Create the run events topic and wait until it is ready",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := readAdmin(*cfgPath)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			if !cfg.Kafka.Enabled() {
				return errors.New("kafka.brokers (KAFKA_BROKERS) is empty")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), wait+10*time.Second)
			defer cancel()
			if err := kafkax.EnsureTopic(ctx, cfg.Kafka.Brokers, kafkax.TopicSpec{
				Name:              cfg.Kafka.Topic,
				NumPartitions:     partitions,
				ReplicationFactor: rf,
				MaxWait:           wait,
			}, logger); err != nil {
				return fmt.Errorf("ensure topic %q: %w", cfg.Kafka.Topic, err)
			}
			logger.Info("kafka-init ok", zap.String("topic", cfg.Kafka.Topic))
			return nil
		},
	}
	cmd.Flags().IntVar(&partitions, "partitions", 1, "topic partitions")
	cmd.Flags().IntVar(&rf, "replication-factor", 1, "topic replication factor")
	cmd.Flags().DurationVar(&wait, "wait", 30*time.Second, "how long to wait for partition leaders")
	return cmd
}

func newHistoryCmd(cfgPath *string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history <collection>",
		Short: "Show recent runs of a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := readAdmin(*cfgPath)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			if !cfg.DB.Enabled() {
				return errors.New("db.dsn (DB_DSN) is empty")
			}
			db, err := pg.NewDB(cmd.Context(), cfg.DB)
			if err != nil {
				return fmt.Errorf("db connect: %w", err)
			}
			defer db.Close()

			runs, err := pg.NewRunRepo(db).ListByCollection(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}

			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"ID", "State", "Requests", "Passed", "Failed", "Started", "Took"})
			for _, r := range runs {
				row := table.Row{r.ID, r.State, "", "", "", r.StartedAt.Local().Format(time.DateTime),
					r.FinishedAt.Sub(r.StartedAt).Round(time.Second)}
				if s := r.Summary; s != nil {
					row[2], row[3], row[4] = s.TotalRequests, s.PassedAssertions, s.FailedAssertions
				}
				tw.AppendRow(row)
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs")
	return cmd
}
