package main

import (
	"context"
	"time"

	config "github.com/NordCoder/apirun/internal/config/apirun"
	"github.com/NordCoder/apirun/internal/obs"
	"github.com/NordCoder/apirun/internal/obs/retry"
	"github.com/NordCoder/apirun/internal/outbox"
	kafkax "github.com/NordCoder/apirun/internal/repository/kafka"
	pg "github.com/NordCoder/apirun/internal/repository/postgres"
	"go.uber.org/zap"
)

const drainTimeout = 30 * time.Second

func initProducer(ctx context.Context, cfg *config.Config, logger *zap.Logger) *kafkax.Producer {
	return kafkax.BootstrapProducer(ctx, &kafkax.ProducerConfig{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Topic,
	}, logger)
}

// drainOutbox publishes pending run.finished events, this run's and any left
// over from runs that could not reach the broker.
func drainOutbox(ctx context.Context, cfg *config.Config, db dbHandle, prod *kafkax.Producer, logger *zap.Logger) {
	log := obs.Component(logger, "outbox")
	d := outbox.NewDrainer(log,
		pg.NewOutboxRepo(db),
		outbox.MakeGlobalHandler(kafkax.NewRunEventsKafka(prod), retry.DefaultKafkaPolicy(cfg.Kafka.RetryAttempts, log)),
		50,
		cfg.Kafka.OutboxTTL,
	)
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), drainTimeout)
	defer cancel()
	if _, err := d.Drain(dctx); err != nil {
		log.Warn("outbox drain", zap.Error(err))
	}
}
