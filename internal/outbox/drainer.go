package outbox

import (
	"context"
	"time"

	"github.com/NordCoder/apirun/internal/domain/outbox"
	"github.com/NordCoder/apirun/internal/obs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var (
	mPicked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "apirun_outbox_picked_total", Help: "Messages picked into processing.",
	})
	mOk = promauto.NewCounter(prometheus.CounterOpts{
		Name: "apirun_outbox_processed_ok_total", Help: "Messages processed successfully.",
	})
	mErr = promauto.NewCounter(prometheus.CounterOpts{
		Name: "apirun_outbox_processed_err_total", Help: "Handler errors.",
	})
	mDrainDur = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "apirun_outbox_drain_duration_seconds", Help: "Drain duration.",
		Buckets: prometheus.DefBuckets,
	})
)

// Drainer publishes pending outbox messages. The process is one-shot, so
// instead of polling it drains once before exit; messages that fail stay
// pending and are picked up by the next run once their in-progress TTL expires.
type Drainer struct {
	log      *zap.Logger
	repo     outbox.Repository
	dispatch outbox.GlobalHandler

	batchSize     int
	inProgressTTL time.Duration
}

func NewDrainer(
	log *zap.Logger,
	repo outbox.Repository,
	dispatch outbox.GlobalHandler,
	batchSize int,
	inProgressTTL time.Duration,
) *Drainer {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Drainer{
		log: obs.Component(log, "outbox.drainer"), repo: repo, dispatch: dispatch,
		batchSize: batchSize, inProgressTTL: inProgressTTL,
	}
}

// Drain processes batches until one comes back empty or nothing in a batch
// succeeds. It returns the number of messages delivered.
func (d *Drainer) Drain(ctx context.Context) (int, error) {
	t0 := time.Now()
	defer func() { mDrainDur.Observe(time.Since(t0).Seconds()) }()

	tr := otel.Tracer("outbox.drainer")
	delivered := 0
	for ctx.Err() == nil {
		ctxSpan, span := tr.Start(ctx, "outbox.batch")
		span.SetAttributes(
			attribute.Int("batch.limit", d.batchSize),
			attribute.String("in_progress_ttl", d.inProgressTTL.String()),
		)

		messages, err := d.repo.PickBatch(ctxSpan, d.batchSize, d.inProgressTTL)
		if err != nil {
			mErr.Inc()
			obs.WithTrace(ctxSpan, d.log).Error("outbox pick error", zap.Error(err))
			obs.EndSpan(span, err)
			return delivered, err
		}
		mPicked.Add(float64(len(messages)))
		if len(messages) == 0 {
			span.End()
			break
		}

		okKeys := d.dispatchBatch(ctxSpan, messages)
		if err := d.repo.MarkSuccess(ctxSpan, okKeys); err != nil {
			mErr.Inc()
			obs.WithTrace(ctxSpan, d.log).Error("mark success error", zap.Error(err))
			obs.EndSpan(span, err)
			return delivered, err
		}
		delivered += len(okKeys)
		span.End()

		if len(okKeys) == 0 {
			break
		}
	}
	d.log.Info("outbox drained", zap.Int("delivered", delivered), zap.Duration("elapsed", time.Since(t0)))
	return delivered, ctx.Err()
}

func (d *Drainer) dispatchBatch(ctx context.Context, messages []outbox.Message) []string {
	tr := otel.Tracer("outbox.drainer")
	prop := otel.GetTextMapPropagator()

	okKeys := make([]string, 0, len(messages))
	for _, m := range messages {
		parent := prop.Extract(ctx, propagation.MapCarrier{
			"traceparent": m.Traceparent,
			"tracestate":  m.Tracestate,
			"baggage":     m.Baggage,
		})

		msgCtx, msgSpan := tr.Start(parent, "outbox.dispatch",
			trace.WithAttributes(
				attribute.String("outbox.key", m.IdempotencyKey),
				attribute.String("outbox.kind", m.Kind.String()),
			),
		)
		log := obs.WithTrace(msgCtx, d.log).With(zap.String("key", m.IdempotencyKey), zap.Stringer("kind", m.Kind))

		handler, err := d.dispatch(m.Kind)
		if err == nil {
			err = handler(msgCtx, m.Data)
		}
		if err != nil {
			mErr.Inc()
			log.Error("outbox dispatch failed", zap.Error(err))
			obs.EndSpan(msgSpan, err)
			continue
		}

		msgSpan.End()
		okKeys = append(okKeys, m.IdempotencyKey)
		mOk.Inc()
	}
	return okKeys
}
