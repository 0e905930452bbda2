package telegram

import (
	"context"
	"time"

	"github.com/NordCoder/apirun/internal/domain/notification"
	"github.com/NordCoder/apirun/internal/obs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var (
	mDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "apirun_notifications_total",
		Help: "Chat notifications by method and outcome.",
	}, []string{"method", "status"})
	mLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "apirun_notification_duration_seconds",
		Help:    "Bot API call latency including retries.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})
)

// Notifier is the best-effort face of Client: every call is independent,
// failures are logged and reported in the Delivery, never returned.
type Notifier struct {
	c       *Client
	timeout time.Duration
	clock   notification.Clock
	log     *zap.Logger
}

var _ notification.Sender = (*Notifier)(nil)

func NewNotifier(c *Client, timeout time.Duration, l *zap.Logger) *Notifier {
	return &Notifier{
		c:       c,
		timeout: timeout,
		clock:   notification.SystemClock{},
		log:     obs.Component(l, "telegram.notifier"),
	}
}

func (n *Notifier) SendDocument(ctx context.Context, path, caption string, muted bool) notification.Delivery {
	return n.deliver(ctx, notification.MethodDocument, muted, func(ctx context.Context) (int64, error) {
		return n.c.SendDocument(ctx, path, caption, muted)
	}, zap.String("path", path))
}

func (n *Notifier) SendPhoto(ctx context.Context, path string, muted bool) notification.Delivery {
	return n.deliver(ctx, notification.MethodPhoto, muted, func(ctx context.Context) (int64, error) {
		return n.c.SendPhoto(ctx, path, muted)
	}, zap.String("path", path))
}

func (n *Notifier) SendMessage(ctx context.Context, text string, muted bool) notification.Delivery {
	return n.deliver(ctx, notification.MethodMessage, muted, func(ctx context.Context) (int64, error) {
		return n.c.SendMessage(ctx, text, muted)
	}, zap.Int("text_len", len(text)))
}

func (n *Notifier) EditMessage(ctx context.Context, messageID int64, text string, muted bool) notification.Delivery {
	return n.deliver(ctx, notification.MethodEdit, muted, func(ctx context.Context) (int64, error) {
		return messageID, n.c.EditMessage(ctx, messageID, text, muted)
	}, zap.Int64("message_id", messageID))
}

func (n *Notifier) deliver(
	ctx context.Context,
	method notification.Method,
	muted bool,
	call func(context.Context) (int64, error),
	fields ...zap.Field,
) (d notification.Delivery) {
	d = notification.Delivery{Method: method, Muted: muted}

	ctx, span := otel.Tracer("telegram.notifier").Start(ctx, "telegram."+string(method),
		trace.WithAttributes(
			attribute.String("telegram.method", string(method)),
			attribute.Bool("telegram.muted", muted),
		),
	)
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	log := obs.WithTrace(ctx, n.log).With(append(fields,
		zap.String("method", string(method)),
		zap.Bool("muted", muted),
	)...)

	defer func() {
		// a panicking transport must not take sibling notifications down
		if r := recover(); r != nil {
			log.Error("notification panic", zap.Any("panic", r))
			d.OK = false
			d.Error = "panic"
			mDeliveries.WithLabelValues(string(method), "error").Inc()
		}
		d.SentAt = n.clock.Now()
		span.SetAttributes(attribute.Bool("telegram.ok", d.OK))
		span.End()
	}()

	start := time.Now()
	id, err := call(ctx)
	mLatency.WithLabelValues(string(method)).Observe(time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		mDeliveries.WithLabelValues(string(method), "error").Inc()
		d.Error = err.Error()
		log.Error("notification failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return d
	}

	mDeliveries.WithLabelValues(string(method), "ok").Inc()
	d.OK = true
	d.MessageID = id
	log.Info("notification sent", zap.Int64("message_id", id), zap.Duration("elapsed", time.Since(start)))
	return d
}
