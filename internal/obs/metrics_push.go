package obs

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.uber.org/zap"
)

type PushConfig struct {
	URL     string
	Job     string
	Timeout time.Duration
}

// PushMetrics sends everything registered in the default registry to a
// Pushgateway. The runner is a one-shot process, so there is nothing to scrape.
func PushMetrics(ctx context.Context, cfg *PushConfig, groupingLabels map[string]string, l *zap.Logger) error {
	if cfg == nil || cfg.URL == "" {
		return nil
	}
	if cfg.Job == "" {
		return errors.New("pushgateway job is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	p := push.New(cfg.URL, cfg.Job).Gatherer(prometheus.DefaultGatherer)
	for k, v := range groupingLabels {
		p = p.Grouping(k, v)
	}
	start := time.Now()
	if err := p.AddContext(pctx); err != nil {
		return err
	}
	if l != nil {
		l.Debug("metrics pushed", zap.String("url", cfg.URL), zap.Duration("elapsed", time.Since(start)))
	}
	return nil
}
