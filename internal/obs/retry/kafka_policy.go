package retry

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// DefaultKafkaPolicy retries publishes of outbox messages. The caller is a
// short-lived process, so the backoff ceiling stays low.
func DefaultKafkaPolicy(attempts int, log *zap.Logger) Policy {
	if attempts <= 0 {
		attempts = 4
	}
	return Policy{
		Name:     "outbox_publish",
		Attempts: attempts,
		Backoff:  ExpoJitter{Base: 200 * time.Millisecond, Max: 3 * time.Second, Jitter: 0.2},
		Retryable: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return false
			}
			var r Retryable
			if errors.As(err, &r) {
				return r.Temporary()
			}
			return true
		},
		OnAttempt: func(i int, err error) {
			if log != nil {
				log.Warn("outbox retry", zap.Int("attempt", i+1), zap.Error(err))
			}
		},
		OnExhaust: func(err error) {
			if log != nil && !errors.Is(err, context.Canceled) {
				log.Error("outbox retries exhausted", zap.Error(err))
			}
		},
	}
}
