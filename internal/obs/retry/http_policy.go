package retry

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Retryable reports whether err is worth another attempt; the HTTP clients
// implement it on their error types.
type Retryable interface {
	Temporary() bool
}

func DefaultHTTPPolicy(name string, attempts int, log *zap.Logger) Policy {
	if attempts <= 0 {
		attempts = 3
	}
	return Policy{
		Name:     name,
		Attempts: attempts,
		Backoff:  ExpoJitter{Base: 500 * time.Millisecond, Max: 10 * time.Second, Jitter: 0.2},
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
				log.Warn("http retry", zap.String("op", name), zap.Int("attempt", i+1), zap.Error(err))
			}
		},
		OnExhaust: func(err error) {
			if log != nil && !errors.Is(err, context.Canceled) {
				log.Error("http retries exhausted", zap.String("op", name), zap.Error(err))
			}
		},
	}
}

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }
func (e permanentError) Temporary() bool { return false }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}
