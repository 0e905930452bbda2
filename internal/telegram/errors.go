package telegram

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

var ErrNotificationRejected = errors.New("notification rejected")

// RejectedError is an application-level "ok": false answer from the Bot API.
type RejectedError struct {
	Method        string
	Code          int
	Description   string
	// RetryAfterSec is parameters.retry_after of a flood-control answer.
	RetryAfterSec int
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("telegram %s rejected (%d): %s", e.Method, e.Code, e.Description)
}

func (e *RejectedError) Is(target error) bool { return target == ErrNotificationRejected }

func (e *RejectedError) RetryAfter() time.Duration {
	return time.Duration(e.RetryAfterSec) * time.Second
}

// Temporary marks flood-control and server-side rejections as retryable.
func (e *RejectedError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= http.StatusInternalServerError
}

// TransportError wraps failures below the API level (dial, TLS, timeouts, bad body).
type TransportError struct {
	Method string
	Err    error
}

func (e *TransportError) Error() string { return fmt.Sprintf("telegram %s: %v", e.Method, e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }
func (e *TransportError) Temporary() bool { return true }
