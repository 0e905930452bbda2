package notification

import (
	"context"
	"time"
)

type Method string

const (
	MethodDocument Method = "sendDocument"
	MethodPhoto    Method = "sendPhoto"
	MethodMessage  Method = "sendMessage"
	MethodEdit     Method = "editMessageText"
)

// Delivery is the outcome of one chat notification attempt.
type Delivery struct {
	ID        int64     `json:"id"`
	RunID     string    `json:"run_id"`
	Method    Method    `json:"method"`
	OK        bool      `json:"ok"`
	Muted     bool      `json:"muted"`
	MessageID int64     `json:"message_id,omitempty"`
	Error     string    `json:"error,omitempty"`
	SentAt    time.Time `json:"sent_at"`
}

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// Sender is the chat surface the pipeline talks to. Implementations never
// return errors: failures are reported in the returned Delivery.
type Sender interface {
	SendDocument(ctx context.Context, path, caption string, muted bool) Delivery
	SendPhoto(ctx context.Context, path string, muted bool) Delivery
	SendMessage(ctx context.Context, text string, muted bool) Delivery
	EditMessage(ctx context.Context, messageID int64, text string, muted bool) Delivery
}
