package kafka

import (
	"context"

	"github.com/NordCoder/apirun/internal/domain/run"
)

type RunEvents interface {
	PublishRunFinished(ctx context.Context, rec *run.Record) error
}
