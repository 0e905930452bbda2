package engine

import (
	"context"
	"errors"

	"github.com/NordCoder/apirun/internal/domain/run"
)

// ErrEngineFailure means the collection could not be executed at all. Failed
// assertions are not engine failures.
var ErrEngineFailure = errors.New("collection engine failure")

type Engine interface {
	Run(ctx context.Context, collection, runID string) (*run.Raw, error)
}
