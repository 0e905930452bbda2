package pipeline

import (
	"context"

	"github.com/NordCoder/apirun/internal/chart"
	"github.com/NordCoder/apirun/internal/domain/notification"
	"github.com/NordCoder/apirun/internal/domain/run"
)

type Engine interface {
	Run(ctx context.Context, collection, runID string) (*run.Raw, error)
}

type ReportGenerator interface {
	Generate(ctx context.Context) (string, error)
}

type ChartRenderer interface {
	Render(ctx context.Context, in chart.Input, path string) error
}

// HistoryStore persists a finished run. Optional.
type HistoryStore interface {
	SaveRun(ctx context.Context, rec *run.Record, deliveries []notification.Delivery) error
}
