package notification

import "context"

type Repo interface {
	Create(ctx context.Context, d *Delivery) error
	ListByRun(ctx context.Context, runID string) ([]*Delivery, error)
}
