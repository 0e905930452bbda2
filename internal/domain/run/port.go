package run

import "context"

type Repo interface {
	Save(ctx context.Context, r *Record) error
	GetByID(ctx context.Context, id string) (*Record, error)
	ListByCollection(ctx context.Context, collection string, limit int) ([]*Record, error)
}
