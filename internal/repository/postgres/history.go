package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/NordCoder/apirun/internal/domain/notification"
	"github.com/NordCoder/apirun/internal/domain/outbox"
	"github.com/NordCoder/apirun/internal/domain/run"
)

// History stores a finished run together with its deliveries in one
// transaction. With an Outbox set, the run.finished event is enqueued in the
// same transaction.
type History struct {
	Runs   run.Repo
	Notifs notification.Repo
	Outbox outbox.Repository
	Tx     Transactor
}

func NewHistory(db *DB, tx Transactor) *History {
	return &History{
		Runs:   NewRunRepo(db),
		Notifs: NewNotificationRepo(db),
		Tx:     tx,
	}
}

// WithOutbox enables transactional enqueueing of run.finished events.
func (h *History) WithOutbox(o outbox.Repository) *History {
	cp := *h
	cp.Outbox = o
	return &cp
}

func RunFinishedKey(runID string) string { return "run.finished:" + runID }

func (h *History) SaveRun(ctx context.Context, rec *run.Record, deliveries []notification.Delivery) error {
	return h.Tx.WithTx(ctx, func(txCtx context.Context) error {
		if err := h.Runs.Save(txCtx, rec); err != nil {
			return err
		}
		for i := range deliveries {
			d := deliveries[i]
			d.RunID = rec.ID
			if err := h.Notifs.Create(txCtx, &d); err != nil {
				return fmt.Errorf("delivery %s: %w", d.Method, err)
			}
		}
		if h.Outbox == nil {
			return nil
		}
		b, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal run record: %w", err)
		}
		return h.Outbox.Enqueue(txCtx, RunFinishedKey(rec.ID), outbox.KindRunFinished, b)
	})
}
