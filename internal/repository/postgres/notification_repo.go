package postgres

import (
	"context"
	"fmt"

	"github.com/NordCoder/apirun/internal/domain/notification"
)

var _ notification.Repo = (*NotificationRepoImpl)(nil)

type NotificationRepoImpl struct{ db *DB }

func NewNotificationRepo(db *DB) *NotificationRepoImpl { return &NotificationRepoImpl{db: db} }

const (
	qNotifInsert = `
INSERT INTO notifications (run_id, method, ok, muted, message_id, error, sent_at)
VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, now()))
RETURNING id, sent_at;
`
	qNotifByRun = `
SELECT id, run_id, method, ok, muted, COALESCE(message_id, 0), error, sent_at
FROM notifications
WHERE run_id = $1
ORDER BY id;
`
)

func (r *NotificationRepoImpl) Create(ctx context.Context, d *notification.Delivery) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if err := r.db.execQueryer(ctx).QueryRow(ctx, qNotifInsert,
		d.RunID,
		string(d.Method),
		d.OK,
		d.Muted,
		nullInt64(d.MessageID),
		d.Error,
		nullTime(d.SentAt),
	).Scan(&d.ID, &d.SentAt); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (r *NotificationRepoImpl) ListByRun(ctx context.Context, runID string) ([]*notification.Delivery, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qNotifByRun, runID)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var out []*notification.Delivery
	for rows.Next() {
		var (
			d      notification.Delivery
			method string
		)
		if err := rows.Scan(&d.ID, &d.RunID, &method, &d.OK, &d.Muted, &d.MessageID, &d.Error, &d.SentAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		d.Method = notification.Method(method)
		out = append(out, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
