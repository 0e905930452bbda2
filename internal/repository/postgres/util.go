package postgres

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func nullInt64(v int64) *int64 {
	if v == 0 {
		return nil
	}
	return &v
}
