package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/NordCoder/apirun/internal/domain/run"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestPublishRunFinished(t *testing.T) {
	w := &fakeWriter{}
	p := &Producer{w: w, topic: "runs", log: zap.NewNop()}
	events := NewRunEventsKafka(p)

	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rec := &run.Record{
		ID:         "run-1",
		Collection: "payments",
		State:      run.StateDone,
		Summary:    &run.Summary{TotalRequests: 4, PassedAssertions: 7, FailedAssertions: 3, CollectionName: "Payments API"},
		StartedAt:  started,
		FinishedAt: started.Add(time.Minute),
	}
	require.NoError(t, events.PublishRunFinished(context.Background(), rec))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "payments", string(msg.Key))

	var ev RunFinished
	require.NoError(t, json.Unmarshal(msg.Value, &ev))
	assert.Equal(t, "run.finished", ev.Type)
	assert.Equal(t, "run-1", ev.RunID)
	assert.Equal(t, "done", ev.State)
	assert.Equal(t, 7, ev.PassedAssertions)
	assert.Equal(t, 3, ev.FailedAssertions)
	assert.Equal(t, "Payments API", ev.CollectionName)

	var contentType string
	for _, h := range msg.Headers {
		if h.Key == "content-type" {
			contentType = string(h.Value)
		}
	}
	assert.Equal(t, "application/json", contentType)
}

func TestPublishRunFinished_WriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := &Producer{w: w, topic: "runs", log: zap.NewNop()}

	err := NewRunEventsKafka(p).PublishRunFinished(context.Background(), &run.Record{ID: "x", State: run.StateAborted})
	assert.EqualError(t, err, "broker down")
}
