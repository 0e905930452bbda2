package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/NordCoder/apirun/internal/domain/outbox"
	"github.com/NordCoder/apirun/internal/domain/run"
	"github.com/NordCoder/apirun/internal/obs/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memRepo struct {
	batches [][]outbox.Message
	marked  [][]string
	pickErr error
}

func (m *memRepo) Enqueue(context.Context, string, outbox.Kind, []byte) error { return nil }

func (m *memRepo) PickBatch(context.Context, int, time.Duration) ([]outbox.Message, error) {
	if m.pickErr != nil {
		return nil, m.pickErr
	}
	if len(m.batches) == 0 {
		return nil, nil
	}
	b := m.batches[0]
	m.batches = m.batches[1:]
	return b, nil
}

func (m *memRepo) MarkSuccess(_ context.Context, keys []string) error {
	m.marked = append(m.marked, keys)
	return nil
}

type memEvents struct {
	got  []string
	fail map[string]bool
}

func (m *memEvents) PublishRunFinished(_ context.Context, rec *run.Record) error {
	if m.fail[rec.ID] {
		return errors.New("broker down")
	}
	m.got = append(m.got, rec.ID)
	return nil
}

func msg(t *testing.T, id string) outbox.Message {
	t.Helper()
	b, err := json.Marshal(run.Record{ID: id, Collection: "smoke", State: run.StateDone})
	require.NoError(t, err)
	return outbox.Message{IdempotencyKey: "run.finished:" + id, Kind: outbox.KindRunFinished, Data: b}
}

func testPolicy() retry.Policy {
	return retry.Policy{Name: "test", Attempts: 2, Backoff: retry.Constant(time.Millisecond)}
}

func TestDrain_PublishesAndMarks(t *testing.T) {
	repo := &memRepo{batches: [][]outbox.Message{{msg(t, "a"), msg(t, "b")}, {msg(t, "c")}}}
	ev := &memEvents{}
	d := NewDrainer(zap.NewNop(), repo, MakeGlobalHandler(ev, testPolicy()), 2, time.Minute)

	n, err := d.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"a", "b", "c"}, ev.got)
	assert.Equal(t, [][]string{{"run.finished:a", "run.finished:b"}, {"run.finished:c"}}, repo.marked)
}

func TestDrain_FailedStayPending(t *testing.T) {
	repo := &memRepo{batches: [][]outbox.Message{{msg(t, "a"), msg(t, "b")}}}
	ev := &memEvents{fail: map[string]bool{"a": true}}
	d := NewDrainer(zap.NewNop(), repo, MakeGlobalHandler(ev, testPolicy()), 10, time.Minute)

	n, err := d.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, [][]string{{"run.finished:b"}}, repo.marked)
}

func TestDrain_UnknownKindAndBadPayload(t *testing.T) {
	bad := outbox.Message{IdempotencyKey: "x", Kind: outbox.KindRunFinished, Data: []byte("{")}
	unknown := outbox.Message{IdempotencyKey: "y", Kind: outbox.Kind(42)}
	repo := &memRepo{batches: [][]outbox.Message{{bad, unknown}}}
	d := NewDrainer(zap.NewNop(), repo, MakeGlobalHandler(&memEvents{}, testPolicy()), 10, time.Minute)

	n, err := d.Drain(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, [][]string{{}}, repo.marked)
}

func TestDrain_PickError(t *testing.T) {
	repo := &memRepo{pickErr: errors.New("db down")}
	d := NewDrainer(zap.NewNop(), repo, MakeGlobalHandler(&memEvents{}, testPolicy()), 10, time.Minute)

	_, err := d.Drain(context.Background())
	require.Error(t, err)
}
