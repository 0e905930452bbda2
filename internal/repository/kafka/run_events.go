package kafka

import (
	"context"
	"time"

	"github.com/NordCoder/apirun/internal/domain/kafka"
	"github.com/NordCoder/apirun/internal/domain/run"
)

// RunFinished is the wire shape of the run.finished event.
type RunFinished struct {
	Type             string    `json:"type"`
	RunID            string    `json:"run_id"`
	Collection       string    `json:"collection"`
	CollectionName   string    `json:"collection_name,omitempty"`
	State            string    `json:"state"`
	TotalRequests    int       `json:"total_requests"`
	PassedAssertions int       `json:"passed_assertions"`
	FailedAssertions int       `json:"failed_assertions"`
	Error            string    `json:"error,omitempty"`
	StartedAt        time.Time `json:"started_at"`
	FinishedAt       time.Time `json:"finished_at"`
}

type RunEventsKafka struct {
	p *Producer
}

func NewRunEventsKafka(p *Producer) *RunEventsKafka { return &RunEventsKafka{p: p} }

var _ kafka.RunEvents = (*RunEventsKafka)(nil)

func (e *RunEventsKafka) PublishRunFinished(ctx context.Context, rec *run.Record) error {
	ev := RunFinished{
		Type:       "run.finished",
		RunID:      rec.ID,
		Collection: rec.Collection,
		State:      string(rec.State),
		Error:      rec.Error,
		StartedAt:  rec.StartedAt,
		FinishedAt: rec.FinishedAt,
	}
	if s := rec.Summary; s != nil {
		ev.CollectionName = s.CollectionName
		ev.TotalRequests = s.TotalRequests
		ev.PassedAssertions = s.PassedAssertions
		ev.FailedAssertions = s.FailedAssertions
	}
	return e.p.PublishJSON(ctx, []byte(rec.Collection), ev)
}
