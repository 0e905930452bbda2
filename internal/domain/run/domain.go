package run

import (
	"fmt"
	"time"
)

// Summary is the synthesized result of one collection run.
type Summary struct {
	TotalRequests    int    `json:"total_requests"`
	PassedAssertions int    `json:"passed_assertions"`
	FailedAssertions int    `json:"failed_assertions"`
	CollectionName   string `json:"collection_name"`
}

func (s Summary) TotalAssertions() int { return s.PassedAssertions + s.FailedAssertions }

// Muted is true for green runs: they are delivered silently, red runs alert.
func (s Summary) Muted() bool { return s.FailedAssertions == 0 }

func (s Summary) Text() string {
	return fmt.Sprintf(
		"Тестирование завершено.\nНазвание коллекции: %s\nВсего методов: %d\nУспешные тесты: %d\nПроваленные тесты: %d",
		s.CollectionName, s.TotalRequests, s.PassedAssertions, s.FailedAssertions,
	)
}

type State string

const (
	StateIdle             State = "idle"
	StateRunning          State = "running"
	StateAggregating      State = "aggregating"
	StateReportGenerating State = "report_generating"
	StateChartSending     State = "chart_sending"
	StateReportSending    State = "report_sending"
	StateDone             State = "done"
	StateAborted          State = "aborted"
	StateFailed           State = "failed"
)

// Record is the persisted trace of a run.
type Record struct {
	ID         string    `json:"id"`
	Collection string    `json:"collection"`
	State      State     `json:"state"`
	Summary    *Summary  `json:"summary,omitempty"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}
