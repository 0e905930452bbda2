package pipeline

import (
	"errors"

	"github.com/NordCoder/apirun/internal/domain/notification"
	"github.com/NordCoder/apirun/internal/domain/run"
)

// ErrAborted marks a run stopped at report generation: nothing but the
// failure alert is delivered.
var ErrAborted = errors.New("pipeline aborted")

var transitions = map[run.State][]run.State{
	run.StateIdle:             {run.StateRunning},
	run.StateRunning:          {run.StateAggregating, run.StateFailed},
	run.StateAggregating:      {run.StateReportGenerating, run.StateFailed},
	run.StateReportGenerating: {run.StateChartSending, run.StateAborted},
	run.StateChartSending:     {run.StateReportSending},
	run.StateReportSending:    {run.StateDone},
}

func canTransition(from, to run.State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// NotificationState is the chat-side state of one run.
type NotificationState struct {
	LastMessageID *int64
	Muted         bool
}

// Outcome is everything a run produced, successful or not.
type Outcome struct {
	Record     run.Record
	Deliveries []notification.Delivery
	Notify     NotificationState
	ReportPath string
	ChartPath  string
	ChartErr   error
}

func (o *Outcome) add(d notification.Delivery) notification.Delivery {
	d.RunID = o.Record.ID
	o.Deliveries = append(o.Deliveries, d)
	return d
}

// Delivered reports whether a successful delivery of method exists.
func (o *Outcome) Delivered(method notification.Method) bool {
	for _, d := range o.Deliveries {
		if d.Method == method && d.OK {
			return true
		}
	}
	return false
}

// ExitCode maps the final state to a process exit status.
func (o *Outcome) ExitCode() int {
	if o.Record.State == run.StateDone {
		return 0
	}
	return 1
}
