package run

import (
	"errors"
	"fmt"
)

var ErrMalformedSummary = errors.New("malformed run summary")

// Raw mirrors the parts of the newman json reporter export that matter here.
// Pointers distinguish a missing stats object from a zero count.
type Raw struct {
	Collection *RawCollection `json:"collection"`
	Run        *RawRun        `json:"run"`
}

type RawCollection struct {
	Info *struct {
		Name string `json:"name"`
	} `json:"info"`
}

type RawRun struct {
	Stats *RawStats `json:"stats"`
}

type RawStats struct {
	Requests   *Counter `json:"requests"`
	Assertions *Counter `json:"assertions"`
}

type Counter struct {
	Total   *int `json:"total"`
	Pending int  `json:"pending"`
	Failed  *int `json:"failed"`
}

// Aggregate extracts a Summary from a raw engine result. Passed assertions are
// always total minus failed so both counts come from the same source.
func Aggregate(raw *Raw) (Summary, error) {
	if raw == nil || raw.Run == nil || raw.Run.Stats == nil {
		return Summary{}, fmt.Errorf("%w: no run.stats", ErrMalformedSummary)
	}
	st := raw.Run.Stats
	if st.Requests == nil || st.Requests.Total == nil {
		return Summary{}, fmt.Errorf("%w: no run.stats.requests.total", ErrMalformedSummary)
	}
	if st.Assertions == nil || st.Assertions.Total == nil || st.Assertions.Failed == nil {
		return Summary{}, fmt.Errorf("%w: no run.stats.assertions", ErrMalformedSummary)
	}

	requests, total, failed := *st.Requests.Total, *st.Assertions.Total, *st.Assertions.Failed
	if requests < 0 || total < 0 || failed < 0 || failed > total {
		return Summary{}, fmt.Errorf("%w: inconsistent counts requests=%d assertions=%d failed=%d",
			ErrMalformedSummary, requests, total, failed)
	}

	name := ""
	if raw.Collection != nil && raw.Collection.Info != nil {
		name = raw.Collection.Info.Name
	}

	return Summary{
		TotalRequests:    requests,
		PassedAssertions: total - failed,
		FailedAssertions: failed,
		CollectionName:   name,
	}, nil
}
