package pipeline

import (
	"time"

	"github.com/sfdaycarelist/directory/pkg/daycares"
)

// SourceStats summarizes one source's pass.
type SourceStats struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
	Errored  int `json:"errored"`

	// PagesSkipped counts pages abandoned after the retry budget.
	PagesSkipped int `json:"pages_skipped,omitempty"`

	// Fatal is set when the whole source pass was abandoned.
	Fatal string `json:"fatal,omitempty"`

	// ErrorKinds counts failures by kind label.
	ErrorKinds map[string]int `json:"error_kinds,omitempty"`
}

func (s *SourceStats) countError(kind string) {
	if s.ErrorKinds == nil {
		s.ErrorKinds = map[string]int{}
	}
	s.ErrorKinds[kind]++
}

// Result is the summary of a full ingestion run.
type Result struct {
	StartedAt  time.Time                          `json:"started_at"`
	FinishedAt time.Time                          `json:"finished_at"`
	PerSource  map[daycares.SourceID]*SourceStats `json:"per_source"`
}

// Totals sums the per-source stats.
func (r *Result) Totals() SourceStats {
	var t SourceStats
	for _, s := range r.PerSource {
		t.Inserted += s.Inserted
		t.Updated += s.Updated
		t.Skipped += s.Skipped
		t.Errored += s.Errored
		t.PagesSkipped += s.PagesSkipped
	}
	return t
}

func (r *Result) stats(id daycares.SourceID) *SourceStats {
	s, ok := r.PerSource[id]
	if !ok {
		s = &SourceStats{}
		r.PerSource[id] = s
	}
	return s
}
