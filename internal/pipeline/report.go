// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import "time"

// JobStatus is the outcome of one job (one day's fetch-classify-persist).
type JobStatus string

const (
	// StatusWritten means new papers were classified and saved.
	StatusWritten JobStatus = "written"

	// StatusNoNew means the fetch succeeded but every paper was already in
	// the history. Nothing was written.
	StatusNoNew JobStatus = "no-new"

	// StatusUpstreamFailed means the fetch was abandoned before any paper
	// arrived. Nothing was written.
	StatusUpstreamFailed JobStatus = "upstream-failed"
)

// JobReport describes one job.
type JobReport struct {
	// Date labels the daily file the job writes to.
	Date   string
	Status JobStatus

	// Fetched counts papers returned by the source, New those not in history.
	Fetched int
	New     int

	Classified int
	Failed     int
	Relevant   int

	// Added counts records written to the daily file.
	Added int

	// FetchErr is set when the fetch was abandoned, even if some papers
	// arrived before the failure.
	FetchErr error
}

// Report summarizes one Run or Backfill invocation.
type Report struct {
	RunID    string
	Started  time.Time
	Jobs     []JobReport
	Evicted  int
	LogWrote bool
}

// Count returns the number of jobs with status st.
func (r Report) Count(st JobStatus) int {
	n := 0
	for _, j := range r.Jobs {
		if j.Status == st {
			n++
		}
	}
	return n
}

// Classified returns the total papers classified successfully.
func (r Report) Classified() int {
	n := 0
	for _, j := range r.Jobs {
		n += j.Classified
	}
	return n
}

// Failed returns the total papers that got the failure placeholder.
func (r Report) Failed() int {
	n := 0
	for _, j := range r.Jobs {
		n += j.Failed
	}
	return n
}

// HasFailures reports whether any job lost its upstream or any paper
// failed classification.
func (r Report) HasFailures() bool {
	return r.Failed() > 0 || r.Count(StatusUpstreamFailed) > 0
}
