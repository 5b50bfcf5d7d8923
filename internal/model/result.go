package model

import "time"

// Status is the outcome of one recommendation lookup.
type Status string

const (
	StatusSuccess      Status = "SUCCESS"
	StatusNoData       Status = "NO_DATA"
	StatusNoSimilar    Status = "NO_SIMILAR"
	StatusInsufficient Status = "INSUFFICIENT_RECOMMENDATIONS"
	StatusError        Status = "ERROR"
)

// Statuses lists every status in reporting order.
var Statuses = []Status{StatusSuccess, StatusInsufficient, StatusNoSimilar, StatusNoData, StatusError}

// Tag marks how a recommendation was admitted.
type Tag string

const (
	TagQualified Tag = "qualified" // scored at or above the configured threshold
	TagRelaxed   Tag = "relaxed"   // admitted by fallback relaxation
)

// Recommendation is one scored candidate.
type Recommendation struct {
	Candidate   Product `json:"candidate"`
	Score       float64 `json:"score"`
	Explanation string  `json:"explanation"`
	Tag         Tag     `json:"tag"`
}

// CandidateID returns the candidate's identifier.
func (r Recommendation) CandidateID() string {
	return r.Candidate.Base().ID
}

// ProcessingResult is the outcome for a single source item.
type ProcessingResult struct {
	SourceID        string           `json:"source_id"`
	Catalog         Catalog          `json:"catalog"`
	Status          Status           `json:"status"`
	Recommendations []Recommendation `json:"recommendations"`
	Duration        time.Duration    `json:"duration_ns"`
	Error           string           `json:"error,omitempty"`
}

// BatchResult is the ordered collection of per-item results of one batch run.
type BatchResult struct {
	RunID    string             `json:"run_id"`
	Results  []ProcessingResult `json:"results"`
	Counts   map[Status]int     `json:"counts"`
	Total    int                `json:"total"`
	Duration time.Duration      `json:"duration_ns"`
}

// Tally recomputes Counts and Total from Results.
func (b *BatchResult) Tally() {
	b.Counts = make(map[Status]int, len(Statuses))
	for _, r := range b.Results {
		b.Counts[r.Status]++
	}
	b.Total = len(b.Results)
}
