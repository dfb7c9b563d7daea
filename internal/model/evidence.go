package model

import "time"

// EvidenceItem is one retrieved article associated with a run.
// URL is the unique key across all runs.
type EvidenceItem struct {
	ID          string     `json:"evidence_id"`
	RunID       string     `json:"run_id"`
	URL         string     `json:"url"`
	Domain      string     `json:"domain"`
	Title       string     `json:"title,omitempty"`
	Snippet     string     `json:"snippet,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"` // nil when the source gave no usable timestamp
	RetrievedAt time.Time  `json:"retrieved_at"`
	CreatedAt   time.Time  `json:"created_at"`
	Source      string     `json:"source,omitempty"` // e.g. "gdelt"
	Raw         string     `json:"-"`
}

// SourcePrior is a domain-level reliability estimate in [0,1]
type SourcePrior struct {
	Domain    string    `json:"domain"`
	Score     float64   `json:"reliability_score"`
	Source    string    `json:"source,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
