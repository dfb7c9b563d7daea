package model

import "time"

// RunStatus tracks where a run is in the analysis lifecycle
type RunStatus string

const (
	RunStatusStarted   RunStatus = "started"
	RunStatusCreated   RunStatus = "created"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one evaluation of a single claim, from evidence retrieval through scoring.
// The claim text and query are immutable once the run starts.
type Run struct {
	ID        string            `json:"run_id"`
	ClaimText string            `json:"claim_text"`
	QueryText string            `json:"query_text,omitempty"`
	Status    RunStatus         `json:"status"`
	Params    map[string]string `json:"params,omitempty"`
	ErrorText string            `json:"error_text,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Query returns the search query for the run, falling back to the claim text
func (r Run) Query() string {
	if r.QueryText != "" {
		return r.QueryText
	}
	return r.ClaimText
}

// AnalysisRequest asks for one claim to be analyzed end to end
type AnalysisRequest struct {
	ClaimText  string `json:"claim_text"`
	QueryText  string `json:"query_text,omitempty"`
	MaxRecords int    `json:"max_records,omitempty"`
	ModelID    string `json:"model_id,omitempty"`
}

// AnalysisResult is the outcome of a completed analysis
type AnalysisResult struct {
	Run           *Run         `json:"run"`
	Score         *ScoreResult `json:"score"`
	Features      []Feature    `json:"features"`
	EvidenceCount int          `json:"evidence_count"`
}
