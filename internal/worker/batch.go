package worker

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/praveenpuviindran/trustlens/internal/model"
)

// Analyzer runs the claim pipeline
type Analyzer interface {
	Analyze(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisResult, error)
}

// ClaimJob analyzes one claim
type ClaimJob struct {
	Request  model.AnalysisRequest
	Analyzer Analyzer
}

// Execute runs the analysis
func (j *ClaimJob) Execute(ctx context.Context) Result {
	res, err := j.Analyzer.Analyze(ctx, j.Request)
	return &ClaimResult{Claim: j.Request.ClaimText, Result: res, Error: err}
}

// ClaimResult is the outcome of one claim of a batch
type ClaimResult struct {
	Claim  string
	Result *model.AnalysisResult
	Error  error
}

// GetError returns the analysis error, if any
func (r *ClaimResult) GetError() error {
	return r.Error
}

// BatchProcessor analyzes many claims concurrently
type BatchProcessor struct {
	analyzer    Analyzer
	concurrency int
}

// NewBatchProcessor creates a batch processor
func NewBatchProcessor(analyzer Analyzer, concurrency int) *BatchProcessor {
	return &BatchProcessor{analyzer: analyzer, concurrency: concurrency}
}

// ProcessClaims analyzes each claim with the shared template (query text is
// ignored; every claim is its own query). Results follow input order.
func (b *BatchProcessor) ProcessClaims(ctx context.Context, claims []string, template model.AnalysisRequest) []*ClaimResult {
	if len(claims) == 0 {
		return []*ClaimResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()
	for _, claim := range claims {
		req := template
		req.ClaimText = claim
		req.QueryText = ""
		pool.Submit(&ClaimJob{Request: req, Analyzer: b.analyzer})
	}
	results := pool.Wait()

	out := make([]*ClaimResult, len(claims))
	for i, r := range results {
		if cr, ok := r.(*ClaimResult); ok {
			out[i] = cr
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = fmt.Errorf("claim was not processed")
		}
		out[i] = &ClaimResult{Claim: claims[i], Error: err}
	}
	return out
}

// ProcessFile reads claims from a file and analyzes them
func (b *BatchProcessor) ProcessFile(ctx context.Context, path string, template model.AnalysisRequest) ([]*ClaimResult, error) {
	claims, err := ReadClaimsFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("read claims: %w", err)
	}
	return b.ProcessClaims(ctx, claims, template), nil
}

// ReadClaimsFromFile reads one claim per line
func ReadClaimsFromFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ReadClaims(f)
}

// ReadClaims skips blank and '#' lines and drops duplicates
func ReadClaims(r io.Reader) ([]string, error) {
	var claims []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			claims = append(claims, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}
	return claims, nil
}
