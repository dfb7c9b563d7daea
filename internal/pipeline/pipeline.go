// Package pipeline runs a claim end to end: evidence retrieval, optional
// enrichment, feature extraction and scoring.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/praveenpuviindran/trustlens/internal/features"
	"github.com/praveenpuviindran/trustlens/internal/gdelt"
	"github.com/praveenpuviindran/trustlens/internal/model"
	"github.com/praveenpuviindran/trustlens/internal/score"
)

type (
	Request = model.AnalysisRequest
	Result  = model.AnalysisResult
)

// Searcher finds news articles for a query
type Searcher interface {
	Search(ctx context.Context, query string, maxRecords int) ([]gdelt.Article, error)
}

// Enricher fills in missing snippets; it must not fail
type Enricher interface {
	Enrich(ctx context.Context, items []model.EvidenceItem) ([]model.EvidenceItem, int)
}

// RunStore persists runs and their evidence
type RunStore interface {
	CreateRun(claimText, queryText string, params map[string]string) (*model.Run, error)
	UpsertEvidence(runID string, items []model.EvidenceItem) (int, error)
	UpdateRunStatus(runID string, status model.RunStatus, errText string) error
}

// Pipeline wires the analysis stages together
type Pipeline struct {
	runs         RunStore
	searcher     Searcher
	enricher     Enricher
	features     *features.Service
	scores       *score.Service
	defaultModel string
	log          *slog.Logger
	now          func() time.Time
}

// New creates a pipeline. enricher may be nil to skip enrichment.
func New(runs RunStore, searcher Searcher, enricher Enricher, fs *features.Service, ss *score.Service, defaultModel string, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if defaultModel == "" {
		defaultModel = model.BaselineModelID
	}
	return &Pipeline{
		runs:         runs,
		searcher:     searcher,
		enricher:     enricher,
		features:     fs,
		scores:       ss,
		defaultModel: defaultModel,
		log:          log,
		now:          time.Now,
	}
}

// Analyze creates a run for the claim and takes it to completed. Once the
// run exists, any failure marks it failed with the error text.
func (p *Pipeline) Analyze(ctx context.Context, req Request) (*Result, error) {
	claim := strings.TrimSpace(req.ClaimText)
	if claim == "" {
		return nil, model.InvalidInput("claim text is required")
	}
	query := strings.TrimSpace(req.QueryText)
	modelID := req.ModelID
	if modelID == "" {
		modelID = p.defaultModel
	}
	// reject an unknown model before any work is done
	if _, err := p.scores.ScorerFor(modelID); err != nil {
		return nil, fmt.Errorf("analyze claim: %w", err)
	}

	params := map[string]string{
		"model_id":    modelID,
		"max_records": strconv.Itoa(req.MaxRecords),
		"enrich":      strconv.FormatBool(p.enricher != nil),
	}
	run, err := p.runs.CreateRun(claim, query, params)
	if err != nil {
		return nil, fmt.Errorf("analyze claim: %w", err)
	}
	log := p.log.With("run_id", run.ID)
	log.Info("run started", "query", run.Query())

	res, err := p.execute(ctx, run, req.MaxRecords, modelID, log)
	if err != nil {
		run.Status = model.RunStatusFailed
		run.ErrorText = err.Error()
		if uerr := p.runs.UpdateRunStatus(run.ID, model.RunStatusFailed, err.Error()); uerr != nil {
			log.Error("mark run failed", "err", uerr)
		}
		log.Warn("run failed", "err", err)
		return nil, fmt.Errorf("analyze claim %s: %w", run.ID, err)
	}
	return res, nil
}

func (p *Pipeline) execute(ctx context.Context, run *model.Run, maxRecords int, modelID string, log *slog.Logger) (*Result, error) {
	articles, err := p.searcher.Search(ctx, run.Query(), maxRecords)
	if err != nil {
		return nil, fmt.Errorf("fetch evidence: %w", err)
	}

	retrieved := p.now().UTC()
	items := make([]model.EvidenceItem, 0, len(articles))
	seen := make(map[string]bool, len(articles))
	for _, a := range articles {
		if seen[a.URL] {
			continue
		}
		seen[a.URL] = true
		items = append(items, a.Evidence(run.ID, retrieved))
	}

	if p.enricher != nil && len(items) > 0 {
		var filled int
		items, filled = p.enricher.Enrich(ctx, items)
		log.Debug("snippets enriched", "filled", filled)
	}

	n, err := p.runs.UpsertEvidence(run.ID, items)
	if err != nil {
		return nil, fmt.Errorf("store evidence: %w", err)
	}
	if err := p.runs.UpdateRunStatus(run.ID, model.RunStatusCreated, ""); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	log.Info("evidence stored", "items", n)

	feats, err := p.features.Compute(run.ID)
	if err != nil {
		return nil, fmt.Errorf("compute features: %w", err)
	}
	sc, err := p.scores.ComputeScore(run.ID, modelID)
	if err != nil {
		return nil, fmt.Errorf("compute score: %w", err)
	}

	if err := p.runs.UpdateRunStatus(run.ID, model.RunStatusCompleted, ""); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	run.Status = model.RunStatusCompleted
	log.Info("run completed", "model_id", modelID, "score", sc.Score, "label", sc.Label)

	return &Result{Run: run, Score: sc, Features: feats, EvidenceCount: n}, nil
}
