package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/praveenpuviindran/trustlens/internal/explain"
	"github.com/praveenpuviindran/trustlens/internal/model"
)

const (
	defaultEvidenceLimit = 50
	maxEvidenceLimit     = 250
	defaultRunsLimit     = 20
	maxRunsLimit         = 200
)

type createRunRequest struct {
	ClaimText          string `json:"claim_text"`
	QueryText          string `json:"query_text"`
	MaxRecords         int    `json:"max_records"`
	ModelID            string `json:"model_id"`
	IncludeExplanation bool   `json:"include_explanation"`
}

type createRunResponse struct {
	RunID            string               `json:"run_id"`
	Status           model.RunStatus      `json:"status"`
	Score            float64              `json:"score"`
	Label            model.Label          `json:"label"`
	ModelID          string               `json:"model_id"`
	TopContributions []model.Contribution `json:"top_contributions"`
	EvidenceCount    int                  `json:"evidence_count"`
	Features         []model.Feature      `json:"features"`
	Explanation      *explanationSummary  `json:"explanation,omitempty"`
	ExplanationError string               `json:"explanation_error,omitempty"`
}

type explanationSummary struct {
	Summary string   `json:"summary"`
	Bullets []string `json:"bullets"`
}

type runResponse struct {
	*model.Run
	Score *float64     `json:"score"`
	Label *model.Label `json:"label"`
}

type scoreResponse struct {
	*model.ScoreResult
	Thresholds *model.Thresholds `json:"thresholds,omitempty"`
}

type chatRequest struct {
	Question string `json:"question"`
	ModelID  string `json:"model_id"`
}

type chatResponse struct {
	RunID  string `json:"run_id"`
	Answer string `json:"answer"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Store.Ping(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req createRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, model.InvalidInput("decode request: %v", err))
		return
	}
	if strings.TrimSpace(req.ClaimText) == "" {
		s.writeError(w, r, model.InvalidInput("claim_text is required"))
		return
	}

	maxRecords := req.MaxRecords
	if maxRecords <= 0 {
		maxRecords = s.opts.MaxRecords
	}
	maxRecords = min(maxRecords, s.opts.MaxRecordsCap)

	modelID := req.ModelID
	if modelID == "" {
		modelID = s.opts.DefaultModel
	}

	res, err := s.deps.Analyzer.Analyze(r.Context(), model.AnalysisRequest{
		ClaimText:  req.ClaimText,
		QueryText:  req.QueryText,
		MaxRecords: maxRecords,
		ModelID:    modelID,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	contribs := append(append([]model.Contribution{}, res.Score.Explanation.Positive...), res.Score.Explanation.Negative...)
	resp := createRunResponse{
		RunID:            res.Run.ID,
		Status:           res.Run.Status,
		Score:            res.Score.Score,
		Label:            res.Score.Label,
		ModelID:          res.Score.ModelID,
		TopContributions: contribs,
		EvidenceCount:    res.EvidenceCount,
		Features:         res.Features,
	}

	if req.IncludeExplanation {
		if s.deps.Explainer == nil || !s.deps.Explainer.Enabled() {
			resp.ExplanationError = "explanations are disabled"
		} else if expl, err := s.deps.Explainer.ExplainRun(r.Context(), res.Run.ID, res.Score.ModelID); err != nil {
			s.log.Warn("explanation failed", "run_id", res.Run.ID, "err", err)
			resp.ExplanationError = err.Error()
		} else {
			bullets := make([]string, 0, len(contribs))
			for _, c := range contribs {
				bullets = append(bullets, string(c.Feature)+": "+strconv.FormatFloat(c.Contribution, 'f', 4, 64))
			}
			resp.Explanation = &explanationSummary{Summary: expl.ResponseText, Bullets: bullets}
		}
	}

	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := clampInt(r.URL.Query().Get("limit"), defaultRunsLimit, maxRunsLimit)
	runs, err := s.deps.Store.ListRuns(limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.deps.Store.GetRun(chi.URLParam(r, "runID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := runResponse{Run: run}
	sc, err := s.deps.Store.LatestScore(run.ID)
	switch {
	case err == nil:
		resp.Score, resp.Label = &sc.Score, &sc.Label
	case !errors.Is(err, model.ErrNotFound):
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleEvidence lists evidence newest first with limit/offset paging
func (s *Server) handleEvidence(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	if _, err := s.deps.Store.GetRun(runID); err != nil {
		s.writeError(w, r, err)
		return
	}
	items, err := s.deps.Store.ListEvidence(runID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	sortNewestFirst(items)
	limit := clampInt(r.URL.Query().Get("limit"), defaultEvidenceLimit, maxEvidenceLimit)
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	offset = max(0, min(offset, len(items)))
	end := min(offset+limit, len(items))

	writeJSON(w, http.StatusOK, append([]model.EvidenceItem{}, items[offset:end]...))
}

func (s *Server) handleFeatures(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	if _, err := s.deps.Store.GetRun(runID); err != nil {
		s.writeError(w, r, err)
		return
	}
	feats, err := s.deps.Store.ListFeatures(runID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, append([]model.Feature{}, feats...))
}

func (s *Server) handleComputeFeatures(w http.ResponseWriter, r *http.Request) {
	feats, err := s.deps.Features.Compute(chi.URLParam(r, "runID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, feats)
}

// handleScore returns the score under model_id, or the latest score of any model
func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	var (
		sc  *model.ScoreResult
		err error
	)
	if modelID := r.URL.Query().Get("model_id"); modelID != "" {
		sc, err = s.deps.Store.GetScore(runID, modelID)
	} else {
		sc, err = s.deps.Store.LatestScore(runID)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.scoreResponse(sc))
}

func (s *Server) handleComputeScore(w http.ResponseWriter, r *http.Request) {
	modelID := r.URL.Query().Get("model_id")
	if modelID == "" {
		modelID = s.opts.DefaultModel
	}
	sc, err := s.deps.Scores.ComputeScore(chi.URLParam(r, "runID"), modelID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.scoreResponse(sc))
}

func (s *Server) scoreResponse(sc *model.ScoreResult) scoreResponse {
	resp := scoreResponse{ScoreResult: sc}
	if sc.ModelID != model.BaselineModelID {
		if m, err := s.deps.Store.GetModel(sc.ModelID); err == nil {
			resp.Thresholds = &m.Thresholds
		}
	}
	return resp
}

func (s *Server) handleExplanation(w http.ResponseWriter, r *http.Request) {
	modelID := r.URL.Query().Get("model_id")
	if modelID == "" {
		modelID = s.opts.DefaultModel
	}
	mode := r.URL.Query().Get("mode")
	if mode == "" {
		mode = model.ExplainModeSummary
	}
	e, err := s.deps.Store.GetExplanation(chi.URLParam(r, "runID"), modelID, mode)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	if s.deps.Explainer == nil {
		s.writeError(w, r, explain.ErrDisabled)
		return
	}
	modelID := r.URL.Query().Get("model_id")
	if modelID == "" {
		modelID = s.opts.DefaultModel
	}
	e, err := s.deps.Explainer.ExplainRun(r.Context(), chi.URLParam(r, "runID"), modelID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if s.deps.Explainer == nil {
		s.writeError(w, r, explain.ErrDisabled)
		return
	}
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, model.InvalidInput("decode request: %v", err))
		return
	}
	modelID := req.ModelID
	if modelID == "" {
		modelID = s.opts.DefaultModel
	}

	runID := chi.URLParam(r, "runID")
	e, err := s.deps.Explainer.Chat(r.Context(), runID, modelID, req.Question)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{RunID: runID, Answer: e.ResponseText})
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	models, err := s.deps.Store.ListModels()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := []model.ModelSummary{{ModelID: model.BaselineModelID, SchemaVersion: model.SchemaV1, NumFeatures: 8}}
	writeJSON(w, http.StatusOK, append(out, models...))
}

func (s *Server) handleGetModel(w http.ResponseWriter, r *http.Request) {
	m, err := s.deps.Store.GetModel(chi.URLParam(r, "modelID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func sortNewestFirst(items []model.EvidenceItem) {
	when := func(it model.EvidenceItem) time.Time {
		if it.PublishedAt != nil {
			return *it.PublishedAt
		}
		return it.RetrievedAt
	}
	slices.SortStableFunc(items, func(a, b model.EvidenceItem) int {
		return when(b).Compare(when(a))
	})
}

func clampInt(raw string, fallback, limit int) int {
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return min(v, limit)
}
