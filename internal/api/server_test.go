package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praveenpuviindran/trustlens/internal/api"
	"github.com/praveenpuviindran/trustlens/internal/explain"
	"github.com/praveenpuviindran/trustlens/internal/features"
	"github.com/praveenpuviindran/trustlens/internal/gdelt"
	"github.com/praveenpuviindran/trustlens/internal/model"
	"github.com/praveenpuviindran/trustlens/internal/pipeline"
	"github.com/praveenpuviindran/trustlens/internal/score"
	"github.com/praveenpuviindran/trustlens/internal/store"
)

type fakeSearcher struct {
	maxRecords []int
}

func (f *fakeSearcher) Search(ctx context.Context, query string, maxRecords int) ([]gdelt.Article, error) {
	f.maxRecords = append(f.maxRecords, maxRecords)
	seen := time.Now().UTC().Add(-3 * time.Hour)
	return []gdelt.Article{
		{URL: "https://reuters.com/" + query, Domain: "reuters.com", Title: "Central bank raises rates", SeenDate: &seen},
		{URL: "https://apnews.com/" + query, Domain: "apnews.com", Title: "Rates rise again"},
	}, nil
}

type testEnv struct {
	store    *store.Store
	searcher *fakeSearcher
	handler  http.Handler
}

func newTestEnv(t *testing.T, opts api.Options, provider explain.Provider) *testEnv {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	fs := features.NewService(features.NewExtractor(s, s), s)
	ss := score.NewService(s, s, s, s)
	searcher := &fakeSearcher{}
	p := pipeline.New(s, searcher, nil, fs, ss, "", nil)

	srv := api.NewServer(api.Deps{
		Store:     s,
		Analyzer:  p,
		Features:  fs,
		Scores:    ss,
		Explainer: explain.NewExplainer(s, provider, nil),
	}, opts, nil)
	return &testEnv{store: s, searcher: searcher, handler: srv.Routes()}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, api.Options{}, nil)
	rec := env.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, rec)["status"])
}

func TestCreateRun_AndReadBack(t *testing.T) {
	env := newTestEnv(t, api.Options{MaxRecordsCap: 10}, explain.NewStubProvider("Grounded summary."))

	rec := env.do(t, http.MethodPost, "/api/runs", map[string]any{
		"claim_text":          "The central bank raised rates",
		"max_records":         500,
		"include_explanation": true,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	created := decode[map[string]any](t, rec)
	runID := created["run_id"].(string)
	assert.Equal(t, "completed", created["status"])
	assert.Equal(t, float64(2), created["evidence_count"])
	assert.Equal(t, model.BaselineModelID, created["model_id"])
	assert.Equal(t, []int{10}, env.searcher.maxRecords, "max_records must be capped")
	require.NotNil(t, created["explanation"])
	assert.Equal(t, "Grounded summary.", created["explanation"].(map[string]any)["summary"])

	rec = env.do(t, http.MethodGet, "/api/runs/"+runID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	run := decode[map[string]any](t, rec)
	assert.Equal(t, "The central bank raised rates", run["claim_text"])
	assert.NotNil(t, run["score"])

	rec = env.do(t, http.MethodGet, "/api/runs/"+runID+"/evidence?limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	evidence := decode[[]model.EvidenceItem](t, rec)
	require.Len(t, evidence, 1)
	assert.Contains(t, evidence[0].URL, "apnews.com", "undated evidence sorts by retrieval time")

	rec = env.do(t, http.MethodGet, "/api/runs/"+runID+"/features", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Feature](t, rec), 21)

	rec = env.do(t, http.MethodGet, "/api/runs/"+runID+"/score?model_id="+model.BaselineModelID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sc := decode[model.ScoreResult](t, rec)
	assert.Equal(t, runID, sc.RunID)

	rec = env.do(t, http.MethodGet, "/api/runs/"+runID+"/explanation", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Grounded summary.", decode[model.StoredExplanation](t, rec).ResponseText)

	rec = env.do(t, http.MethodPost, "/api/runs/"+runID+"/chat", map[string]string{"question": "Why?"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Grounded summary.", decode[map[string]string](t, rec)["answer"])

	rec = env.do(t, http.MethodGet, "/api/runs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Run](t, rec), 1)
}

func TestErrorMapping(t *testing.T) {
	env := newTestEnv(t, api.Options{}, nil)

	run, err := env.store.CreateRun("claim without features", "", nil)
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"unknown run", http.MethodGet, "/api/runs/missing", nil, http.StatusNotFound},
		{"unknown run evidence", http.MethodGet, "/api/runs/missing/evidence", nil, http.StatusNotFound},
		{"no score yet", http.MethodGet, "/api/runs/" + run.ID + "/score", nil, http.StatusNotFound},
		{"score before features", http.MethodPost, "/api/runs/" + run.ID + "/score", nil, http.StatusConflict},
		{"unknown model", http.MethodPost, "/api/runs/" + run.ID + "/score?model_id=lr_nope", nil, http.StatusNotFound},
		{"blank claim", http.MethodPost, "/api/runs", map[string]string{"claim_text": "  "}, http.StatusBadRequest},
		{"chat disabled", http.MethodPost, "/api/runs/" + run.ID + "/chat", map[string]string{"question": "hi"}, http.StatusServiceUnavailable},
		{"unknown model artifact", http.MethodGet, "/api/models/lr_nope", nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode[map[string]string](t, rec)["error"])
		})
	}
}

func TestComputeFeaturesThenScore(t *testing.T) {
	env := newTestEnv(t, api.Options{}, nil)
	run, err := env.store.CreateRun("manual run", "", nil)
	require.NoError(t, err)

	rec := env.do(t, http.MethodPost, "/api/runs/"+run.ID+"/features", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/runs/"+run.ID+"/score", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.BaselineModelID, decode[model.ScoreResult](t, rec).ModelID)
}

func TestModels(t *testing.T) {
	env := newTestEnv(t, api.Options{}, nil)
	require.NoError(t, env.store.UpsertModel(&model.TrainedModel{
		ModelID:       "lr_v1",
		SchemaVersion: model.SchemaV1,
		FeatureNames:  []model.FeatureName{model.FeatTotalArticles},
		Weights:       map[string]float64{string(model.FeatTotalArticles): 0.4, model.InterceptKey: -0.1},
		Thresholds:    model.DefaultThresholds,
		CreatedAt:     time.Now().UTC(),
	}))

	rec := env.do(t, http.MethodGet, "/api/models", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	models := decode[[]model.ModelSummary](t, rec)
	require.Len(t, models, 2)
	assert.Equal(t, model.BaselineModelID, models[0].ModelID)
	assert.Equal(t, "lr_v1", models[1].ModelID)

	rec = env.do(t, http.MethodGet, "/api/models/lr_v1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 0.4, decode[model.TrainedModel](t, rec).Weights[string(model.FeatTotalArticles)], 1e-12)
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, api.Options{RateLimitPerMinute: 2}, nil)

	for i := 0; i < 2; i++ {
		rec := env.do(t, http.MethodGet, "/api/models", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := env.do(t, http.MethodGet, "/api/models", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// health is not limited
	rec = env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit_IgnoresForwardedForByDefault(t *testing.T) {
	env := newTestEnv(t, api.Options{RateLimitPerMinute: 2}, nil)

	codes := make([]int, 0, 3)
	for _, ip := range []string{"203.0.113.1", "203.0.113.2", "203.0.113.3"} {
		req := httptest.NewRequest(http.MethodGet, "/api/models", nil)
		req.Header.Set("X-Forwarded-For", ip)
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimit_TrustProxyKeysOnForwardedFor(t *testing.T) {
	env := newTestEnv(t, api.Options{RateLimitPerMinute: 1, TrustProxy: true}, nil)

	for _, ip := range []string{"203.0.113.1", "203.0.113.2"} {
		req := httptest.NewRequest(http.MethodGet, "/api/models", nil)
		req.Header.Set("X-Forwarded-For", ip)
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, ip)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/models", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.1")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
