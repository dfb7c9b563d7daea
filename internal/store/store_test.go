package store_test

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/praveenpuviindran/trustlens/internal/model"
	"github.com/praveenpuviindran/trustlens/internal/store"
)

func tempDB(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRunLifecycle(t *testing.T) {
	s := tempDB(t)

	run, err := s.CreateRun("The moon is made of cheese", "", map[string]string{"max_records": "10"})
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)
	require.Equal(t, model.RunStatusStarted, run.Status)

	got, err := s.GetRun(run.ID)
	require.NoError(t, err)
	require.Equal(t, run.ClaimText, got.ClaimText)
	require.Equal(t, "10", got.Params["max_records"])
	require.True(t, run.CreatedAt.Equal(got.CreatedAt), "created_at must round-trip exactly")

	require.NoError(t, s.UpdateRunStatus(run.ID, model.RunStatusFailed, "gdelt down"))
	got, err = s.GetRun(run.ID)
	require.NoError(t, err)
	require.Equal(t, model.RunStatusFailed, got.Status)
	require.Equal(t, "gdelt down", got.ErrorText)

	runs, err := s.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
}

func TestGetRun_NotFound(t *testing.T) {
	s := tempDB(t)

	_, err := s.GetRun("missing")
	require.ErrorIs(t, err, model.ErrNotFound)

	err = s.UpdateRunStatus("missing", model.RunStatusCompleted, "")
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestEvidence_URLReattachedToNewRun(t *testing.T) {
	s := tempDB(t)

	first, err := s.CreateRun("claim one", "", nil)
	require.NoError(t, err)
	second, err := s.CreateRun("claim two", "", nil)
	require.NoError(t, err)

	pub := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	items := []model.EvidenceItem{
		{URL: "https://b.com/x", Domain: "b.com", Title: "B", PublishedAt: &pub},
		{URL: "https://a.com/y", Domain: "a.com", Title: "A"},
	}
	n, err := s.UpsertEvidence(first.ID, items)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	got, err := s.ListEvidence(first.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "https://a.com/y", got[0].URL)
	require.Nil(t, got[0].PublishedAt)
	require.NotNil(t, got[1].PublishedAt)
	require.True(t, pub.Equal(*got[1].PublishedAt))

	_, err = s.UpsertEvidence(second.ID, items[:1])
	require.NoError(t, err)

	firstCount, err := s.CountEvidence(first.ID)
	require.NoError(t, err)
	require.Equal(t, 1, firstCount)

	moved, err := s.ListEvidence(second.ID)
	require.NoError(t, err)
	require.Len(t, moved, 1)
	require.Equal(t, "https://b.com/x", moved[0].URL)
}

func TestPriors_LookupNormalizes(t *testing.T) {
	s := tempDB(t)

	n, err := s.UpsertPriors([]model.SourcePrior{
		{Domain: "www.NYTimes.com", Score: 0.9, Source: "test"},
		{Domain: "bbc.co.uk", Score: 0.85, Source: "test"},
		{Domain: "  ", Score: 0.1},
	})
	require.NoError(t, err)
	require.Equal(t, 2, n)

	got, err := s.LookupPriors([]string{"nytimes.com", "https://www.bbc.co.uk/news", "unknown.org", ""})
	require.NoError(t, err)
	require.Equal(t, map[string]float64{
		"nytimes.com":                0.9,
		"https://www.bbc.co.uk/news": 0.85,
	}, got)

	_, err = s.UpsertPriors([]model.SourcePrior{{Domain: "nytimes.com", Score: 0.7}})
	require.NoError(t, err)
	count, err := s.CountPriors()
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestFeatures_ReplaceAndKeys(t *testing.T) {
	s := tempDB(t)
	run, err := s.CreateRun("claim", "", nil)
	require.NoError(t, err)

	rows := []model.Feature{
		{RunID: run.ID, Group: model.GroupVolume, Name: model.FeatTotalArticles, Value: 3},
		{RunID: run.ID, Group: model.GroupSourceQuality, Name: model.FeatWeightedPriorMean, Value: 0.75},
		{RunID: run.ID, Group: model.GroupTextSimilarity, Name: model.FeatMaxJaccard, Value: 1},
	}
	require.NoError(t, s.InsertFeatures(rows))

	got, err := s.ListFeatures(run.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, model.GroupSourceQuality, got[0].Group)

	keys, err := s.FeatureKeys([]model.FeatureGroup{model.GroupVolume, model.GroupSourceQuality})
	require.NoError(t, err)
	require.Len(t, keys, 2)

	require.NoError(t, s.DeleteFeatures(run.ID))
	got, err = s.ListFeatures(run.ID)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestScores_UpsertReplaces(t *testing.T) {
	s := tempDB(t)
	run, err := s.CreateRun("claim", "", nil)
	require.NoError(t, err)

	res := model.ScoreResult{
		RunID:   run.ID,
		ModelID: model.BaselineModelID,
		Score:   0.4,
		Label:   model.LabelUncertain,
		Explanation: model.Explanation{
			Kind:     "baseline",
			Positive: []model.Contribution{{Feature: model.FeatWeightedPriorMean, Value: 0.75, Contribution: 1.5}},
			Negative: []model.Contribution{},
		},
	}
	require.NoError(t, s.UpsertScore(res))
	res.Score = 0.8
	res.Label = model.LabelCredible
	require.NoError(t, s.UpsertScore(res))

	got, err := s.GetScore(run.ID, model.BaselineModelID)
	require.NoError(t, err)
	require.Equal(t, 0.8, got.Score)
	require.Equal(t, model.LabelCredible, got.Label)
	require.Len(t, got.Explanation.Positive, 1)

	latest, err := s.LatestScore(run.ID)
	require.NoError(t, err)
	require.Equal(t, model.BaselineModelID, latest.ModelID)

	_, err = s.GetScore(run.ID, "lr_v1")
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestModels_RoundTrip(t *testing.T) {
	s := tempDB(t)

	auroc := 0.75
	m := &model.TrainedModel{
		ModelID:       "lr_v1",
		SchemaVersion: model.SchemaV1,
		FeatureNames:  []model.FeatureName{model.FeatWeightedPriorMean, model.FeatTotalArticles},
		Weights: map[string]float64{
			string(model.FeatWeightedPriorMean): 2.5,
			string(model.FeatTotalArticles):     0.1,
			model.InterceptKey:                  -1,
		},
		Calibration: &model.Calibration{Method: "platt", Params: map[string]float64{"a": 1.2, "b": -0.1}},
		Thresholds:  model.Thresholds{Lo: 0.3, Hi: 0.7},
		Metrics:     model.TrainingMetrics{Accuracy: 0.8, AUROC: &auroc, NTrain: 8, NVal: 2},
		DatasetName: "demo",
		DatasetHash: "abc",
	}
	require.NoError(t, s.UpsertModel(m))

	got, err := s.GetModel("lr_v1")
	require.NoError(t, err)
	require.Equal(t, m.FeatureNames, got.FeatureNames)
	require.Equal(t, m.Weights, got.Weights)
	require.Equal(t, -1.0, got.Intercept())
	require.NotNil(t, got.Calibration)
	require.Equal(t, 1.2, got.Calibration.Params["a"])
	require.Equal(t, m.Thresholds, got.Thresholds)
	require.NotNil(t, got.Metrics.AUROC)

	m.Calibration = nil
	m.DatasetName = "demo2"
	require.NoError(t, s.UpsertModel(m))
	got, err = s.GetModel("lr_v1")
	require.NoError(t, err)
	require.Nil(t, got.Calibration)
	require.Equal(t, "demo2", got.DatasetName)

	list, err := s.ListModels()
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, 2, list[0].NumFeatures)

	_, err = s.GetModel("nope")
	var nf *model.NotFoundError
	require.True(t, errors.As(err, &nf))
	require.Equal(t, "model", nf.Kind)
}

func TestEvalResultsAndExplanations(t *testing.T) {
	s := tempDB(t)
	run, err := s.CreateRun("claim", "", nil)
	require.NoError(t, err)

	rows := []model.EvalRow{
		{RunID: run.ID, DatasetName: "d", ClaimID: "c1", ModelID: model.BaselineModelID, TrueLabel: 1, PredictedScore: 0.9, PredictedLabel: model.LabelCredible},
		{RunID: run.ID, DatasetName: "d", ClaimID: "c2", ModelID: model.BaselineModelID, TrueLabel: 0, PredictedScore: 0.1, PredictedLabel: model.LabelNotCredible},
	}
	require.NoError(t, s.InsertEvalResults(rows))
	require.NoError(t, s.InsertEvalResults(rows[:1]))

	got, err := s.ListEvalResults("d", model.BaselineModelID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "c1", got[0].ClaimID)

	e := model.StoredExplanation{RunID: run.ID, ModelID: model.BaselineModelID, Mode: model.ExplainModeSummary, ResponseText: "first", ContextJSON: "{}"}
	require.NoError(t, s.UpsertExplanation(e))
	e.ResponseText = "second"
	require.NoError(t, s.UpsertExplanation(e))

	stored, err := s.GetExplanation(run.ID, model.BaselineModelID, model.ExplainModeSummary)
	require.NoError(t, err)
	require.Equal(t, "second", stored.ResponseText)

	_, err = s.GetExplanation(run.ID, model.BaselineModelID, model.ExplainModeChat)
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestConcurrentWriters(t *testing.T) {
	s := tempDB(t)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			run, err := s.CreateRun("claim", "", nil)
			if err != nil {
				errs <- err
				return
			}
			if err := s.InsertFeatures([]model.Feature{{RunID: run.ID, Group: model.GroupVolume, Name: model.FeatTotalArticles, Value: 1}}); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	runs, err := s.ListRuns(100)
	require.NoError(t, err)
	require.Len(t, runs, 8)
}
