// Package train fits logistic-regression credibility models offline and
// registers them as artifacts.
package train

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/praveenpuviindran/trustlens/internal/eval"
	"github.com/praveenpuviindran/trustlens/internal/features"
	"github.com/praveenpuviindran/trustlens/internal/model"
)

// ModelRegistry stores artifacts by model id, replacing any previous one
type ModelRegistry interface {
	UpsertModel(m *model.TrainedModel) error
}

// Request describes one training job
type Request struct {
	DatasetPath   string
	DatasetName   string
	ModelID       string
	SchemaVersion model.SchemaVersion
	SplitRatio    float64
	Seed          uint64
	Calibrate     bool
}

// Trainer fits and registers models
type Trainer struct {
	vectorizer *features.Vectorizer
	registry   ModelRegistry
	cfg        model.TrainingConfig
	log        *slog.Logger
	now        func() time.Time
}

// NewTrainer creates a new trainer
func NewTrainer(vectorizer *features.Vectorizer, registry ModelRegistry, cfg model.TrainingConfig, log *slog.Logger) *Trainer {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Trainer{
		vectorizer: vectorizer,
		registry:   registry,
		cfg:        cfg,
		log:        log,
		now:        time.Now,
	}
}

// TrainAndRegister loads the dataset, fits the model, optionally calibrates it,
// tunes thresholds on the validation split and stores the artifact
func (t *Trainer) TrainAndRegister(req Request) (*model.TrainedModel, error) {
	if req.ModelID == "" {
		return nil, fmt.Errorf("model id is required")
	}
	if req.ModelID == model.BaselineModelID {
		return nil, fmt.Errorf("model id %s is reserved for the baseline scorer", req.ModelID)
	}
	if req.SchemaVersion == "" {
		req.SchemaVersion = model.SchemaV1
	}
	if req.DatasetName == "" {
		req.DatasetName = req.DatasetPath
	}

	rows, raw, err := LoadDataset(req.DatasetPath)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, model.InvalidState("dataset %s has no usable labeled rows", req.DatasetPath)
	}

	names, err := t.vectorizer.CanonicalNames(req.SchemaVersion)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, model.InvalidState("no stored features for schema %s", req.SchemaVersion)
	}

	trainRows, valRows := Split(rows, req.SplitRatio, req.Seed)
	t.log.Info("training model",
		"model_id", req.ModelID,
		"schema", req.SchemaVersion,
		"features", len(names),
		"train", len(trainRows),
		"val", len(valRows))

	XTrain, yTrain, err := t.matrix(trainRows, names)
	if err != nil {
		return nil, err
	}
	XVal, yVal, err := t.matrix(valRows, names)
	if err != nil {
		return nil, err
	}

	weights, intercept := TrainLogisticRegression(XTrain, yTrain, t.cfg.LearningRate, t.cfg.Epochs)
	if weights == nil {
		weights = make([]float64, len(names))
	}
	probs := PredictProba(XVal, weights, intercept)

	var calibration *model.Calibration
	if req.Calibrate && len(probs) > 0 {
		a, b := FitPlatt(probs, yVal, t.cfg.PlattLearningRate, t.cfg.PlattEpochs)
		calibration = &model.Calibration{Method: "platt", Params: map[string]float64{"a": a, "b": b}}
		probs = ApplyPlatt(probs, a, b)
	}

	thresholds := TuneThresholds(probs, yVal)
	m := eval.ProbabilityMetrics(probs, yVal)

	weightMap := make(map[string]float64, len(names)+1)
	for i, n := range names {
		weightMap[string(n)] = weights[i]
	}
	weightMap[model.InterceptKey] = intercept

	hash := sha256.Sum256(raw)
	artifact := &model.TrainedModel{
		ModelID:       req.ModelID,
		SchemaVersion: req.SchemaVersion,
		FeatureNames:  names,
		Weights:       weightMap,
		Calibration:   calibration,
		Thresholds:    thresholds,
		Metrics: model.TrainingMetrics{
			Accuracy:  m.Accuracy,
			Precision: m.Precision,
			Recall:    m.Recall,
			F1:        m.F1,
			Brier:     m.Brier,
			AUROC:     m.AUROC,
			ECE:       m.ECE,
			NTrain:    len(trainRows),
			NVal:      len(valRows),
		},
		DatasetName: req.DatasetName,
		DatasetHash: hex.EncodeToString(hash[:]),
		CreatedAt:   t.now().UTC(),
	}

	if err := t.registry.UpsertModel(artifact); err != nil {
		return nil, fmt.Errorf("register model: %w", err)
	}
	t.log.Info("model registered", "model_id", artifact.ModelID, "t_lo", thresholds.Lo, "t_hi", thresholds.Hi, "f1", m.F1)
	return artifact, nil
}

func (t *Trainer) matrix(rows []DatasetRow, names []model.FeatureName) ([][]float64, []int, error) {
	ids := make([]string, len(rows))
	y := make([]int, len(rows))
	for i, r := range rows {
		ids[i] = r.RunID
		y[i] = r.Label
	}
	X, err := t.vectorizer.Matrix(ids, names)
	if err != nil {
		return nil, nil, fmt.Errorf("vectorize: %w", err)
	}
	return X, y, nil
}
