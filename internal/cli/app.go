package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/praveenpuviindran/trustlens/internal/cache"
	"github.com/praveenpuviindran/trustlens/internal/enrich"
	"github.com/praveenpuviindran/trustlens/internal/explain"
	"github.com/praveenpuviindran/trustlens/internal/features"
	"github.com/praveenpuviindran/trustlens/internal/gdelt"
	"github.com/praveenpuviindran/trustlens/internal/logger"
	"github.com/praveenpuviindran/trustlens/internal/model"
	"github.com/praveenpuviindran/trustlens/internal/pipeline"
	"github.com/praveenpuviindran/trustlens/internal/score"
	"github.com/praveenpuviindran/trustlens/internal/store"
	"github.com/praveenpuviindran/trustlens/internal/train"
)

// app holds the wired services for one command invocation
type app struct {
	cfg       *model.Config
	log       *slog.Logger
	store     *store.Store
	search    *gdelt.Client
	pipeline  *pipeline.Pipeline
	features  *features.Service
	scores    *score.Service
	explainer *explain.Explainer
	trainer   *train.Trainer
}

// newApp loads configuration, opens the database and wires every service.
// The caller must Close it.
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, _, err := LoadConfig(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	return buildApp(cfg, logger.New(cfg.Log.Level, stderr(cmd)))
}

func buildApp(cfg *model.Config, log *slog.Logger) (*app, error) {
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	search := gdelt.NewClient(cfg.GDELT, cache.New(cfg.Cache), cfg.Cache.DiskTTL, logger.WithComponent(log, "gdelt"))

	fs := features.NewService(features.NewExtractor(st, st), st)
	ss := score.NewService(st, st, st, st)

	// a typed nil would defeat the pipeline's nil check
	var enricher pipeline.Enricher
	if cfg.Enrich.Enabled {
		enricher = enrich.New(cfg.Enrich, logger.WithComponent(log, "enrich"))
	}

	provider, err := explain.NewProvider(cfg.LLM)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	return &app{
		cfg:       cfg,
		log:       log,
		store:     st,
		search:    search,
		pipeline:  pipeline.New(st, search, enricher, fs, ss, cfg.Scoring.DefaultModel, logger.WithComponent(log, "pipeline")),
		features:  fs,
		scores:    ss,
		explainer: explain.NewExplainer(st, provider, logger.WithComponent(log, "explain")),
		trainer:   train.NewTrainer(features.NewVectorizer(st), st, cfg.Training, logger.WithComponent(log, "train")),
	}, nil
}

// Close releases the database
func (a *app) Close() error {
	return a.store.Close()
}

// maxRecords resolves a --max-records flag against the configured default and cap
func (a *app) maxRecords(n int) int {
	return a.search.EffectiveMaxRecords(n)
}
