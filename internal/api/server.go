// Package api serves runs, scores, explanations and models over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/praveenpuviindran/trustlens/internal/explain"
	"github.com/praveenpuviindran/trustlens/internal/model"
	"github.com/praveenpuviindran/trustlens/internal/worker"
)

// Store is the read side the handlers need
type Store interface {
	Ping() error
	GetRun(runID string) (*model.Run, error)
	ListRuns(limit int) ([]model.Run, error)
	ListEvidence(runID string) ([]model.EvidenceItem, error)
	ListFeatures(runID string) ([]model.Feature, error)
	GetScore(runID, modelID string) (*model.ScoreResult, error)
	LatestScore(runID string) (*model.ScoreResult, error)
	GetExplanation(runID, modelID, mode string) (*model.StoredExplanation, error)
	GetModel(modelID string) (*model.TrainedModel, error)
	ListModels() ([]model.ModelSummary, error)
}

// Analyzer runs a claim end to end
type Analyzer interface {
	Analyze(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisResult, error)
}

// FeatureComputer recomputes a run's features
type FeatureComputer interface {
	Compute(runID string) ([]model.Feature, error)
}

// ScoreComputer scores a run under a model
type ScoreComputer interface {
	ComputeScore(runID, modelID string) (*model.ScoreResult, error)
}

// Explainer answers questions about a run
type Explainer interface {
	Enabled() bool
	ExplainRun(ctx context.Context, runID, modelID string) (*model.StoredExplanation, error)
	Chat(ctx context.Context, runID, modelID, question string) (*model.StoredExplanation, error)
}

// Deps are the services behind the routes
type Deps struct {
	Store     Store
	Analyzer  Analyzer
	Features  FeatureComputer
	Scores    ScoreComputer
	Explainer Explainer
}

// Options tune request handling
type Options struct {
	MaxRecords         int
	MaxRecordsCap      int
	RateLimitPerMinute int
	DefaultModel       string
	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP
	TrustProxy bool
}

// clientIdleTTL is how long an unused client bucket is kept
const clientIdleTTL = 10 * time.Minute

// Server is the HTTP API
type Server struct {
	deps    Deps
	opts    Options
	limiter *worker.Limiter
	log     *slog.Logger
}

// NewServer creates the API server. A rate limit of 0 disables limiting.
func NewServer(deps Deps, opts Options, log *slog.Logger) *Server {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if opts.MaxRecordsCap <= 0 {
		opts.MaxRecordsCap = 50
	}
	if opts.MaxRecords <= 0 {
		opts.MaxRecords = min(25, opts.MaxRecordsCap)
	}
	if opts.DefaultModel == "" {
		opts.DefaultModel = model.BaselineModelID
	}
	s := &Server{deps: deps, opts: opts, log: log}
	if opts.RateLimitPerMinute > 0 {
		s.limiter = worker.NewLimiter(float64(opts.RateLimitPerMinute)/60, opts.RateLimitPerMinute)
		s.limiter.SetIdleTTL(clientIdleTTL)
	}
	return s
}

// Routes builds the router
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if s.opts.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.rateLimit)

		r.Get("/runs", s.handleListRuns)
		r.Post("/runs", s.handleCreateRun)
		r.Route("/runs/{runID}", func(r chi.Router) {
			r.Get("/", s.handleGetRun)
			r.Get("/evidence", s.handleEvidence)
			r.Get("/features", s.handleFeatures)
			r.Post("/features", s.handleComputeFeatures)
			r.Get("/score", s.handleScore)
			r.Post("/score", s.handleComputeScore)
			r.Get("/explanation", s.handleExplanation)
			r.Post("/explanation", s.handleExplain)
			r.Post("/chat", s.handleChat)
		})

		r.Get("/models", s.handleListModels)
		r.Get("/models/{modelID}", s.handleGetModel)
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// a run fetches evidence and may call an LLM
		WriteTimeout: 120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("api server starting", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, model.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, explain.ErrDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, explain.ErrCitationLeak):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= 500 {
		s.log.Error("request failed", "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "err", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
