// Package explain produces LLM explanations of a run's score that are
// grounded in the stored run, features, contributions and evidence.
package explain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/praveenpuviindran/trustlens/internal/model"
	"github.com/praveenpuviindran/trustlens/internal/score"
)

// SystemPrompt constrains the model to the supplied context
const SystemPrompt = "You are a grounded explainer. Use ONLY the provided context JSON. " +
	"Do not introduce new evidence or facts. " +
	"If information is missing, say it is missing. " +
	"Cite which signals drove the score. Include a 'What we don't know' section."

const (
	summaryPrompt = "Explain why the system produced this score and label. Use only provided context."
	chatPrompt    = "Answer the user's question using only the provided context. " +
		"If the answer is not in the context, say you don't know."

	// EvidenceLimit caps the evidence items placed in the context
	EvidenceLimit = 10
)

var (
	// ErrDisabled is returned when no provider is configured
	ErrDisabled = errors.New("explanations are disabled (set llm.provider)")

	// ErrCitationLeak is returned when a response cites a URL outside the evidence
	ErrCitationLeak = errors.New("response cites a URL that is not in the evidence")
)

// Store is the persistence the explainer reads and writes
type Store interface {
	GetRun(runID string) (*model.Run, error)
	GetScore(runID, modelID string) (*model.ScoreResult, error)
	ListFeatures(runID string) ([]model.Feature, error)
	ListEvidence(runID string) ([]model.EvidenceItem, error)
	UpsertExplanation(e model.StoredExplanation) error
}

// Explainer builds grounded context and asks the provider about it
type Explainer struct {
	store    Store
	provider Provider
	log      *slog.Logger
	now      func() time.Time
}

// NewExplainer creates an explainer; a nil provider disables generation
// while BuildContext keeps working
func NewExplainer(store Store, provider Provider, log *slog.Logger) *Explainer {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Explainer{store: store, provider: provider, log: log, now: time.Now}
}

// Enabled reports whether a provider is configured
func (e *Explainer) Enabled() bool {
	return e.provider != nil
}

// Context is the grounding document. Fields are declared in key order so
// the encoded JSON has sorted keys.
type Context struct {
	Contributions Contributions  `json:"contributions"`
	Evidence      []EvidenceView `json:"evidence"`
	Features      []FeatureView  `json:"features"`
	Run           RunView        `json:"run"`
	Score         ScoreView      `json:"score"`
}

// Contributions are the score drivers shown to the model
type Contributions struct {
	Missing  bool               `json:"missing,omitempty"`
	Negative []ContributionView `json:"negative,omitempty"`
	Positive []ContributionView `json:"positive,omitempty"`
}

// ContributionView is one feature's share of the raw score
type ContributionView struct {
	Contribution float64  `json:"contribution"`
	FeatureName  string   `json:"feature_name"`
	Value        float64  `json:"value"`
	Weight       *float64 `json:"weight,omitempty"`
}

// EvidenceView is an evidence item as cited in the context
type EvidenceView struct {
	Domain      string  `json:"domain"`
	PublishedAt *string `json:"published_at"`
	Snippet     string  `json:"snippet"`
	Title       string  `json:"title"`
	URL         string  `json:"url"`
}

// FeatureView is a stored feature value
type FeatureView struct {
	Group string  `json:"group"`
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// RunView identifies the run and its claim
type RunView struct {
	ClaimText string `json:"claim_text"`
	CreatedAt string `json:"created_at"`
	QueryText string `json:"query_text"`
	RunID     string `json:"run_id"`
}

// ScoreView is the stored score, or Missing when none exists
type ScoreView struct {
	CreatedAt *string      `json:"created_at,omitempty"`
	Label     *model.Label `json:"label,omitempty"`
	Missing   bool         `json:"missing,omitempty"`
	ModelID   *string      `json:"model_id,omitempty"`
	Score     *float64     `json:"score,omitempty"`
}

// BuildContext assembles the grounding context for a run under a model
func (e *Explainer) BuildContext(runID, modelID string) (*Context, error) {
	if modelID == "" {
		modelID = model.BaselineModelID
	}

	run, err := e.store.GetRun(runID)
	if err != nil {
		return nil, fmt.Errorf("load run: %w", err)
	}
	feats, err := e.store.ListFeatures(runID)
	if err != nil {
		return nil, fmt.Errorf("load features: %w", err)
	}
	items, err := e.store.ListEvidence(runID)
	if err != nil {
		return nil, fmt.Errorf("load evidence: %w", err)
	}

	var stored *model.ScoreResult
	sc, err := e.store.GetScore(runID, modelID)
	switch {
	case err == nil:
		stored = sc
	case !errors.Is(err, model.ErrNotFound):
		return nil, fmt.Errorf("load score: %w", err)
	}

	c := &Context{
		Run: RunView{
			RunID:     run.ID,
			ClaimText: run.ClaimText,
			QueryText: run.QueryText,
			CreatedAt: run.CreatedAt.UTC().Format(time.RFC3339),
		},
		Features: make([]FeatureView, 0, len(feats)),
		Evidence: evidenceViews(items, EvidenceLimit),
	}

	sorted := append([]model.Feature(nil), feats...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Group != sorted[j].Group {
			return sorted[i].Group < sorted[j].Group
		}
		return sorted[i].Name < sorted[j].Name
	})
	for _, f := range sorted {
		c.Features = append(c.Features, FeatureView{Group: string(f.Group), Name: string(f.Name), Value: f.Value})
	}

	if stored != nil {
		created := stored.CreatedAt.UTC().Format(time.RFC3339)
		c.Score = ScoreView{
			ModelID:   &modelID,
			Score:     &stored.Score,
			Label:     &stored.Label,
			CreatedAt: &created,
		}
		c.Contributions = Contributions{
			Positive: contributionViews(stored.Explanation.Positive),
			Negative: contributionViews(stored.Explanation.Negative),
		}
	} else {
		c.Score = ScoreView{Missing: true}
		c.Contributions = baselineContributions(feats)
	}
	return c, nil
}

// ExplainRun asks for a summary explanation and stores it
func (e *Explainer) ExplainRun(ctx context.Context, runID, modelID string) (*model.StoredExplanation, error) {
	return e.generate(ctx, runID, modelID, model.ExplainModeSummary, "")
}

// Chat answers a question about a run and stores the latest answer
func (e *Explainer) Chat(ctx context.Context, runID, modelID, question string) (*model.StoredExplanation, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, model.InvalidInput("question is required")
	}
	return e.generate(ctx, runID, modelID, model.ExplainModeChat, question)
}

func (e *Explainer) generate(ctx context.Context, runID, modelID, mode, question string) (*model.StoredExplanation, error) {
	if e.provider == nil {
		return nil, ErrDisabled
	}
	if modelID == "" {
		modelID = model.BaselineModelID
	}

	c, err := e.BuildContext(runID, modelID)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode context: %w", err)
	}
	contextJSON := string(raw)

	var user string
	if mode == model.ExplainModeChat {
		user = chatPrompt + "\n\nQuestion:\n" + question + "\n\nContext:\n" + contextJSON
	} else {
		user = summaryPrompt + "\n\nContext:\n" + contextJSON
	}

	text, err := e.provider.Generate(ctx, SystemPrompt, user)
	if err != nil {
		return nil, fmt.Errorf("generate %s: %w", mode, err)
	}
	if leaked := ungroundedURLs(text, c.Evidence); len(leaked) > 0 {
		e.log.Warn("explanation cites unknown URLs", "run_id", runID, "urls", leaked)
		return nil, fmt.Errorf("%w: %s", ErrCitationLeak, strings.Join(leaked, ", "))
	}

	out := model.StoredExplanation{
		RunID:        runID,
		ModelID:      modelID,
		Mode:         mode,
		UserQuestion: question,
		ResponseText: text,
		ContextJSON:  contextJSON,
		CreatedAt:    e.now().UTC(),
	}
	if err := e.store.UpsertExplanation(out); err != nil {
		return nil, fmt.Errorf("store explanation: %w", err)
	}
	e.log.Info("explanation stored", "run_id", runID, "model_id", modelID, "mode", mode, "provider", e.provider.Name())
	return &out, nil
}

// evidenceViews keeps the newest items by published time, falling back to
// retrieval time
func evidenceViews(items []model.EvidenceItem, limit int) []EvidenceView {
	sorted := append([]model.EvidenceItem(nil), items...)
	when := func(it model.EvidenceItem) time.Time {
		if it.PublishedAt != nil {
			return *it.PublishedAt
		}
		return it.RetrievedAt
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		ti, tj := when(sorted[i]), when(sorted[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return sorted[i].URL < sorted[j].URL
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}

	out := make([]EvidenceView, 0, len(sorted))
	for _, it := range sorted {
		v := EvidenceView{Domain: it.Domain, Title: it.Title, Snippet: it.Snippet, URL: it.URL}
		if it.PublishedAt != nil {
			s := it.PublishedAt.UTC().Format(time.RFC3339)
			v.PublishedAt = &s
		}
		out = append(out, v)
	}
	return out
}

func contributionViews(cs []model.Contribution) []ContributionView {
	out := make([]ContributionView, 0, len(cs))
	for _, c := range cs {
		out = append(out, ContributionView{
			Contribution: c.Contribution,
			FeatureName:  string(c.Feature),
			Value:        c.Value,
			Weight:       c.Weight,
		})
	}
	return out
}

// baselineContributions recomputes every baseline term when no score is stored
func baselineContributions(feats []model.Feature) Contributions {
	if len(feats) == 0 {
		return Contributions{Missing: true}
	}
	_, contribs := score.NewBaselineScorer().RawScore(model.NewFeatureSet(feats))

	var pos, neg []model.Contribution
	for _, c := range contribs {
		if c.Contribution >= 0 {
			pos = append(pos, c)
		} else {
			neg = append(neg, c)
		}
	}
	return Contributions{Positive: contributionViews(pos), Negative: contributionViews(neg)}
}

var urlPattern = regexp.MustCompile(`https?://[^\s\]>"']+`)

// trimURL drops trailing punctuation and any closing paren without a
// matching opener inside the URL
func trimURL(u string) string {
	for {
		t := strings.TrimRight(u, ".,;:!?/")
		if strings.HasSuffix(t, ")") && strings.Count(t, "(") < strings.Count(t, ")") {
			t = t[:len(t)-1]
		}
		if t == u {
			return u
		}
		u = t
	}
}

func ungroundedURLs(text string, evidence []EvidenceView) []string {
	allowed := make(map[string]bool, len(evidence))
	for _, ev := range evidence {
		allowed[strings.TrimRight(ev.URL, "/")] = true
	}

	var leaked []string
	seen := make(map[string]bool)
	for _, u := range urlPattern.FindAllString(text, -1) {
		u = trimURL(u)
		if allowed[u] || seen[u] {
			continue
		}
		seen[u] = true
		leaked = append(leaked, u)
	}
	return leaked
}
