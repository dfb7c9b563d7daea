package gdelt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/praveenpuviindran/trustlens/internal/model"
	"github.com/praveenpuviindran/trustlens/internal/priors"
)

// seendate layouts observed in artlist responses
var seenDateLayouts = []string{"20060102150405", "20060102T150405Z"}

// Article is one entry of an artlist response
type Article struct {
	URL      string
	Domain   string
	Title    string
	Snippet  string
	SeenDate *time.Time
	Raw      string
}

type rawArticle struct {
	URL         string `json:"url"`
	Domain      string `json:"domain"`
	Title       string `json:"title"`
	Snippet     string `json:"snippet"`
	Summary     string `json:"summary"`
	Description string `json:"description"`
	SeenDate    string `json:"seendate"`
	DateTime    string `json:"datetime"`
}

// ParseArticles decodes an artlist body. Entries without url or domain are
// skipped; an empty body or object means no results.
func ParseArticles(body []byte) ([]Article, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, nil
	}

	var payload struct {
		Articles []json.RawMessage `json:"articles"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	out := make([]Article, 0, len(payload.Articles))
	for _, raw := range payload.Articles {
		var a rawArticle
		if err := json.Unmarshal(raw, &a); err != nil {
			continue
		}
		domain := priors.NormalizeDomain(a.Domain)
		if strings.TrimSpace(a.URL) == "" || domain == "" {
			continue
		}

		seen := a.SeenDate
		if seen == "" {
			seen = a.DateTime
		}
		out = append(out, Article{
			URL:      strings.TrimSpace(a.URL),
			Domain:   domain,
			Title:    strings.TrimSpace(a.Title),
			Snippet:  strings.TrimSpace(firstNonEmpty(a.Snippet, a.Summary, a.Description)),
			SeenDate: ParseSeenDate(seen),
			Raw:      string(raw),
		})
	}
	return out, nil
}

// ParseSeenDate parses a GDELT timestamp as UTC; nil if absent or malformed
func ParseSeenDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range seenDateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return &t
		}
	}
	return nil
}

// Evidence converts the article into an evidence item for a run
func (a Article) Evidence(runID string, retrievedAt time.Time) model.EvidenceItem {
	return model.EvidenceItem{
		RunID:       runID,
		URL:         a.URL,
		Domain:      a.Domain,
		Title:       a.Title,
		Snippet:     a.Snippet,
		PublishedAt: a.SeenDate,
		RetrievedAt: retrievedAt,
		Source:      "gdelt",
		Raw:         a.Raw,
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
