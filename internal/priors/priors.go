// Package priors normalizes domains and loads the source reliability table.
package priors

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/praveenpuviindran/trustlens/internal/model"
)

// NormalizeDomain reduces a domain or URL to a bare lowercase host
// without scheme, credentials, port, path or leading "www."
func NormalizeDomain(s string) string {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" {
		return ""
	}

	if i := strings.Index(v, "://"); i >= 0 {
		v = v[i+3:]
	}
	if i := strings.IndexAny(v, "/?#"); i >= 0 {
		v = v[:i]
	}
	if i := strings.LastIndex(v, "@"); i >= 0 {
		v = v[i+1:]
	}
	if i := strings.Index(v, ":"); i >= 0 {
		v = v[:i]
	}
	return strings.TrimPrefix(v, "www.")
}

// LabelToPrior maps a reliability label {-1, 0, 1} to a prior score
func LabelToPrior(label int) (float64, error) {
	switch label {
	case -1:
		return 0.15, nil
	case 0:
		return 0.5, nil
	case 1:
		return 0.85, nil
	}
	return 0, fmt.Errorf("unexpected reliability label %d (want -1, 0 or 1)", label)
}

// LoadCSV reads prior rows. The header must name a domain column and one of
// prior/reliability (a score) or label/reliability_label (-1/0/1).
// Unusable rows are skipped; a repeated domain keeps its last row.
func LoadCSV(r io.Reader, source string) ([]model.SourcePrior, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read header: empty file")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		col[h] = i
	}

	domainIdx, ok := col["domain"]
	if !ok {
		return nil, fmt.Errorf("read header: missing domain column")
	}
	scoreIdx := firstColumn(col, "prior", "reliability")
	labelIdx := firstColumn(col, "label", "reliability_label")
	if scoreIdx < 0 && labelIdx < 0 {
		return nil, fmt.Errorf("read header: need a prior, reliability or label column")
	}

	index := make(map[string]int)
	var out []model.SourcePrior
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		domain := NormalizeDomain(field(rec, domainIdx))
		if domain == "" {
			continue
		}
		score, ok := rowScore(rec, scoreIdx, labelIdx)
		if !ok {
			continue
		}

		p := model.SourcePrior{Domain: domain, Score: score, Source: source}
		if i, seen := index[domain]; seen {
			out[i] = p
			continue
		}
		index[domain] = len(out)
		out = append(out, p)
	}
	return out, nil
}

func rowScore(rec []string, scoreIdx, labelIdx int) (float64, bool) {
	if scoreIdx >= 0 {
		if raw := field(rec, scoreIdx); raw != "" {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return 0, false
			}
			return min(max(v, 0), 1), true
		}
	}
	if labelIdx >= 0 {
		raw := field(rec, labelIdx)
		label, err := strconv.Atoi(raw)
		if err != nil {
			return 0, false
		}
		v, err := LabelToPrior(label)
		if err != nil {
			return 0, false
		}
		return v, true
	}
	return 0, false
}

func firstColumn(col map[string]int, names ...string) int {
	for _, n := range names {
		if i, ok := col[n]; ok {
			return i
		}
	}
	return -1
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}
