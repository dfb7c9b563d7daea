package store

import (
	"fmt"

	"github.com/praveenpuviindran/trustlens/internal/model"
	"github.com/praveenpuviindran/trustlens/internal/priors"
)

// UpsertPriors stores one row per normalized domain
func (s *Store) UpsertPriors(rows []model.SourcePrior) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := formatTime(s.now())
	n := 0
	for _, p := range rows {
		domain := priors.NormalizeDomain(p.Domain)
		if domain == "" {
			continue
		}
		_, err := tx.Exec(
			`INSERT INTO source_priors (domain, reliability_score, source, updated_at)
			 VALUES (?, ?, ?, ?)
			 ON CONFLICT(domain) DO UPDATE SET
			   reliability_score = excluded.reliability_score,
			   source = excluded.source,
			   updated_at = excluded.updated_at`,
			domain, p.Score, p.Source, now,
		)
		if err != nil {
			return 0, fmt.Errorf("upsert prior %s: %w", domain, err)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

// LookupPriors returns the known prior for each requested domain, keyed by
// the domain as passed in. Unknown domains are absent from the result.
func (s *Store) LookupPriors(domains []string) (map[string]float64, error) {
	out := make(map[string]float64)
	byNorm := make(map[string][]string)
	var args []any
	for _, d := range domains {
		norm := priors.NormalizeDomain(d)
		if norm == "" {
			continue
		}
		if _, ok := byNorm[norm]; !ok {
			args = append(args, norm)
		}
		byNorm[norm] = append(byNorm[norm], d)
	}
	if len(args) == 0 {
		return out, nil
	}

	rows, err := s.db.Query(
		`SELECT domain, reliability_score FROM source_priors WHERE domain IN (`+placeholders(len(args))+`)`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("lookup priors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			domain string
			score  float64
		)
		if err := rows.Scan(&domain, &score); err != nil {
			return nil, fmt.Errorf("scan prior: %w", err)
		}
		for _, orig := range byNorm[domain] {
			out[orig] = score
		}
	}
	return out, rows.Err()
}

// CountPriors returns the size of the prior table
func (s *Store) CountPriors() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM source_priors`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count priors: %w", err)
	}
	return n, nil
}
