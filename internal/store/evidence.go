package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/praveenpuviindran/trustlens/internal/model"
)

// UpsertEvidence stores evidence items for a run. URLs are unique across
// runs, so an already stored URL is re-attached to this run.
func (s *Store) UpsertEvidence(runID string, items []model.EvidenceItem) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := s.now().UTC()
	for _, it := range items {
		id := it.ID
		if id == "" {
			id = uuid.New().String()
		}
		retrieved := it.RetrievedAt
		if retrieved.IsZero() {
			retrieved = now
		}
		created := it.CreatedAt
		if created.IsZero() {
			created = now
		}

		_, err := tx.Exec(
			`INSERT INTO evidence_items
			   (evidence_id, run_id, url, domain, title, snippet, published_at, retrieved_at, created_at, source, raw_json)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(url) DO UPDATE SET
			   run_id = excluded.run_id,
			   domain = excluded.domain,
			   title = excluded.title,
			   snippet = excluded.snippet,
			   published_at = excluded.published_at,
			   retrieved_at = excluded.retrieved_at,
			   source = excluded.source,
			   raw_json = excluded.raw_json`,
			id, runID, it.URL, it.Domain, it.Title, it.Snippet, nullableTime(it.PublishedAt),
			formatTime(retrieved), formatTime(created), it.Source, it.Raw,
		)
		if err != nil {
			return 0, fmt.Errorf("upsert evidence %s: %w", it.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(items), nil
}

// ListEvidence returns a run's evidence ordered by URL
func (s *Store) ListEvidence(runID string) ([]model.EvidenceItem, error) {
	rows, err := s.db.Query(
		`SELECT evidence_id, run_id, url, domain, title, snippet, published_at, retrieved_at, created_at, source, raw_json
		 FROM evidence_items WHERE run_id = ? ORDER BY url`, runID)
	if err != nil {
		return nil, fmt.Errorf("list evidence: %w", err)
	}
	defer rows.Close()

	var out []model.EvidenceItem
	for rows.Next() {
		var (
			it                 model.EvidenceItem
			title, snippet     sql.NullString
			published          sql.NullString
			retrieved, created string
			source, raw        sql.NullString
		)
		if err := rows.Scan(&it.ID, &it.RunID, &it.URL, &it.Domain, &title, &snippet, &published, &retrieved, &created, &source, &raw); err != nil {
			return nil, fmt.Errorf("scan evidence: %w", err)
		}
		it.Title = title.String
		it.Snippet = snippet.String
		it.Source = source.String
		it.Raw = raw.String
		if it.PublishedAt, err = parseNullableTime(published); err != nil {
			return nil, fmt.Errorf("parse published_at: %w", err)
		}
		if it.RetrievedAt, err = parseTime(retrieved); err != nil {
			return nil, fmt.Errorf("parse retrieved_at: %w", err)
		}
		if it.CreatedAt, err = parseTime(created); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// CountEvidence returns the number of evidence items of a run
func (s *Store) CountEvidence(runID string) (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM evidence_items WHERE run_id = ?`, runID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count evidence: %w", err)
	}
	return n, nil
}
