package store

import (
	"context"
	"strings"

	"github.com/rcliao/ref-builder/internal/model"
)

// SearchParams holds parameters for searching OTUs.
type SearchParams struct {
	Query string
	Limit int
}

// SearchResult wraps the latest OTU version with the accession that matched.
type SearchResult struct {
	model.OTUVersion
	MatchAccession string `json:"match_accession,omitempty"`
	Excluded       bool   `json:"excluded,omitempty"`
}

// Search finds OTUs whose name, acronym or tracked accessions match the query
// substring. Accessions match with or without a version suffix.
func (s *SQLiteStore) Search(ctx context.Context, p SearchParams) ([]SearchResult, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}

	q := strings.TrimSpace(p.Query)
	if i := strings.IndexByte(q, '.'); i > 0 {
		q = q[:i]
	}
	like := "%" + q + "%"

	rows, err := s.db.QueryContext(ctx, `
		SELECT v.id, v.taxid, v.name, v.version, v.supersedes, v.action, v.data, v.created_at,
		       a.accession, a.excluded
		FROM otu_versions v
		INNER JOIN (
			SELECT taxid, MAX(version) AS max_ver
			FROM otu_versions GROUP BY taxid
		) latest ON v.taxid = latest.taxid AND v.version = latest.max_ver
		LEFT JOIN otu_accessions a ON a.taxid = v.taxid AND a.accession LIKE ?
		WHERE v.name LIKE ? OR v.acronym LIKE ? OR a.accession IS NOT NULL
		ORDER BY v.name, v.taxid, a.accession
		LIMIT ?`, like, like, like, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var acc *string
		var excluded *int
		v, err := scanVersion(scanFunc(func(dest ...interface{}) error {
			return rows.Scan(append(dest, &acc, &excluded)...)
		}))
		if err != nil {
			return nil, err
		}
		r.OTUVersion = v
		if acc != nil {
			r.MatchAccession = *acc
		}
		r.Excluded = excluded != nil && *excluded == 1
		results = append(results, r)
	}
	return results, rows.Err()
}

type scanFunc func(dest ...interface{}) error

func (f scanFunc) Scan(dest ...interface{}) error { return f(dest...) }
