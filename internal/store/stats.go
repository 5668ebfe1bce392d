package store

import (
	"context"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	DBPath             string        `json:"db_path"`
	DBSizeBytes        int64         `json:"db_size_bytes"`
	TotalVersions      int           `json:"total_versions"`
	OTUs               int           `json:"otus"`
	Accessions         int           `json:"accessions"`
	ExcludedAccessions int           `json:"excluded_accessions"`
	Links              int           `json:"links"`
	Actions            []ActionStats `json:"actions"`
}

// ActionStats holds per-action version counts.
type ActionStats struct {
	Action string `json:"action"`
	Count  int    `json:"count"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{DBPath: dbPath}

	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	counts := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM otu_versions`, &st.TotalVersions},
		{`SELECT COUNT(DISTINCT taxid) FROM otu_versions`, &st.OTUs},
		{`SELECT COUNT(*) FROM otu_accessions WHERE excluded = 0`, &st.Accessions},
		{`SELECT COUNT(*) FROM otu_accessions WHERE excluded = 1`, &st.ExcludedAccessions},
		{`SELECT COUNT(*) FROM accession_links`, &st.Links},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return st, err
		}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT action, COUNT(*) AS cnt
		FROM otu_versions GROUP BY action ORDER BY cnt DESC, action`)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var a ActionStats
		if err := rows.Scan(&a.Action, &a.Count); err != nil {
			return st, err
		}
		st.Actions = append(st.Actions, a)
	}

	return st, rows.Err()
}
