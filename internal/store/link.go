package store

import (
	"context"
	"fmt"
	"time"
)

// LinkParams holds parameters for recording or removing an accession link.
type LinkParams struct {
	Taxid  int
	From   string // accession that was replaced
	To     string // accession that replaced it
	Rel    string // superseded_by | merged_into
	Remove bool
}

// Link represents a relation between two accessions of an OTU.
type Link struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Taxid     int    `json:"taxid"`
	Rel       string `json:"rel"`
	CreatedAt string `json:"created_at,omitempty"`
}

var validRels = map[string]bool{
	"superseded_by": true,
	"merged_into":   true,
}

// Link records or removes a relation between two accessions of a stored OTU.
func (s *SQLiteStore) Link(ctx context.Context, p LinkParams) (*Link, error) {
	if !validRels[p.Rel] {
		return nil, fmt.Errorf("invalid relation %q (valid: superseded_by, merged_into)", p.Rel)
	}
	if p.From == "" || p.To == "" || p.From == p.To {
		return nil, fmt.Errorf("invalid link %q -> %q", p.From, p.To)
	}

	if err := s.requireAccession(ctx, p.Taxid, p.From); err != nil {
		return nil, fmt.Errorf("resolve from: %w", err)
	}
	if err := s.requireAccession(ctx, p.Taxid, p.To); err != nil {
		return nil, fmt.Errorf("resolve to: %w", err)
	}

	if p.Remove {
		_, err := s.db.ExecContext(ctx,
			`DELETE FROM accession_links WHERE from_acc = ? AND to_acc = ? AND rel = ?`,
			p.From, p.To, p.Rel)
		if err != nil {
			return nil, err
		}
		return &Link{From: p.From, To: p.To, Taxid: p.Taxid, Rel: p.Rel}, nil
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO accession_links (from_acc, to_acc, taxid, rel, created_at) VALUES (?, ?, ?, ?, ?)`,
		p.From, p.To, p.Taxid, p.Rel, now)
	if err != nil {
		return nil, err
	}

	return &Link{From: p.From, To: p.To, Taxid: p.Taxid, Rel: p.Rel, CreatedAt: now}, nil
}

// GetLinks returns all links touching an accession. An empty accession
// returns every link of the OTU.
func (s *SQLiteStore) GetLinks(ctx context.Context, taxid int, accession string) ([]Link, error) {
	query := `SELECT from_acc, to_acc, taxid, rel, created_at FROM accession_links WHERE taxid = ?`
	args := []interface{}{taxid}
	if accession != "" {
		query += ` AND (from_acc = ? OR to_acc = ?)`
		args = append(args, accession, accession)
	}
	query += ` ORDER BY from_acc, to_acc`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []Link
	for rows.Next() {
		var l Link
		if err := rows.Scan(&l.From, &l.To, &l.Taxid, &l.Rel, &l.CreatedAt); err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

// requireAccession checks that the latest version of an OTU tracks accession,
// included or excluded.
func (s *SQLiteStore) requireAccession(ctx context.Context, taxid int, accession string) error {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM otu_accessions WHERE taxid = ? AND accession = ?`, taxid, accession).Scan(&n)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: accession %s in taxid %d", ErrNotFound, accession, taxid)
	}
	return nil
}
