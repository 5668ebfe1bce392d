package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/rcliao/ref-builder/internal/model"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB

	mu      sync.Mutex
	entropy *rand.Rand
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) newID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS otu_versions (
		id          TEXT PRIMARY KEY,
		otu_id      TEXT NOT NULL,
		taxid       INTEGER NOT NULL,
		name        TEXT NOT NULL,
		acronym     TEXT NOT NULL DEFAULT '',
		version     INTEGER NOT NULL,
		supersedes  TEXT,
		action      TEXT NOT NULL,
		data        TEXT NOT NULL,
		created_at  TEXT NOT NULL,
		UNIQUE (taxid, version)
	);
	CREATE INDEX IF NOT EXISTS idx_versions_taxid ON otu_versions(taxid, version DESC);
	CREATE INDEX IF NOT EXISTS idx_versions_name ON otu_versions(name);

	CREATE TABLE IF NOT EXISTS otu_accessions (
		taxid      INTEGER NOT NULL,
		accession  TEXT NOT NULL,
		excluded   INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (taxid, accession)
	);
	CREATE INDEX IF NOT EXISTS idx_accessions_accession ON otu_accessions(accession);

	CREATE TABLE IF NOT EXISTS accession_links (
		from_acc   TEXT NOT NULL,
		to_acc     TEXT NOT NULL,
		taxid      INTEGER NOT NULL,
		rel        TEXT NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (from_acc, to_acc, rel)
	);
	CREATE INDEX IF NOT EXISTS idx_links_to ON accession_links(to_acc);
	CREATE INDEX IF NOT EXISTS idx_links_taxid ON accession_links(taxid);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Save(ctx context.Context, p SaveParams) (*model.OTUVersion, error) {
	if p.OTU == nil {
		return nil, errors.New("save: nil otu")
	}
	if !model.ValidActions[p.Action] {
		return nil, fmt.Errorf("save: invalid action %q", p.Action)
	}

	data, err := json.Marshal(p.OTU)
	if err != nil {
		return nil, fmt.Errorf("encode otu: %w", err)
	}

	now := time.Now().UTC()
	id := s.newID()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var prevID string
	var prevVersion int
	err = tx.QueryRowContext(ctx,
		`SELECT id, version FROM otu_versions
		 WHERE taxid = ? ORDER BY version DESC LIMIT 1`, p.OTU.Taxid).Scan(&prevID, &prevVersion)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if p.Action != model.ActionCreate && p.Action != model.ActionImport {
			return nil, fmt.Errorf("%w: taxid %d", ErrNotFound, p.OTU.Taxid)
		}
	case err != nil:
		return nil, fmt.Errorf("query latest: %w", err)
	case p.Action == model.ActionCreate:
		return nil, fmt.Errorf("%w: taxid %d", ErrExists, p.OTU.Taxid)
	case p.Base != prevVersion:
		return nil, &ConflictError{Taxid: p.OTU.Taxid, Base: p.Base, Latest: prevVersion}
	}

	version := prevVersion + 1
	var supersedes *string
	if prevID != "" {
		supersedes = &prevID
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO otu_versions (id, otu_id, taxid, name, acronym, version, supersedes, action, data, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, p.OTU.ID.String(), p.OTU.Taxid, p.OTU.Name, p.OTU.Acronym, version, supersedes,
		string(p.Action), string(data), now.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("insert otu version: %w", err)
	}

	if err := indexAccessions(ctx, tx, p.OTU); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	v := &model.OTUVersion{
		ID:        id,
		Taxid:     p.OTU.Taxid,
		Name:      p.OTU.Name,
		Version:   version,
		Action:    p.Action,
		CreatedAt: now,
		OTU:       p.OTU.Clone(),
	}
	if supersedes != nil {
		v.Supersedes = *supersedes
	}
	return v, nil
}

// indexAccessions rewrites the accession index of an OTU from its latest state.
func indexAccessions(ctx context.Context, tx *sql.Tx, o *model.OTU) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM otu_accessions WHERE taxid = ?`, o.Taxid); err != nil {
		return fmt.Errorf("clear accessions: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO otu_accessions (taxid, accession, excluded) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, acc := range o.Accessions() {
		if _, err := stmt.ExecContext(ctx, o.Taxid, acc, 0); err != nil {
			return fmt.Errorf("index accession: %w", err)
		}
	}
	for _, acc := range o.ExcludedAccessions() {
		if _, err := stmt.ExecContext(ctx, o.Taxid, acc, 1); err != nil {
			return fmt.Errorf("index accession: %w", err)
		}
	}
	return nil
}

const versionColumns = `id, taxid, name, version, supersedes, action, data, created_at`

func (s *SQLiteStore) Get(ctx context.Context, p GetParams) ([]model.OTUVersion, error) {
	var query string
	var args []interface{}

	if p.History {
		query = `SELECT ` + versionColumns + ` FROM otu_versions WHERE taxid = ? ORDER BY version DESC`
		args = []interface{}{p.Taxid}
	} else if p.Version > 0 {
		query = `SELECT ` + versionColumns + ` FROM otu_versions WHERE taxid = ? AND version = ? LIMIT 1`
		args = []interface{}{p.Taxid, p.Version}
	} else {
		query = `SELECT ` + versionColumns + ` FROM otu_versions WHERE taxid = ? ORDER BY version DESC LIMIT 1`
		args = []interface{}{p.Taxid}
	}

	versions, err := s.queryVersions(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		if p.Version > 0 {
			return nil, fmt.Errorf("%w: taxid %d version %d", ErrNotFound, p.Taxid, p.Version)
		}
		return nil, fmt.Errorf("%w: taxid %d", ErrNotFound, p.Taxid)
	}
	return versions, nil
}

// Latest returns the latest version of an OTU.
func (s *SQLiteStore) Latest(ctx context.Context, taxid int) (*model.OTUVersion, error) {
	versions, err := s.Get(ctx, GetParams{Taxid: taxid})
	if err != nil {
		return nil, err
	}
	return &versions[0], nil
}

func (s *SQLiteStore) List(ctx context.Context, p ListParams) ([]model.OTUVersion, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 100
	}

	var where []string
	var args []interface{}
	if p.Name != "" {
		where = append(where, "(v.name LIKE ? OR v.acronym LIKE ?)")
		like := "%" + p.Name + "%"
		args = append(args, like, like)
	}
	filter := ""
	if len(where) > 0 {
		filter = "WHERE " + strings.Join(where, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT v.id, v.taxid, v.name, v.version, v.supersedes, v.action, v.data, v.created_at
		FROM otu_versions v
		INNER JOIN (
			SELECT taxid, MAX(version) AS max_ver
			FROM otu_versions GROUP BY taxid
		) latest ON v.taxid = latest.taxid AND v.version = latest.max_ver
		%s
		ORDER BY v.name, v.taxid
		LIMIT ?`, filter)
	args = append(args, limit)

	return s.queryVersions(ctx, query, args...)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) queryVersions(ctx context.Context, query string, args ...interface{}) ([]model.OTUVersion, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []model.OTUVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanVersion(row scanner) (model.OTUVersion, error) {
	var v model.OTUVersion
	var supersedes sql.NullString
	var action, data, createdAt string

	err := row.Scan(&v.ID, &v.Taxid, &v.Name, &v.Version, &supersedes, &action, &data, &createdAt)
	if err != nil {
		return v, err
	}

	v.Action = model.Action(action)
	v.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	if supersedes.Valid {
		v.Supersedes = supersedes.String
	}

	var o model.OTU
	if err := json.Unmarshal([]byte(data), &o); err != nil {
		return v, fmt.Errorf("decode otu %d version %d: %w", v.Taxid, v.Version, err)
	}
	if o.Excluded == nil {
		o.Excluded = map[string]model.ExcludedSequence{}
	}
	v.OTU = &o
	return v, nil
}
