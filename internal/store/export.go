package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rcliao/ref-builder/internal/model"
)

// ExportAll returns every stored OTU version, optionally limited to one taxid.
func (s *SQLiteStore) ExportAll(ctx context.Context, taxid int) ([]model.OTUVersion, error) {
	query := `SELECT ` + versionColumns + ` FROM otu_versions`
	var args []interface{}
	if taxid != 0 {
		query += ` WHERE taxid = ?`
		args = append(args, taxid)
	}
	query += ` ORDER BY taxid, version`
	return s.queryVersions(ctx, query, args...)
}

// Import stores versions from an export. Versions whose ID or taxid+version
// already exist are skipped. Returns the number of versions imported.
func (s *SQLiteStore) Import(ctx context.Context, versions []model.OTUVersion) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	imported := 0
	touched := map[int]bool{}
	for _, v := range versions {
		if v.OTU == nil {
			return imported, fmt.Errorf("import %d version %d: missing otu", v.Taxid, v.Version)
		}
		if v.OTU.Taxid != v.Taxid || v.Version < 1 {
			return imported, fmt.Errorf("import %d version %d: inconsistent version header", v.Taxid, v.Version)
		}
		data, err := json.Marshal(v.OTU)
		if err != nil {
			return imported, fmt.Errorf("encode otu: %w", err)
		}
		id := v.ID
		if id == "" {
			id = s.newID()
		}
		action := v.Action
		if !model.ValidActions[action] {
			action = model.ActionImport
		}
		createdAt := v.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		var supersedes *string
		if v.Supersedes != "" {
			supersedes = &v.Supersedes
		}

		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO otu_versions (id, otu_id, taxid, name, acronym, version, supersedes, action, data, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, v.OTU.ID.String(), v.Taxid, v.OTU.Name, v.OTU.Acronym, v.Version, supersedes,
			string(action), string(data), createdAt.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return imported, fmt.Errorf("insert otu version: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			imported++
			touched[v.Taxid] = true
		}
	}

	for taxid := range touched {
		var data string
		err := tx.QueryRowContext(ctx,
			`SELECT data FROM otu_versions WHERE taxid = ? ORDER BY version DESC LIMIT 1`, taxid).Scan(&data)
		if err != nil {
			return imported, fmt.Errorf("reindex %d: %w", taxid, err)
		}
		var o model.OTU
		if err := json.Unmarshal([]byte(data), &o); err != nil {
			return imported, fmt.Errorf("decode otu %d: %w", taxid, err)
		}
		if err := indexAccessions(ctx, tx, &o); err != nil {
			return imported, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return imported, nil
}
