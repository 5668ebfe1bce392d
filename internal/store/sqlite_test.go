package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/rcliao/ref-builder/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewSQLiteStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// newTestOTU builds a monopartite OTU holding the given accessions in one
// isolate.
func newTestOTU(taxid int, name string, accessions ...string) *model.OTU {
	seg := model.Segment{ID: uuid.New(), Length: 342, LengthTolerance: model.DefaultLengthTolerance, Rule: model.SegmentRequired}
	iso := model.Isolate{ID: uuid.New(), Name: model.IsolateName{Type: model.IsolateNameIsolate, Value: "A"}}
	for _, acc := range accessions {
		iso.Sequences = append(iso.Sequences, model.Sequence{Accession: acc, Version: 1, Segment: seg.ID, Length: 342})
	}
	return &model.OTU{
		ID:       uuid.New(),
		Taxid:    taxid,
		Name:     name,
		Acronym:  "TV",
		Molecule: model.Molecule{Type: model.MolTypeDNA, Strandedness: model.StrandednessSingle, Topology: model.TopologyCircular},
		Plan:     model.Plan{ID: uuid.New(), Segments: []model.Segment{seg}},
		Isolates: []model.Isolate{iso},
		Excluded: map[string]model.ExcludedSequence{},
	}
}

// exclude moves an accession of the first isolate into the excluded set.
func exclude(o *model.OTU, accession string) *model.OTU {
	next := o.Clone()
	iso := &next.Isolates[0]
	for i, s := range iso.Sequences {
		if s.Accession == accession {
			next.Excluded[accession] = model.ExcludedSequence{Sequence: s, Isolate: iso.ID}
			iso.Sequences = append(iso.Sequences[:i], iso.Sequences[i+1:]...)
			break
		}
	}
	return next
}

func TestSaveAndGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	o := newTestOTU(12345, "Test virus", "EF546808")
	v, err := s.Save(ctx, SaveParams{OTU: o, Action: model.ActionCreate})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if v.Version != 1 {
		t.Errorf("expected version 1, got %d", v.Version)
	}
	if v.ID == "" {
		t.Error("expected non-empty ID")
	}
	if v.Supersedes != "" {
		t.Errorf("expected no supersedes, got %q", v.Supersedes)
	}

	got, err := s.Get(ctx, GetParams{Taxid: 12345})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 result, got %d", len(got))
	}
	if got[0].Action != model.ActionCreate {
		t.Errorf("expected create action, got %q", got[0].Action)
	}
	if got[0].OTU.ID != o.ID || got[0].OTU.Isolates[0].Accessions()[0] != "EF546808" {
		t.Errorf("otu not round-tripped: %+v", got[0].OTU)
	}
	if got[0].OTU.Plan.Segments[0].ID != o.Plan.Segments[0].ID {
		t.Error("segment id not preserved")
	}
}

func TestSaveCreateTwice(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	o := newTestOTU(12345, "Test virus", "EF546808")
	if _, err := s.Save(ctx, SaveParams{OTU: o, Action: model.ActionCreate}); err != nil {
		t.Fatalf("save: %v", err)
	}
	_, err := s.Save(ctx, SaveParams{OTU: o, Action: model.ActionCreate})
	if !errors.Is(err, ErrExists) {
		t.Errorf("expected ErrExists, got %v", err)
	}
}

func TestSaveUpdateMissing(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Save(ctx, SaveParams{OTU: newTestOTU(1, "x", "A1"), Action: model.ActionUpdate, Base: 1})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	_, err = s.Save(ctx, SaveParams{OTU: newTestOTU(1, "x", "A1"), Action: "rename"})
	if err == nil {
		t.Error("expected invalid action error")
	}
}

func TestVersioning(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	o := newTestOTU(12345, "Test virus", "EF546808", "EF546809")
	v1, _ := s.Save(ctx, SaveParams{OTU: o, Action: model.ActionCreate})
	v2, err := s.Save(ctx, SaveParams{OTU: exclude(o, "EF546809"), Action: model.ActionExclude, Base: 1})
	if err != nil {
		t.Fatalf("save v2: %v", err)
	}

	if v2.Version != 2 {
		t.Errorf("expected version 2, got %d", v2.Version)
	}
	if v2.Supersedes != v1.ID {
		t.Errorf("expected supersedes %q, got %q", v1.ID, v2.Supersedes)
	}

	got, _ := s.Get(ctx, GetParams{Taxid: 12345})
	if !got[0].OTU.IsExcluded("EF546809") {
		t.Error("expected latest to exclude EF546809")
	}

	hist, _ := s.Get(ctx, GetParams{Taxid: 12345, History: true})
	if len(hist) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(hist))
	}
	if hist[0].Version != 2 || hist[1].Version != 1 {
		t.Errorf("expected newest first, got %d, %d", hist[0].Version, hist[1].Version)
	}

	first, _ := s.Get(ctx, GetParams{Taxid: 12345, Version: 1})
	if first[0].OTU.IsExcluded("EF546809") {
		t.Error("version 1 should not exclude EF546809")
	}

	if _, err := s.Get(ctx, GetParams{Taxid: 12345, Version: 9}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing version, got %v", err)
	}
}

func TestSaveConflict(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	o := newTestOTU(12345, "Test virus", "EF546808", "EF546809")
	s.Save(ctx, SaveParams{OTU: o, Action: model.ActionCreate})
	s.Save(ctx, SaveParams{OTU: exclude(o, "EF546809"), Action: model.ActionExclude, Base: 1})

	_, err := s.Save(ctx, SaveParams{OTU: exclude(o, "EF546808"), Action: model.ActionExclude, Base: 1})
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if conflict.Latest != 2 {
		t.Errorf("expected latest 2, got %d", conflict.Latest)
	}
}

func TestList(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Save(ctx, SaveParams{OTU: newTestOTU(1, "Alpha virus", "A1"), Action: model.ActionCreate})
	s.Save(ctx, SaveParams{OTU: newTestOTU(2, "Beta virus", "B1"), Action: model.ActionCreate})
	s.Save(ctx, SaveParams{OTU: newTestOTU(3, "Gamma satellite", "C1"), Action: model.ActionCreate})

	all, _ := s.List(ctx, ListParams{})
	if len(all) != 3 {
		t.Errorf("expected 3, got %d", len(all))
	}
	if all[0].Name != "Alpha virus" {
		t.Errorf("expected name order, got %q first", all[0].Name)
	}

	viruses, _ := s.List(ctx, ListParams{Name: "virus"})
	if len(viruses) != 2 {
		t.Errorf("expected 2, got %d", len(viruses))
	}
}

func TestListShowsLatestVersion(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	o := newTestOTU(1, "Alpha virus", "A1", "A2")
	s.Save(ctx, SaveParams{OTU: o, Action: model.ActionCreate})
	s.Save(ctx, SaveParams{OTU: exclude(o, "A2"), Action: model.ActionExclude, Base: 1})

	list, _ := s.List(ctx, ListParams{})
	if len(list) != 1 {
		t.Fatalf("expected 1 (latest only), got %d", len(list))
	}
	if list[0].Version != 2 {
		t.Errorf("expected latest version 2, got %d", list[0].Version)
	}
}

func TestDBPathCreation(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sub", "dir", "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("expected db file to be created")
	}
}

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	src := newTestStore(t)

	o := newTestOTU(1, "Alpha virus", "A1", "A2")
	src.Save(ctx, SaveParams{OTU: o, Action: model.ActionCreate})
	src.Save(ctx, SaveParams{OTU: exclude(o, "A2"), Action: model.ActionExclude, Base: 1})
	src.Save(ctx, SaveParams{OTU: newTestOTU(2, "Beta virus", "B1"), Action: model.ActionCreate})

	exported, err := src.ExportAll(ctx, 0)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(exported) != 3 {
		t.Fatalf("expected 3 versions, got %d", len(exported))
	}

	one, _ := src.ExportAll(ctx, 2)
	if len(one) != 1 {
		t.Errorf("expected 1 version for taxid 2, got %d", len(one))
	}

	dst := newTestStore(t)
	n, err := dst.Import(ctx, exported)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 imported, got %d", n)
	}

	n, err = dst.Import(ctx, exported)
	if err != nil {
		t.Fatalf("reimport: %v", err)
	}
	if n != 0 {
		t.Errorf("expected duplicates skipped, got %d imported", n)
	}

	latest, err := dst.Latest(ctx, 1)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.Version != 2 || !latest.OTU.IsExcluded("A2") {
		t.Errorf("unexpected latest after import: %+v", latest)
	}

	results, _ := dst.Search(ctx, SearchParams{Query: "A2"})
	if len(results) != 1 || !results[0].Excluded {
		t.Errorf("expected accession index rebuilt on import, got %+v", results)
	}
}

func TestImportRejectsInconsistent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Import(ctx, []model.OTUVersion{{Taxid: 1, Version: 1}})
	if err == nil {
		t.Error("expected error for missing otu")
	}
	_, err = s.Import(ctx, []model.OTUVersion{{Taxid: 2, Version: 1, OTU: newTestOTU(1, "x", "A1")}})
	if err == nil {
		t.Error("expected error for taxid mismatch")
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "stats.db")
	s2, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	defer s2.Close()

	o := newTestOTU(1, "Alpha virus", "A1", "A2")
	s2.Save(ctx, SaveParams{OTU: o, Action: model.ActionCreate})
	s2.Save(ctx, SaveParams{OTU: exclude(o, "A2"), Action: model.ActionExclude, Base: 1})

	st, err := s2.Stats(ctx, dbPath)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.TotalVersions != 2 || st.OTUs != 1 {
		t.Errorf("unexpected counts %+v", st)
	}
	if st.Accessions != 1 || st.ExcludedAccessions != 1 {
		t.Errorf("unexpected accession counts %+v", st)
	}
	if st.DBSizeBytes == 0 {
		t.Error("expected non-zero db size")
	}
	if len(st.Actions) != 2 {
		t.Errorf("expected 2 actions, got %+v", st.Actions)
	}
}
