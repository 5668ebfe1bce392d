package otu

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/ref-builder/internal/model"
)

var isolate114813 = model.IsolateName{Type: model.IsolateNameIsolate, Value: "1148-13"}

// newTripartiteOTU builds an OTU whose plan has segments A, B and C, with
// isolate 1148-13 holding only A and B.
func newTripartiteOTU(t *testing.T, e *Engine) *model.OTU {
	t.Helper()
	o, err := e.Create(testTaxid, []model.SequenceRecord{
		newRecord("MF062130", 2575, withIsolate("1148-13"), withSegment("A")),
		newRecord("MF062131", 2494, withIsolate("1148-13"), withSegment("B")),
		newRecord("KX000001", 2575, withIsolate("Mexico"), withSegment("A")),
		newRecord("KX000002", 2494, withIsolate("Mexico"), withSegment("B")),
		newRecord("KX000003", 1200, withIsolate("Mexico"), withSegment("C")),
	})
	require.NoError(t, err)
	return o
}

func TestCreate(t *testing.T) {
	e := newTestEngine(t)

	o, err := e.Create(testTaxid, []model.SequenceRecord{
		newRecord("MF062130", 2575, withIsolate("1148-13"), withSegment("A")),
		newRecord("MF062131", 2494, withIsolate("1148-13"), withSegment("B")),
	})
	require.NoError(t, err)

	assert.Equal(t, testTaxid, o.Taxid)
	assert.Equal(t, "Cucurbit leaf crumple virus", o.Name)
	assert.Equal(t, model.Molecule{
		Type:         model.MolTypeDNA,
		Strandedness: model.StrandednessSingle,
		Topology:     model.TopologyCircular,
	}, o.Molecule)
	assert.Empty(t, o.Excluded)
	require.Len(t, o.Plan.Segments, 2)

	require.Len(t, o.Isolates, 1)
	iso := o.Isolates[0]
	assert.Equal(t, isolate114813, iso.Name)
	assert.Equal(t, []string{"MF062130", "MF062131"}, iso.Accessions())

	a, _ := iso.Sequence("MF062130")
	assert.Equal(t, o.Plan.Segments[0].ID, a.Segment)
	b, _ := iso.Sequence("MF062131")
	assert.Equal(t, o.Plan.Segments[1].ID, b.Segment)

	require.NoError(t, Validate(o))
}

func TestCreateMonopartite(t *testing.T) {
	e := newTestEngine(t)

	o, err := e.Create(testTaxid, []model.SequenceRecord{newRecord("EF546808", 342)})
	require.NoError(t, err)

	require.True(t, o.Plan.Monopartite())
	assert.Nil(t, o.Plan.Segments[0].Name)
	assert.Equal(t, 342, o.Plan.Segments[0].Length)
	assert.Equal(t, model.UnnamedIsolate, o.Isolates[0].Name)
}

func TestCreateSingleNamedSegment(t *testing.T) {
	e := newTestEngine(t)

	o, err := e.Create(testTaxid, []model.SequenceRecord{
		newRecord("MF062130", 2575, withIsolate("1148-13"), withSegment("A")),
		newRecord("MF062140", 2575, withIsolate("1149-13"), withSegment("DNA-A")),
	})
	require.NoError(t, err)
	require.Len(t, o.Plan.Segments, 1)
	assert.Equal(t, "DNA A", o.Plan.Segments[0].Label())
	require.Len(t, o.Isolates, 2)
	for _, iso := range o.Isolates {
		require.Len(t, iso.Sequences, 1)
		assert.Equal(t, o.Plan.Segments[0].ID, iso.Sequences[0].Segment)
	}
	requireExclusive(t, o)

	next, skipped, err := e.Update(o, []model.SequenceRecord{
		newRecord("MF062150", 2575, withIsolate("1150-13"), withSegment("DNA A")),
	})
	require.NoError(t, err)
	assert.Empty(t, skipped)
	iso, ok := next.Isolate(model.IsolateName{Type: model.IsolateNameIsolate, Value: "1150-13"})
	require.True(t, ok)
	assert.Equal(t, []string{"MF062150"}, iso.Accessions())
}

func TestCreateErrors(t *testing.T) {
	e := newTestEngine(t)

	t.Run("duplicate accession", func(t *testing.T) {
		_, err := e.Create(testTaxid, []model.SequenceRecord{
			newRecord("MF062130", 2575, withSegment("A")),
			newRecord("MF062130", 2494, withSegment("B")),
		})
		var dup *DuplicateAccessionError
		require.True(t, errors.As(err, &dup))
		assert.Equal(t, "MF062130", dup.Accession)
	})

	t.Run("wrong taxid", func(t *testing.T) {
		_, err := e.Create(1, []model.SequenceRecord{newRecord("MF062130", 2575)})
		var mismatch *TaxidMismatchError
		assert.True(t, errors.As(err, &mismatch))
	})

	t.Run("inconsistent plan", func(t *testing.T) {
		o, err := e.Create(testTaxid, []model.SequenceRecord{
			newRecord("MF062130", 2575, withIsolate("a"), withSegment("A")),
			newRecord("MF062131", 2575, withIsolate("b"), withSegment("A"), withMolType(model.MolTypeRNA)),
		})
		assert.ErrorIs(t, err, ErrPlanInference)
		assert.Nil(t, o)
	})

	t.Run("no records", func(t *testing.T) {
		_, err := e.Create(testTaxid, nil)
		assert.Error(t, err)
	})
}

func TestUpdateAddsAccessionToExistingIsolate(t *testing.T) {
	e := newTestEngine(t)
	o := newTripartiteOTU(t, e)
	batch := []model.SequenceRecord{
		newRecord("MF062132", 1200, withIsolate("1148-13"), withSegment("C")),
	}

	once, conflicts, err := e.Update(o, batch)
	require.NoError(t, err)
	assert.Empty(t, conflicts)

	iso, ok := once.Isolate(isolate114813)
	require.True(t, ok)
	assert.Equal(t, []string{"MF062130", "MF062131", "MF062132"}, iso.Accessions())
	requireExclusive(t, once)

	twice, conflicts, err := e.Update(once, batch)
	require.NoError(t, err)
	assert.Empty(t, conflicts)
	assert.Equal(t, once, twice)
}

func TestUpdateCreatesIsolate(t *testing.T) {
	e := newTestEngine(t)
	o := newTripartiteOTU(t, e)

	next, _, err := e.Update(o, []model.SequenceRecord{
		newRecord("OQ000001", 2575, withStrain("Jordan"), withSegment("DNA-A")),
		newRecord("OQ000002", 2494, withStrain("Jordan"), withSegment("DNAB")),
	})
	require.NoError(t, err)

	require.Len(t, next.Isolates, 3)
	iso, ok := next.Isolate(model.IsolateName{Type: model.IsolateNameStrain, Value: "Jordan"})
	require.True(t, ok)
	assert.Equal(t, []string{"OQ000001", "OQ000002"}, iso.Accessions())
	assert.Len(t, o.Isolates, 2, "input must not change")

	change := Diff(o, next)
	assert.Equal(t, []string{"OQ000001", "OQ000002"}, change.Added)
	assert.Len(t, change.AddedIsolates, 1)
}

func TestUpdateIsAtomic(t *testing.T) {
	e := newTestEngine(t)
	o := newTripartiteOTU(t, e)
	snapshot := o.Clone()

	testCases := []struct {
		name  string
		batch []model.SequenceRecord
		check func(t *testing.T, err error)
	}{
		{
			name: "unplanned segment",
			batch: []model.SequenceRecord{
				newRecord("OQ000001", 2575, withIsolate("new"), withSegment("A")),
				newRecord("OQ000002", 2575, withIsolate("new"), withSegment("Z")),
			},
			check: func(t *testing.T, err error) {
				var unplanned *UnplannedSegmentError
				require.True(t, errors.As(err, &unplanned))
				assert.Equal(t, "OQ000002", unplanned.Accession)
			},
		},
		{
			name: "missing label",
			batch: []model.SequenceRecord{
				newRecord("OQ000001", 2575, withIsolate("new")),
			},
			check: func(t *testing.T, err error) {
				var unplanned *UnplannedSegmentError
				assert.True(t, errors.As(err, &unplanned))
			},
		},
		{
			name: "incompatible molecule",
			batch: []model.SequenceRecord{
				newRecord("OQ000001", 2575, withIsolate("new"), withSegment("A"), withMolType(model.MolTypeRNA)),
			},
			check: func(t *testing.T, err error) {
				var incompatible *IncompatibleMoleculeError
				assert.True(t, errors.As(err, &incompatible))
			},
		},
		{
			name: "duplicate in batch",
			batch: []model.SequenceRecord{
				newRecord("OQ000001", 2575, withIsolate("new"), withSegment("A")),
				newRecord("OQ000001", 2494, withIsolate("new"), withSegment("B")),
			},
			check: func(t *testing.T, err error) {
				var dup *DuplicateAccessionError
				assert.True(t, errors.As(err, &dup))
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, conflicts, err := e.Update(o, tc.batch)
			assert.Empty(t, conflicts)
			tc.check(t, err)
			assert.Equal(t, snapshot, got)
			assert.Equal(t, snapshot, o)
		})
	}
}

func TestUpdateSkipsExcludedAndFilled(t *testing.T) {
	e := newTestEngine(t)
	o := newTripartiteOTU(t, e)

	o, err := e.Exclude(o, "KX000003")
	require.NoError(t, err)

	next, conflicts, err := e.Update(o, []model.SequenceRecord{
		newRecord("KX000003", 1200, withIsolate("Mexico"), withSegment("C")),
		newRecord("OQ000009", 2575, withIsolate("Mexico"), withSegment("A")),
	})
	require.NoError(t, err)

	require.Len(t, conflicts, 1)
	assert.Equal(t, "OQ000009", conflicts[0].Accession)
	assert.Equal(t, "KX000001", conflicts[0].Existing)
	assert.Equal(t, model.IsolateName{Type: model.IsolateNameIsolate, Value: "Mexico"}, conflicts[0].Isolate)

	assert.True(t, next.IsExcluded("KX000003"))
	iso, _ := next.Isolate(model.IsolateName{Type: model.IsolateNameIsolate, Value: "Mexico"})
	assert.Equal(t, []string{"KX000001", "KX000002"}, iso.Accessions())
	assert.True(t, Diff(o, next).Empty())
	requireExclusive(t, next)
}

func TestUpdateBumpsVersion(t *testing.T) {
	e := newTestEngine(t)
	o := newTripartiteOTU(t, e)

	next, _, err := e.Update(o, []model.SequenceRecord{
		newRecord("MF062130", 2580, withIsolate("1148-13"), withSegment("A"), withVersion(2)),
	})
	require.NoError(t, err)

	iso, _ := next.Isolate(isolate114813)
	seq, _ := iso.Sequence("MF062130")
	assert.Equal(t, 2, seq.Version)
	assert.Equal(t, 2580, seq.Length)
	assert.Equal(t, []string{"MF062130"}, Diff(o, next).Bumped)
}

func TestExcludeInclude(t *testing.T) {
	e := newTestEngine(t)
	o := newTripartiteOTU(t, e)

	excluded, err := e.Exclude(o, "MF062131.1")
	require.NoError(t, err)
	assert.Equal(t, []string{"MF062131"}, excluded.ExcludedAccessions())
	iso, _ := excluded.Isolate(isolate114813)
	assert.Equal(t, []string{"MF062130"}, iso.Accessions())
	requireExclusive(t, excluded)
	assert.Equal(t, []string{"MF062131"}, Diff(o, excluded).Excluded)

	again, err := e.Exclude(excluded, "MF062131")
	require.NoError(t, err)
	assert.Equal(t, excluded, again)

	included, err := e.Include(excluded, "MF062131")
	require.NoError(t, err)
	assert.Empty(t, included.Excluded)
	iso, _ = included.Isolate(isolate114813)
	assert.Equal(t, []string{"MF062130", "MF062131"}, iso.Accessions())
	assert.Equal(t, []string{"MF062131"}, Diff(excluded, included).Included)

	same, err := e.Include(included, "MF062131")
	require.NoError(t, err)
	assert.Equal(t, included, same)
}

func TestExcludeUnknownAccession(t *testing.T) {
	e := newTestEngine(t)
	o := newTripartiteOTU(t, e)

	for _, op := range []func(*model.OTU, string) (*model.OTU, error){e.Exclude, e.Include} {
		got, err := op(o, "ZZ999999")
		var unknown *UnknownAccessionError
		require.True(t, errors.As(err, &unknown))
		assert.Equal(t, o, got)
	}
}

func TestIncludeSegmentConflict(t *testing.T) {
	e := newTestEngine(t)
	o := newTripartiteOTU(t, e)

	o, err := e.Exclude(o, "KX000003")
	require.NoError(t, err)
	o, _, err = e.Update(o, []model.SequenceRecord{
		newRecord("OQ000010", 1190, withIsolate("Mexico"), withSegment("C")),
	})
	require.NoError(t, err)

	_, err = e.Include(o, "KX000003")
	var conflict *SegmentConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "OQ000010", conflict.Existing)
}

func TestAutoexcludeSuperseded(t *testing.T) {
	e := newTestEngine(t)
	o, err := e.Create(testTaxid, []model.SequenceRecord{
		newRecord("EF546808", 342, withIsolate("Ivory Coast")),
	})
	require.NoError(t, err)

	refseq := newRecord("NC_009448", 342, withIsolate("Ivory Coast"))

	next, superseded, err := e.AutoexcludeSuperseded(o, []model.SequenceRecord{refseq})
	require.NoError(t, err)

	assert.Equal(t, []string{"EF546808"}, superseded)
	assert.Equal(t, []string{"EF546808"}, next.ExcludedAccessions())
	assert.Equal(t, []string{"NC_009448"}, next.Isolates[0].Accessions())
	requireExclusive(t, next)
	assert.Equal(t, []Supersession{{Accession: "EF546808", By: "NC_009448"}}, Supersessions(next, superseded))

	again, supersededAgain, err := e.AutoexcludeSuperseded(o, []model.SequenceRecord{refseq})
	require.NoError(t, err)
	assert.Equal(t, superseded, supersededAgain)
	assert.Equal(t, next, again)

	noop, none, err := e.AutoexcludeSuperseded(next, []model.SequenceRecord{refseq})
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.Equal(t, next, noop)
}

func TestAutoexcludeSupersededByComment(t *testing.T) {
	e := newTestEngine(t)
	o := newTripartiteOTU(t, e)

	refseq := newRecord("NC_038464", 2494, withSegment("DNA B"), withComment(
		"PROVISIONAL REFSEQ: This record has not yet been subject to final NCBI review. "+
			"The reference sequence is identical to MF062131."))
	plain := newRecord("OQ000020", 2575, withIsolate("other"), withSegment("A"))

	next, superseded, err := e.AutoexcludeSuperseded(o, []model.SequenceRecord{plain, refseq})
	require.NoError(t, err)

	assert.Equal(t, []string{"MF062131"}, superseded)
	iso, _ := next.Isolate(isolate114813)
	assert.Equal(t, []string{"MF062130", "NC_038464"}, iso.Accessions())
	_, ok := next.FindAccession("OQ000020")
	assert.False(t, ok, "non-refseq records are ignored")

	ex := next.Excluded["MF062131"]
	assert.Equal(t, iso.ID, ex.Isolate)
	assert.Equal(t, []Supersession{{Accession: "MF062131", By: "NC_038464"}}, Supersessions(next, superseded))
	assert.Empty(t, Supersessions(next, []string{"MF062130", "NOPE"}))
}

func TestAutoexcludeSupersededUnplanned(t *testing.T) {
	e := newTestEngine(t)
	o := newTripartiteOTU(t, e)

	got, _, err := e.AutoexcludeSuperseded(o, []model.SequenceRecord{
		newRecord("NC_038465", 2494, withIsolate("1148-13"), withSegment("Q")),
	})
	var unplanned *UnplannedSegmentError
	require.True(t, errors.As(err, &unplanned))
	assert.Equal(t, o, got)
}

func TestValidateDetectsOverlap(t *testing.T) {
	e := newTestEngine(t)
	o := newTripartiteOTU(t, e)

	broken := o.Clone()
	seq := broken.Isolates[0].Sequences[0]
	broken.Excluded[seq.Accession] = model.ExcludedSequence{Sequence: seq, Isolate: broken.Isolates[0].ID}

	var invalid *ValidationError
	require.True(t, errors.As(Validate(broken), &invalid))
	assert.Len(t, invalid.Problems, 1)
}

func TestNewEngineRejectsBadPolicy(t *testing.T) {
	p := DefaultPolicy()
	p.RecommendedThreshold = 1.5
	_, err := NewEngine(p, nil)
	assert.Error(t, err)

	p = DefaultPolicy()
	p.IsolatePrecedence = append(p.IsolatePrecedence, model.IsolateNameIsolate)
	_, err = NewEngine(p, nil)
	assert.Error(t, err)
}
