package otu

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rcliao/ref-builder/internal/model"
)

const testTaxid = 345184

type recordOpt func(*model.SequenceRecord)

func newRecord(accession string, length int, opts ...recordOpt) model.SequenceRecord {
	r := model.SequenceRecord{
		Accession:        accession,
		AccessionVersion: accession + ".1",
		Version:          1,
		Organism:         "Cucurbit leaf crumple virus",
		Taxid:            testTaxid,
		Sequence:         strings.Repeat("A", length),
		MolType:          model.MolTypeDNA,
		Strandedness:     model.StrandednessSingle,
		Topology:         model.TopologyCircular,
		RefSeq:           strings.HasPrefix(accession, "NC_"),
		Definition:       "Cucurbit leaf crumple virus " + accession,
		Source: model.Source{
			Taxid:      testTaxid,
			Organism:   "Cucurbit leaf crumple virus",
			MolType:    "genomic DNA",
			Qualifiers: map[string]string{},
		},
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

func qualifier(name, value string) recordOpt {
	return func(r *model.SequenceRecord) { r.Source.Qualifiers[name] = value }
}

func withIsolate(v string) recordOpt { return qualifier("isolate", v) }
func withStrain(v string) recordOpt  { return qualifier("strain", v) }
func withClone(v string) recordOpt   { return qualifier("clone", v) }

func withSegment(label string) recordOpt {
	return func(r *model.SequenceRecord) {
		r.Source.Segment = label
		r.Source.Qualifiers["segment"] = label
	}
}

func withVersion(v int) recordOpt {
	return func(r *model.SequenceRecord) { r.Version = v }
}

func withComment(c string) recordOpt {
	return func(r *model.SequenceRecord) { r.Comment = c }
}

func withMolType(m model.MolType) recordOpt {
	return func(r *model.SequenceRecord) { r.MolType = m }
}

func withTaxid(taxid int) recordOpt {
	return func(r *model.SequenceRecord) {
		r.Taxid = taxid
		r.Source.Taxid = taxid
	}
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(DefaultPolicy(), nil)
	require.NoError(t, err)
	return e
}

// requireExclusive asserts that no accession is both included and excluded
// and that no accession is in two isolates.
func requireExclusive(t *testing.T, o *model.OTU) {
	t.Helper()
	seen := map[string]bool{}
	for _, iso := range o.Isolates {
		for _, acc := range iso.Accessions() {
			require.False(t, seen[acc], "accession %s in two isolates", acc)
			seen[acc] = true
			require.False(t, o.IsExcluded(acc), "accession %s included and excluded", acc)
		}
	}
}
