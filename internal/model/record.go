package model

import "strings"

// Source holds the attributes of a record's source feature table.
//
// Qualifiers keeps every qualifier as submitted, so that the presence of an
// empty value can be told apart from an absent qualifier.
type Source struct {
	Taxid        int               `json:"taxid"`
	Organism     string            `json:"organism"`
	MolType      SourceMolType     `json:"mol_type"`
	Host         string            `json:"host,omitempty"`
	Segment      string            `json:"segment,omitempty"`
	Proviral     bool              `json:"proviral,omitempty"`
	Macronuclear bool              `json:"macronuclear,omitempty"`
	Transgenic   bool              `json:"transgenic,omitempty"`
	Qualifiers   map[string]string `json:"qualifiers,omitempty"`
}

// Qualifier returns the raw value of a qualifier and whether it was present.
func (s Source) Qualifier(name string) (string, bool) {
	v, ok := s.Qualifiers[name]
	return v, ok
}

// SequenceRecord is a normalized archive record. It is never modified after
// normalization.
type SequenceRecord struct {
	Accession        string       `json:"accession"`
	AccessionVersion string       `json:"accession_version"`
	Version          int          `json:"version"`
	Organism         string       `json:"organism"`
	Taxid            int          `json:"taxid"`
	Sequence         string       `json:"sequence"`
	MolType          MolType      `json:"moltype"`
	Strandedness     Strandedness `json:"strandedness"`
	Topology         Topology     `json:"topology"`
	RefSeq           bool         `json:"refseq"`
	Comment          string       `json:"comment,omitempty"`
	Definition       string       `json:"definition"`
	Source           Source       `json:"source"`
}

// Length is the length of the record's sequence.
func (r SequenceRecord) Length() int {
	return len(r.Sequence)
}

// SegmentLabel is the trimmed segment qualifier of the record's source.
func (r SequenceRecord) SegmentLabel() string {
	return strings.TrimSpace(r.Source.Segment)
}

// Molecule returns the molecule attributes of the record.
func (r SequenceRecord) Molecule() Molecule {
	return Molecule{Type: r.MolType, Strandedness: r.Strandedness, Topology: r.Topology}
}
