package model

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// IsolateNameType is the kind of sub-species label an isolate is named by.
type IsolateNameType string

const (
	IsolateNameIsolate IsolateNameType = "isolate"
	IsolateNameStrain  IsolateNameType = "strain"
	IsolateNameClone   IsolateNameType = "clone"
	IsolateNameVariant IsolateNameType = "variant"
	IsolateNameUnnamed IsolateNameType = "unnamed"
)

// ValidIsolateNameTypes are the accepted isolate name types.
var ValidIsolateNameTypes = map[IsolateNameType]bool{
	IsolateNameIsolate: true,
	IsolateNameStrain:  true,
	IsolateNameClone:   true,
	IsolateNameVariant: true,
	IsolateNameUnnamed: true,
}

// IsolateName identifies an isolate within an OTU.
type IsolateName struct {
	Type  IsolateNameType `json:"type"`
	Value string          `json:"value"`
}

// UnnamedIsolate is the synthetic name for records without isolate qualifiers.
var UnnamedIsolate = IsolateName{Type: IsolateNameUnnamed}

func (n IsolateName) String() string {
	if n.Type == IsolateNameUnnamed {
		return "Unnamed"
	}
	t := string(n.Type)
	return strings.ToUpper(t[:1]) + t[1:] + " " + n.Value
}

// Sequence is an accession tracked by an isolate, linked to a plan segment.
type Sequence struct {
	Accession  string    `json:"accession"`
	Version    int       `json:"version"`
	Segment    uuid.UUID `json:"segment"`
	Length     int       `json:"length"`
	RefSeq     bool      `json:"refseq,omitempty"`
	Definition string    `json:"definition,omitempty"`
}

// Isolate is a named sample holding one accession per plan segment at most.
type Isolate struct {
	ID        uuid.UUID   `json:"id"`
	Name      IsolateName `json:"name"`
	Sequences []Sequence  `json:"sequences"`
}

// Accessions returns the isolate's accessions in sorted order.
func (i Isolate) Accessions() []string {
	out := make([]string, 0, len(i.Sequences))
	for _, s := range i.Sequences {
		out = append(out, s.Accession)
	}
	sort.Strings(out)
	return out
}

// Sequence returns the sequence with the given accession.
func (i Isolate) Sequence(accession string) (Sequence, bool) {
	for _, s := range i.Sequences {
		if s.Accession == accession {
			return s, true
		}
	}
	return Sequence{}, false
}

// SequencesForSegment returns the isolate's sequences linked to segment.
func (i Isolate) SequencesForSegment(segment uuid.UUID) []Sequence {
	var out []Sequence
	for _, s := range i.Sequences {
		if s.Segment == segment {
			out = append(out, s)
		}
	}
	return out
}

// ExcludedSequence is an accession removed from curation. It remembers the
// isolate it came from so that it can be included again.
type ExcludedSequence struct {
	Sequence
	Isolate uuid.UUID `json:"isolate"`
}

// OTU is the curated reference record for one taxon.
type OTU struct {
	ID       uuid.UUID `json:"id"`
	Taxid    int       `json:"taxid"`
	Name     string    `json:"name"`
	Acronym  string    `json:"acronym"`
	LegacyID string    `json:"legacy_id,omitempty"`
	Molecule Molecule  `json:"molecule"`
	Plan     Plan      `json:"plan"`
	Isolates []Isolate `json:"isolates"`

	Excluded map[string]ExcludedSequence `json:"excluded_accessions"`
}

// Isolate returns the isolate with the given name.
func (o *OTU) Isolate(name IsolateName) (*Isolate, bool) {
	for i := range o.Isolates {
		if o.Isolates[i].Name == name {
			return &o.Isolates[i], true
		}
	}
	return nil, false
}

// IsolateByID returns the isolate with the given ID.
func (o *OTU) IsolateByID(id uuid.UUID) (*Isolate, bool) {
	for i := range o.Isolates {
		if o.Isolates[i].ID == id {
			return &o.Isolates[i], true
		}
	}
	return nil, false
}

// FindAccession returns the isolate holding accession.
func (o *OTU) FindAccession(accession string) (*Isolate, bool) {
	for i := range o.Isolates {
		if _, ok := o.Isolates[i].Sequence(accession); ok {
			return &o.Isolates[i], true
		}
	}
	return nil, false
}

// Accessions returns every accession included in an isolate, sorted.
func (o *OTU) Accessions() []string {
	var out []string
	for _, iso := range o.Isolates {
		out = append(out, iso.Accessions()...)
	}
	sort.Strings(out)
	return out
}

// ExcludedAccessions returns the excluded accessions, sorted.
func (o *OTU) ExcludedAccessions() []string {
	out := make([]string, 0, len(o.Excluded))
	for acc := range o.Excluded {
		out = append(out, acc)
	}
	sort.Strings(out)
	return out
}

// IsExcluded reports whether accession is excluded.
func (o *OTU) IsExcluded(accession string) bool {
	_, ok := o.Excluded[accession]
	return ok
}

// BlockedAccessions are the accessions that should not be fetched again:
// everything included or excluded.
func (o *OTU) BlockedAccessions() map[string]bool {
	out := make(map[string]bool)
	for _, acc := range o.Accessions() {
		out[acc] = true
	}
	for acc := range o.Excluded {
		out[acc] = true
	}
	return out
}

// Clone returns a deep copy of the OTU.
func (o *OTU) Clone() *OTU {
	c := *o
	c.Plan.Segments = make([]Segment, len(o.Plan.Segments))
	for i, s := range o.Plan.Segments {
		if s.Name != nil {
			n := *s.Name
			s.Name = &n
		}
		c.Plan.Segments[i] = s
	}
	c.Isolates = make([]Isolate, len(o.Isolates))
	for i, iso := range o.Isolates {
		iso.Sequences = append([]Sequence(nil), iso.Sequences...)
		c.Isolates[i] = iso
	}
	c.Excluded = make(map[string]ExcludedSequence, len(o.Excluded))
	for k, v := range o.Excluded {
		c.Excluded[k] = v
	}
	return &c
}

func (o *OTU) String() string {
	return fmt.Sprintf("%s (taxid %d)", o.Name, o.Taxid)
}
