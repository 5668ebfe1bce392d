package otu

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/rcliao/ref-builder/internal/model"
)

// Validate checks the structural invariants of an OTU: a well-formed plan,
// unique isolates, every sequence on a planned segment, at most one accession
// per segment in an isolate, and no accession tracked twice or both included
// and excluded.
func Validate(o *model.OTU) error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if o.Taxid <= 0 {
		add("taxid must be positive")
	}
	if o.Name == "" {
		add("name is empty")
	}
	if err := o.Plan.Validate(); err != nil {
		add("plan: %v", err)
	}

	names := make(map[model.IsolateName]bool)
	ids := make(map[uuid.UUID]bool)
	owner := make(map[string]model.IsolateName)
	for _, iso := range o.Isolates {
		if names[iso.Name] {
			add("duplicate isolate %s", iso.Name)
		}
		names[iso.Name] = true
		if ids[iso.ID] {
			add("duplicate isolate id %s", iso.ID)
		}
		ids[iso.ID] = true

		filled := make(map[uuid.UUID]string)
		for _, seq := range iso.Sequences {
			seg, ok := o.Plan.SegmentByID(seq.Segment)
			if !ok {
				add("%s: accession %s is linked to unknown segment %s", iso.Name, seq.Accession, seq.Segment)
			} else if prev, ok := filled[seq.Segment]; ok {
				add("%s: segment %s holds both %s and %s", iso.Name, seg.Label(), prev, seq.Accession)
			}
			filled[seq.Segment] = seq.Accession

			if prev, ok := owner[seq.Accession]; ok {
				add("accession %s is in both %s and %s", seq.Accession, prev, iso.Name)
			}
			owner[seq.Accession] = iso.Name

			if o.IsExcluded(seq.Accession) {
				add("accession %s is both included in %s and excluded", seq.Accession, iso.Name)
			}
		}
	}

	for acc, ex := range o.Excluded {
		if ex.Accession != acc {
			add("excluded entry %s records accession %s", acc, ex.Accession)
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// LengthWarnings lists included sequences whose length falls outside their
// segment's tolerance. These do not make the OTU invalid.
func LengthWarnings(o *model.OTU) []string {
	var out []string
	for _, iso := range o.Isolates {
		for _, seq := range iso.Sequences {
			seg, ok := o.Plan.SegmentByID(seq.Segment)
			if !ok || seg.Accepts(seq.Length) {
				continue
			}
			out = append(out, fmt.Sprintf("%s: %s length %d outside %s range %d-%d",
				iso.Name, seq.Accession, seq.Length, seg.Label(), seg.MinLength(), seg.MaxLength()))
		}
	}
	return out
}
