package otu

import (
	"errors"
	"strings"

	"github.com/rcliao/ref-builder/internal/model"
)

// Group is the records of one isolate, in input order.
type Group struct {
	Name    model.IsolateName
	Records []model.SequenceRecord
}

// Grouping is a list of isolate groups ordered by the first appearance of
// each isolate in the input batch.
type Grouping []Group

// Get returns the group with the given isolate name.
func (g Grouping) Get(name model.IsolateName) (Group, bool) {
	for _, grp := range g {
		if grp.Name == name {
			return grp, true
		}
	}
	return Group{}, false
}

// IsolateName derives the isolate name of a record from its source
// qualifiers. The first qualifier in precedence that is present wins; its
// value is trimmed and keeps its case. Records with none of the qualifiers
// are unnamed.
func IsolateName(r model.SequenceRecord, precedence []model.IsolateNameType) (model.IsolateName, error) {
	for i, t := range precedence {
		v, ok := r.Source.Qualifier(string(t))
		if !ok {
			continue
		}
		if v = strings.TrimSpace(v); v != "" {
			return model.IsolateName{Type: t, Value: v}, nil
		}
		for _, lower := range precedence[i+1:] {
			if w, ok := r.Source.Qualifier(string(lower)); ok && strings.TrimSpace(w) != "" {
				return model.IsolateName{}, &AmbiguousIsolateError{Accession: r.Accession, Chosen: t, Other: lower}
			}
		}
		break
	}
	return model.UnnamedIsolate, nil
}

// GroupRecords partitions records of one taxon into isolate groups.
func GroupRecords(records []model.SequenceRecord, policy Policy) (Grouping, error) {
	if len(records) == 0 {
		return nil, errors.New("no records to group")
	}
	taxid := records[0].Taxid

	var out Grouping
	index := make(map[model.IsolateName]int)
	for _, r := range records {
		if r.Taxid != taxid {
			return nil, &TaxidMismatchError{Accession: r.Accession, Want: taxid, Got: r.Taxid}
		}
		name, err := IsolateName(r, policy.IsolatePrecedence)
		if err != nil {
			return nil, err
		}
		i, ok := index[name]
		if !ok {
			i = len(out)
			index[name] = i
			out = append(out, Group{Name: name})
		}
		out[i].Records = append(out[i].Records, r)
	}
	return out, nil
}
