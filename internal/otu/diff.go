package otu

import (
	"sort"

	"github.com/rcliao/ref-builder/internal/model"
)

// Change summarizes what changed between two versions of an OTU.
type Change struct {
	AddedIsolates []model.IsolateName `json:"added_isolates,omitempty"`
	Added         []string            `json:"added,omitempty"`
	Excluded      []string            `json:"excluded,omitempty"`
	Included      []string            `json:"included,omitempty"`
	Bumped        []string            `json:"bumped,omitempty"`
}

// Empty reports whether nothing changed.
func (c Change) Empty() bool {
	return len(c.AddedIsolates) == 0 && len(c.Added) == 0 && len(c.Excluded) == 0 &&
		len(c.Included) == 0 && len(c.Bumped) == 0
}

// Diff compares two versions of the same OTU.
func Diff(before, after *model.OTU) Change {
	var c Change

	for _, iso := range after.Isolates {
		if _, ok := before.Isolate(iso.Name); !ok {
			c.AddedIsolates = append(c.AddedIsolates, iso.Name)
		}
	}

	versions := make(map[string]int)
	for _, iso := range before.Isolates {
		for _, s := range iso.Sequences {
			versions[s.Accession] = s.Version
		}
	}
	for _, iso := range after.Isolates {
		for _, s := range iso.Sequences {
			v, tracked := versions[s.Accession]
			switch {
			case before.IsExcluded(s.Accession):
				c.Included = append(c.Included, s.Accession)
			case !tracked:
				c.Added = append(c.Added, s.Accession)
			case s.Version > v:
				c.Bumped = append(c.Bumped, s.Accession)
			}
		}
	}
	for acc := range after.Excluded {
		if !before.IsExcluded(acc) {
			c.Excluded = append(c.Excluded, acc)
		}
	}

	sort.Strings(c.Added)
	sort.Strings(c.Excluded)
	sort.Strings(c.Included)
	sort.Strings(c.Bumped)
	return c
}

// Supersession pairs an excluded accession with the RefSeq accession that
// replaced it.
type Supersession struct {
	Accession string `json:"accession"`
	By        string `json:"by"`
}

// Supersessions resolves the replacement of each superseded accession in after.
// Accessions without a RefSeq replacement in the same isolate segment are
// skipped.
func Supersessions(after *model.OTU, superseded []string) []Supersession {
	var out []Supersession
	for _, acc := range superseded {
		ex, ok := after.Excluded[acc]
		if !ok {
			continue
		}
		iso, ok := after.IsolateByID(ex.Isolate)
		if !ok {
			continue
		}
		for _, s := range iso.SequencesForSegment(ex.Segment) {
			if s.RefSeq {
				out = append(out, Supersession{Accession: acc, By: s.Accession})
				break
			}
		}
	}
	return out
}
