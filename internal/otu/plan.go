package otu

import (
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/rcliao/ref-builder/internal/model"
)

// MoleculeFromRecords returns the molecule of the first RefSeq record, or of
// the first record if there is none.
func MoleculeFromRecords(records []model.SequenceRecord) (model.Molecule, error) {
	if len(records) == 0 {
		return model.Molecule{}, fmt.Errorf("%w: no records", ErrPlanInference)
	}
	for _, r := range records {
		if r.RefSeq {
			return r.Molecule(), nil
		}
	}
	return records[0].Molecule(), nil
}

type segmentStats struct {
	name     *model.SegmentName
	label    string
	lengths  []int
	groups   int
	molecule model.Molecule
}

func (s *segmentStats) observe(r model.SequenceRecord) error {
	if len(s.lengths) == 0 {
		s.molecule = r.Molecule()
	} else if r.Molecule() != s.molecule {
		return &InconsistentPlanError{
			Segment: s.label,
			Reason:  fmt.Sprintf("record %s is %s but earlier records are %s", r.Accession, r.Molecule(), s.molecule),
		}
	}
	s.lengths = append(s.lengths, r.Length())
	return nil
}

// InferPlan infers a plan from the isolate groups of a new OTU.
//
// The plan is monopartite when every group has exactly one record and no
// record carries a segment label. Otherwise each distinct label becomes a
// named segment, in first-observed order across groups.
func InferPlan(groups Grouping, molecule model.Molecule, policy Policy) (model.Plan, error) {
	if len(groups) == 0 {
		return model.Plan{}, &InconsistentPlanError{Reason: "no isolate groups"}
	}

	monopartite := true
	for _, g := range groups {
		if len(g.Records) != 1 || g.Records[0].SegmentLabel() != "" {
			monopartite = false
			break
		}
	}

	var stats []*segmentStats
	if monopartite {
		s := &segmentStats{label: "(unnamed)"}
		for _, g := range groups {
			if err := s.observe(g.Records[0]); err != nil {
				return model.Plan{}, err
			}
			s.groups++
		}
		stats = append(stats, s)
	} else {
		index := make(map[model.SegmentName]*segmentStats)
		for _, g := range groups {
			inGroup := make(map[model.SegmentName]bool)
			for _, r := range g.Records {
				label := r.SegmentLabel()
				name, ok := model.SegmentNameFromLabel(label, molecule.Type)
				if !ok {
					return model.Plan{}, &InconsistentPlanError{
						Segment: label,
						Reason:  fmt.Sprintf("record %s has no usable segment name in a multipartite plan", r.Accession),
					}
				}
				if inGroup[name] {
					return model.Plan{}, &InconsistentPlanError{
						Segment: name.String(),
						Reason:  fmt.Sprintf("%s has more than one record for the segment", g.Name),
					}
				}
				inGroup[name] = true

				s, ok := index[name]
				if !ok {
					n := name
					s = &segmentStats{name: &n, label: n.String()}
					index[name] = s
					stats = append(stats, s)
				}
				if err := s.observe(r); err != nil {
					return model.Plan{}, err
				}
				s.groups++
			}
		}
	}

	plan := model.Plan{ID: uuid.New()}
	for _, s := range stats {
		length := representativeLength(s.lengths)
		tolerance, err := lengthTolerance(s.lengths, length, policy.DefaultLengthTolerance)
		if err != nil {
			return model.Plan{}, &InconsistentPlanError{Segment: s.label, Reason: err.Error()}
		}
		plan.Segments = append(plan.Segments, model.Segment{
			ID:              uuid.New(),
			Name:            s.name,
			Length:          length,
			LengthTolerance: tolerance,
			Rule:            segmentRule(s.groups, len(groups), policy.RecommendedThreshold),
		})
	}

	if err := plan.Validate(); err != nil {
		return model.Plan{}, &InconsistentPlanError{Reason: err.Error()}
	}
	return plan, nil
}

// representativeLength returns the most frequent length, preferring the
// shortest on ties.
func representativeLength(lengths []int) int {
	counts := make(map[int]int, len(lengths))
	for _, l := range lengths {
		counts[l]++
	}
	distinct := make([]int, 0, len(counts))
	for l := range counts {
		distinct = append(distinct, l)
	}
	sort.Ints(distinct)

	best := distinct[0]
	for _, l := range distinct[1:] {
		if counts[l] > counts[best] {
			best = l
		}
	}
	return best
}

// lengthTolerance widens the default tolerance to cover the observed spread
// around the representative length. The result is rounded up to four places.
func lengthTolerance(lengths []int, representative int, minimum float64) (float64, error) {
	var spread float64
	for _, l := range lengths {
		d := math.Abs(float64(l-representative)) / float64(representative)
		spread = math.Max(spread, d)
	}
	if spread <= minimum {
		return minimum, nil
	}
	tolerance := math.Ceil(spread*1e4-1e-9) / 1e4
	if tolerance >= 1 {
		return 0, fmt.Errorf("observed lengths spread %.2f beyond any tolerance", spread)
	}
	return tolerance, nil
}

func segmentRule(present, groups int, threshold float64) model.SegmentRule {
	switch {
	case present == groups:
		return model.SegmentRequired
	case float64(present)/float64(groups) > threshold:
		return model.SegmentRecommended
	default:
		return model.SegmentOptional
	}
}
