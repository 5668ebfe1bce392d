package otu

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/rcliao/ref-builder/internal/model"
	"github.com/rcliao/ref-builder/internal/ncbi"
)

// Engine creates OTUs and applies changes to them. It holds no OTU state:
// every operation takes an OTU and returns a new value, leaving its input
// untouched. Callers must serialize operations on the same OTU.
type Engine struct {
	policy Policy
	logger *slog.Logger
}

// NewEngine returns an engine using policy. A nil logger discards output.
func NewEngine(policy Policy, logger *slog.Logger) (*Engine, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{policy: policy, logger: logger}, nil
}

// Policy returns the engine's policy.
func (e *Engine) Policy() Policy {
	return e.policy
}

// AccessionKey strips the version from an accession, so "MF062130.1" and
// "MF062130" name the same record.
func AccessionKey(accession string) string {
	key, _, _ := strings.Cut(strings.TrimSpace(accession), ".")
	return key
}

func checkBatch(taxid int, records []model.SequenceRecord) error {
	seen := make(map[string]bool, len(records))
	for _, r := range records {
		if r.Taxid != taxid {
			return &TaxidMismatchError{Accession: r.Accession, Want: taxid, Got: r.Taxid}
		}
		if seen[r.Accession] {
			return &DuplicateAccessionError{Accession: r.Accession}
		}
		seen[r.Accession] = true
	}
	return nil
}

// resolveSegments maps every record onto a segment of the OTU plan, checking
// molecule compatibility on the way.
func resolveSegments(o *model.OTU, records []model.SequenceRecord) (map[string]model.Segment, error) {
	out := make(map[string]model.Segment, len(records))
	for _, r := range records {
		if r.Molecule() != o.Molecule {
			return nil, &IncompatibleMoleculeError{Accession: r.Accession, Want: o.Molecule, Got: r.Molecule()}
		}
		seg, ok := o.Plan.ResolveLabel(r.SegmentLabel())
		if !ok {
			return nil, &UnplannedSegmentError{Accession: r.Accession, Label: r.SegmentLabel()}
		}
		out[r.Accession] = seg
	}
	return out, nil
}

func newSequence(r model.SequenceRecord, segment uuid.UUID) model.Sequence {
	return model.Sequence{
		Accession:  r.Accession,
		Version:    r.Version,
		Segment:    segment,
		Length:     r.Length(),
		RefSeq:     r.RefSeq,
		Definition: r.Definition,
	}
}

// Create builds a new OTU for taxid from an initial batch of records. No OTU
// is produced if grouping or plan inference fails.
func (e *Engine) Create(taxid int, records []model.SequenceRecord) (*model.OTU, error) {
	if len(records) == 0 {
		return nil, errors.New("cannot create an otu from no records")
	}
	if err := checkBatch(taxid, records); err != nil {
		return nil, err
	}
	groups, err := GroupRecords(records, e.policy)
	if err != nil {
		return nil, err
	}
	molecule, err := MoleculeFromRecords(records)
	if err != nil {
		return nil, err
	}
	plan, err := InferPlan(groups, molecule, e.policy)
	if err != nil {
		return nil, err
	}

	name := records[0].Organism
	for _, r := range records {
		if r.RefSeq {
			name = r.Organism
			break
		}
	}

	o := &model.OTU{
		ID:       uuid.New(),
		Taxid:    taxid,
		Name:     name,
		Molecule: molecule,
		Plan:     plan,
		Excluded: make(map[string]model.ExcludedSequence),
	}

	for _, g := range groups {
		iso := model.Isolate{ID: uuid.New(), Name: g.Name}
		for _, r := range g.Records {
			var seg model.Segment
			if plan.Monopartite() && plan.Segments[0].Name == nil {
				seg = plan.Segments[0]
			} else {
				n, _ := model.SegmentNameFromLabel(r.SegmentLabel(), molecule.Type)
				seg, _ = plan.SegmentByName(n)
			}
			iso.Sequences = append(iso.Sequences, newSequence(r, seg.ID))
		}
		o.Isolates = append(o.Isolates, iso)
	}

	if err := Validate(o); err != nil {
		return nil, err
	}

	e.logger.Info("otu created",
		"taxid", taxid,
		"name", o.Name,
		"segments", len(plan.Segments),
		"isolates", len(o.Isolates),
		"monopartite", plan.Monopartite(),
	)
	return o, nil
}

// Update merges a batch of records into o and returns the merged OTU.
//
// The whole batch is checked against the OTU molecule and plan before
// anything changes; on error o is returned unchanged. Accessions that are
// already tracked or excluded are skipped, so repeating an update is a no-op.
// Records whose isolate already holds another accession for their segment
// are not merged; they are returned as conflicts, sorted by accession.
func (e *Engine) Update(o *model.OTU, records []model.SequenceRecord) (*model.OTU, []*SegmentConflictError, error) {
	if len(records) == 0 {
		return o.Clone(), nil, nil
	}
	if err := checkBatch(o.Taxid, records); err != nil {
		return o, nil, err
	}
	segments, err := resolveSegments(o, records)
	if err != nil {
		return o, nil, err
	}
	groups, err := GroupRecords(records, e.policy)
	if err != nil {
		return o, nil, err
	}

	log := e.logger.With("taxid", o.Taxid)
	next := o.Clone()
	var added []string
	var conflicts []*SegmentConflictError

	for _, g := range groups {
		var fresh *model.Isolate
		target, exists := next.Isolate(g.Name)
		if !exists {
			fresh = &model.Isolate{ID: uuid.New(), Name: g.Name}
			target = fresh
		}

		for _, r := range g.Records {
			if next.IsExcluded(r.Accession) {
				log.Debug("skipping excluded accession", "accession", r.Accession)
				continue
			}
			if holder, ok := next.FindAccession(r.Accession); ok {
				bumpVersion(holder, r)
				continue
			}
			seg := segments[r.Accession]
			if filled := target.SequencesForSegment(seg.ID); len(filled) > 0 {
				log.Warn("segment already filled, skipping record",
					"isolate", g.Name.String(),
					"segment", seg.Label(),
					"accession", r.Accession,
					"existing", filled[0].Accession,
				)
				conflicts = append(conflicts, &SegmentConflictError{
					Isolate:   g.Name,
					Segment:   seg.Label(),
					Accession: r.Accession,
					Existing:  filled[0].Accession,
				})
				continue
			}
			target.Sequences = append(target.Sequences, newSequence(r, seg.ID))
			added = append(added, r.Accession)
		}

		if fresh != nil && len(fresh.Sequences) > 0 {
			next.Isolates = append(next.Isolates, *fresh)
		}
	}

	if err := Validate(next); err != nil {
		return o, nil, err
	}
	if len(added) > 0 {
		sort.Strings(added)
		log.Info("otu updated", "added", added)
	}
	sort.Slice(conflicts, func(i, j int) bool { return conflicts[i].Accession < conflicts[j].Accession })
	return next, conflicts, nil
}

func bumpVersion(iso *model.Isolate, r model.SequenceRecord) {
	for i := range iso.Sequences {
		s := &iso.Sequences[i]
		if s.Accession == r.Accession && r.Version > s.Version {
			s.Version = r.Version
			s.Length = r.Length()
			s.Definition = r.Definition
		}
	}
}

func removeSequence(iso *model.Isolate, accession string) (model.Sequence, bool) {
	for i, s := range iso.Sequences {
		if s.Accession == accession {
			iso.Sequences = slices.Delete(iso.Sequences, i, i+1)
			return s, true
		}
	}
	return model.Sequence{}, false
}

// Exclude moves an included accession to the excluded set. Excluding an
// accession that is already excluded changes nothing.
func (e *Engine) Exclude(o *model.OTU, accession string) (*model.OTU, error) {
	acc := AccessionKey(accession)
	if o.IsExcluded(acc) {
		return o.Clone(), nil
	}
	next := o.Clone()
	iso, ok := next.FindAccession(acc)
	if !ok {
		return o, &UnknownAccessionError{Accession: acc}
	}
	seq, _ := removeSequence(iso, acc)
	next.Excluded[acc] = model.ExcludedSequence{Sequence: seq, Isolate: iso.ID}

	if err := Validate(next); err != nil {
		return o, err
	}
	e.logger.Info("accession excluded", "taxid", o.Taxid, "accession", acc, "isolate", iso.Name.String())
	return next, nil
}

// Include moves an excluded accession back into the isolate it was excluded
// from. Including an accession that is already included changes nothing.
func (e *Engine) Include(o *model.OTU, accession string) (*model.OTU, error) {
	acc := AccessionKey(accession)
	if _, ok := o.FindAccession(acc); ok {
		return o.Clone(), nil
	}
	ex, ok := o.Excluded[acc]
	if !ok {
		return o, &UnknownAccessionError{Accession: acc}
	}

	next := o.Clone()
	iso, ok := next.IsolateByID(ex.Isolate)
	if !ok {
		return o, fmt.Errorf("isolate %s of excluded accession %s no longer exists", ex.Isolate, acc)
	}
	if filled := iso.SequencesForSegment(ex.Segment); len(filled) > 0 {
		seg, _ := next.Plan.SegmentByID(ex.Segment)
		return o, &SegmentConflictError{Isolate: iso.Name, Segment: seg.Label(), Accession: acc, Existing: filled[0].Accession}
	}
	iso.Sequences = append(iso.Sequences, ex.Sequence)
	delete(next.Excluded, acc)

	if err := Validate(next); err != nil {
		return o, err
	}
	e.logger.Info("accession included", "taxid", o.Taxid, "accession", acc, "isolate", iso.Name.String())
	return next, nil
}

// AutoexcludeSuperseded promotes RefSeq records. For each RefSeq record whose
// isolate already holds non-RefSeq accessions for the same segment, those
// accessions are excluded and the RefSeq accession takes their place. The
// isolate is found through the predecessor accession named in the RefSeq
// comment, or else by isolate name.
//
// Records are processed in accession order and the superseded accessions are
// returned sorted, so identical input always gives the same result.
func (e *Engine) AutoexcludeSuperseded(o *model.OTU, records []model.SequenceRecord) (*model.OTU, []string, error) {
	var refseq []model.SequenceRecord
	for _, r := range records {
		if r.RefSeq {
			refseq = append(refseq, r)
		}
	}
	if len(refseq) == 0 {
		return o.Clone(), nil, nil
	}
	sort.Slice(refseq, func(i, j int) bool { return refseq[i].Accession < refseq[j].Accession })

	if err := checkBatch(o.Taxid, refseq); err != nil {
		return o, nil, err
	}
	segments, err := resolveSegments(o, refseq)
	if err != nil {
		return o, nil, err
	}

	log := e.logger.With("taxid", o.Taxid)
	next := o.Clone()
	var superseded []string

	for _, r := range refseq {
		if next.IsExcluded(r.Accession) {
			continue
		}
		seg := segments[r.Accession]

		target, predecessor, err := e.promotionTarget(next, r)
		if err != nil {
			return o, nil, err
		}
		if target == nil {
			log.Debug("no isolate to promote into", "accession", r.Accession)
			continue
		}

		var replaced []string
		for _, s := range target.Sequences {
			if s.Accession == r.Accession || s.RefSeq {
				continue
			}
			if s.Segment == seg.ID || s.Accession == predecessor {
				replaced = append(replaced, s.Accession)
			}
		}
		if len(replaced) == 0 {
			continue
		}
		for _, acc := range replaced {
			seq, _ := removeSequence(target, acc)
			next.Excluded[acc] = model.ExcludedSequence{Sequence: seq, Isolate: target.ID}
		}
		superseded = append(superseded, replaced...)

		if _, ok := next.FindAccession(r.Accession); ok {
			continue
		}
		if filled := target.SequencesForSegment(seg.ID); len(filled) > 0 {
			log.Warn("segment already holds a refseq accession",
				"isolate", target.Name.String(), "segment", seg.Label(), "accession", r.Accession)
			continue
		}
		target.Sequences = append(target.Sequences, newSequence(r, seg.ID))
	}

	if err := Validate(next); err != nil {
		return o, nil, err
	}
	sort.Strings(superseded)
	if len(superseded) > 0 {
		log.Info("superseded accessions excluded", "excluded", superseded)
	}
	return next, superseded, nil
}

func (e *Engine) promotionTarget(o *model.OTU, r model.SequenceRecord) (*model.Isolate, string, error) {
	if iso, ok := o.FindAccession(r.Accession); ok {
		return iso, "", nil
	}
	var predecessor string
	if _, acc, err := ncbi.ParseRefSeqComment(r.Comment); err == nil {
		predecessor = AccessionKey(acc)
		if iso, ok := o.FindAccession(predecessor); ok {
			return iso, predecessor, nil
		}
	}
	name, err := IsolateName(r, e.policy.IsolatePrecedence)
	if err != nil {
		return nil, "", err
	}
	if name == model.UnnamedIsolate {
		return nil, predecessor, nil
	}
	iso, _ := o.Isolate(name)
	return iso, predecessor, nil
}
