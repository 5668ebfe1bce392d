package otu

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rcliao/ref-builder/internal/model"
)

// ErrPlanInference matches every failure to infer a plan.
var ErrPlanInference = errors.New("plan inference failed")

// AmbiguousIsolateError is returned when the chosen isolate qualifier is empty
// while a lower-precedence one has a value. It needs human review.
type AmbiguousIsolateError struct {
	Accession string
	Chosen    model.IsolateNameType
	Other     model.IsolateNameType
}

func (e *AmbiguousIsolateError) Error() string {
	return fmt.Sprintf("ambiguous isolate name for %s: %s qualifier is empty but %s is set",
		e.Accession, e.Chosen, e.Other)
}

// InconsistentPlanError is returned when records cannot form one plan.
type InconsistentPlanError struct {
	Segment string
	Reason  string
}

func (e *InconsistentPlanError) Error() string {
	if e.Segment == "" {
		return "inconsistent plan: " + e.Reason
	}
	return fmt.Sprintf("inconsistent plan: segment %s: %s", e.Segment, e.Reason)
}

func (e *InconsistentPlanError) Unwrap() error { return ErrPlanInference }

// DuplicateAccessionError is returned when an accession appears twice in
// one batch.
type DuplicateAccessionError struct {
	Accession string
}

func (e *DuplicateAccessionError) Error() string {
	return fmt.Sprintf("duplicate accession %s in batch", e.Accession)
}

// UnplannedSegmentError is returned when a record's segment label does not map
// onto a segment of the OTU plan.
type UnplannedSegmentError struct {
	Accession string
	Label     string
}

func (e *UnplannedSegmentError) Error() string {
	label := e.Label
	if label == "" {
		label = "(none)"
	}
	return fmt.Sprintf("record %s has segment label %s which is not in the plan", e.Accession, label)
}

// UnknownAccessionError is returned when an accession is not tracked by the
// OTU.
type UnknownAccessionError struct {
	Accession string
}

func (e *UnknownAccessionError) Error() string {
	return fmt.Sprintf("accession %s is not tracked by the OTU", e.Accession)
}

// TaxidMismatchError is returned when a record belongs to another taxon.
type TaxidMismatchError struct {
	Accession string
	Want, Got int
}

func (e *TaxidMismatchError) Error() string {
	return fmt.Sprintf("record %s has taxid %d, expected %d", e.Accession, e.Got, e.Want)
}

// IncompatibleMoleculeError is returned when a record's molecule differs from
// the OTU molecule.
type IncompatibleMoleculeError struct {
	Accession string
	Want, Got model.Molecule
}

func (e *IncompatibleMoleculeError) Error() string {
	return fmt.Sprintf("record %s is %s, OTU is %s", e.Accession, e.Got, e.Want)
}

// SegmentConflictError is returned when an isolate would hold two accessions
// for the same segment.
type SegmentConflictError struct {
	Isolate   model.IsolateName `json:"isolate"`
	Segment   string            `json:"segment"`
	Accession string            `json:"accession"`
	Existing  string            `json:"existing"`
}

func (e *SegmentConflictError) Error() string {
	return fmt.Sprintf("%s already has %s for segment %s, cannot add %s",
		e.Isolate, e.Existing, e.Segment, e.Accession)
}

// ValidationError lists the structural problems found in an OTU.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid otu: " + strings.Join(e.Problems, "; ")
}
