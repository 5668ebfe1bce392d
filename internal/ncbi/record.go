// Package ncbi normalizes raw GenBank records into sequence records and
// caches raw records fetched from the archive.
package ncbi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/rcliao/ref-builder/internal/model"
)

// RawQualifier is one qualifier of a feature. A qualifier without a value is
// a flag, such as /proviral.
type RawQualifier struct {
	Name  string  `json:"GBQualifier_name"`
	Value *string `json:"GBQualifier_value,omitempty"`
}

// RawFeature is one entry of a record's feature table.
type RawFeature struct {
	Key        string         `json:"GBFeature_key"`
	Qualifiers []RawQualifier `json:"GBFeature_quals"`
}

// RawRecord is a GenBank record in GBSeq form as returned by the archive.
type RawRecord struct {
	Accession        string       `json:"GBSeq_primary-accession"`
	AccessionVersion string       `json:"GBSeq_accession-version"`
	Strandedness     string       `json:"GBSeq_strandedness"`
	MolType          string       `json:"GBSeq_moltype"`
	Topology         string       `json:"GBSeq_topology"`
	Definition       string       `json:"GBSeq_definition"`
	Organism         string       `json:"GBSeq_organism"`
	Sequence         string       `json:"GBSeq_sequence"`
	Comment          string       `json:"GBSeq_comment,omitempty"`
	Features         []RawFeature `json:"GBSeq_feature-table"`
}

// MalformedRecordError reports a raw record that cannot be normalized.
type MalformedRecordError struct {
	Accession string
	Field     string
	Reason    string
}

func (e *MalformedRecordError) Error() string {
	acc := e.Accession
	if acc == "" {
		acc = "(no accession)"
	}
	return fmt.Sprintf("malformed record %s: %s: %s", acc, e.Field, e.Reason)
}

// RefSeqPrefix marks accessions of curated RefSeq records.
const RefSeqPrefix = "NC_"

var sequencePattern = regexp.MustCompile(`^[ATCGRYKMSWBDHVNatcgrykmswbdhvn]+$`)

// Normalize converts a raw record into a SequenceRecord. It validates the
// required fields and the enumerated molecule attributes; unknown values are
// rejected rather than coerced.
func Normalize(raw RawRecord) (model.SequenceRecord, error) {
	acc := strings.TrimSpace(raw.Accession)
	fail := func(field, format string, args ...any) (model.SequenceRecord, error) {
		return model.SequenceRecord{}, &MalformedRecordError{Accession: acc, Field: field, Reason: fmt.Sprintf(format, args...)}
	}

	if acc == "" {
		return fail("accession", "missing")
	}
	version := 1
	accVersion := strings.TrimSpace(raw.AccessionVersion)
	if accVersion == "" {
		accVersion = acc + ".1"
	} else {
		key, v, ok := strings.Cut(accVersion, ".")
		if !ok || key != acc {
			return fail("accession_version", "%q does not match accession", accVersion)
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return fail("accession_version", "invalid version %q", v)
		}
		version = n
	}

	if raw.Sequence == "" {
		return fail("sequence", "missing")
	}
	if !sequencePattern.MatchString(raw.Sequence) {
		return fail("sequence", "contains non-nucleotide characters")
	}
	moltype, err := model.ParseMolType(strings.TrimSpace(raw.MolType))
	if err != nil {
		return fail("moltype", "%v", err)
	}
	strandedness, err := model.ParseStrandedness(strings.ToLower(strings.TrimSpace(raw.Strandedness)))
	if err != nil {
		return fail("strandedness", "%v", err)
	}
	topology, err := model.ParseTopology(strings.ToLower(strings.TrimSpace(raw.Topology)))
	if err != nil {
		return fail("topology", "%v", err)
	}

	src, err := parseSource(raw.Features)
	if err != nil {
		return fail("source", "%v", err)
	}
	if src.Organism != raw.Organism {
		return fail("organism", "source organism %q does not match record organism %q", src.Organism, raw.Organism)
	}

	return model.SequenceRecord{
		Accession:        acc,
		AccessionVersion: accVersion,
		Version:          version,
		Organism:         raw.Organism,
		Taxid:            src.Taxid,
		Sequence:         strings.ToUpper(raw.Sequence),
		MolType:          moltype,
		Strandedness:     strandedness,
		Topology:         topology,
		RefSeq:           strings.HasPrefix(acc, RefSeqPrefix),
		Comment:          raw.Comment,
		Definition:       raw.Definition,
		Source:           src,
	}, nil
}

func parseSource(features []RawFeature) (model.Source, error) {
	for _, f := range features {
		if f.Key != "source" {
			continue
		}
		src := model.Source{Qualifiers: make(map[string]string)}
		for _, q := range f.Qualifiers {
			if q.Value == nil {
				switch q.Name {
				case "proviral":
					src.Proviral = true
				case "macronuclear":
					src.Macronuclear = true
				case "transgenic":
					src.Transgenic = true
				}
				src.Qualifiers[q.Name] = ""
				continue
			}
			v := *q.Value
			switch q.Name {
			case "organism":
				src.Organism = v
			case "mol_type":
				m, err := model.ParseSourceMolType(v)
				if err != nil {
					return src, err
				}
				src.MolType = m
			case "host":
				src.Host = v
			case "segment":
				src.Segment = v
			case "db_xref":
				if id, ok := strings.CutPrefix(v, "taxon:"); ok {
					n, err := strconv.Atoi(id)
					if err != nil {
						return src, fmt.Errorf("invalid taxon db_xref %q", v)
					}
					src.Taxid = n
				}
				continue
			}
			src.Qualifiers[q.Name] = v
		}
		if src.Taxid == 0 {
			return src, errors.New("no taxon db_xref in source table")
		}
		if src.MolType == "" {
			return src, errors.New("no mol_type in source table")
		}
		return src, nil
	}
	return model.Source{}, errors.New("feature table contains no source table")
}

// BatchError collects the records of a batch that failed normalization.
type BatchError struct {
	Errors []error
}

func (e *BatchError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d malformed records: %s", len(e.Errors), strings.Join(msgs, "; "))
}

func (e *BatchError) Unwrap() []error {
	return e.Errors
}

// NormalizeAll normalizes a batch of raw records. Records that fail are
// reported in a *BatchError alongside the records that succeeded, so the
// caller can decide whether to tolerate the gaps.
func NormalizeAll(raws []RawRecord) ([]model.SequenceRecord, error) {
	records := make([]model.SequenceRecord, 0, len(raws))
	var errs []error
	for _, raw := range raws {
		r, err := Normalize(raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		records = append(records, r)
	}
	if len(errs) > 0 {
		return records, &BatchError{Errors: errs}
	}
	return records, nil
}

// ReadRecords decodes a JSON array of raw records.
func ReadRecords(r io.Reader) ([]RawRecord, error) {
	var raws []RawRecord
	if err := json.NewDecoder(r).Decode(&raws); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return raws, nil
}
