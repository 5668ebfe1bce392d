// Package model defines the reference data types: OTUs, plans, isolates and
// the normalized sequence records they are built from.
package model

import (
	"encoding/json"
	"fmt"
)

// MolType is the in vivo molecule type of a sequence.
type MolType string

const (
	MolTypeDNA  MolType = "DNA"
	MolTypeRNA  MolType = "RNA"
	MolTypeCRNA MolType = "cRNA"
	MolTypeMRNA MolType = "mRNA"
	MolTypeTRNA MolType = "tRNA"
)

// ValidMolTypes are the accepted molecule types.
var ValidMolTypes = map[MolType]bool{
	MolTypeDNA:  true,
	MolTypeRNA:  true,
	MolTypeCRNA: true,
	MolTypeMRNA: true,
	MolTypeTRNA: true,
}

// ParseMolType returns the MolType for s or an error if s is not a known type.
func ParseMolType(s string) (MolType, error) {
	if m := MolType(s); ValidMolTypes[m] {
		return m, nil
	}
	return "", fmt.Errorf("invalid moltype %q", s)
}

// Prefix is the segment name prefix used for this molecule type.
func (m MolType) Prefix() string {
	if m == MolTypeDNA {
		return "DNA"
	}
	return "RNA"
}

func (m *MolType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseMolType(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// SourceMolType is the mol_type qualifier of a source feature, drawn from
// the INSDC controlled vocabulary.
type SourceMolType string

const (
	SourceGenomicDNA     SourceMolType = "genomic DNA"
	SourceGenomicRNA     SourceMolType = "genomic RNA"
	SourceMRNA           SourceMolType = "mRNA"
	SourceTRNA           SourceMolType = "tRNA"
	SourceRRNA           SourceMolType = "rRNA"
	SourceOtherRNA       SourceMolType = "other RNA"
	SourceOtherDNA       SourceMolType = "other DNA"
	SourceTranscribedRNA SourceMolType = "transcribed RNA"
	SourceViralCRNA      SourceMolType = "viral cRNA"
	SourceUnassignedDNA  SourceMolType = "unassigned DNA"
	SourceUnassignedRNA  SourceMolType = "unassigned RNA"
)

// ValidSourceMolTypes are the accepted mol_type qualifier values.
var ValidSourceMolTypes = map[SourceMolType]bool{
	SourceGenomicDNA:     true,
	SourceGenomicRNA:     true,
	SourceMRNA:           true,
	SourceTRNA:           true,
	SourceRRNA:           true,
	SourceOtherRNA:       true,
	SourceOtherDNA:       true,
	SourceTranscribedRNA: true,
	SourceViralCRNA:      true,
	SourceUnassignedDNA:  true,
	SourceUnassignedRNA:  true,
}

// ParseSourceMolType returns the SourceMolType for s or an error if s is not
// in the vocabulary.
func ParseSourceMolType(s string) (SourceMolType, error) {
	if m := SourceMolType(s); ValidSourceMolTypes[m] {
		return m, nil
	}
	return "", fmt.Errorf("invalid mol_type %q", s)
}

func (m *SourceMolType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseSourceMolType(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Strandedness of a molecule, either single or double.
type Strandedness string

const (
	StrandednessSingle Strandedness = "single"
	StrandednessDouble Strandedness = "double"
)

// ParseStrandedness returns the Strandedness for s.
func ParseStrandedness(s string) (Strandedness, error) {
	switch Strandedness(s) {
	case StrandednessSingle, StrandednessDouble:
		return Strandedness(s), nil
	}
	return "", fmt.Errorf("invalid strandedness %q", s)
}

func (s *Strandedness) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	v, err := ParseStrandedness(raw)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Topology of a molecule, either linear or circular.
type Topology string

const (
	TopologyLinear   Topology = "linear"
	TopologyCircular Topology = "circular"
)

// ParseTopology returns the Topology for s.
func ParseTopology(s string) (Topology, error) {
	switch Topology(s) {
	case TopologyLinear, TopologyCircular:
		return Topology(s), nil
	}
	return "", fmt.Errorf("invalid topology %q", s)
}

func (t *Topology) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	v, err := ParseTopology(raw)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Molecule describes the strandedness, molecule type and topology of an OTU.
// It is fixed once the OTU is created.
type Molecule struct {
	Type         MolType      `json:"type"`
	Strandedness Strandedness `json:"strandedness"`
	Topology     Topology     `json:"topology"`
}

func (m Molecule) String() string {
	return fmt.Sprintf("%s %s-stranded %s", m.Type, m.Strandedness, m.Topology)
}
