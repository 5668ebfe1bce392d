// Package otu builds and maintains OTUs: it groups sequence records into
// isolates, infers genome plans and merges new records into existing OTUs
// without breaking their invariants.
package otu

import (
	"fmt"

	"github.com/rcliao/ref-builder/internal/model"
)

// Policy holds the tunable thresholds used by grouping and plan inference.
type Policy struct {
	// IsolatePrecedence lists the source qualifiers that name an isolate,
	// highest precedence first.
	IsolatePrecedence []model.IsolateNameType `json:"isolate_precedence"`

	// RecommendedThreshold is the fraction of isolate groups a segment must
	// strictly exceed to be recommended rather than optional.
	RecommendedThreshold float64 `json:"recommended_threshold"`

	// DefaultLengthTolerance is the minimum tolerance given to a segment.
	DefaultLengthTolerance float64 `json:"default_length_tolerance"`
}

// DefaultPolicy returns the default policy.
func DefaultPolicy() Policy {
	return Policy{
		IsolatePrecedence: []model.IsolateNameType{
			model.IsolateNameIsolate,
			model.IsolateNameStrain,
			model.IsolateNameClone,
		},
		RecommendedThreshold:   0.5,
		DefaultLengthTolerance: model.DefaultLengthTolerance,
	}
}

// Validate checks the policy values.
func (p Policy) Validate() error {
	if len(p.IsolatePrecedence) == 0 {
		return fmt.Errorf("isolate precedence is empty")
	}
	seen := map[model.IsolateNameType]bool{}
	for _, t := range p.IsolatePrecedence {
		if !model.ValidIsolateNameTypes[t] || t == model.IsolateNameUnnamed {
			return fmt.Errorf("invalid isolate name type %q", t)
		}
		if seen[t] {
			return fmt.Errorf("isolate name type %q listed twice", t)
		}
		seen[t] = true
	}
	if p.RecommendedThreshold < 0 || p.RecommendedThreshold >= 1 {
		return fmt.Errorf("recommended threshold %v out of range [0,1)", p.RecommendedThreshold)
	}
	if p.DefaultLengthTolerance < 0 || p.DefaultLengthTolerance >= 1 {
		return fmt.Errorf("default length tolerance %v out of range [0,1)", p.DefaultLengthTolerance)
	}
	return nil
}
