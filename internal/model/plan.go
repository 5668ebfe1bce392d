package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// DefaultLengthTolerance is the fraction a sequence may deviate from its
// segment's expected length.
const DefaultLengthTolerance = 0.03

var (
	complexNamePattern = regexp.MustCompile(`^([A-Za-z]+)[-_ ]+(.*)$`)
	simpleNamePattern  = regexp.MustCompile(`^[A-Za-z0-9]+$`)
)

// SegmentName is a normalized segment name made of a prefix and a key, as in
// "DNA A" or "RNA 1".
type SegmentName struct {
	Prefix string `json:"prefix"`
	Key    string `json:"key"`
}

func (n SegmentName) String() string {
	return n.Prefix + " " + n.Key
}

// ParseSegmentName parses a delimited label such as "DNA-A" or "RNA 1".
// It returns false if the label has no prefix and delimiter.
func ParseSegmentName(label string) (SegmentName, bool) {
	m := complexNamePattern.FindStringSubmatch(strings.TrimSpace(label))
	if m == nil || strings.TrimSpace(m[2]) == "" {
		return SegmentName{}, false
	}
	return SegmentName{Prefix: m[1], Key: strings.TrimSpace(m[2])}, true
}

// SegmentNameFromLabel derives a segment name from a source segment label
// when no plan is available yet. The prefix defaults to the molecule prefix.
func SegmentNameFromLabel(label string, moltype MolType) (SegmentName, bool) {
	label = strings.TrimSpace(label)
	if label == "" {
		return SegmentName{}, false
	}
	if n, ok := ParseSegmentName(label); ok {
		return n, true
	}
	for _, prefix := range []string{"DNA", "RNA"} {
		if strings.HasPrefix(label, prefix) && len(label) > len(prefix) {
			return SegmentName{Prefix: moltype.Prefix(), Key: strings.TrimSpace(label[len(prefix):])}, true
		}
	}
	if simpleNamePattern.MatchString(label) {
		return SegmentName{Prefix: moltype.Prefix(), Key: label}, true
	}
	return SegmentName{}, false
}

// SegmentRule marks how important a segment is for isolate completeness.
type SegmentRule string

const (
	SegmentRequired    SegmentRule = "required"
	SegmentRecommended SegmentRule = "recommended"
	SegmentOptional    SegmentRule = "optional"
)

// ParseSegmentRule returns the SegmentRule for s.
func ParseSegmentRule(s string) (SegmentRule, error) {
	switch SegmentRule(s) {
	case SegmentRequired, SegmentRecommended, SegmentOptional:
		return SegmentRule(s), nil
	}
	return "", fmt.Errorf("invalid segment rule %q", s)
}

func (r *SegmentRule) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	v, err := ParseSegmentRule(raw)
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// Segment is one expected contiguous genomic piece.
type Segment struct {
	ID              uuid.UUID    `json:"id"`
	Name            *SegmentName `json:"name"`
	Length          int          `json:"length"`
	LengthTolerance float64      `json:"length_tolerance"`
	Rule            SegmentRule  `json:"required"`
}

// Label returns the display name of the segment.
func (s Segment) Label() string {
	if s.Name == nil {
		return "(unnamed)"
	}
	return s.Name.String()
}

// MinLength is the shortest sequence length the segment accepts.
func (s Segment) MinLength() int {
	return int(math.Floor(float64(s.Length) * (1 - s.LengthTolerance)))
}

// MaxLength is the longest sequence length the segment accepts.
func (s Segment) MaxLength() int {
	return int(math.Ceil(float64(s.Length) * (1 + s.LengthTolerance)))
}

// Accepts reports whether length falls inside the segment's tolerance.
func (s Segment) Accepts(length int) bool {
	return length >= s.MinLength() && length <= s.MaxLength()
}

// Plan is the ordered set of segments expected for isolates of an OTU.
type Plan struct {
	ID       uuid.UUID `json:"id"`
	Segments []Segment `json:"segments"`
}

// Monopartite reports whether the plan has exactly one segment.
func (p Plan) Monopartite() bool {
	return len(p.Segments) == 1
}

// Validate checks the plan naming invariants. Only a single-segment plan may
// hold an unnamed segment; its one segment may also be named.
func (p Plan) Validate() error {
	if len(p.Segments) == 0 {
		return errors.New("plan has no segments")
	}
	seen := make(map[SegmentName]bool, len(p.Segments))
	ids := make(map[uuid.UUID]bool, len(p.Segments))
	for _, s := range p.Segments {
		if s.Length <= 0 {
			return fmt.Errorf("segment %s: length must be positive", s.Label())
		}
		if s.LengthTolerance < 0 || s.LengthTolerance >= 1 {
			return fmt.Errorf("segment %s: length tolerance %v out of range", s.Label(), s.LengthTolerance)
		}
		if ids[s.ID] {
			return fmt.Errorf("duplicate segment id %s", s.ID)
		}
		ids[s.ID] = true

		if p.Monopartite() {
			continue
		}
		if s.Name == nil {
			return errors.New("all segments must have a name in a multipartite plan")
		}
		if seen[*s.Name] {
			return fmt.Errorf("duplicate segment name %q", s.Name)
		}
		seen[*s.Name] = true
	}
	return nil
}

// SegmentByID returns the segment with the given ID.
func (p Plan) SegmentByID(id uuid.UUID) (Segment, bool) {
	for _, s := range p.Segments {
		if s.ID == id {
			return s, true
		}
	}
	return Segment{}, false
}

// SegmentByName returns the segment with the given name.
func (p Plan) SegmentByName(name SegmentName) (Segment, bool) {
	for _, s := range p.Segments {
		if s.Name != nil && *s.Name == name {
			return s, true
		}
	}
	return Segment{}, false
}

// SegmentByKey returns the first segment whose name key matches key.
func (p Plan) SegmentByKey(key string) (Segment, bool) {
	for _, s := range p.Segments {
		if s.Name != nil && s.Name.Key == key {
			return s, true
		}
	}
	return Segment{}, false
}

// RequiredSegments returns the segments every isolate must have.
func (p Plan) RequiredSegments() []Segment {
	var out []Segment
	for _, s := range p.Segments {
		if s.Rule == SegmentRequired {
			out = append(out, s)
		}
	}
	return out
}

// ResolveLabel maps a source segment label onto a segment of the plan.
//
// Delimited labels are matched by full name. Labels without a delimiter are
// matched by a known prefix followed by a key, then by bare key. An empty
// label only resolves in a monopartite plan.
func (p Plan) ResolveLabel(label string) (Segment, bool) {
	label = strings.TrimSpace(label)
	if p.Monopartite() && p.Segments[0].Name == nil {
		if label == "" {
			return p.Segments[0], true
		}
		return Segment{}, false
	}
	if label == "" {
		return Segment{}, false
	}
	if name, ok := ParseSegmentName(label); ok {
		return p.SegmentByName(name)
	}
	for _, s := range p.Segments {
		if s.Name == nil {
			continue
		}
		prefix := s.Name.Prefix
		if len(label) > len(prefix) && strings.EqualFold(label[:len(prefix)], prefix) {
			if strings.TrimSpace(label[len(prefix):]) == s.Name.Key {
				return s, true
			}
		}
	}
	return p.SegmentByKey(label)
}
