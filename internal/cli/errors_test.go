package cli

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/rcliao/ref-builder/internal/model"
	"github.com/rcliao/ref-builder/internal/ncbi"
	"github.com/rcliao/ref-builder/internal/otu"
	"github.com/rcliao/ref-builder/internal/store"
)

func TestDescribeError(t *testing.T) {
	testCases := []struct {
		name        string
		err         error
		explanation string
		suggestions int
	}{
		{"not found", fmt.Errorf("%w: taxid 1", store.ErrNotFound), "No OTU is stored for that taxid.", 2},
		{"exists", fmt.Errorf("%w: taxid 1", store.ErrExists), "An OTU already exists for that taxid.", 1},
		{"concurrent", &store.ConflictError{Taxid: 1, Base: 1, Latest: 2}, "The OTU was changed by another process while this command ran.", 1},
		{"duplicate", &otu.DuplicateAccessionError{Accession: "A1"}, "Every accession may appear only once per batch.", 1},
		{"plan", fmt.Errorf("wrapped: %w", &otu.InconsistentPlanError{Reason: "x"}), "The records do not agree on one segment plan. Nothing was created.", 0},
		{"malformed", &ncbi.BatchError{Errors: []error{fmt.Errorf("a"), fmt.Errorf("b")}}, "2 records could not be normalized.", 1},
		{"not cached", fmt.Errorf("%w: A1", ncbi.ErrNotCached), "A requested record is not in the record cache.", 1},
		{"other", fmt.Errorf("boom"), "", 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			title, explanation, suggestions := describeError("op", tc.err)
			assert.Equal(t, "error: op: "+tc.err.Error(), title)
			assert.Equal(t, tc.explanation, explanation)
			assert.Len(t, suggestions, tc.suggestions)
		})
	}
}

func TestValidateVersion(t *testing.T) {
	seg := model.Segment{ID: uuid.New(), Length: 100, LengthTolerance: 0.03, Rule: model.SegmentRequired}
	iso := model.Isolate{
		ID:        uuid.New(),
		Name:      model.IsolateName{Type: model.IsolateNameIsolate, Value: "A"},
		Sequences: []model.Sequence{{Accession: "A1", Version: 1, Segment: seg.ID, Length: 150}},
	}
	o := &model.OTU{
		ID:       uuid.New(),
		Taxid:    1,
		Name:     "Test virus",
		Molecule: model.Molecule{Type: model.MolTypeDNA, Strandedness: model.StrandednessSingle, Topology: model.TopologyLinear},
		Plan:     model.Plan{ID: uuid.New(), Segments: []model.Segment{seg}},
		Isolates: []model.Isolate{iso},
		Excluded: map[string]model.ExcludedSequence{},
	}

	res := validateVersion(model.OTUVersion{Taxid: 1, Name: o.Name, Version: 3, OTU: o})
	assert.True(t, res.Valid)
	assert.Empty(t, res.Problems)
	assert.Len(t, res.Warnings, 1, "length 150 is outside 97-103")

	broken := o.Clone()
	broken.Excluded["A1"] = model.ExcludedSequence{Sequence: iso.Sequences[0], Isolate: iso.ID}
	res = validateVersion(model.OTUVersion{Taxid: 1, Name: o.Name, Version: 4, OTU: broken})
	assert.False(t, res.Valid)
	assert.NotEmpty(t, res.Problems)
}
