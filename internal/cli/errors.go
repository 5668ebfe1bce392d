package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rcliao/ref-builder/internal/ncbi"
	"github.com/rcliao/ref-builder/internal/otu"
	"github.com/rcliao/ref-builder/internal/store"
)

// describeError turns an error into a title, an explanation and suggestions
// for the user.
func describeError(msg string, err error) (string, string, []string) {
	title := fmt.Sprintf("error: %s: %v", msg, err)

	var (
		ambiguous  *otu.AmbiguousIsolateError
		plan       *otu.InconsistentPlanError
		duplicate  *otu.DuplicateAccessionError
		unplanned  *otu.UnplannedSegmentError
		unknown    *otu.UnknownAccessionError
		taxid      *otu.TaxidMismatchError
		molecule   *otu.IncompatibleMoleculeError
		conflict   *otu.SegmentConflictError
		invalid    *otu.ValidationError
		malformed  *ncbi.BatchError
		concurrent *store.ConflictError
	)

	switch {
	case errors.Is(err, store.ErrNotFound):
		return title, "No OTU is stored for that taxid.", []string{
			"Create it with: ref-builder create --taxid N --records FILE",
			"Check the taxid with: ref-builder list",
		}
	case errors.Is(err, store.ErrExists):
		return title, "An OTU already exists for that taxid.", []string{
			"Add records to it with: ref-builder update --taxid N --records FILE",
		}
	case errors.As(err, &concurrent):
		return title, "The OTU was changed by another process while this command ran.", []string{
			"Run the command again.",
		}
	case errors.As(err, &ambiguous):
		return title, fmt.Sprintf("Record %s has an empty %s qualifier while %s is set. It needs review before it can be grouped.",
				ambiguous.Accession, ambiguous.Chosen, ambiguous.Other), []string{
				"Fix the record, or drop it from the batch.",
				"Change policy.isolate_precedence in the config file.",
			}
	case errors.As(err, &plan):
		return title, "The records do not agree on one segment plan. Nothing was created.", nil
	case errors.As(err, &duplicate):
		return title, "Every accession may appear only once per batch.", []string{
			fmt.Sprintf("Remove the extra copy of %s from the records file.", duplicate.Accession),
		}
	case errors.As(err, &unplanned):
		return title, "The record's segment does not match any segment of the OTU plan. Nothing was changed.", nil
	case errors.As(err, &unknown):
		return title, "Only accessions tracked by the OTU can be excluded or included.", []string{
			"List the OTU accessions with: ref-builder get --taxid N --format text",
		}
	case errors.As(err, &taxid):
		return title, fmt.Sprintf("Record %s belongs to taxid %d.", taxid.Accession, taxid.Got), nil
	case errors.As(err, &molecule):
		return title, "The record's molecule does not match the OTU molecule. Nothing was changed.", nil
	case errors.As(err, &conflict):
		return title, fmt.Sprintf("%s can hold only one accession for segment %s.", conflict.Isolate, conflict.Segment), []string{
			fmt.Sprintf("Exclude %s first.", conflict.Existing),
		}
	case errors.As(err, &invalid):
		return title, "Problems:\n  " + strings.Join(invalid.Problems, "\n  "), nil
	case errors.As(err, &malformed):
		return title, fmt.Sprintf("%d records could not be normalized.", len(malformed.Errors)), []string{
			"Pass --skip-malformed to continue without them.",
		}
	case errors.Is(err, ncbi.ErrNotCached):
		return title, "A requested record is not in the record cache.", []string{
			"Load it with: ref-builder records import FILE",
		}
	}
	return title, "", nil
}
