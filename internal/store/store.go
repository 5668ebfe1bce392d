// Package store persists OTU versions in SQLite.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/rcliao/ref-builder/internal/model"
)

var (
	// ErrNotFound is returned when no OTU version matches.
	ErrNotFound = errors.New("otu not found")

	// ErrExists is returned when creating an OTU whose taxid is already stored.
	ErrExists = errors.New("otu already exists")
)

// ConflictError is returned when a save was derived from a version that is
// no longer the latest.
type ConflictError struct {
	Taxid  int
	Base   int
	Latest int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("otu %d changed concurrently: based on version %d, latest is %d", e.Taxid, e.Base, e.Latest)
}

// SaveParams holds parameters for storing an OTU version.
type SaveParams struct {
	OTU    *model.OTU
	Action model.Action
	// Base is the version the OTU was derived from. Ignored for creates.
	Base int
}

// GetParams holds parameters for retrieving an OTU.
type GetParams struct {
	Taxid   int
	History bool
	Version int // 0 means latest
}

// ListParams holds parameters for listing OTUs.
type ListParams struct {
	Name  string // substring filter on name or acronym
	Limit int
}

// Store defines the OTU storage interface.
type Store interface {
	// Save appends a new version of an OTU.
	Save(ctx context.Context, p SaveParams) (*model.OTUVersion, error)

	// Get retrieves an OTU by taxid.
	// Returns a slice (single element normally, all versions with History=true).
	Get(ctx context.Context, p GetParams) ([]model.OTUVersion, error)

	// List lists the latest version of each OTU.
	List(ctx context.Context, p ListParams) ([]model.OTUVersion, error)

	// Close closes the store.
	Close() error
}
