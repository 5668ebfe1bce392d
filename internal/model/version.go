package model

import "time"

// Action names the operation that produced an OTU version.
type Action string

const (
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionPromote Action = "promote"
	ActionExclude Action = "exclude"
	ActionInclude Action = "include"
	ActionImport  Action = "import"
)

// ValidActions are the allowed version actions.
var ValidActions = map[Action]bool{
	ActionCreate:  true,
	ActionUpdate:  true,
	ActionPromote: true,
	ActionExclude: true,
	ActionInclude: true,
	ActionImport:  true,
}

// OTUVersion is one persisted snapshot of an OTU.
type OTUVersion struct {
	ID         string    `json:"id"`
	Taxid      int       `json:"taxid"`
	Name       string    `json:"name"`
	Version    int       `json:"version"`
	Supersedes string    `json:"supersedes,omitempty"`
	Action     Action    `json:"action"`
	CreatedAt  time.Time `json:"created_at"`
	OTU        *OTU      `json:"otu,omitempty"`
}
