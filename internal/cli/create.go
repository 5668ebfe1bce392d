package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/ref-builder/internal/model"
	"github.com/rcliao/ref-builder/internal/otu"
	"github.com/rcliao/ref-builder/internal/printer"
	"github.com/rcliao/ref-builder/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an OTU from a batch of records",
		Long: "Group the records into isolates, infer the segment plan and store the new OTU. " +
			"Nothing is stored if any record cannot be placed.",
		Run: runCreate,
	}

	cmd.Flags().IntP("taxid", "t", 0, "Taxonomy ID (required)")
	cmd.Flags().String("acronym", "", "OTU acronym")
	cmd.Flags().String("legacy-id", "", "ID of the OTU in a legacy reference")
	addRecordFlags(cmd)

	cmd.MarkFlagRequired("taxid")

	RootCmd.AddCommand(cmd)
}

// mutation is the JSON result of a command that changes an OTU.
type mutation struct {
	Taxid      int                         `json:"taxid"`
	Version    int                         `json:"version"`
	Action     model.Action                `json:"action"`
	Saved      bool                        `json:"saved"`
	Change     otu.Change                  `json:"change"`
	Superseded []otu.Supersession          `json:"superseded,omitempty"`
	Conflicts  []*otu.SegmentConflictError `json:"conflicts,omitempty"`
	Warnings   []string                    `json:"warnings,omitempty"`
}

func runCreate(cmd *cobra.Command, args []string) {
	taxid, _ := cmd.Flags().GetInt("taxid")
	acronym, _ := cmd.Flags().GetString("acronym")
	legacyID, _ := cmd.Flags().GetString("legacy-id")

	records, err := loadRecords(cmd, taxid)
	if err != nil {
		exitErr("load records", err)
	}

	o, err := newEngine().Create(taxid, records)
	if err != nil {
		exitErr("create", err)
	}
	o.Acronym = acronym
	o.LegacyID = legacyID

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	commit(cmd, s, nil, o, model.ActionCreate, nil, nil)
}

// commit saves after as the next version of before, records supersession
// links and prints the outcome. Unchanged OTUs are not saved.
func commit(cmd *cobra.Command, s *store.SQLiteStore, before *model.OTUVersion, after *model.OTU, action model.Action, superseded []otu.Supersession, conflicts []*otu.SegmentConflictError) {
	empty := &model.OTU{Excluded: map[string]model.ExcludedSequence{}}
	base := 0
	prev := empty
	if before != nil {
		base = before.Version
		prev = before.OTU
	}

	res := mutation{
		Taxid:      after.Taxid,
		Version:    base,
		Action:     action,
		Change:     otu.Diff(prev, after),
		Superseded: superseded,
		Conflicts:  conflicts,
		Warnings:   otu.LengthWarnings(after),
	}

	if before == nil || !res.Change.Empty() {
		v, err := s.Save(cmd.Context(), store.SaveParams{OTU: after, Action: action, Base: base})
		if err != nil {
			exitErr("save", err)
		}
		res.Version = v.Version
		res.Saved = true

		for _, sup := range superseded {
			_, err := s.Link(cmd.Context(), store.LinkParams{
				Taxid: after.Taxid, From: sup.Accession, To: sup.By, Rel: "superseded_by",
			})
			if err != nil {
				logger.Warn("record supersession link", "from", sup.Accession, "to", sup.By, "error", err)
			}
		}
	}

	if !textOutput() {
		printJSON(res)
		return
	}

	p := printer.Stdout()
	if res.Saved {
		p.Success("%s saved as version %d (%s)", after, res.Version, action)
	}
	p.Change(res.Change)
	for _, sup := range superseded {
		p.Step("%s superseded by %s", sup.Accession, sup.By)
	}
	for _, c := range conflicts {
		p.Warning("skipped %s", c)
	}
	for _, w := range res.Warnings {
		p.Warning("%s", w)
	}
}
