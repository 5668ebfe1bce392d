package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/ref-builder/internal/model"
	"github.com/rcliao/ref-builder/internal/otu"
)

func init() {
	updateCmd := &cobra.Command{
		Use:   "update",
		Short: "Merge new records into an OTU",
		Long: "Promote RefSeq records over the accessions they supersede, then merge the " +
			"remaining records. Tracked and excluded accessions are skipped, so repeating " +
			"an update changes nothing.",
		Run: runUpdate,
	}
	updateCmd.Flags().IntP("taxid", "t", 0, "Taxonomy ID (required)")
	updateCmd.Flags().Bool("no-promote", false, "Skip RefSeq promotion")
	addRecordFlags(updateCmd)
	updateCmd.MarkFlagRequired("taxid")

	promoteCmd := &cobra.Command{
		Use:   "promote",
		Short: "Replace accessions superseded by RefSeq records",
		Long: "Exclude the non-RefSeq accessions that RefSeq records in the batch supersede " +
			"and put the RefSeq accessions in their place. Other records are ignored.",
		Run: runPromote,
	}
	promoteCmd.Flags().IntP("taxid", "t", 0, "Taxonomy ID (required)")
	addRecordFlags(promoteCmd)
	promoteCmd.MarkFlagRequired("taxid")

	RootCmd.AddCommand(updateCmd, promoteCmd)
}

func runUpdate(cmd *cobra.Command, args []string) {
	taxid, _ := cmd.Flags().GetInt("taxid")
	noPromote, _ := cmd.Flags().GetBool("no-promote")

	records, err := loadRecords(cmd, taxid)
	if err != nil {
		exitErr("load records", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	latest, err := s.Latest(cmd.Context(), taxid)
	if err != nil {
		exitErr("get otu", err)
	}

	e := newEngine()
	o := latest.OTU
	var superseded []otu.Supersession
	if !noPromote {
		promoted, excluded, err := e.AutoexcludeSuperseded(o, records)
		if err != nil {
			exitErr("promote", err)
		}
		superseded = otu.Supersessions(promoted, excluded)
		o = promoted
	}

	merged, conflicts, err := e.Update(o, records)
	if err != nil {
		exitErr("update", err)
	}

	commit(cmd, s, latest, merged, model.ActionUpdate, superseded, conflicts)
}

func runPromote(cmd *cobra.Command, args []string) {
	taxid, _ := cmd.Flags().GetInt("taxid")

	records, err := loadRecords(cmd, taxid)
	if err != nil {
		exitErr("load records", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	latest, err := s.Latest(cmd.Context(), taxid)
	if err != nil {
		exitErr("get otu", err)
	}

	promoted, excluded, err := newEngine().AutoexcludeSuperseded(latest.OTU, records)
	if err != nil {
		exitErr("promote", err)
	}

	commit(cmd, s, latest, promoted, model.ActionPromote, otu.Supersessions(promoted, excluded), nil)
}
