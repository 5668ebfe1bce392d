package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/ref-builder/internal/model"
	"github.com/rcliao/ref-builder/internal/otu"
)

func init() {
	excludeCmd := &cobra.Command{
		Use:   "exclude ACCESSION...",
		Short: "Exclude accessions from an OTU",
		Long:  "Remove accessions from their isolates and block them from future updates.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runExclude,
	}
	excludeCmd.Flags().IntP("taxid", "t", 0, "Taxonomy ID (required)")
	excludeCmd.MarkFlagRequired("taxid")

	includeCmd := &cobra.Command{
		Use:   "include ACCESSION...",
		Short: "Re-include excluded accessions",
		Long:  "Return excluded accessions to the isolate they were excluded from.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runInclude,
	}
	includeCmd.Flags().IntP("taxid", "t", 0, "Taxonomy ID (required)")
	includeCmd.MarkFlagRequired("taxid")

	RootCmd.AddCommand(excludeCmd, includeCmd)
}

func runExclude(cmd *cobra.Command, args []string) {
	runToggle(cmd, args, model.ActionExclude, (*otu.Engine).Exclude)
}

func runInclude(cmd *cobra.Command, args []string) {
	runToggle(cmd, args, model.ActionInclude, (*otu.Engine).Include)
}

// runToggle applies op to every accession in args and saves the result once.
func runToggle(cmd *cobra.Command, args []string, action model.Action, op func(*otu.Engine, *model.OTU, string) (*model.OTU, error)) {
	taxid, _ := cmd.Flags().GetInt("taxid")

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
	for _, acc := range args {
		o, err = op(e, o, otu.AccessionKey(acc))
		if err != nil {
			exitErr(string(action), err)
		}
	}

	commit(cmd, s, latest, o, action, nil, nil)
}
