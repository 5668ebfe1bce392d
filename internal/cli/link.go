package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/ref-builder/internal/otu"
	"github.com/rcliao/ref-builder/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Record or remove a relation between two accessions of an OTU",
		Long:  "Supersession links are recorded automatically by update and promote. Use link to record merges or fix links by hand.",
		Run:   runLink,
	}

	cmd.Flags().IntP("taxid", "t", 0, "Taxonomy ID (required)")
	cmd.Flags().String("from", "", "Accession that was replaced")
	cmd.Flags().String("to", "", "Accession that replaced it")
	cmd.Flags().StringP("rel", "r", "superseded_by", "Relation: superseded_by, merged_into")
	cmd.Flags().Bool("rm", false, "Remove the link")

	cmd.MarkFlagRequired("taxid")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")

	RootCmd.AddCommand(cmd)
}

func runLink(cmd *cobra.Command, args []string) {
	taxid, _ := cmd.Flags().GetInt("taxid")
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	rel, _ := cmd.Flags().GetString("rel")
	rm, _ := cmd.Flags().GetBool("rm")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	link, err := s.Link(cmd.Context(), store.LinkParams{
		Taxid:  taxid,
		From:   otu.AccessionKey(from),
		To:     otu.AccessionKey(to),
		Rel:    rel,
		Remove: rm,
	})
	if err != nil {
		exitErr("link", err)
	}

	printJSON(link)
}
