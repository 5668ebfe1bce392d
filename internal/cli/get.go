package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/ref-builder/internal/printer"
	"github.com/rcliao/ref-builder/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Retrieve an OTU",
		Run:   runGet,
	}

	cmd.Flags().IntP("taxid", "t", 0, "Taxonomy ID (required)")
	cmd.Flags().Bool("history", false, "Return all versions (newest first)")
	cmd.Flags().Int("version", 0, "Specific version number")
	cmd.Flags().Bool("links", false, "Show accession supersession links")

	cmd.MarkFlagRequired("taxid")

	RootCmd.AddCommand(cmd)
}

func runGet(cmd *cobra.Command, args []string) {
	taxid, _ := cmd.Flags().GetInt("taxid")
	history, _ := cmd.Flags().GetBool("history")
	version, _ := cmd.Flags().GetInt("version")
	links, _ := cmd.Flags().GetBool("links")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	versions, err := s.Get(cmd.Context(), store.GetParams{
		Taxid:   taxid,
		History: history,
		Version: version,
	})
	if err != nil {
		exitErr("get", err)
	}

	if links {
		l, err := s.GetLinks(cmd.Context(), taxid, "")
		if err != nil {
			exitErr("get links", err)
		}
		if textOutput() {
			printer.Stdout().Links(l)
		} else {
			printJSON(l)
		}
		return
	}

	if textOutput() {
		p := printer.Stdout()
		if history {
			p.Versions(versions)
			return
		}
		p.OTU(versions[0].OTU)
		return
	}

	if history {
		printJSON(versions)
	} else {
		printJSON(versions[0])
	}
}
