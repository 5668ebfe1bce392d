package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export OTU versions as JSON",
		Long:  "Export every stored OTU version as a JSON array. Filter by taxid with -t. The output can be loaded with import.",
		Run:   runExport,
	}

	cmd.Flags().IntP("taxid", "t", 0, "Only export this taxid")
	cmd.Flags().Bool("latest", false, "Only export the latest version of each OTU")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	taxid, _ := cmd.Flags().GetInt("taxid")
	latest, _ := cmd.Flags().GetBool("latest")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	versions, err := s.ExportAll(cmd.Context(), taxid)
	if err != nil {
		exitErr("export", err)
	}

	if latest {
		last := make(map[int]int)
		for i, v := range versions {
			last[v.Taxid] = i
		}
		kept := versions[:0]
		for i, v := range versions {
			if last[v.Taxid] == i {
				kept = append(kept, v)
			}
		}
		versions = kept
	}

	printJSON(versions)
}
