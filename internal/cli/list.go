package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/ref-builder/internal/printer"
	"github.com/rcliao/ref-builder/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List OTUs",
		Run:   runList,
	}

	cmd.Flags().StringP("name", "n", "", "Filter by name or acronym substring")
	cmd.Flags().IntP("limit", "l", 100, "Max results")
	cmd.Flags().Bool("taxids-only", false, "Only output taxids")

	RootCmd.AddCommand(cmd)
}

// listEntry is the JSON summary of one OTU.
type listEntry struct {
	Taxid      int    `json:"taxid"`
	Name       string `json:"name"`
	Acronym    string `json:"acronym,omitempty"`
	Version    int    `json:"version"`
	Isolates   int    `json:"isolates"`
	Accessions int    `json:"accessions"`
	Excluded   int    `json:"excluded"`
}

func runList(cmd *cobra.Command, args []string) {
	name, _ := cmd.Flags().GetString("name")
	limit, _ := cmd.Flags().GetInt("limit")
	taxidsOnly, _ := cmd.Flags().GetBool("taxids-only")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	versions, err := s.List(cmd.Context(), store.ListParams{Name: name, Limit: limit})
	if err != nil {
		exitErr("list", err)
	}

	if taxidsOnly {
		for _, v := range versions {
			fmt.Println(v.Taxid)
		}
		return
	}

	if textOutput() {
		printer.Stdout().List(versions)
		return
	}

	entries := make([]listEntry, 0, len(versions))
	for _, v := range versions {
		entries = append(entries, listEntry{
			Taxid:      v.Taxid,
			Name:       v.Name,
			Acronym:    v.OTU.Acronym,
			Version:    v.Version,
			Isolates:   len(v.OTU.Isolates),
			Accessions: len(v.OTU.Accessions()),
			Excluded:   len(v.OTU.Excluded),
		})
	}
	printJSON(entries)
}
