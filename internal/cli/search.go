package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/ref-builder/internal/printer"
	"github.com/rcliao/ref-builder/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Find OTUs by name, acronym or accession",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSearch,
	}

	cmd.Flags().IntP("limit", "l", 20, "Max results")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	results, err := s.Search(cmd.Context(), store.SearchParams{
		Query: strings.Join(args, " "),
		Limit: limit,
	})
	if err != nil {
		exitErr("search", err)
	}

	if textOutput() {
		printer.Stdout().SearchResults(results)
		return
	}

	type hit struct {
		Taxid          int    `json:"taxid"`
		Name           string `json:"name"`
		Version        int    `json:"version"`
		MatchAccession string `json:"match_accession,omitempty"`
		Excluded       bool   `json:"excluded,omitempty"`
	}
	hits := make([]hit, 0, len(results))
	for _, r := range results {
		hits = append(hits, hit{r.Taxid, r.Name, r.Version, r.MatchAccession, r.Excluded})
	}
	printJSON(hits)
}
