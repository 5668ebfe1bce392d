package cli

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/ref-builder/internal/model"
	"github.com/rcliao/ref-builder/internal/otu"
	"github.com/rcliao/ref-builder/internal/printer"
	"github.com/rcliao/ref-builder/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check stored OTUs for structural problems",
		Long:  "Check the latest version of one OTU, or of every OTU, and report problems and length warnings. Exits 1 if any OTU is invalid.",
		Run:   runValidate,
	}

	cmd.Flags().IntP("taxid", "t", 0, "Only validate this taxid")

	RootCmd.AddCommand(cmd)
}

// validation is the JSON result for one OTU.
type validation struct {
	Taxid    int      `json:"taxid"`
	Name     string   `json:"name"`
	Version  int      `json:"version"`
	Valid    bool     `json:"valid"`
	Problems []string `json:"problems,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

func runValidate(cmd *cobra.Command, args []string) {
	taxid, _ := cmd.Flags().GetInt("taxid")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	var versions []model.OTUVersion
	if taxid != 0 {
		versions, err = s.Get(cmd.Context(), store.GetParams{Taxid: taxid})
	} else {
		versions, err = s.List(cmd.Context(), store.ListParams{Limit: 1 << 30})
	}
	if err != nil {
		exitErr("load otus", err)
	}

	results := make([]validation, 0, len(versions))
	failed := false
	for _, v := range versions {
		res := validateVersion(v)
		failed = failed || !res.Valid
		results = append(results, res)
	}

	if textOutput() {
		p := printer.Stdout()
		for _, r := range results {
			if r.Valid {
				p.Success("%s (taxid %d) v%d", r.Name, r.Taxid, r.Version)
			} else {
				p.Error(r.Name, "", r.Problems)
			}
			for _, w := range r.Warnings {
				p.Warning("%s", w)
			}
		}
	} else {
		printJSON(results)
	}

	if failed {
		os.Exit(1)
	}
}

func validateVersion(v model.OTUVersion) validation {
	res := validation{Taxid: v.Taxid, Name: v.Name, Version: v.Version, Valid: true}
	if err := otu.Validate(v.OTU); err != nil {
		res.Valid = false
		var invalid *otu.ValidationError
		if errors.As(err, &invalid) {
			res.Problems = invalid.Problems
		} else {
			res.Problems = []string{err.Error()}
		}
	}
	res.Warnings = otu.LengthWarnings(v.OTU)
	return res
}
