package cli

import (
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/ref-builder/internal/model"
	"github.com/rcliao/ref-builder/internal/otu"
	"github.com/rcliao/ref-builder/internal/printer"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import [FILE]",
		Short: "Import OTU versions from JSON",
		Long:  "Import OTU versions (stdin or file) in the format produced by export. Versions already stored are skipped.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runImport,
	}

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	var r io.Reader = os.Stdin
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			exitErr("open file", err)
		}
		defer f.Close()
		r = f
	}

	var versions []model.OTUVersion
	if err := json.NewDecoder(r).Decode(&versions); err != nil {
		exitErr("parse json", err)
	}

	for _, v := range versions {
		if v.OTU == nil {
			continue
		}
		if err := otu.Validate(v.OTU); err != nil {
			exitErr("validate import", err)
		}
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	imported, err := s.Import(cmd.Context(), versions)
	if err != nil {
		exitErr("import", err)
	}

	if textOutput() {
		printer.Stdout().Success("imported %d of %d versions", imported, len(versions))
		return
	}
	printJSON(map[string]any{"ok": true, "imported": imported})
}
