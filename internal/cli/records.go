package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/ref-builder/internal/model"
	"github.com/rcliao/ref-builder/internal/ncbi"
	"github.com/rcliao/ref-builder/internal/printer"
)

func init() {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "Manage the GenBank record cache",
	}

	importCmd := &cobra.Command{
		Use:   "import [FILE]",
		Short: "Load raw records into the cache",
		Long:  "Load a JSON array of raw GenBank records (file or stdin) into the Redis record cache.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runRecordsImport,
	}

	getCmd := &cobra.Command{
		Use:   "get ACCESSION...",
		Short: "Print cached records",
		Args:  cobra.MinimumNArgs(1),
		Run:   runRecordsGet,
	}
	getCmd.Flags().Bool("raw", false, "Print raw records instead of normalized ones")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List cached accessions for a taxid",
		Run:   runRecordsList,
	}
	listCmd.Flags().IntP("taxid", "t", 0, "Taxonomy ID (required)")
	listCmd.MarkFlagRequired("taxid")

	cmd.AddCommand(importCmd, getCmd, listCmd)
	RootCmd.AddCommand(cmd)
}

// addRecordFlags registers the flags that select a batch of records.
func addRecordFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("records", "r", "", "JSON file of raw GenBank records (- for stdin)")
	cmd.Flags().Bool("from-cache", false, "Read records from the record cache instead of a file")
	cmd.Flags().StringSlice("accessions", nil, "With --from-cache, only these accessions (default: all cached for the taxid)")
	cmd.Flags().Bool("skip-malformed", false, "Continue without records that cannot be normalized")
}

// loadRecords reads and normalizes the batch selected by the record flags.
func loadRecords(cmd *cobra.Command, taxid int) ([]model.SequenceRecord, error) {
	path, _ := cmd.Flags().GetString("records")
	fromCache, _ := cmd.Flags().GetBool("from-cache")
	accessions, _ := cmd.Flags().GetStringSlice("accessions")
	skip, _ := cmd.Flags().GetBool("skip-malformed")

	var raws []ncbi.RawRecord
	var err error
	switch {
	case fromCache:
		raws, err = cachedRecords(cmd.Context(), taxid, accessions)
	case path != "":
		raws, err = readRecordsFile(path)
	default:
		return nil, errors.New("no records given: use --records FILE or --from-cache")
	}
	if err != nil {
		return nil, err
	}

	records, err := ncbi.NormalizeAll(raws)
	var batch *ncbi.BatchError
	if errors.As(err, &batch) && skip {
		p := printer.Stdout()
		for _, e := range batch.Errors {
			p.Warning("skipping %v", e)
		}
		return records, nil
	}
	return records, err
}

func readRecordsFile(path string) ([]ncbi.RawRecord, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	return ncbi.ReadRecords(r)
}

func cachedRecords(ctx context.Context, taxid int, accessions []string) ([]ncbi.RawRecord, error) {
	c, err := openCache()
	if err != nil {
		return nil, err
	}
	defer c.Close()

	if len(accessions) == 0 {
		accessions, err = c.AccessionsByTaxid(ctx, taxid)
		if err != nil {
			return nil, err
		}
		if len(accessions) == 0 {
			return nil, errors.New("no cached records for taxid")
		}
	}
	return c.GetRecords(ctx, accessions)
}

func runRecordsImport(cmd *cobra.Command, args []string) {
	path := "-"
	if len(args) == 1 {
		path = args[0]
	}
	raws, err := readRecordsFile(path)
	if err != nil {
		exitErr("read records", err)
	}

	var skipped []string
	if _, err := ncbi.NormalizeAll(raws); err != nil {
		var batch *ncbi.BatchError
		if !errors.As(err, &batch) {
			exitErr("normalize", err)
		}
		for _, e := range batch.Errors {
			skipped = append(skipped, e.Error())
		}
	}

	c, err := openCache()
	if err != nil {
		exitErr("open cache", err)
	}
	defer c.Close()

	if err := c.PutRecords(cmd.Context(), raws); err != nil {
		exitErr("cache records", err)
	}

	if textOutput() {
		p := printer.Stdout()
		p.Success("cached %d records", len(raws))
		for _, s := range skipped {
			p.Warning("%s", s)
		}
		return
	}
	printJSON(map[string]any{"ok": true, "cached": len(raws), "malformed": skipped})
}

func runRecordsGet(cmd *cobra.Command, args []string) {
	raw, _ := cmd.Flags().GetBool("raw")

	c, err := openCache()
	if err != nil {
		exitErr("open cache", err)
	}
	defer c.Close()

	accessions := make([]string, len(args))
	for i, a := range args {
		accessions[i] = strings.TrimSpace(a)
	}
	raws, err := c.GetRecords(cmd.Context(), accessions)
	if err != nil {
		exitErr("get records", err)
	}
	if raw {
		printJSON(raws)
		return
	}
	records, err := ncbi.NormalizeAll(raws)
	if err != nil {
		exitErr("normalize", err)
	}
	printJSON(records)
}

func runRecordsList(cmd *cobra.Command, args []string) {
	taxid, _ := cmd.Flags().GetInt("taxid")

	c, err := openCache()
	if err != nil {
		exitErr("open cache", err)
	}
	defer c.Close()

	accessions, err := c.AccessionsByTaxid(cmd.Context(), taxid)
	if err != nil {
		exitErr("list records", err)
	}
	if textOutput() {
		for _, a := range accessions {
			printer.Stdout().Printf("%s\n", a)
		}
		return
	}
	printJSON(accessions)
}
