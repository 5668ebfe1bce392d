// Package printer renders ref-builder output for humans.
package printer

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/rcliao/ref-builder/internal/model"
	"github.com/rcliao/ref-builder/internal/otu"
	"github.com/rcliao/ref-builder/internal/store"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
	faint  = color.New(color.Faint)
	bold   = color.New(color.Bold)
)

// Printer writes colored output. Normal output goes to out, errors to errOut.
type Printer struct {
	out    io.Writer
	errOut io.Writer
}

// New returns a Printer. Colors follow fatih/color detection, so they are
// off when NO_COLOR is set or the output is not a terminal.
func New(out, errOut io.Writer) *Printer {
	return &Printer{out: out, errOut: errOut}
}

// Stdout returns a Printer on the process streams.
func Stdout() *Printer {
	return New(os.Stdout, os.Stderr)
}

// Success prints a success message in green with a checkmark prefix.
func (p *Printer) Success(format string, a ...any) {
	green.Fprintf(p.out, "✓ %s\n", fmt.Sprintf(format, a...))
}

// Warning prints a warning in yellow to the error stream.
func (p *Printer) Warning(format string, a ...any) {
	yellow.Fprintf(p.errOut, "⚠️  %s\n", fmt.Sprintf(format, a...))
}

// Step prints a step of a multi-step operation.
func (p *Printer) Step(format string, a ...any) {
	cyan.Fprintf(p.out, "→ %s\n", fmt.Sprintf(format, a...))
}

// Printf prints a plain formatted message.
func (p *Printer) Printf(format string, a ...any) {
	fmt.Fprintf(p.out, format, a...)
}

// Error prints a titled error with an explanation and suggestions to the
// error stream.
func (p *Printer) Error(title, explanation string, suggestions []string) {
	red.Fprintf(p.errOut, "%s\n", title)
	if explanation != "" {
		fmt.Fprintf(p.errOut, "\n%s\n", explanation)
	}
	switch len(suggestions) {
	case 0:
	case 1:
		fmt.Fprintf(p.errOut, "\n%s\n", suggestions[0])
	default:
		fmt.Fprintf(p.errOut, "\nEither:\n")
		for i, s := range suggestions {
			fmt.Fprintf(p.errOut, "  %d. %s\n", i+1, s)
		}
	}
}

// OTU prints an OTU with its plan, isolates and excluded accessions.
func (p *Printer) OTU(o *model.OTU) {
	bold.Fprintf(p.out, "%s", o.Name)
	if o.Acronym != "" {
		fmt.Fprintf(p.out, " (%s)", o.Acronym)
	}
	fmt.Fprintf(p.out, "\n")
	faint.Fprintf(p.out, "  taxid %d  id %s", o.Taxid, o.ID)
	if o.LegacyID != "" {
		faint.Fprintf(p.out, "  legacy %s", o.LegacyID)
	}
	fmt.Fprintf(p.out, "\n  molecule %s\n\n", o.Molecule)

	bold.Fprintf(p.out, "Plan\n")
	for _, seg := range o.Plan.Segments {
		fmt.Fprintf(p.out, "  %-12s %-11s %d (%d-%d)\n",
			seg.Label(), seg.Rule, seg.Length, seg.MinLength(), seg.MaxLength())
	}

	bold.Fprintf(p.out, "\nIsolates\n")
	for _, iso := range o.Isolates {
		fmt.Fprintf(p.out, "  %s\n", iso.Name)
		for _, seg := range o.Plan.Segments {
			seqs := iso.SequencesForSegment(seg.ID)
			if len(seqs) == 0 {
				faint.Fprintf(p.out, "    %-12s -\n", seg.Label())
				continue
			}
			for _, s := range seqs {
				fmt.Fprintf(p.out, "    %-12s %s.%d  %d", seg.Label(), s.Accession, s.Version, s.Length)
				if s.RefSeq {
					cyan.Fprintf(p.out, "  refseq")
				}
				if !seg.Accepts(s.Length) {
					yellow.Fprintf(p.out, "  length out of range")
				}
				fmt.Fprintf(p.out, "\n")
			}
		}
	}

	if excluded := o.ExcludedAccessions(); len(excluded) > 0 {
		bold.Fprintf(p.out, "\nExcluded\n")
		fmt.Fprintf(p.out, "  %s\n", strings.Join(excluded, ", "))
	}
}

// Change prints the difference between two versions of an OTU.
func (p *Printer) Change(c otu.Change) {
	if c.Empty() {
		faint.Fprintf(p.out, "no changes\n")
		return
	}
	for _, name := range c.AddedIsolates {
		green.Fprintf(p.out, "+ isolate %s\n", name)
	}
	lines := []struct {
		sign string
		what string
		accs []string
		c    *color.Color
	}{
		{"+", "added", c.Added, green},
		{"^", "version bumped", c.Bumped, cyan},
		{"-", "excluded", c.Excluded, red},
		{"+", "included", c.Included, green},
	}
	for _, l := range lines {
		if len(l.accs) > 0 {
			l.c.Fprintf(p.out, "%s %s %s\n", l.sign, l.what, strings.Join(l.accs, ", "))
		}
	}
}

// Versions prints a version history, newest first.
func (p *Printer) Versions(versions []model.OTUVersion) {
	for _, v := range versions {
		fmt.Fprintf(p.out, "v%-4d %-8s %s  ", v.Version, v.Action, v.CreatedAt.Format("2006-01-02 15:04:05"))
		faint.Fprintf(p.out, "%s\n", v.ID)
	}
}

// List prints one line per OTU.
func (p *Printer) List(versions []model.OTUVersion) {
	for _, v := range versions {
		isolates, accessions := 0, 0
		if v.OTU != nil {
			isolates = len(v.OTU.Isolates)
			accessions = len(v.OTU.Accessions())
		}
		fmt.Fprintf(p.out, "%-10d %-40s v%-3d %3d isolates %4d accessions\n",
			v.Taxid, v.Name, v.Version, isolates, accessions)
	}
}

// SearchResults prints search hits.
func (p *Printer) SearchResults(results []store.SearchResult) {
	for _, r := range results {
		fmt.Fprintf(p.out, "%-10d %s", r.Taxid, r.Name)
		if r.MatchAccession != "" {
			cyan.Fprintf(p.out, "  %s", r.MatchAccession)
			if r.Excluded {
				red.Fprintf(p.out, " (excluded)")
			}
		}
		fmt.Fprintf(p.out, "\n")
	}
}

// Links prints accession links.
func (p *Printer) Links(links []store.Link) {
	for _, l := range links {
		fmt.Fprintf(p.out, "%s %s %s\n", l.From, l.Rel, l.To)
	}
}
