package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"

	"github.com/tsawler/deedscan/deed"
)

// Run describes a finished batch for WriteSummary.
type Run struct {
	RunID      string
	Identifier string
	Started    time.Time
	Elapsed    time.Duration
	// Rows holds one row per record, including rows that could not be
	// stored.
	Rows []Row
	// Lost counts rows no sink accepted.
	Lost int
}

// WriteSummary writes a Markdown summary of run to w.
func WriteSummary(w io.Writer, run Run) error {
	md := markdown.NewMarkdown(w)

	md.H1("deedscan run: " + run.Identifier)
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run ID", "`" + run.RunID + "`"},
			{"Started", run.Started.Format("2006-01-02 15:04:05 MST")},
			{"Elapsed", run.Elapsed.Round(time.Millisecond).String()},
			{"Records", strconv.Itoa(len(run.Rows))},
			{"Lost rows", strconv.Itoa(run.Lost)},
		},
	})
	md.PlainText("")

	writeCounts(md, run)
	writeReview(md, run)

	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Generated by deedscan at %s*", run.Started.Add(run.Elapsed).Format(time.RFC3339))

	if err := md.Build(); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

func writeCounts(md *markdown.Markdown, run Run) {
	counts := make(map[string]int)
	for _, r := range run.Rows {
		counts[r.Provenance]++
	}

	md.H2("Provenance")
	md.PlainText("")
	rows := make([][]string, 0, 5)
	for p := deed.ProvenanceText; p <= deed.ProvenanceFailed; p++ {
		rows = append(rows, []string{p.String(), strconv.Itoa(counts[p.String()])})
	}
	md.Table(markdown.TableSet{Header: []string{"Provenance", "Count"}, Rows: rows})
	md.PlainText("")

	switch {
	case run.Lost > 0:
		md.Cautionf("%d row(s) could not be written to the output.", run.Lost)
	case counts[deed.ProvenanceFailed.String()] > 0:
		md.Warningf("%d document(s) could not be downloaded or read.", counts[deed.ProvenanceFailed.String()])
	case len(run.Rows) > 0 && counts[deed.ProvenanceText.String()] == len(run.Rows):
		md.Tip("Every address was found in the document text.")
	}
	md.PlainText("")
}

func writeReview(md *markdown.Markdown, run Run) {
	md.H2("Rows to review")
	md.PlainText("")

	var rows [][]string
	for _, r := range run.Rows {
		if r.Provenance == deed.ProvenanceText.String() {
			continue
		}
		rows = append(rows, []string{strconv.Itoa(r.Seq), r.Address, r.Owner, r.Extracted, r.Provenance})
	}
	if len(rows) == 0 {
		md.PlainText("None.")
		md.PlainText("")
		return
	}
	md.Table(markdown.TableSet{
		Header: []string{"#", "Address", "Owner", "Extracted", "Provenance"},
		Rows:   rows,
	})
	md.PlainText("")
}
