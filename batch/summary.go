package batch

import (
	"fmt"
	"time"

	"github.com/tsawler/deedscan/deed"
	"github.com/tsawler/deedscan/report"
)

// Summary tallies a run.
type Summary struct {
	RunID      string
	Identifier string
	Total      int

	Text         int
	OCR          int
	Redacted     int
	Unrecognized int
	Failed       int

	// Lost counts rows that at least one sink rejected twice.
	Lost int
	// Skipped counts records never processed because the run was canceled.
	Skipped int

	Started time.Time
	Elapsed time.Duration

	// Rows holds the row of every processed record in record order.
	Rows []report.Row
}

func (s *Summary) add(oc outcome) {
	if oc.skipped {
		s.Skipped++
		return
	}
	s.Rows = append(s.Rows, oc.row)
	if oc.lost {
		s.Lost++
	}
	switch oc.row.Provenance {
	case deed.ProvenanceText.String():
		s.Text++
	case deed.ProvenanceOCR.String():
		s.OCR++
	case deed.ProvenanceRedacted.String():
		s.Redacted++
	case deed.ProvenanceUnrecognized.String():
		s.Unrecognized++
	case deed.ProvenanceFailed.String():
		s.Failed++
	}
}

func (s Summary) String() string {
	return fmt.Sprintf("%d records: %d text, %d ocr, %d redacted, %d unrecognized, %d failed, %d lost, %d skipped in %s",
		s.Total, s.Text, s.OCR, s.Redacted, s.Unrecognized, s.Failed, s.Lost, s.Skipped,
		s.Elapsed.Round(time.Millisecond))
}

// Report converts s for report.WriteSummary.
func (s Summary) Report() report.Run {
	return report.Run{
		RunID:      s.RunID,
		Identifier: s.Identifier,
		Started:    s.Started,
		Elapsed:    s.Elapsed,
		Rows:       s.Rows,
		Lost:       s.Lost,
	}
}
