package ingest

import "github.com/veleitoral/apura/internal/tse"

// FileReport is the per-file outcome of one ingestion attempt.
type FileReport struct {
	Name string       `json:"name"`
	Kind tse.FileKind `json:"kind"`

	Rows         int64 `json:"rows"`
	CoercedCells int64 `json:"coerced_cells,omitempty"`
	SkippedLines int64 `json:"skipped_lines,omitempty"`

	Status tse.ImportLogStatus `json:"status"`
	Err    string              `json:"error,omitempty"`

	// retryLenient asks the caller for the one lenient retry after a
	// strict parse failure. Rows reports how many rows were already
	// committed so the retry can resume past them.
	retryLenient bool
}

// Report is the outcome of one ingestion run.
type Report struct {
	RunID string       `json:"run_id"`
	Rows  int64        `json:"rows"`
	Files []FileReport `json:"files"`
}

func (r *Report) add(fr FileReport) {
	r.Rows += fr.Rows
	r.Files = append(r.Files, fr)
}

// Skipped returns the reports of files that were not loaded.
func (r *Report) Skipped() []FileReport {
	var skipped []FileReport
	for _, f := range r.Files {
		if f.Status == tse.ImportSkipped {
			skipped = append(skipped, f)
		}
	}
	return skipped
}
