package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/veleitoral/apura/internal/ingest"
	"github.com/veleitoral/apura/internal/store"
)

// Snapshot captures the deterministic parts of a scenario execution
// for golden comparison: per-run file outcomes and the final vote
// aggregates. Run identifiers are excluded since they are random.
type Snapshot struct {
	Scenario string            `json:"scenario"`
	Runs     []RunSnapshot     `json:"runs"`
	Totals   []store.VoteTotal `json:"totals,omitempty"`
}

// RunSnapshot is the outcome of one ingestion run.
type RunSnapshot struct {
	Rows  int64               `json:"rows"`
	Files []ingest.FileReport `json:"files"`
}

func snapshot(scenario *Scenario, result *Result) Snapshot {
	s := Snapshot{Scenario: scenario.Name, Totals: result.Totals}
	for _, report := range result.Reports {
		s.Runs = append(s.Runs, RunSnapshot{Rows: report.Rows, Files: report.Files})
	}
	return s
}

// RunWithGolden executes a scenario, fails the test on any assertion
// error, and compares the execution snapshot against the golden file
// in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		t.Fatalf("running scenario %s: %v", scenario.Name, err)
	}
	for _, msg := range result.Errors {
		t.Error(msg)
	}

	data, err := json.MarshalIndent(snapshot(scenario, result), "", "  ")
	if err != nil {
		t.Fatalf("marshaling snapshot: %v", err)
	}
	data = append(data, '\n')

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
}
