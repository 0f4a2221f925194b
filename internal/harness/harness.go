// Package harness provides an end-to-end testing framework for the
// ingestion pipeline.
//
// Scenarios are YAML files describing fixture CSV files, ingestion
// options and assertions. The harness writes the fixtures Latin-1
// encoded into a temporary data directory, runs the real ingestion
// pipeline against an in-memory database, and evaluates the assertions
// against the resulting tables and run report. Golden files snapshot
// the per-file outcomes and the final vote aggregates.
package harness

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/veleitoral/apura/internal/ingest"
	"github.com/veleitoral/apura/internal/layout"
	"github.com/veleitoral/apura/internal/store"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Errors contains assertion failure messages. Empty if Pass.
	Errors []string `json:"errors,omitempty"`

	// Reports holds one ingestion report per run.
	Reports []*ingest.Report `json:"reports"`

	// Totals are the final vote aggregates over the whole database.
	Totals []store.VoteTotal `json:"totals,omitempty"`
}

// Run executes a scenario against a fresh in-memory database and a
// temporary data directory.
func Run(scenario *Scenario) (*Result, error) {
	dataDir, err := os.MkdirTemp("", "apura-scenario-*")
	if err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	defer os.RemoveAll(dataDir)

	if err := writeFixtures(dataDir, scenario); err != nil {
		return nil, err
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("creating in-memory store: %w", err)
	}
	defer st.Close()

	opts := []ingest.Option{
		ingest.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		ingest.WithLenient(scenario.Options.Lenient),
	}
	if scenario.Options.ChunkSize > 0 {
		opts = append(opts, ingest.WithChunkSize(scenario.Options.ChunkSize))
	}
	if len(scenario.Options.ExtraVoteAliases) > 0 {
		opts = append(opts, ingest.WithResolver(layout.Resolver{
			ExtraVoteAliases: scenario.Options.ExtraVoteAliases,
		}))
	}
	ing := ingest.New(st, dataDir, opts...)

	ctx := context.Background()
	runs := scenario.Runs
	if runs == 0 {
		runs = 1
	}

	result := &Result{Pass: true}
	for i := 0; i < runs; i++ {
		report, err := ing.IngestAll(ctx, scenario.Options.Clear)
		if err != nil {
			return nil, fmt.Errorf("run %d: %w", i+1, err)
		}
		result.Reports = append(result.Reports, report)
	}

	result.Totals, err = st.SumVotesByPayee(ctx, store.VoteFilter{})
	if err != nil {
		return nil, fmt.Errorf("reading vote totals: %w", err)
	}

	for _, msg := range EvaluateAssertions(ctx, st, result, scenario.Assertions) {
		result.Errors = append(result.Errors, msg)
		result.Pass = false
	}
	return result, nil
}

// writeFixtures materializes the scenario's files and archives in the
// data directory, Latin-1 encoded.
func writeFixtures(dataDir string, scenario *Scenario) error {
	for _, f := range scenario.Files {
		content, err := encodeLatin1(fixtureContent(f))
		if err != nil {
			return fmt.Errorf("encoding fixture %s: %w", f.Name, err)
		}
		if err := os.WriteFile(filepath.Join(dataDir, f.Name), content, 0o644); err != nil {
			return fmt.Errorf("writing fixture %s: %w", f.Name, err)
		}
	}

	for _, a := range scenario.Archives {
		if err := writeArchive(filepath.Join(dataDir, a.Name), a.Members); err != nil {
			return fmt.Errorf("writing archive %s: %w", a.Name, err)
		}
	}
	return nil
}

func writeArchive(path string, members []FileFixture) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, m := range members {
		w, err := zw.Create(m.Name)
		if err != nil {
			return err
		}
		content, err := encodeLatin1(fixtureContent(m))
		if err != nil {
			return err
		}
		if _, err := w.Write(content); err != nil {
			return err
		}
	}
	return zw.Close()
}

func fixtureContent(f FileFixture) string {
	var sb strings.Builder
	sb.WriteString(f.Header)
	sb.WriteString("\n")
	for _, row := range f.Rows {
		sb.WriteString(row)
		sb.WriteString("\n")
	}
	return sb.String()
}

func encodeLatin1(s string) ([]byte, error) {
	encoded, err := charmap.ISO8859_1.NewEncoder().String(s)
	if err != nil {
		return nil, err
	}
	return []byte(encoded), nil
}
