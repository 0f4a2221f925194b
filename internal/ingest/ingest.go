// Package ingest orchestrates the load pipeline: it walks a data
// directory, classifies each file, drives the streaming transformer and
// appends the resulting batches to the store, one writer at a time.
//
// Per-file errors are caught, reported and never stop the remaining
// file set; only resource-level failures (unreadable data directory,
// unusable sink) propagate to the caller.
package ingest

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/veleitoral/apura/internal/classify"
	"github.com/veleitoral/apura/internal/layout"
	"github.com/veleitoral/apura/internal/store"
	"github.com/veleitoral/apura/internal/transform"
	"github.com/veleitoral/apura/internal/tse"
)

// Ingestor loads source files into the store. It is the only writer to
// the derived tables; processing is single-threaded and file-at-a-time
// since the bottleneck is disk and batch-insert throughput, not CPU.
type Ingestor struct {
	store     *store.Store
	log       *slog.Logger
	dataDir   string
	chunkSize int
	resolver  layout.Resolver
	lenient   bool
}

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(i *Ingestor) { i.log = l }
}

// WithChunkSize overrides the transformer chunk size.
func WithChunkSize(n int) Option {
	return func(i *Ingestor) { i.chunkSize = n }
}

// WithResolver sets a column resolver with deployment-specific aliases.
func WithResolver(r layout.Resolver) Option {
	return func(i *Ingestor) { i.resolver = r }
}

// WithLenient starts every file in lenient parse mode instead of
// falling back to it after a strict failure.
func WithLenient(lenient bool) Option {
	return func(i *Ingestor) { i.lenient = lenient }
}

// New creates an Ingestor over the given store and data directory.
// The directory is explicit configuration, not ambient state, so
// ingestion is testable against a temporary directory.
func New(st *store.Store, dataDir string, opts ...Option) *Ingestor {
	ing := &Ingestor{
		store:     st,
		log:       slog.Default(),
		dataDir:   dataDir,
		chunkSize: transform.DefaultChunkSize,
	}
	for _, opt := range opts {
		opt(ing)
	}
	return ing
}

// IngestAll classifies and loads every candidate file in the data
// directory (one level, .csv plus the .csv members of .zip archives,
// in name order).
//
// With clearDerived, the derived tables are dropped and repopulated
// first; curated metadata tables are never dropped by this path. The
// returned report carries the total row count and a per-file outcome.
func (ing *Ingestor) IngestAll(ctx context.Context, clearDerived bool) (*Report, error) {
	if clearDerived {
		ing.log.Info("clearing derived tables before reload")
		if err := ing.store.DropDerived(ctx); err != nil {
			return nil, fmt.Errorf("clearing derived tables: %w", err)
		}
	}

	entries, err := os.ReadDir(ing.dataDir)
	if err != nil {
		return nil, fmt.Errorf("listing data directory: %w", err)
	}

	report := &Report{RunID: uuid.NewString()}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(ing.dataDir, name)
		switch strings.ToLower(filepath.Ext(name)) {
		case ".csv":
			fr := ing.ingestSource(ctx, report.RunID, name, tse.KindUnclassified, func() (io.ReadCloser, error) {
				return os.Open(path)
			})
			report.add(fr)
		case ".zip":
			ing.ingestArchive(ctx, report, path)
		}
	}

	ing.log.Info("ingestion run finished",
		"run_id", report.RunID, "files", len(report.Files), "rows", report.Rows)
	return report, nil
}

// IngestFile loads a single file. kindHint, when non-empty, overrides
// name-based classification.
func (ing *Ingestor) IngestFile(ctx context.Context, path string, kindHint tse.FileKind) (*Report, error) {
	report := &Report{RunID: uuid.NewString()}
	fr := ing.ingestSource(ctx, report.RunID, filepath.Base(path), kindHint, func() (io.ReadCloser, error) {
		return os.Open(path)
	})
	report.add(fr)
	return report, nil
}

// ingestArchive loads every .csv member of a zip archive through the
// same classify/transform path as loose files.
func (ing *Ingestor) ingestArchive(ctx context.Context, report *Report, path string) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		report.add(FileReport{
			Name:   filepath.Base(path),
			Status: tse.ImportSkipped,
			Err:    fmt.Sprintf("opening archive: %v", err),
		})
		return
	}
	members := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		if strings.ToLower(filepath.Ext(f.Name)) == ".csv" {
			members = append(members, f.Name)
		}
	}
	zr.Close()
	sort.Strings(members)

	base := filepath.Base(path)
	for _, member := range members {
		display := base + "/" + filepath.Base(member)
		fr := ing.ingestSource(ctx, report.RunID, display, tse.KindUnclassified, archiveOpener(path, member))
		fr.Name = display
		report.add(fr)
	}
}

// archiveOpener reopens one archive member per attempt; the transformer
// sequence is non-restartable, so the lenient retry needs a fresh
// reader.
func archiveOpener(path, member string) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		zr, err := zip.OpenReader(path)
		if err != nil {
			return nil, err
		}
		for _, f := range zr.File {
			if f.Name == member {
				rc, err := f.Open()
				if err != nil {
					zr.Close()
					return nil, err
				}
				return &archiveMember{rc: rc, zr: zr}, nil
			}
		}
		zr.Close()
		return nil, fmt.Errorf("member %s not found in %s", member, path)
	}
}

type archiveMember struct {
	rc io.ReadCloser
	zr *zip.ReadCloser
}

func (m *archiveMember) Read(p []byte) (int, error) { return m.rc.Read(p) }

func (m *archiveMember) Close() error {
	m.rc.Close()
	return m.zr.Close()
}

// ingestSource classifies and loads one file, isolating every error
// into the returned FileReport.
func (ing *Ingestor) ingestSource(ctx context.Context, runID, name string, kindHint tse.FileKind, open func() (io.ReadCloser, error)) FileReport {
	res := classify.Classify(name, nil)
	if kindHint != tse.KindUnclassified {
		res.Kind = kindHint
	}

	fr := ing.loadFile(ctx, name, res, open, ing.lenient, 0)
	if fr.retryLenient {
		ing.log.Warn("strict parse failed, retrying in lenient mode",
			"file", name, "committed_rows", fr.Rows, "error", fr.Err)
		fr = ing.loadFile(ctx, name, res, open, true, fr.Rows)
		if fr.retryLenient {
			// Lenient parsing failed as well: skip the whole file.
			fr.Status = tse.ImportSkipped
			fr.retryLenient = false
		}
	}

	fr.Name = name
	switch fr.Status {
	case tse.ImportSkipped:
		ing.log.Warn("file skipped", "file", name, "kind", fr.Kind.String(), "reason", fr.Err)
	default:
		entry := tse.ImportLogEntry{
			RunID:        runID,
			Kind:         fr.Kind,
			FileName:     name,
			Rows:         fr.Rows,
			Status:       fr.Status,
			CoercedCells: fr.CoercedCells,
			SkippedLines: fr.SkippedLines,
		}
		if err := ing.store.WriteImportLog(ctx, entry); err != nil {
			ing.log.Error("writing import log", "file", name, "error", err)
		}
		ing.log.Info("file loaded",
			"file", name, "kind", fr.Kind.String(), "rows", fr.Rows,
			"coerced_cells", fr.CoercedCells, "skipped_lines", fr.SkippedLines)
	}
	return fr
}

// loadFile runs one pass over a file. A strict parse failure requests
// a lenient retry via FileReport.retryLenient, reporting the rows
// already committed; the retry reopens the source and fast-forwards
// past skipRows projected rows so committed batches are not inserted
// twice. Rows that parsed strictly parse identically in lenient mode,
// so the projected row sequence is a stable prefix across the retry.
func (ing *Ingestor) loadFile(ctx context.Context, name string, res classify.Result, open func() (io.ReadCloser, error), lenient bool, skipRows int64) FileReport {
	fr := FileReport{Kind: res.Kind}

	f, err := open()
	if err != nil {
		fr.Status = tse.ImportSkipped
		fr.Err = fmt.Sprintf("opening file: %v", err)
		return fr
	}
	defer f.Close()

	kind := res.Kind
	if kind == tse.KindUnclassified {
		// The name was inconclusive; fall back to the resolved columns
		// of the first chunk.
		kind = tse.KindSectionVote
	}

	tr, err := transform.New(f, kind, res.Year, res.State, transform.Options{
		ChunkSize: ing.chunkSize,
		Lenient:   lenient,
		Resolver:  ing.resolver,
	})
	if err != nil {
		switch {
		case errors.Is(err, transform.ErrNoVoteColumn) && res.Kind == tse.KindUnclassified:
			fr.Status = tse.ImportSkipped
			fr.Err = "unclassifiable: name and columns match no known kind"
		case errors.Is(err, transform.ErrNoVoteColumn):
			fr.Status = tse.ImportSkipped
			fr.Err = "no vote-count column: treating as metadata-only"
		case lenient:
			fr.Status = tse.ImportSkipped
			fr.Err = fmt.Sprintf("reading header: %v", err)
		default:
			fr.Err = err.Error()
			fr.retryLenient = true
		}
		return fr
	}
	fr.Kind = kind

	// Curated metadata is deduplicated across the whole file before a
	// single upsert: later rows of a split source file are assumed more
	// complete, so the last occurrence per natural key wins.
	candidates := make(map[string]int)
	var candidateRows []tse.CandidateMeta
	parties := make(map[string]int)
	var partyRows []tse.PartyMeta

	// Rows committed by an aborted strict pass count as loaded.
	fr.Rows = skipRows
	for {
		batch, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			if lenient {
				fr.Status = tse.ImportSkipped
				fr.Err = fmt.Sprintf("parse failure mid-file: %v", err)
			} else {
				fr.Err = err.Error()
				fr.retryLenient = true
			}
			return fr
		}

		batch, skipRows = trimCommitted(batch, kind, skipRows)

		switch kind {
		case tse.KindSectionVote:
			err = ing.store.InsertSectionVotes(ctx, batch.SectionVotes)
		case tse.KindMunZoneSummary:
			err = ing.store.InsertSummaries(ctx, batch.Summaries)
		case tse.KindLocationDetail:
			err = ing.store.InsertLocations(ctx, batch.Locations)
		case tse.KindCandidateMeta:
			for _, c := range batch.Candidates {
				if i, ok := candidates[c.Key()]; ok {
					candidateRows[i] = c
					continue
				}
				candidates[c.Key()] = len(candidateRows)
				candidateRows = append(candidateRows, c)
			}
		case tse.KindPartyMeta:
			for _, p := range batch.Parties {
				if i, ok := parties[p.Key()]; ok {
					partyRows[i] = p
					continue
				}
				parties[p.Key()] = len(partyRows)
				partyRows = append(partyRows, p)
			}
		}
		if err != nil {
			// Sink failure: fatal for this file only. Committed batches
			// remain; the file gets no import log entry.
			fr.Status = tse.ImportSkipped
			fr.Err = fmt.Sprintf("writing batch: %v", err)
			return fr
		}

		switch kind {
		case tse.KindSectionVote:
			fr.Rows += int64(len(batch.SectionVotes))
		case tse.KindMunZoneSummary:
			fr.Rows += int64(len(batch.Summaries))
		case tse.KindLocationDetail:
			fr.Rows += int64(len(batch.Locations))
		}
	}

	switch kind {
	case tse.KindCandidateMeta:
		if err := ing.store.UpsertCandidates(ctx, candidateRows); err != nil {
			fr.Status = tse.ImportSkipped
			fr.Err = fmt.Sprintf("writing candidate metadata: %v", err)
			return fr
		}
		fr.Rows = int64(len(candidateRows))
	case tse.KindPartyMeta:
		if err := ing.store.UpsertParties(ctx, partyRows); err != nil {
			fr.Status = tse.ImportSkipped
			fr.Err = fmt.Sprintf("writing party metadata: %v", err)
			return fr
		}
		fr.Rows = int64(len(partyRows))
	}

	stats := tr.Stats()
	fr.CoercedCells = stats.CoercedCells
	fr.SkippedLines = stats.SkippedLines
	fr.Status = tse.ImportOK
	if stats.SkippedLines > 0 {
		fr.Status = tse.ImportPartial
	}
	return fr
}

// trimCommitted drops the first n projected rows of a batch, returning
// the remainder and the rows still to drop. Only derived kinds commit
// mid-file; curated metadata upserts once at the end of the pass.
func trimCommitted(batch *transform.Batch, kind tse.FileKind, n int64) (*transform.Batch, int64) {
	if n == 0 {
		return batch, 0
	}
	switch kind {
	case tse.KindSectionVote:
		batch.SectionVotes, n = dropRows(batch.SectionVotes, n)
	case tse.KindMunZoneSummary:
		batch.Summaries, n = dropRows(batch.Summaries, n)
	case tse.KindLocationDetail:
		batch.Locations, n = dropRows(batch.Locations, n)
	}
	return batch, n
}

func dropRows[T any](rows []T, n int64) ([]T, int64) {
	if n >= int64(len(rows)) {
		return nil, n - int64(len(rows))
	}
	return rows[n:], 0
}

// ClearDerivedData truncates the derived tables and the import log,
// keeping structure. Curated metadata is never touched.
func (ing *Ingestor) ClearDerivedData(ctx context.Context) error {
	ing.log.Info("clearing derived data")
	return ing.store.TruncateDerived(ctx)
}

// BuildIndexes creates the secondary indexes after a load, logging
// skipped targets.
func (ing *Ingestor) BuildIndexes(ctx context.Context) ([]store.IndexResult, error) {
	results, err := ing.store.CreateIndexes(ctx)
	for _, r := range results {
		if r.Skipped {
			ing.log.Warn("index skipped, table never ingested", "index", r.Name, "table", r.Table)
		}
	}
	return results, err
}
