// Package transform reads a classified source file in bounded-memory
// chunks and projects each chunk into the canonical row shape for its
// target table.
//
// Source files are semicolon-separated, Latin-1 encoded CSV, some of
// them tens of gigabytes. The reader therefore never materializes more
// than one chunk of rows, and the produced sequence of batches is lazy,
// finite and non-restartable - restarting requires reopening the file.
package transform

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/veleitoral/apura/internal/layout"
	"github.com/veleitoral/apura/internal/tse"
)

// DefaultChunkSize bounds peak memory regardless of file size.
const DefaultChunkSize = 100_000

// ErrNoVoteColumn reports a file routed to the section-vote table whose
// layout has no usable vote-count column. The caller treats the file as
// metadata-only instead of aborting the run.
var ErrNoVoteColumn = errors.New("layout has no vote-count column")

// Options configures a Reader.
type Options struct {
	// ChunkSize is the number of rows per batch. Defaults to
	// DefaultChunkSize when zero.
	ChunkSize int

	// Lenient skips individual unparsable lines instead of failing the
	// file. Used on the one retry after a strict parse failure.
	Lenient bool

	// Resolver maps column names to semantic roles. The zero value
	// uses the built-in alias tables.
	Resolver layout.Resolver
}

// Stats are counted-diagnostics accumulated while reading.
type Stats struct {
	// CoercedCells counts counter cells coerced to 0 because they were
	// blank, sentinel or garbled.
	CoercedCells int64

	// SkippedLines counts source lines dropped in lenient mode.
	SkippedLines int64

	// DroppedRows counts structurally valid rows dropped for missing a
	// required identifier (control/footer rows).
	DroppedRows int64
}

// Batch is one chunk of canonical rows. Exactly one of the row slices
// is populated, matching Kind.
type Batch struct {
	Kind tse.FileKind

	SectionVotes []tse.SectionVote
	Summaries    []tse.MunZoneSummary
	Candidates   []tse.CandidateMeta
	Parties      []tse.PartyMeta
	Locations    []tse.LocationDetail
}

// Len returns the number of rows in the batch.
func (b *Batch) Len() int {
	return len(b.SectionVotes) + len(b.Summaries) + len(b.Candidates) + len(b.Parties) + len(b.Locations)
}

// Reader streams one source file as canonical-row batches.
type Reader struct {
	kind  tse.FileKind
	year  string // file-level hint; per-row column when empty
	state string

	cr   *csv.Reader
	cols layout.ColumnMap
	idx  map[string]int

	opts  Options
	stats Stats
	done  bool
}

// New wraps r, reads and normalizes the header, and resolves columns.
//
// yearHint and stateHint come from the file name and take priority over
// the per-row columns; pass empty strings to fall back per row.
// Returns ErrNoVoteColumn when kind is KindSectionVote and the layout
// carries no vote-count role.
func New(r io.Reader, kind tse.FileKind, yearHint, stateHint string, opts Options) (*Reader, error) {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}

	cr := csv.NewReader(charmap.ISO8859_1.NewDecoder().Reader(stripBOM(r)))
	cr.Comma = ';'
	if opts.Lenient {
		cr.LazyQuotes = true
		cr.FieldsPerRecord = -1
	}

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	idx := make(map[string]int, len(header))
	columns := make([]string, len(header))
	for i, name := range header {
		name = strings.ToUpper(strings.TrimSpace(name))
		name = strings.Trim(name, `"`)
		columns[i] = name
		idx[name] = i
	}

	cols := opts.Resolver.Resolve(columns)
	if kind == tse.KindSectionVote && !cols.HasVote() {
		return nil, ErrNoVoteColumn
	}

	return &Reader{
		kind:  kind,
		year:  yearHint,
		state: stateHint,
		cr:    cr,
		cols:  cols,
		idx:   idx,
		opts:  opts,
	}, nil
}

// stripBOM discards a leading UTF-8 byte order mark. Some re-exported
// files gain one on the way through spreadsheet tooling.
func stripBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if lead, err := br.Peek(3); err == nil && bytes.Equal(lead, []byte{0xEF, 0xBB, 0xBF}) {
		br.Discard(3)
	}
	return br
}

// Columns returns the resolved column map.
func (t *Reader) Columns() layout.ColumnMap { return t.cols }

// Stats returns the diagnostics accumulated so far. Final after the
// first io.EOF from Next.
func (t *Reader) Stats() Stats { return t.stats }

// Next returns the next batch of canonical rows, or io.EOF when the
// file is exhausted. Any other error means the file's row structure is
// unparsable at the current strictness.
func (t *Reader) Next() (*Batch, error) {
	if t.done {
		return nil, io.EOF
	}

	batch := &Batch{Kind: t.kind}
	for batch.Len() < t.opts.ChunkSize {
		rec, err := t.cr.Read()
		if err == io.EOF {
			t.done = true
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if t.opts.Lenient && errors.As(err, &parseErr) {
				t.stats.SkippedLines++
				continue
			}
			return nil, fmt.Errorf("reading row: %w", err)
		}
		t.project(batch, rec)
	}

	if batch.Len() == 0 {
		return nil, io.EOF
	}
	return batch, nil
}

func (t *Reader) project(batch *Batch, rec []string) {
	switch t.kind {
	case tse.KindSectionVote:
		t.projectSectionVote(batch, rec)
	case tse.KindMunZoneSummary:
		t.projectSummary(batch, rec)
	case tse.KindCandidateMeta:
		t.projectCandidate(batch, rec)
	case tse.KindPartyMeta:
		t.projectParty(batch, rec)
	case tse.KindLocationDetail:
		t.projectLocation(batch, rec)
	}
}

// get returns the cleaned cell for a resolved column name, or "" when
// the role is absent or the record is short.
func (t *Reader) get(rec []string, col string) string {
	if col == "" {
		return ""
	}
	i, ok := t.idx[col]
	if !ok || i >= len(rec) {
		return ""
	}
	return tse.CleanCell(rec[i])
}

// count coerces a counter column to a non-negative integer, counting
// coerced defaults. Columns absent from the layout contribute 0 without
// counting.
func (t *Reader) count(rec []string, col string) int64 {
	if col == "" {
		return 0
	}
	i, ok := t.idx[col]
	if !ok || i >= len(rec) {
		return 0
	}
	n, ok := tse.ParseCount(rec[i])
	if !ok {
		t.stats.CoercedCells++
	}
	return n
}

// rowYear and rowState prefer the file-name hint and fall back to the
// per-row column.
func (t *Reader) rowYear(rec []string) string {
	if t.year != "" {
		return t.year
	}
	return t.get(rec, t.cols.Year)
}

func (t *Reader) rowState(rec []string) string {
	if t.state != "" {
		return t.state
	}
	return t.get(rec, t.cols.State)
}

func (t *Reader) projectSectionVote(batch *Batch, rec []string) {
	payee := t.get(rec, t.cols.PayeeNumber)
	if payee == "" {
		payee = t.get(rec, t.cols.CandidateNumber)
	}
	if payee == "" {
		// Control/footer row, not data.
		t.stats.DroppedRows++
		return
	}

	batch.SectionVotes = append(batch.SectionVotes, tse.SectionVote{
		Year:  t.rowYear(rec),
		Round: t.count(rec, t.cols.Round),
		State: t.rowState(rec),

		MunicipalityCode: t.get(rec, t.cols.MunicipalityCode),
		MunicipalityName: t.get(rec, t.cols.MunicipalityName),
		Zone:             t.get(rec, t.cols.Zone),
		Section:          t.get(rec, t.cols.Section),

		PollingPlaceCode:    t.get(rec, t.cols.PollingPlaceCode),
		PollingPlaceName:    t.get(rec, t.cols.PollingPlaceName),
		PollingPlaceAddress: t.get(rec, t.cols.PollingPlaceAddress),

		OfficeCode: t.get(rec, t.cols.OfficeCode),
		OfficeName: t.get(rec, t.cols.OfficeName),

		PayeeNumber: payee,
		PayeeName:   t.get(rec, t.cols.PayeeName),

		PartyNumber:  t.get(rec, t.cols.PartyNumber),
		PartyAcronym: t.get(rec, "SG_PARTIDO"),

		Votes: t.count(rec, t.cols.Vote),
	})
}

func (t *Reader) projectSummary(batch *Batch, rec []string) {
	batch.Summaries = append(batch.Summaries, tse.MunZoneSummary{
		Year:  t.rowYear(rec),
		Round: t.count(rec, t.cols.Round),
		State: t.rowState(rec),

		MunicipalityCode: t.get(rec, t.cols.MunicipalityCode),
		MunicipalityName: t.get(rec, t.cols.MunicipalityName),
		Zone:             t.get(rec, t.cols.Zone),

		OfficeCode: t.get(rec, t.cols.OfficeCode),
		OfficeName: t.get(rec, t.cols.OfficeName),

		Eligible:    t.count(rec, "QT_APTOS"),
		Sections:    t.count(rec, "QT_TOTAL_SECOES"),
		Turnout:     t.count(rec, "QT_COMPARECIMENTO"),
		Abstentions: t.count(rec, "QT_ABSTENCOES"),

		Votes:               t.count(rec, "QT_VOTOS"),
		ValidNominalVotes:   t.count(rec, "QT_VOTOS_NOMINAIS_VALIDOS"),
		BlankVotes:          t.count(rec, "QT_VOTOS_BRANCOS"),
		NullVotes:           t.count(rec, "QT_TOTAL_VOTOS_NULOS"),
		ValidPartyListTotal: t.count(rec, "QT_TOTAL_VOTOS_LEG_VALIDOS"),
		ValidPartyListVotes: t.count(rec, "QT_VOTOS_LEG_VALIDOS"),
	})
}

func (t *Reader) projectCandidate(batch *Batch, rec []string) {
	number := t.get(rec, t.cols.CandidateNumber)
	if number == "" {
		number = t.get(rec, t.cols.PayeeNumber)
	}
	if number == "" {
		t.stats.DroppedRows++
		return
	}

	batch.Candidates = append(batch.Candidates, tse.CandidateMeta{
		Year:  t.rowYear(rec),
		State: t.rowState(rec),
		Round: t.count(rec, t.cols.Round),

		OfficeCode: t.get(rec, t.cols.OfficeCode),
		OfficeName: t.get(rec, t.cols.OfficeName),

		CandidateNumber: number,
		CandidateName:   t.get(rec, "NM_CANDIDATO"),
		BallotName:      t.get(rec, "NM_URNA_CANDIDATO"),

		PartyNumber:  t.get(rec, t.cols.PartyNumber),
		PartyAcronym: t.get(rec, "SG_PARTIDO"),

		Status: t.get(rec, t.cols.Status),
	})
}

func (t *Reader) projectParty(batch *Batch, rec []string) {
	number := t.get(rec, t.cols.PartyNumber)
	if number == "" {
		t.stats.DroppedRows++
		return
	}

	batch.Parties = append(batch.Parties, tse.PartyMeta{
		Year:  t.rowYear(rec),
		State: t.rowState(rec),
		Round: t.count(rec, t.cols.Round),

		OfficeCode: t.get(rec, t.cols.OfficeCode),

		MunicipalityCode: t.get(rec, t.cols.MunicipalityCode),

		PartyNumber:  number,
		PartyAcronym: t.get(rec, "SG_PARTIDO"),
		PartyName:    t.get(rec, "NM_PARTIDO"),

		Status: t.get(rec, t.cols.Status),
	})
}

func (t *Reader) projectLocation(batch *Batch, rec []string) {
	batch.Locations = append(batch.Locations, tse.LocationDetail{
		Year:  t.rowYear(rec),
		State: t.rowState(rec),

		MunicipalityCode: t.get(rec, t.cols.MunicipalityCode),
		MunicipalityName: t.get(rec, t.cols.MunicipalityName),
		Zone:             t.get(rec, t.cols.Zone),
		Section:          t.get(rec, t.cols.Section),

		PollingPlaceCode:    t.get(rec, t.cols.PollingPlaceCode),
		PollingPlaceName:    t.get(rec, t.cols.PollingPlaceName),
		PollingPlaceAddress: t.get(rec, t.cols.PollingPlaceAddress),
	})
}
