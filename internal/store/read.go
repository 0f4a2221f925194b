package store

import (
	"context"
	"fmt"
	"time"

	"github.com/veleitoral/apura/internal/tse"
)

// VoteFilter narrows a vote aggregation. Empty fields are not applied.
type VoteFilter struct {
	Year             string
	State            string
	MunicipalityCode string
	OfficeCode       string
	Round            string
	PayeeNumber      string
}

// VoteTotal is one aggregated result row, summed at query time: the
// section-vote table carries no uniqueness constraint, SUM is the
// reducer.
type VoteTotal struct {
	Year        string `json:"ano"`
	State       string `json:"uf"`
	PayeeNumber string `json:"nr_votavel"`
	PayeeName   string `json:"nm_votavel"`
	Party       string `json:"sg_partido"`
	Votes       int64  `json:"total_votos"`
}

// SumVotesByPayee aggregates section votes grouped by
// (year, state, payee), the canonical aggregation key.
func (s *Store) SumVotesByPayee(ctx context.Context, f VoteFilter) ([]VoteTotal, error) {
	exists, err := s.TableExists(ctx, TableSectionVotes)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	query := `
		SELECT ano, uf, nr_votavel,
		       COALESCE(MAX(nm_votavel), ''),
		       COALESCE(MAX(sg_partido), ''),
		       SUM(qt_votos)
		FROM votos_secao
		WHERE 1=1`
	var args []any

	add := func(col, val string) {
		if val != "" {
			query += " AND " + col + " = ?"
			args = append(args, val)
		}
	}
	add("ano", f.Year)
	add("uf", f.State)
	add("cd_municipio", f.MunicipalityCode)
	add("cd_cargo", f.OfficeCode)
	add("nr_turno", f.Round)
	add("nr_votavel", f.PayeeNumber)

	query += `
		GROUP BY ano, uf, nr_votavel
		ORDER BY SUM(qt_votos) DESC, nr_votavel ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("summing votes: %w", err)
	}
	defer rows.Close()

	var totals []VoteTotal
	for rows.Next() {
		var t VoteTotal
		if err := rows.Scan(&t.Year, &t.State, &t.PayeeNumber, &t.PayeeName, &t.Party, &t.Votes); err != nil {
			return nil, fmt.Errorf("scanning vote total: %w", err)
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

// TableCounts returns the row count per known table. Tables that were
// never created count as 0.
func (s *Store) TableCounts(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64)
	tables := []string{
		TableSectionVotes, TableSummaries, TableCandidates,
		TableParties, TableLocations, TableImportLog,
	}
	for _, table := range tables {
		exists, err := s.TableExists(ctx, table)
		if err != nil {
			return nil, err
		}
		if !exists {
			counts[table] = 0
			continue
		}
		var n int64
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("counting %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}

// Years returns the distinct election years present in the section-vote
// table, ascending.
func (s *Store) Years(ctx context.Context) ([]string, error) {
	exists, err := s.TableExists(ctx, TableSectionVotes)
	if err != nil || !exists {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT ano FROM votos_secao WHERE ano IS NOT NULL AND ano != '' ORDER BY ano`)
	if err != nil {
		return nil, fmt.Errorf("listing years: %w", err)
	}
	defer rows.Close()

	var years []string
	for rows.Next() {
		var y string
		if err := rows.Scan(&y); err != nil {
			return nil, err
		}
		years = append(years, y)
	}
	return years, rows.Err()
}

// ImportLog returns the most recent import log entries, newest first.
func (s *Store) ImportLog(ctx context.Context, limit int) ([]tse.ImportLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, tipo_arquivo, nome_arquivo, linhas_importadas,
		       status, celulas_corrigidas, linhas_puladas, created_at
		FROM import_log
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("reading import log: %w", err)
	}
	defer rows.Close()

	var entries []tse.ImportLogEntry
	for rows.Next() {
		var e tse.ImportLogEntry
		var kind, status, created string
		if err := rows.Scan(&e.ID, &e.RunID, &kind, &e.FileName, &e.Rows,
			&status, &e.CoercedCells, &e.SkippedLines, &created); err != nil {
			return nil, fmt.Errorf("scanning import log: %w", err)
		}
		e.Kind = tse.ParseFileKind(kind)
		e.Status = tse.ImportLogStatus(status)
		if ts, err := time.Parse("2006-01-02 15:04:05", created); err == nil {
			e.CreatedAt = ts
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
