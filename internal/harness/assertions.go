package harness

import (
	"context"
	"fmt"

	"github.com/veleitoral/apura/internal/store"
)

// EvaluateAssertions checks every assertion against the final database
// and the last run's report, returning one message per failure.
func EvaluateAssertions(ctx context.Context, st *store.Store, result *Result, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertVoteTotal:
			err = assertVoteTotal(ctx, st, a)
		case AssertTableCount:
			err = assertTableCount(ctx, st, a)
		case AssertCandidateStatus:
			err = assertCandidateStatus(ctx, st, a)
		case AssertFileStatus:
			err = assertFileStatus(result, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			failures = append(failures, fmt.Sprintf("assertion[%d] %s: %v", i, a.Type, err))
		}
	}
	return failures
}

func assertVoteTotal(ctx context.Context, st *store.Store, a Assertion) error {
	filter := store.VoteFilter{
		Year:             a.Where["year"],
		State:            a.Where["state"],
		MunicipalityCode: a.Where["municipality"],
		OfficeCode:       a.Where["office"],
		Round:            a.Where["round"],
		PayeeNumber:      a.Where["payee"],
	}
	totals, err := st.SumVotesByPayee(ctx, filter)
	if err != nil {
		return err
	}
	var sum int64
	for _, t := range totals {
		sum += t.Votes
	}
	if sum != a.Total {
		return fmt.Errorf("expected total %d under %v, got %d", a.Total, a.Where, sum)
	}
	return nil
}

func assertTableCount(ctx context.Context, st *store.Store, a Assertion) error {
	counts, err := st.TableCounts(ctx)
	if err != nil {
		return err
	}
	n, ok := counts[a.Table]
	if !ok {
		return fmt.Errorf("unknown table %q", a.Table)
	}
	if n != a.Count {
		return fmt.Errorf("expected %d rows in %s, got %d", a.Count, a.Table, n)
	}
	return nil
}

func assertCandidateStatus(ctx context.Context, st *store.Store, a Assertion) error {
	exists, err := st.TableExists(ctx, store.TableCandidates)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("candidate table was never loaded")
	}

	rows, err := st.Query(ctx, `
		SELECT ds_sit_tot_turno FROM candidatos_munzona
		WHERE ano = ? AND uf = ? AND cd_cargo = ? AND nr_candidato = ?`,
		a.Where["year"], a.Where["state"], a.Where["office"], a.Where["candidate"])
	if err != nil {
		return err
	}
	defer rows.Close()

	if !rows.Next() {
		return fmt.Errorf("no candidate matches %v", a.Where)
	}
	var status string
	if err := rows.Scan(&status); err != nil {
		return err
	}
	if status != a.Status {
		return fmt.Errorf("expected status %q for %v, got %q", a.Status, a.Where, status)
	}
	return rows.Err()
}

func assertFileStatus(result *Result, a Assertion) error {
	if len(result.Reports) == 0 {
		return fmt.Errorf("no ingestion report available")
	}
	report := result.Reports[len(result.Reports)-1]
	for _, f := range report.Files {
		if f.Name != a.File {
			continue
		}
		if string(f.Status) != a.Status {
			return fmt.Errorf("expected status %q for %s, got %q", a.Status, a.File, f.Status)
		}
		if a.Rows > 0 && f.Rows != a.Rows {
			return fmt.Errorf("expected %d rows for %s, got %d", a.Rows, a.File, f.Rows)
		}
		return nil
	}
	return fmt.Errorf("file %q not present in report", a.File)
}
