package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veleitoral/apura/internal/ingest"
	"github.com/veleitoral/apura/internal/store"
	"github.com/veleitoral/apura/internal/tse"
)

func setupStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestAssertVoteTotal(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	require.NoError(t, st.InsertSectionVotes(ctx, []tse.SectionVote{
		{Year: "2024", State: "SP", PayeeNumber: "100", Votes: 50},
		{Year: "2024", State: "SP", PayeeNumber: "100", Votes: 20},
		{Year: "2024", State: "RJ", PayeeNumber: "100", Votes: 5},
	}))

	err := assertVoteTotal(ctx, st, Assertion{
		Where: map[string]string{"year": "2024", "state": "SP", "payee": "100"},
		Total: 70,
	})
	assert.NoError(t, err)

	err = assertVoteTotal(ctx, st, Assertion{
		Where: map[string]string{"year": "2024", "state": "SP", "payee": "100"},
		Total: 75,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "got 70")
}

func TestAssertVoteTotal_EmptyTableSumsToZero(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	err := assertVoteTotal(ctx, st, Assertion{
		Where: map[string]string{"year": "2024"},
		Total: 0,
	})
	assert.NoError(t, err, "a never-loaded table sums to zero, not an error")
}

func TestAssertTableCount(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	require.NoError(t, st.InsertSectionVotes(ctx, []tse.SectionVote{
		{Year: "2024", State: "SP", PayeeNumber: "100", Votes: 1},
	}))

	assert.NoError(t, assertTableCount(ctx, st, Assertion{Table: store.TableSectionVotes, Count: 1}))
	assert.Error(t, assertTableCount(ctx, st, Assertion{Table: store.TableSectionVotes, Count: 2}))
	assert.Error(t, assertTableCount(ctx, st, Assertion{Table: "nao_existe", Count: 0}))
}

func TestAssertCandidateStatus(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	require.NoError(t, st.UpsertCandidates(ctx, []tse.CandidateMeta{{
		Year: "2022", State: "SP", OfficeCode: "13", Round: 1,
		CandidateNumber: "4512", CandidateName: "Maria", Status: "ELEITO",
	}}))

	where := map[string]string{"year": "2022", "state": "SP", "office": "13", "candidate": "4512"}
	assert.NoError(t, assertCandidateStatus(ctx, st, Assertion{Where: where, Status: "ELEITO"}))

	err := assertCandidateStatus(ctx, st, Assertion{Where: where, Status: "SUPLENTE"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `got "ELEITO"`)

	err = assertCandidateStatus(ctx, st, Assertion{
		Where:  map[string]string{"year": "2022", "state": "SP", "office": "13", "candidate": "9999"},
		Status: "ELEITO",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no candidate matches")
}

func TestAssertFileStatus(t *testing.T) {
	res := &Result{Reports: []*ingest.Report{{
		Files: []ingest.FileReport{
			{Name: "votacao_secao_2024_SP.csv", Status: tse.ImportOK, Rows: 3},
			{Name: "leiame.csv", Status: tse.ImportSkipped},
		},
	}}}

	assert.NoError(t, assertFileStatus(res, Assertion{File: "votacao_secao_2024_SP.csv", Status: "ok", Rows: 3}))
	assert.NoError(t, assertFileStatus(res, Assertion{File: "leiame.csv", Status: "skipped"}))

	err := assertFileStatus(res, Assertion{File: "votacao_secao_2024_SP.csv", Status: "ok", Rows: 5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 5 rows")

	err = assertFileStatus(res, Assertion{File: "sumiu.csv", Status: "ok"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not present in report")
}
