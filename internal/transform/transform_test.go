package transform

import (
	"errors"
	"io"
	"strings"
	"testing"

	"golang.org/x/text/encoding/charmap"

	"github.com/veleitoral/apura/internal/tse"
)

// latin1 encodes a UTF-8 fixture to ISO 8859-1, the encoding the
// authority publishes in.
func latin1(t *testing.T, s string) string {
	t.Helper()
	enc, err := charmap.ISO8859_1.NewEncoder().String(s)
	if err != nil {
		t.Fatalf("encoding fixture: %v", err)
	}
	return enc
}

const sectionHeader = "ANO_ELEICAO;NR_TURNO;SG_UF;CD_MUNICIPIO;NM_MUNICIPIO;NR_ZONA;NR_SECAO;CD_CARGO;DS_CARGO;NR_VOTAVEL;NM_VOTAVEL;NR_PARTIDO;SG_PARTIDO;QT_VOTOS\n"

func readAll(t *testing.T, r *Reader) []*Batch {
	t.Helper()
	var batches []*Batch
	for {
		b, err := r.Next()
		if err == io.EOF {
			return batches
		}
		if err != nil {
			t.Fatalf("Next() failed: %v", err)
		}
		batches = append(batches, b)
	}
}

func TestSectionVote_Basic(t *testing.T) {
	data := sectionHeader +
		"2024;1;SP;71072;SÃO PAULO;1;10;13;Vereador;100;Alice;10;REP;50\n" +
		"2024;1;SP;71072;SÃO PAULO;1;10;13;Vereador;200;Bob;20;PT;30\n"

	r, err := New(strings.NewReader(latin1(t, data)), tse.KindSectionVote, "2024", "SP", Options{})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	batches := readAll(t, r)
	if len(batches) != 1 {
		t.Fatalf("got %d batches, want 1", len(batches))
	}
	votes := batches[0].SectionVotes
	if len(votes) != 2 {
		t.Fatalf("got %d rows, want 2", len(votes))
	}

	v := votes[0]
	if v.Year != "2024" || v.State != "SP" || v.Round != 1 {
		t.Errorf("row context = (%s, %s, %d), want (2024, SP, 1)", v.Year, v.State, v.Round)
	}
	if v.MunicipalityName != "SÃO PAULO" {
		t.Errorf("MunicipalityName = %q, want decoded Latin-1 value", v.MunicipalityName)
	}
	if v.PayeeNumber != "100" || v.PayeeName != "Alice" || v.Votes != 50 {
		t.Errorf("row = %+v, want payee 100/Alice with 50 votes", v)
	}
	if v.PartyAcronym != "REP" {
		t.Errorf("PartyAcronym = %q, want REP", v.PartyAcronym)
	}
}

func TestSectionVote_HintFallsBackToRowColumns(t *testing.T) {
	data := sectionHeader +
		"2022;2;MG;41238;BELO HORIZONTE;5;77;11;Prefeito;13;Carla;13;PT;12\n"

	r, err := New(strings.NewReader(latin1(t, data)), tse.KindSectionVote, "", "", Options{})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	batches := readAll(t, r)
	v := batches[0].SectionVotes[0]
	if v.Year != "2022" || v.State != "MG" {
		t.Errorf("row context = (%s, %s), want per-row fallback (2022, MG)", v.Year, v.State)
	}
}

func TestSectionVote_SentinelAndGarbageCoerceToZero(t *testing.T) {
	data := sectionHeader +
		"2024;1;SP;71072;SÃO PAULO;1;10;13;Vereador;100;Alice;10;REP;#NULO\n" +
		"2024;1;SP;71072;SÃO PAULO;1;10;13;Vereador;200;Bob;20;PT;4O2\n"

	r, err := New(strings.NewReader(latin1(t, data)), tse.KindSectionVote, "2024", "SP", Options{})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	batches := readAll(t, r)
	votes := batches[0].SectionVotes
	if len(votes) != 2 {
		t.Fatalf("got %d rows, want 2 (bad numerics never drop rows)", len(votes))
	}
	if votes[0].Votes != 0 || votes[1].Votes != 0 {
		t.Errorf("votes = (%d, %d), want (0, 0)", votes[0].Votes, votes[1].Votes)
	}
	if got := r.Stats().CoercedCells; got != 2 {
		t.Errorf("CoercedCells = %d, want 2", got)
	}
}

func TestSectionVote_DropsPayeelessRows(t *testing.T) {
	data := sectionHeader +
		"2024;1;SP;71072;SÃO PAULO;1;10;13;Vereador;100;Alice;10;REP;50\n" +
		"2024;1;SP;71072;SÃO PAULO;1;10;13;Vereador;#NULO;;;;0\n"

	r, err := New(strings.NewReader(latin1(t, data)), tse.KindSectionVote, "2024", "SP", Options{})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	batches := readAll(t, r)
	if got := len(batches[0].SectionVotes); got != 1 {
		t.Fatalf("got %d rows, want 1 after dropping control row", got)
	}
	if got := r.Stats().DroppedRows; got != 1 {
		t.Errorf("DroppedRows = %d, want 1", got)
	}
}

func TestSectionVote_NoVoteColumn(t *testing.T) {
	data := "ANO_ELEICAO;SG_UF;NM_CANDIDATO;SG_PARTIDO\n2024;SP;Alice;REP\n"
	_, err := New(strings.NewReader(data), tse.KindSectionVote, "2024", "SP", Options{})
	if !errors.Is(err, ErrNoVoteColumn) {
		t.Fatalf("New() error = %v, want ErrNoVoteColumn", err)
	}
}

func TestChunkBoundary(t *testing.T) {
	var sb strings.Builder
	sb.WriteString(sectionHeader)
	for i := 0; i < 5; i++ {
		sb.WriteString("2024;1;SP;71072;SAO PAULO;1;10;13;Vereador;100;Alice;10;REP;1\n")
	}

	r, err := New(strings.NewReader(sb.String()), tse.KindSectionVote, "2024", "SP", Options{ChunkSize: 2})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	batches := readAll(t, r)
	if len(batches) != 3 {
		t.Fatalf("got %d batches, want 3 (2+2+1)", len(batches))
	}
	if batches[2].Len() != 1 {
		t.Errorf("last batch Len() = %d, want 1", batches[2].Len())
	}
}

func TestMunZoneSummary_MissingCountersDefaultZero(t *testing.T) {
	data := "ANO_ELEICAO;NR_TURNO;SG_UF;CD_MUNICIPIO;NM_MUNICIPIO;NR_ZONA;CD_CARGO;DS_CARGO;QT_APTOS;QT_COMPARECIMENTO\n" +
		"2024;1;SP;71072;SÃO PAULO;1;13;Vereador;1000;900\n"

	r, err := New(strings.NewReader(latin1(t, data)), tse.KindMunZoneSummary, "2024", "SP", Options{})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	batches := readAll(t, r)
	s := batches[0].Summaries[0]
	if s.Eligible != 1000 || s.Turnout != 900 {
		t.Errorf("counters = (%d, %d), want (1000, 900)", s.Eligible, s.Turnout)
	}
	if s.Abstentions != 0 || s.BlankVotes != 0 || s.ValidPartyListVotes != 0 {
		t.Errorf("absent counters must default to 0, got %+v", s)
	}
	if got := r.Stats().CoercedCells; got != 0 {
		t.Errorf("CoercedCells = %d, want 0 for layout-absent counters", got)
	}
}

func TestCandidateMeta_Projection(t *testing.T) {
	data := "ANO_ELEICAO;NR_TURNO;SG_UF;CD_CARGO;DS_CARGO;NR_CANDIDATO;NM_CANDIDATO;NM_URNA_CANDIDATO;NR_PARTIDO;SG_PARTIDO;DS_SIT_TOT_TURNO;QT_VOTOS_NOMINAIS\n" +
		"2022;1;SP;13;Deputado Estadual;45;Maria Souza;MARIA;45;PSDB;ELEITO;1234\n"

	r, err := New(strings.NewReader(latin1(t, data)), tse.KindCandidateMeta, "2022", "SP", Options{})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	batches := readAll(t, r)
	c := batches[0].Candidates[0]
	if c.CandidateNumber != "45" || c.CandidateName != "Maria Souza" || c.BallotName != "MARIA" {
		t.Errorf("candidate = %+v", c)
	}
	if c.Status != "ELEITO" || c.Round != 1 || c.OfficeCode != "13" {
		t.Errorf("candidate context = %+v", c)
	}
}

func TestPartyMeta_Projection(t *testing.T) {
	data := "ANO_ELEICAO;NR_TURNO;SG_UF;CD_MUNICIPIO;CD_CARGO;NR_PARTIDO;SG_PARTIDO;NM_PARTIDO;DS_SIT_TOT_TURNO\n" +
		"2022;1;SP;71072;13;45;PSDB;Partido da Social Democracia Brasileira;VÁLIDO\n"

	r, err := New(strings.NewReader(latin1(t, data)), tse.KindPartyMeta, "2022", "SP", Options{})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	batches := readAll(t, r)
	p := batches[0].Parties[0]
	if p.PartyNumber != "45" || p.PartyAcronym != "PSDB" || p.MunicipalityCode != "71072" {
		t.Errorf("party = %+v", p)
	}
}

func TestLocationDetail_Projection(t *testing.T) {
	data := "ANO_ELEICAO;SG_UF;CD_MUNICIPIO;NM_MUNICIPIO;NR_ZONA;NR_SECAO;NR_LOCAL_VOTACAO;NM_LOCAL_VOTACAO;DS_LOCAL_VOTACAO_ENDERECO\n" +
		"2024;SP;71072;SÃO PAULO;1;10;1015;EMEF ANTONIO;RUA A, 123\n"

	r, err := New(strings.NewReader(latin1(t, data)), tse.KindLocationDetail, "2024", "SP", Options{})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	batches := readAll(t, r)
	l := batches[0].Locations[0]
	if l.PollingPlaceCode != "1015" || l.PollingPlaceName != "EMEF ANTONIO" {
		t.Errorf("location = %+v", l)
	}
	if l.PollingPlaceAddress != "RUA A, 123" {
		t.Errorf("address = %q", l.PollingPlaceAddress)
	}
}

func TestStrictParseFailure_LenientRetrySkips(t *testing.T) {
	// A stray quote mid-field breaks strict CSV parsing.
	data := sectionHeader +
		"2024;1;SP;71072;SAO PAULO;1;10;13;Vereador;100;Alice;10;REP;50\n" +
		"2024;1;SP;71072;SAO \"PAULO;1;10;13;Vereador;200;Bob\" broken\n" +
		"2024;1;SP;71072;SAO PAULO;1;11;13;Vereador;100;Alice;10;REP;20\n"

	strict, err := New(strings.NewReader(data), tse.KindSectionVote, "2024", "SP", Options{})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	_, err = strict.Next()
	if err == nil {
		t.Fatal("strict Next() succeeded, want parse error")
	}

	lenient, err := New(strings.NewReader(data), tse.KindSectionVote, "2024", "SP", Options{Lenient: true})
	if err != nil {
		t.Fatalf("New() lenient failed: %v", err)
	}
	batches := readAll(t, lenient)
	total := 0
	for _, b := range batches {
		total += len(b.SectionVotes)
	}
	if total != 3 {
		t.Fatalf("lenient rows = %d, want 3 (LazyQuotes tolerates the stray quote)", total)
	}
}

func TestHeaderNormalization(t *testing.T) {
	data := "\uFEFF ano_eleicao ;Sg_Uf;nr_votavel;qt_votos\n2024;SP;100;5\n"
	r, err := New(strings.NewReader(data), tse.KindSectionVote, "", "", Options{})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	batches := readAll(t, r)
	v := batches[0].SectionVotes[0]
	if v.Year != "2024" || v.State != "SP" || v.Votes != 5 {
		t.Errorf("row = %+v, want normalized headers resolved", v)
	}
}
