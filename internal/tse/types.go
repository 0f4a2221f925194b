package tse

import (
	"strconv"
	"time"
)

// FileKind identifies which of the known source file layouts a file
// carries. The zero value is Unclassified.
type FileKind string

const (
	// KindUnclassified marks a file that matched no known layout.
	// Unclassified files are skipped and reported, never fatal.
	KindUnclassified FileKind = ""

	// KindSectionVote is a per-section vote tally file
	// (votacao_secao_YYYY_UF.csv).
	KindSectionVote FileKind = "secao"

	// KindMunZoneSummary is a municipality/zone turnout summary file
	// (detalhe_votacao_munzona_YYYY_UF.csv).
	KindMunZoneSummary FileKind = "munzona"

	// KindCandidateMeta is a per-candidate metadata file
	// (votacao_candidato_munzona_YYYY_UF.csv).
	KindCandidateMeta FileKind = "candidato"

	// KindPartyMeta is a per-party metadata file
	// (votacao_partido_munzona_YYYY_UF.csv).
	KindPartyMeta FileKind = "partido"

	// KindLocationDetail is a polling-place detail file
	// (eleitorado_local_votacao_YYYY.csv and friends).
	KindLocationDetail FileKind = "local"
)

// String returns the kind label used in logs and the import log table.
func (k FileKind) String() string {
	if k == KindUnclassified {
		return "unclassified"
	}
	return string(k)
}

// ParseFileKind maps a stored kind label back onto the enum. Labels
// outside the known set, including the "unclassified" placeholder
// String produces, come back as KindUnclassified.
func ParseFileKind(s string) FileKind {
	switch k := FileKind(s); k {
	case KindSectionVote, KindMunZoneSummary, KindCandidateMeta,
		KindPartyMeta, KindLocationDetail:
		return k
	}
	return KindUnclassified
}

// SectionVote is one vote tally row at section granularity.
//
// Uniqueness is deliberately NOT enforced: multiple source rows may
// legitimately carry the same (year, state, municipality, zone, section,
// office, payee, party) key and are summed at query time.
type SectionVote struct {
	Year  string
	Round int64
	State string

	MunicipalityCode string
	MunicipalityName string
	Zone             string
	Section          string

	PollingPlaceCode    string
	PollingPlaceName    string
	PollingPlaceAddress string

	OfficeCode string
	OfficeName string

	// PayeeNumber is the votable number (NR_VOTAVEL): a candidate
	// number or a party number depending on vote type.
	PayeeNumber string
	PayeeName   string

	PartyNumber  string
	PartyAcronym string

	Votes int64
}

// MunZoneSummary is one turnout/ballot-type summary row per
// (year, state, municipality, zone, office). Counters default to 0
// when absent from the source layout.
type MunZoneSummary struct {
	Year  string
	Round int64
	State string

	MunicipalityCode string
	MunicipalityName string
	Zone             string

	OfficeCode string
	OfficeName string

	Eligible    int64 // QT_APTOS
	Sections    int64 // QT_TOTAL_SECOES
	Turnout     int64 // QT_COMPARECIMENTO
	Abstentions int64 // QT_ABSTENCOES

	Votes               int64 // QT_VOTOS
	ValidNominalVotes   int64 // QT_VOTOS_NOMINAIS_VALIDOS
	BlankVotes          int64 // QT_VOTOS_BRANCOS
	NullVotes           int64 // QT_TOTAL_VOTOS_NULOS
	ValidPartyListTotal int64 // QT_TOTAL_VOTOS_LEG_VALIDOS
	ValidPartyListVotes int64 // QT_VOTOS_LEG_VALIDOS
}

// CandidateMeta is curated per-candidate metadata, deduplicated by
// Key(). Split source files commonly repeat a key; the last row in file
// order wins.
type CandidateMeta struct {
	Year  string
	State string
	Round int64

	OfficeCode string
	OfficeName string

	CandidateNumber string
	CandidateName   string
	BallotName      string

	PartyNumber  string
	PartyAcronym string

	// Status is the end-of-round situation (DS_SIT_TOT_TURNO):
	// ELEITO, SUPLENTE, NÃO ELEITO, ...
	Status string
}

// Key returns the composite natural key used for deduplication and
// upserts: (year, state, office, round, candidate number).
func (c CandidateMeta) Key() string {
	return c.Year + "|" + c.State + "|" + c.OfficeCode + "|" + itoa(c.Round) + "|" + c.CandidateNumber
}

// PartyMeta is curated per-party metadata, deduplicated by Key().
type PartyMeta struct {
	Year  string
	State string
	Round int64

	OfficeCode string

	MunicipalityCode string

	PartyNumber  string
	PartyAcronym string
	PartyName    string

	Status string
}

// Key returns the composite natural key: (year, state, office, round,
// municipality, party number).
func (p PartyMeta) Key() string {
	return p.Year + "|" + p.State + "|" + p.OfficeCode + "|" + itoa(p.Round) + "|" + p.MunicipalityCode + "|" + p.PartyNumber
}

// LocationDetail carries polling-place identity for one
// (year, state, municipality, zone, section), with no vote counts.
// It exists to enrich map displays with a place name and address.
type LocationDetail struct {
	Year  string
	State string

	MunicipalityCode string
	MunicipalityName string
	Zone             string
	Section          string

	PollingPlaceCode    string
	PollingPlaceName    string
	PollingPlaceAddress string
}

// ImportLogStatus is the per-file outcome recorded in the import log.
type ImportLogStatus string

const (
	ImportOK      ImportLogStatus = "ok"
	ImportPartial ImportLogStatus = "partial" // loaded, but some lines were skipped
	ImportSkipped ImportLogStatus = "skipped"
)

// ImportLogEntry is the append-only audit record written once per file.
// Ingestion never mutates or deletes entries.
type ImportLogEntry struct {
	ID       int64
	RunID    string
	Kind     FileKind
	FileName string
	Rows     int64
	Status   ImportLogStatus

	// CoercedCells counts counter cells that were blank, sentinel or
	// garbled and coerced to 0.
	CoercedCells int64
	// SkippedLines counts source lines dropped by the lenient parser.
	SkippedLines int64

	CreatedAt time.Time
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
