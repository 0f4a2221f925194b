// Package layout resolves which physical column of a source table plays
// each semantic role. The election authority renames columns release to
// release, so resolution is an ordered alias search plus a substring
// scan for the polling-place fields, applied per chunk.
//
// Resolution is pure and deterministic given the column-name set; it
// never reads row values. A table without a vote-count role is not an
// error here - the caller uses that fact to classify the file as
// metadata-only.
package layout

import "strings"

// Alias priority per semantic role. First name present wins.
var (
	voteAliases      = []string{"QT_VOTOS_NOMINAIS", "QT_VOTOS_NOMINAIS_VALIDOS", "QT_VOTOS", "QT_VOTOS_VALIDOS"}
	payeeNameAliases = []string{"NM_CANDIDATO", "NM_URNA_CANDIDATO", "NM_VOTAVEL"}
	partyAliases     = []string{"SG_PARTIDO", "NM_PARTIDO"}
)

// ColumnMap is the result of resolving one table's column names.
// Empty fields mean the role is absent from this layout.
type ColumnMap struct {
	Vote string // vote-count role; empty means "not a vote file"

	PayeeNumber string // NR_VOTAVEL
	PayeeName   string

	CandidateNumber string // NR_CANDIDATO (metadata files)

	Party       string // acronym or display name, per alias order
	PartyNumber string

	Zone    string
	Section string

	Year  string // ANO_ELEICAO
	Round string // NR_TURNO
	State string // SG_UF

	MunicipalityCode string
	MunicipalityName string

	OfficeCode string
	OfficeName string

	Status string // DS_SIT_TOT_TURNO

	PollingPlaceCode    string
	PollingPlaceName    string
	PollingPlaceAddress string
}

// HasVote reports whether the layout carries a vote-count role.
func (m ColumnMap) HasVote() bool { return m.Vote != "" }

// Resolver resolves column names with the default alias tables,
// optionally extended with deployment-specific vote-count aliases
// (tried after the built-in ones).
type Resolver struct {
	ExtraVoteAliases []string
}

// Resolve maps the given column names onto semantic roles.
//
// Names must already be normalized (trimmed, upper-cased); the
// transformer normalizes headers before calling here.
func (r Resolver) Resolve(columns []string) ColumnMap {
	set := make(map[string]bool, len(columns))
	for _, c := range columns {
		set[c] = true
	}

	first := func(aliases ...string) string {
		for _, a := range aliases {
			if set[a] {
				return a
			}
		}
		return ""
	}

	m := ColumnMap{
		Vote:      first(voteAliases...),
		PayeeName: first(payeeNameAliases...),
		Party:     first(partyAliases...),

		PayeeNumber:     first("NR_VOTAVEL"),
		CandidateNumber: first("NR_CANDIDATO"),
		PartyNumber:     first("NR_PARTIDO"),

		Zone:    first("NR_ZONA"),
		Section: first("NR_SECAO"),

		Year:  first("ANO_ELEICAO"),
		Round: first("NR_TURNO"),
		State: first("SG_UF"),

		MunicipalityCode: first("CD_MUNICIPIO"),
		MunicipalityName: first("NM_MUNICIPIO"),

		OfficeCode: first("CD_CARGO"),
		OfficeName: first("DS_CARGO"),

		Status: first("DS_SIT_TOT_TURNO"),
	}

	if m.Vote == "" {
		m.Vote = first(r.ExtraVoteAliases...)
	}

	// The polling-place columns are renamed inconsistently between
	// releases (NR_LOCAL_VOTACAO vs CD_LOCAL_VOTACAO,
	// DS_LOCAL_VOTACAO_ENDERECO vs DS_ENDERECO_LOCAL_VOTACAO), so they
	// are matched by substring rather than exact alias.
	for _, c := range columns {
		if !strings.Contains(c, "LOCAL_VOT") {
			continue
		}
		switch {
		case strings.Contains(c, "ENDERECO"):
			if m.PollingPlaceAddress == "" {
				m.PollingPlaceAddress = c
			}
		case strings.HasPrefix(c, "NM_"):
			if m.PollingPlaceName == "" {
				m.PollingPlaceName = c
			}
		case strings.HasPrefix(c, "NR_") || strings.HasPrefix(c, "CD_"):
			if m.PollingPlaceCode == "" {
				m.PollingPlaceCode = c
			}
		}
	}

	return m
}

// Resolve resolves with the default alias tables only.
func Resolve(columns []string) ColumnMap {
	return Resolver{}.Resolve(columns)
}
