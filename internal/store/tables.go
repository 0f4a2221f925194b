package store

import (
	"context"
	"fmt"

	"github.com/veleitoral/apura/internal/tse"
)

// Table names, following the source authority's vocabulary.
const (
	TableSectionVotes = "votos_secao"
	TableSummaries    = "resumo_munzona"
	TableCandidates   = "candidatos_munzona"
	TableParties      = "partidos_munzona"
	TableLocations    = "locais_votacao"
	TableImportLog    = "import_log"
)

// DerivedTables are disposable: a reload may drop and fully repopulate
// them. The curated metadata tables are never in this list.
var DerivedTables = []string{TableSectionVotes, TableSummaries, TableLocations}

// tableDDL holds per-entity DDL, applied on first insert of the
// corresponding file kind.
var tableDDL = map[string]string{
	TableSectionVotes: `
		CREATE TABLE IF NOT EXISTS votos_secao (
			id                        INTEGER PRIMARY KEY AUTOINCREMENT,
			ano                       TEXT,
			nr_turno                  INTEGER NOT NULL DEFAULT 0,
			uf                        TEXT,
			cd_municipio              TEXT,
			nm_municipio              TEXT,
			nr_zona                   TEXT,
			nr_secao                  TEXT,
			cd_local_votacao          TEXT,
			nm_local_votacao          TEXT,
			ds_local_votacao_endereco TEXT,
			cd_cargo                  TEXT,
			ds_cargo                  TEXT,
			nr_votavel                TEXT,
			nm_votavel                TEXT,
			nr_partido                TEXT,
			sg_partido                TEXT,
			qt_votos                  INTEGER NOT NULL DEFAULT 0 CHECK (qt_votos >= 0)
		)`,
	TableSummaries: `
		CREATE TABLE IF NOT EXISTS resumo_munzona (
			id                         INTEGER PRIMARY KEY AUTOINCREMENT,
			ano                        TEXT,
			nr_turno                   INTEGER NOT NULL DEFAULT 0,
			uf                         TEXT,
			cd_municipio               TEXT,
			nm_municipio               TEXT,
			nr_zona                    TEXT,
			cd_cargo                   TEXT,
			ds_cargo                   TEXT,
			qt_aptos                   INTEGER NOT NULL DEFAULT 0,
			qt_total_secoes            INTEGER NOT NULL DEFAULT 0,
			qt_comparecimento          INTEGER NOT NULL DEFAULT 0,
			qt_abstencoes              INTEGER NOT NULL DEFAULT 0,
			qt_votos                   INTEGER NOT NULL DEFAULT 0,
			qt_votos_nominais_validos  INTEGER NOT NULL DEFAULT 0,
			qt_votos_brancos           INTEGER NOT NULL DEFAULT 0,
			qt_total_votos_nulos       INTEGER NOT NULL DEFAULT 0,
			qt_total_votos_leg_validos INTEGER NOT NULL DEFAULT 0,
			qt_votos_leg_validos       INTEGER NOT NULL DEFAULT 0
		)`,
	TableCandidates: `
		CREATE TABLE IF NOT EXISTS candidatos_munzona (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			ano               TEXT NOT NULL,
			uf                TEXT NOT NULL,
			nr_turno          INTEGER NOT NULL DEFAULT 0,
			cd_cargo          TEXT NOT NULL,
			ds_cargo          TEXT,
			nr_candidato      TEXT NOT NULL,
			nm_candidato      TEXT,
			nm_urna_candidato TEXT,
			nr_partido        TEXT,
			sg_partido        TEXT,
			ds_sit_tot_turno  TEXT,
			UNIQUE (ano, uf, cd_cargo, nr_turno, nr_candidato)
		)`,
	TableParties: `
		CREATE TABLE IF NOT EXISTS partidos_munzona (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			ano              TEXT NOT NULL,
			uf               TEXT NOT NULL,
			nr_turno         INTEGER NOT NULL DEFAULT 0,
			cd_cargo         TEXT NOT NULL,
			cd_municipio     TEXT NOT NULL DEFAULT '',
			nr_partido       TEXT NOT NULL,
			sg_partido       TEXT,
			nm_partido       TEXT,
			ds_sit_tot_turno TEXT,
			UNIQUE (ano, uf, cd_cargo, nr_turno, cd_municipio, nr_partido)
		)`,
	TableLocations: `
		CREATE TABLE IF NOT EXISTS locais_votacao (
			id                        INTEGER PRIMARY KEY AUTOINCREMENT,
			ano                       TEXT,
			uf                        TEXT,
			cd_municipio              TEXT,
			nm_municipio              TEXT,
			nr_zona                   TEXT,
			nr_secao                  TEXT,
			cd_local_votacao          TEXT,
			nm_local_votacao          TEXT,
			ds_local_votacao_endereco TEXT
		)`,
}

// KindTable maps a file kind to its target table.
func KindTable(kind tse.FileKind) string {
	switch kind {
	case tse.KindSectionVote:
		return TableSectionVotes
	case tse.KindMunZoneSummary:
		return TableSummaries
	case tse.KindCandidateMeta:
		return TableCandidates
	case tse.KindPartyMeta:
		return TableParties
	case tse.KindLocationDetail:
		return TableLocations
	}
	return ""
}

// ensure creates the table for the given name if it does not exist yet.
func (s *Store) ensure(ctx context.Context, table string) error {
	ddl, ok := tableDDL[table]
	if !ok {
		return fmt.Errorf("no DDL for table %s", table)
	}
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("creating table %s: %w", table, err)
	}
	return nil
}
