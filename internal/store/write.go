package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/veleitoral/apura/internal/tse"
)

// batch runs fn with a prepared statement inside one transaction, so a
// chunk is committed atomically: readers never observe a partially
// visible batch.
func (s *Store) batch(ctx context.Context, table, insert string, fn func(*sql.Stmt) error) error {
	if err := s.ensure(ctx, table); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch for %s: %w", table, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("prepare insert for %s: %w", table, err)
	}
	defer stmt.Close()

	if err := fn(stmt); err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch for %s: %w", table, err)
	}
	return nil
}

// InsertSectionVotes appends one chunk of section vote rows.
// No uniqueness is enforced: aggregation happens at query time via SUM.
func (s *Store) InsertSectionVotes(ctx context.Context, rows []tse.SectionVote) error {
	if len(rows) == 0 {
		return nil
	}
	return s.batch(ctx, TableSectionVotes, `
		INSERT INTO votos_secao
		(ano, nr_turno, uf, cd_municipio, nm_municipio, nr_zona, nr_secao,
		 cd_local_votacao, nm_local_votacao, ds_local_votacao_endereco,
		 cd_cargo, ds_cargo, nr_votavel, nm_votavel, nr_partido, sg_partido, qt_votos)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, func(stmt *sql.Stmt) error {
		for _, r := range rows {
			if _, err := stmt.ExecContext(ctx,
				r.Year, r.Round, r.State, r.MunicipalityCode, r.MunicipalityName,
				r.Zone, r.Section,
				r.PollingPlaceCode, r.PollingPlaceName, r.PollingPlaceAddress,
				r.OfficeCode, r.OfficeName, r.PayeeNumber, r.PayeeName,
				r.PartyNumber, r.PartyAcronym, r.Votes,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// InsertSummaries appends one chunk of municipality/zone summary rows.
func (s *Store) InsertSummaries(ctx context.Context, rows []tse.MunZoneSummary) error {
	if len(rows) == 0 {
		return nil
	}
	return s.batch(ctx, TableSummaries, `
		INSERT INTO resumo_munzona
		(ano, nr_turno, uf, cd_municipio, nm_municipio, nr_zona, cd_cargo, ds_cargo,
		 qt_aptos, qt_total_secoes, qt_comparecimento, qt_abstencoes,
		 qt_votos, qt_votos_nominais_validos, qt_votos_brancos,
		 qt_total_votos_nulos, qt_total_votos_leg_validos, qt_votos_leg_validos)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, func(stmt *sql.Stmt) error {
		for _, r := range rows {
			if _, err := stmt.ExecContext(ctx,
				r.Year, r.Round, r.State, r.MunicipalityCode, r.MunicipalityName,
				r.Zone, r.OfficeCode, r.OfficeName,
				r.Eligible, r.Sections, r.Turnout, r.Abstentions,
				r.Votes, r.ValidNominalVotes, r.BlankVotes,
				r.NullVotes, r.ValidPartyListTotal, r.ValidPartyListVotes,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// InsertLocations appends one chunk of polling-place detail rows.
func (s *Store) InsertLocations(ctx context.Context, rows []tse.LocationDetail) error {
	if len(rows) == 0 {
		return nil
	}
	return s.batch(ctx, TableLocations, `
		INSERT INTO locais_votacao
		(ano, uf, cd_municipio, nm_municipio, nr_zona, nr_secao,
		 cd_local_votacao, nm_local_votacao, ds_local_votacao_endereco)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, func(stmt *sql.Stmt) error {
		for _, r := range rows {
			if _, err := stmt.ExecContext(ctx,
				r.Year, r.State, r.MunicipalityCode, r.MunicipalityName,
				r.Zone, r.Section,
				r.PollingPlaceCode, r.PollingPlaceName, r.PollingPlaceAddress,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpsertCandidates writes candidate metadata, replacing existing rows
// that share the composite natural key: later loads win, matching the
// last-occurrence dedup policy.
func (s *Store) UpsertCandidates(ctx context.Context, rows []tse.CandidateMeta) error {
	if len(rows) == 0 {
		return nil
	}
	return s.batch(ctx, TableCandidates, `
		INSERT INTO candidatos_munzona
		(ano, uf, nr_turno, cd_cargo, ds_cargo, nr_candidato,
		 nm_candidato, nm_urna_candidato, nr_partido, sg_partido, ds_sit_tot_turno)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (ano, uf, cd_cargo, nr_turno, nr_candidato) DO UPDATE SET
			ds_cargo = excluded.ds_cargo,
			nm_candidato = excluded.nm_candidato,
			nm_urna_candidato = excluded.nm_urna_candidato,
			nr_partido = excluded.nr_partido,
			sg_partido = excluded.sg_partido,
			ds_sit_tot_turno = excluded.ds_sit_tot_turno
	`, func(stmt *sql.Stmt) error {
		for _, r := range rows {
			if _, err := stmt.ExecContext(ctx,
				r.Year, r.State, r.Round, r.OfficeCode, r.OfficeName,
				r.CandidateNumber, r.CandidateName, r.BallotName,
				r.PartyNumber, r.PartyAcronym, r.Status,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpsertParties writes party metadata with the same last-wins policy.
func (s *Store) UpsertParties(ctx context.Context, rows []tse.PartyMeta) error {
	if len(rows) == 0 {
		return nil
	}
	return s.batch(ctx, TableParties, `
		INSERT INTO partidos_munzona
		(ano, uf, nr_turno, cd_cargo, cd_municipio, nr_partido,
		 sg_partido, nm_partido, ds_sit_tot_turno)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (ano, uf, cd_cargo, nr_turno, cd_municipio, nr_partido) DO UPDATE SET
			sg_partido = excluded.sg_partido,
			nm_partido = excluded.nm_partido,
			ds_sit_tot_turno = excluded.ds_sit_tot_turno
	`, func(stmt *sql.Stmt) error {
		for _, r := range rows {
			if _, err := stmt.ExecContext(ctx,
				r.Year, r.State, r.Round, r.OfficeCode, r.MunicipalityCode,
				r.PartyNumber, r.PartyAcronym, r.PartyName, r.Status,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteImportLog appends one audit row. The log is append-only:
// ingestion never mutates or deletes entries.
func (s *Store) WriteImportLog(ctx context.Context, e tse.ImportLogEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO import_log
		(run_id, tipo_arquivo, nome_arquivo, linhas_importadas, status,
		 celulas_corrigidas, linhas_puladas)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.RunID, e.Kind.String(), e.FileName, e.Rows, string(e.Status), e.CoercedCells, e.SkippedLines)
	if err != nil {
		return fmt.Errorf("write import log: %w", err)
	}
	return nil
}
