package store

import (
	"context"
	"fmt"
)

// indexDDL is the fixed set of composite indexes supporting the known
// query access patterns. Keyed by target table so each creation can be
// guarded on table existence.
var indexDDL = []struct {
	Table string
	Name  string
	SQL   string
}{
	{TableSectionVotes, "idx_votos_ano_uf",
		"CREATE INDEX IF NOT EXISTS idx_votos_ano_uf ON votos_secao (ano, uf)"},
	{TableSectionVotes, "idx_votos_municipio",
		"CREATE INDEX IF NOT EXISTS idx_votos_municipio ON votos_secao (ano, uf, cd_municipio)"},
	{TableSectionVotes, "idx_votos_votavel",
		"CREATE INDEX IF NOT EXISTS idx_votos_votavel ON votos_secao (ano, uf, cd_municipio, cd_cargo, nr_turno, nr_votavel)"},
	{TableSectionVotes, "idx_votos_local",
		"CREATE INDEX IF NOT EXISTS idx_votos_local ON votos_secao (ano, uf, cd_municipio, nr_zona, nr_secao)"},
	{TableSectionVotes, "idx_votos_escola",
		"CREATE INDEX IF NOT EXISTS idx_votos_escola ON votos_secao (ano, uf, cd_municipio, cd_local_votacao)"},
	{TableSummaries, "idx_resumo_municipio",
		"CREATE INDEX IF NOT EXISTS idx_resumo_municipio ON resumo_munzona (ano, uf, cd_municipio)"},
	{TableLocations, "idx_locais_secao",
		"CREATE INDEX IF NOT EXISTS idx_locais_secao ON locais_votacao (ano, uf, cd_municipio, nr_zona, nr_secao)"},
}

// IndexResult reports the outcome of one index creation.
type IndexResult struct {
	Name    string `json:"name"`
	Table   string `json:"table"`
	Created bool   `json:"created"`
	// Skipped is set when the target table does not exist because no
	// file of its kind was ever ingested.
	Skipped bool `json:"skipped,omitempty"`
}

// CreateIndexes builds the secondary indexes after a bulk load. It is
// always run after loading, never interleaved with it, since each
// creation scans the fully populated table.
//
// Creations are independently guarded: a missing target table is
// reported as skipped, not treated as fatal.
func (s *Store) CreateIndexes(ctx context.Context) ([]IndexResult, error) {
	results := make([]IndexResult, 0, len(indexDDL))
	for _, idx := range indexDDL {
		exists, err := s.TableExists(ctx, idx.Table)
		if err != nil {
			return results, err
		}
		if !exists {
			results = append(results, IndexResult{Name: idx.Name, Table: idx.Table, Skipped: true})
			continue
		}
		if _, err := s.db.ExecContext(ctx, idx.SQL); err != nil {
			return results, fmt.Errorf("creating index %s: %w", idx.Name, err)
		}
		results = append(results, IndexResult{Name: idx.Name, Table: idx.Table, Created: true})
	}
	return results, nil
}

// DropDerived drops the derived tables (and their indexes) ahead of a
// full reload. Curated metadata tables are never touched by this path.
func (s *Store) DropDerived(ctx context.Context) error {
	for _, table := range DerivedTables {
		if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			return fmt.Errorf("dropping %s: %w", table, err)
		}
	}
	return nil
}

// TruncateDerived deletes all rows from the derived tables and the
// import log, keeping table structure. Curated metadata survives.
func (s *Store) TruncateDerived(ctx context.Context) error {
	tables := append([]string{}, DerivedTables...)
	tables = append(tables, TableImportLog)
	for _, table := range tables {
		exists, err := s.TableExists(ctx, table)
		if err != nil {
			return err
		}
		if !exists {
			continue
		}
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	return nil
}
