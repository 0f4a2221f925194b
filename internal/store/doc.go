// Package store provides the SQLite-backed relational sink for
// electoral ingestion.
//
// Tables fall into three lifecycles:
//   - Derived (votos_secao, resumo_munzona, locais_votacao): disposable,
//     dropped and repopulated by a reload.
//   - Curated (candidatos_munzona, partidos_munzona): append/upsert
//     only, keyed by their composite natural key; never dropped by a
//     reload.
//   - Append-only (import_log): one audit row per ingested file, never
//     mutated.
//
// Writes happen one chunk at a time inside a transaction, so readers
// never observe a partial batch. Entity tables are created lazily on
// first insert of their file kind; index maintenance reports - rather
// than fails on - kinds that were never ingested.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=60000: reloads contend briefly with readers
//   - foreign_keys=ON
package store
