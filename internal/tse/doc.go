// Package tse defines the canonical row shapes for electoral result
// ingestion, plus the small set of source-data facts the pipeline relies
// on: the file kinds published by the election authority, the null
// sentinel tokens used in cell data, the state codes embedded in file
// names, and best-effort counter coercion.
//
// Everything in this package is a pure value type or a total function.
// It has no dependencies on the store or the transformer so that the
// classifier and resolver can be tested in isolation.
package tse
