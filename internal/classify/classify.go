// Package classify decides which known file kind a source file is and
// extracts the year and state hints embedded in its name.
//
// The file name is the primary signal because it is cheap and
// layout-independent; resolved columns are the fallback for releases
// whose names omit descriptive markers. Either signal's absence
// degrades to the next stage rather than failing the file.
package classify

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/veleitoral/apura/internal/layout"
	"github.com/veleitoral/apura/internal/tse"
)

// Result is one classification decision. Year and State are empty when
// the file name carries no usable token; the transformer then falls
// back to the per-row columns.
type Result struct {
	Kind  tse.FileKind
	Year  string
	State string
}

// Year is the first 4-digit run in an accepted century.
var yearRE = regexp.MustCompile(`(?:19|20)\d{2}`)

// State is a known 2-letter code (or country marker) preceded by "_"
// and followed by "_", "." or end-of-name. The trailing anchor keeps
// split-export suffixes (_PARTE2, _9) from breaking the match.
var stateRE = regexp.MustCompile(`_(` + strings.Join(tse.StateCodes, "|") + `)(?:[_.]|$)`)

// Classify determines the file kind for name, using the resolved
// columns of the first chunk as fallback when the name is inconclusive.
// columns may be nil when the file has not been opened yet.
func Classify(name string, columns *layout.ColumnMap) Result {
	base := strings.ToUpper(filepath.Base(name))

	res := Result{Kind: kindFromName(base, columns)}
	res.Year = yearRE.FindString(base)
	if m := stateRE.FindStringSubmatch(base); m != nil {
		res.State = m[1]
	}
	if res.State == "BRASIL" {
		res.State = "BR"
	}
	return res
}

// kindFromName applies the kind decision in priority order; the first
// match wins.
func kindFromName(base string, columns *layout.ColumnMap) tse.FileKind {
	munzona := strings.Contains(base, "MUNZONA")

	switch {
	case strings.Contains(base, "LOCAL_VOTACAO"),
		strings.Contains(base, "DETALHE") && strings.Contains(base, "SECAO"):
		// Per-section polling-place detail, no candidate/party rows.
		return tse.KindLocationDetail
	case strings.Contains(base, "CANDIDATO") && munzona:
		return tse.KindCandidateMeta
	case strings.Contains(base, "PARTIDO") && munzona:
		return tse.KindPartyMeta
	case munzona:
		return tse.KindMunZoneSummary
	case strings.Contains(base, "SECAO"):
		return tse.KindSectionVote
	case columns != nil && columns.HasVote():
		// Name gave nothing, but the table has a usable vote-count
		// column.
		return tse.KindSectionVote
	}
	return tse.KindUnclassified
}
