package tse

import (
	"strconv"
	"strings"
)

// Null sentinel tokens the authority uses for "no value". Both must be
// treated as true absence before any numeric coercion.
const (
	SentinelNull          = "#NULO"
	SentinelNotApplicable = "#NE"
)

// CleanCell trims a raw cell and maps the null sentinels to the empty
// string.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)
	if s == SentinelNull || s == SentinelNotApplicable {
		return ""
	}
	return s
}

// ParseCount coerces a counter cell to a non-negative int64.
//
// The function is total: blank cells, sentinel tokens, garbled numerics
// and negative values all coerce to 0 rather than failing the row (the
// source data is known to contain garbage at the tail of some files).
// The second return reports whether the cell held a usable value, so
// callers can count coerced defaults for diagnostics.
func ParseCount(s string) (int64, bool) {
	s = CleanCell(s)
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// Some releases serialize counters as floats ("12.0").
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return 0, false
		}
		n = int64(f)
	}
	if n < 0 {
		return 0, false
	}
	return n, true
}
