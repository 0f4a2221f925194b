package tse

// StateCodes lists the two-letter federative unit codes plus the
// country-wide markers, in the order they are tried when scanning file
// names. BRASIL precedes BR so the longer token wins the alternation.
var StateCodes = []string{
	"BRASIL", "BR",
	"AC", "AL", "AP", "AM", "BA", "CE", "DF", "ES", "GO", "MA",
	"MT", "MS", "MG", "PA", "PB", "PR", "PE", "PI", "RJ", "RN",
	"RS", "RO", "RR", "SC", "SP", "SE", "TO",
}

// IsStateCode reports whether s is a known state code or country-wide
// marker. s must already be upper-cased.
func IsStateCode(s string) bool {
	for _, c := range StateCodes {
		if s == c {
			return true
		}
	}
	return false
}
