package domain

import "strings"

// Corpus jurisdiction filters. JurisdictionUnsupported is the sentinel for
// states with no local corpus coverage; search runs in fallback-only mode
// for them.
const (
	JurisdictionNSW         = "NSW"
	JurisdictionQLD         = "QLD"
	JurisdictionFederal     = "FEDERAL"
	JurisdictionUnsupported = "unsupported"
)

// State codes with local corpus coverage, plus the jurisdiction each maps to.
// ACT matters are governed primarily by federal law.
var stateToJurisdiction = map[string]string{
	"NSW":     JurisdictionNSW,
	"QLD":     JurisdictionQLD,
	"FEDERAL": JurisdictionFederal,
	"ACT":     JurisdictionFederal,
}

var unsupportedStates = map[string]struct{}{
	"VIC": {}, "SA": {}, "WA": {}, "TAS": {}, "NT": {},
}

// ResolveJurisdiction maps an Australian state/territory code to the corpus
// jurisdiction filter. Unknown or uncovered states resolve to
// JurisdictionUnsupported.
func ResolveJurisdiction(state string) string {
	code := strings.ToUpper(strings.TrimSpace(state))
	if code == "" {
		return JurisdictionUnsupported
	}
	if jur, ok := stateToJurisdiction[code]; ok {
		return jur
	}
	return JurisdictionUnsupported
}

// IsKnownState reports whether the code names a real Australian state or
// territory, supported or not.
func IsKnownState(state string) bool {
	code := strings.ToUpper(strings.TrimSpace(state))
	if _, ok := stateToJurisdiction[code]; ok {
		return true
	}
	_, ok := unsupportedStates[code]
	return ok
}
