package domain

// stateNames rewrites the postal abbreviations used in site exports to the
// full names stored on State locations.
var stateNames = map[string]string{
	"CO": "Colorado",
	"VA": "Virginia",
	"CA": "California",
	"NJ": "New Jersey",
	"IL": "Illinois",
}

// NormalizeState returns the full state name for a known abbreviation and
// the input unchanged otherwise. Matching is exact: "nj" passes through.
func NormalizeState(state string) string {
	if full, ok := stateNames[state]; ok {
		return full
	}
	return state
}
