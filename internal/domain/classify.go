package domain

import (
	"fmt"
	"strings"
)

// Site name suffixes and the location type each one maps to.
const (
	SuffixDataCenter = "-DC"
	SuffixBranch     = "-BR"
)

// ClassifySite derives the site location type from the name suffix.
// It returns ErrUnknownSiteSuffix when the name ends in neither suffix.
func ClassifySite(name string) (string, error) {
	switch {
	case strings.HasSuffix(name, SuffixDataCenter):
		return TypeDataCenter, nil
	case strings.HasSuffix(name, SuffixBranch):
		return TypeBranch, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSiteSuffix, name)
	}
}

// SkipMessage is the log line emitted for a row whose name cannot be classified.
func SkipMessage(name string) string {
	return fmt.Sprintf("Site name '%s' does not end with '%s' or '%s'. Skipping.", name, SuffixDataCenter, SuffixBranch)
}
