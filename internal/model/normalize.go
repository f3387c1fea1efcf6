package model

import (
	"strings"

	"golang.org/x/text/cases"
)

// Normalize returns the fingerprint of an announcement title or message:
// surrounding whitespace trimmed and Unicode case-folded.
func Normalize(text string) string {
	return cases.Fold().String(strings.TrimSpace(text))
}
