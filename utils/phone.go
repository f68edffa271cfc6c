// utils/phone.go
package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/width"
)

// NormalizePhone folds full-width digits to ASCII and drops everything that
// is not a digit. "+1 (555) 010-9999" becomes "15550109999".
func NormalizePhone(raw string) string {
	folded := width.Narrow.String(raw)
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DigitsBetween reports whether s is all ASCII digits with a length in [min, max].
func DigitsBetween(s string, min, max int) bool {
	if len(s) < min || len(s) > max {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || r < '0' || r > '9' {
			return false
		}
	}
	return true
}
