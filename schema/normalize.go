// Package schema reconciles uploaded tabular data with the ordered feature
// columns a trained model expects.
package schema

import (
	"strings"
	"unicode"
)

// Normalize canonicalizes a column name for comparison. It lowercases and
// drops every rune that is not a letter or a digit, so "Monthly Charges",
// "monthly_charges" and "MONTHLY-CHARGES" all compare equal.
func Normalize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		r = unicode.ToLower(r)
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
