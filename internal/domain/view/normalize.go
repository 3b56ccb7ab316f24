package view

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks removes combining marks after canonical decomposition, so
// "INSCRIPCIÓN" and "INSCRIPCION" compare equal.
func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// foldText is the normalization used by free-text filters.
func foldText(s string) string {
	return strings.ToLower(stripMarks(s))
}

// foldTab is the normalization used by category tabs.
func foldTab(s string) string {
	return strings.ToUpper(stripMarks(strings.TrimSpace(s)))
}
