// ABOUTME: Text normalization used to match user input against closed vocabularies
// ABOUTME: Strips diacritics and applies casing with golang.org/x/text
package models

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// StripDiacritics removes combining marks, so "Negociação" becomes "Negociacao".
func StripDiacritics(s string) string {
	// Transformers carry state, so each call builds its own chain.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Normalize strips diacritics, collapses whitespace and title-cases the result.
func Normalize(s string) string {
	s = strings.Join(strings.Fields(StripDiacritics(s)), " ")
	if s == "" {
		return ""
	}
	return cases.Title(language.Und).String(s)
}

// FoldKey reduces s to the key used for vocabulary lookups: no diacritics,
// case-folded, with underscores and dashes read as spaces.
func FoldKey(s string) string {
	s = StripDiacritics(s)
	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)
	s = strings.Join(strings.Fields(s), " ")
	return cases.Fold().String(s)
}
