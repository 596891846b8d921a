// Package strings provides string helpers shared by the enrichment sources.
package strings

import (
	"strings"
	"unicode"
)

// DedupeAndTrim removes duplicates and empty strings from a slice,
// trimming whitespace from each element. Order is preserved.
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; !ok {
			seen[trimmed] = struct{}{}
			result = append(result, trimmed)
		}
	}

	return result
}

// legalFormSuffixes are Norwegian organisation forms dropped before comparing names.
var legalFormSuffixes = []string{"asa", "as", "ans", "da", "enk", "sa", "nuf", "ba", "ks"}

// NormalizeCompanyName lower-cases a company name, drops punctuation and a
// trailing legal-form suffix, and collapses whitespace, so "Acme Bygg AS" and
// "ACME BYGG" compare equal.
func NormalizeCompanyName(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, name)

	fields := strings.Fields(cleaned)
	if len(fields) > 1 {
		last := fields[len(fields)-1]
		for _, suffix := range legalFormSuffixes {
			if last == suffix {
				fields = fields[:len(fields)-1]
				break
			}
		}
	}
	return strings.Join(fields, " ")
}
