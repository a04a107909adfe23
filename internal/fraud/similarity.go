package fraud

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeName folds diacritics, upper-cases and collapses whitespace.
// Bank holder names are typically printed without accents ("NGUYEN VAN A").
func NormalizeName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}
	// Đ has no canonical decomposition.
	folded = strings.NewReplacer("đ", "d", "Đ", "D").Replace(folded)
	return strings.Join(strings.Fields(strings.ToUpper(folded)), " ")
}

// NameSimilarity returns 1 − editDistance/maxLen over normalized names, in [0, 1].
func NameSimilarity(a, b string) float64 {
	na, nb := NormalizeName(a), NormalizeName(b)
	la, lb := len([]rune(na)), len([]rune(nb))
	maxLen := max(la, lb)
	if maxLen == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(na, nb)
	return 1 - float64(dist)/float64(maxLen)
}
