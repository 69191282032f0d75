package taxonomy

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var (
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)
	multipleHyphens = regexp.MustCompile(`-+`)
)

// Slugify converts a term name to a URL-safe slug.
// "Science Fiction" -> "science-fiction".
// "Sword & Sorcery" -> "sword-sorcery".
// "Café Noir" -> "cafe-noir".
func Slugify(s string) string {
	// Decompose accented characters so the base letter survives the ASCII filter.
	s = norm.NFKD.String(s)

	s = strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, s)

	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "'", "")
	s = nonAlphanumeric.ReplaceAllString(s, "-")
	s = multipleHyphens.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Key returns the lookup key for a label: whitespace-collapsed, NFC-normalized
// and Unicode case-folded, so "  Épic   FANTASY" and "épic fantasy" match.
func Key(label string) string {
	s := strings.Join(strings.Fields(label), " ")
	// A Caser is stateful; one per call keeps Key safe for concurrent use.
	return cases.Fold().String(norm.NFC.String(s))
}
