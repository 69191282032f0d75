// Package normalize cleans free-text record fields before they are persisted.
package normalize

import (
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// supportedCodes lists the ISO 639-1 codes whose English names are accepted as input.
//
//nolint:gochecknoglobals // Static lookup table for language normalization
var supportedCodes = []string{
	"en", "es", "fr", "de", "it", "pt", "nl", "ru", "ja", "zh", "ko", "ar",
	"hi", "pl", "sv", "no", "da", "fi", "tr", "el", "he", "cs", "hu", "ro",
	"th", "vi", "id", "ms", "uk", "ca", "hr", "sk", "bg", "lt", "lv", "et",
	"sl", "sr", "fa", "bn", "ta", "te", "mr", "gu", "kn", "ml", "pa", "ur",
	"ne", "si", "my", "km", "lo", "am", "sw", "af", "zu", "xh", "ha", "yo",
	"ig", "cy", "ga", "gd", "eu", "gl", "is", "mk", "bs", "sq", "hy", "ka",
	"kk", "uz", "az", "mn", "tl", "jv", "su", "bo",
}

// aliases covers bibliographic ISO 639-2/B codes and common names that
// neither the tag parser nor the English display names resolve.
//
//nolint:gochecknoglobals // Static lookup table for language normalization
var aliases = map[string]string{
	"ger": "de", "fre": "fr", "dut": "nl", "chi": "zh", "cze": "cs",
	"gre": "el", "per": "fa", "rum": "ro", "slo": "sk", "alb": "sq",
	"arm": "hy", "baq": "eu", "bur": "my", "geo": "ka", "ice": "is",
	"mac": "mk", "may": "ms", "tib": "bo", "wel": "cy", "fil": "tl",
	"farsi": "fa", "mandarin": "zh", "cantonese": "zh", "filipino": "tl",
}

//nolint:gochecknoglobals // Built once from supportedCodes
var nameToCode = buildNameIndex()

func buildNameIndex() map[string]string {
	namer := display.English.Languages()
	index := make(map[string]string, len(supportedCodes))
	for _, code := range supportedCodes {
		if name := namer.Name(language.Make(code)); name != "" {
			index[strings.ToLower(name)] = code
		}
	}
	return index
}

// LanguageCode converts various language representations to ISO 639-1 codes:
//   - ISO 639-1 codes: "en" -> "en"
//   - ISO 639-2 codes: "eng" -> "en", "ger" -> "de"
//   - BCP 47 and locale codes: "en-US", "en_GB" -> "en"
//   - English names: "English", "GERMAN" -> "en", "de"
//
// Returns empty string for unrecognized values.
func LanguageCode(raw string) string {
	s := strings.ToLower(strings.TrimSpace(sanitizeString(raw)))
	if s == "" {
		return ""
	}

	if code, ok := aliases[s]; ok {
		return code
	}
	if code, ok := nameToCode[s]; ok {
		return code
	}

	tag, err := language.Parse(strings.ReplaceAll(s, "_", "-"))
	if err != nil {
		return ""
	}
	base, conf := tag.Base()
	if conf != language.Exact {
		return ""
	}
	if code := base.String(); len(code) == 2 {
		return code
	}
	return ""
}

// Language converts a language representation to its English display name.
// "en" -> "English", "deu" -> "German". Returns empty string for unrecognized values.
func Language(raw string) string {
	code := LanguageCode(raw)
	if code == "" {
		return ""
	}
	return display.English.Languages().Name(language.Make(code))
}

// htmlTagPattern matches common HTML tags to detect if a string contains HTML.
var htmlTagPattern = regexp.MustCompile(`<(p|br|div|span|b|i|strong|em|a|ul|ol|li|h[1-6]|blockquote)[\s>/]`)

// Description cleans a book description. HTML descriptions, which publishers
// often paste from their storefronts, are converted to Markdown.
func Description(raw string) string {
	s := strings.TrimSpace(sanitizeString(raw))
	if s == "" || !htmlTagPattern.MatchString(strings.ToLower(s)) {
		return s
	}

	markdown, err := htmltomarkdown.ConvertString(s)
	if err != nil {
		return s
	}
	return strings.TrimSpace(markdown)
}

// Title trims and collapses internal whitespace runs to single spaces.
func Title(raw string) string {
	return strings.Join(strings.Fields(sanitizeString(raw)), " ")
}

// Identifier strips separators from ISBN/ASIN style identifiers and upper-cases them.
// "978-0-306-40615-7" -> "9780306406157".
func Identifier(raw string) string {
	return strings.ToUpper(strings.Map(func(r rune) rune {
		switch r {
		case '-', ' ', 0:
			return -1
		}
		return r
	}, strings.TrimSpace(raw)))
}

// sanitizeString removes null bytes, which break sqlite text comparisons and JSON output.
func sanitizeString(s string) string {
	return strings.Map(func(r rune) rune {
		if r == 0 {
			return -1
		}
		return r
	}, s)
}
