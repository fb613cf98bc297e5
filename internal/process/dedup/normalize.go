package dedup

import (
	"html"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// Normalize returns the comparable form of raw text: markup removed, lowercase,
// every rune that is not a letter or number replaced by a space, whitespace
// collapsed. Normalize(Normalize(s)) == Normalize(s) for every s.
func Normalize(raw string) string {
	// Compose first so letters like "й" are not split into a base and a
	// combining mark that the filter below would drop.
	s := norm.NFC.String(raw)
	s = tagPattern.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	s = strings.ToLower(s)

	var b strings.Builder

	b.Grow(len(s))

	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}
