package romaji

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Katakana block bounds that have a hiragana counterpart 0x60 code points lower.
const (
	katakanaFirst = 'ァ' // U+30A1
	katakanaLast  = 'ヶ' // U+30F6
	kanaShift     = 0x60
)

// Normalize folds a phonetic string into the single script the compiler
// understands: NFKC (half-width katakana and full-width ASCII collapse to
// their canonical forms), katakana to hiragana, ASCII letters lower-cased,
// inner whitespace (tabs, newlines) to a plain space. Surrounding whitespace
// is trimmed.
func Normalize(s string) string {
	s = norm.NFKC.String(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		b.WriteRune(foldRune(r))
	}
	return strings.TrimSpace(b.String())
}

func foldRune(r rune) rune {
	switch {
	case r >= katakanaFirst && r <= katakanaLast:
		return r - kanaShift
	case r >= 'A' && r <= 'Z':
		return unicode.ToLower(r)
	case unicode.IsSpace(r):
		return ' '
	default:
		return r
	}
}

// NormalizeKey converts a raw key character into the form the matcher
// expects: width-narrowed and lower-cased. It reports false for control and
// other non-printable runes, which callers should drop.
func NormalizeKey(r rune) (rune, bool) {
	if r == utf8.RuneError || unicode.IsControl(r) {
		return 0, false
	}
	narrow := width.Narrow.String(string(r))
	k, size := utf8.DecodeRuneInString(narrow)
	if size != len(narrow) {
		// Narrowing produced more than one rune; keep the original.
		k = r
	}
	if !unicode.IsPrint(k) {
		return 0, false
	}
	return unicode.ToLower(k), true
}
