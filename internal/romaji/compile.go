package romaji

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrEmptyPhonetic is returned when there is nothing left to compile after
// normalization.
var ErrEmptyPhonetic = errors.New("romaji: empty phonetic text")

// ErrUntypable is returned when the phonetic text holds a rune no key can
// produce, such as a control character.
var ErrUntypable = errors.New("romaji: untypable character")

// Unit is one typing step: every spelling that completes it, preferred first.
type Unit struct {
	// Candidates lists the accepted spellings; Candidates[0] is displayed.
	Candidates []string

	// DisplayOffset is the byte offset of this unit's preferred spelling
	// within the compiled display string.
	DisplayOffset int

	// Source is the kana the unit was compiled from.
	Source string
}

// Preferred returns the display spelling of the unit.
func (u Unit) Preferred() string {
	return u.Candidates[0]
}

// Compiled is the result of compiling a phonetic phrase.
type Compiled struct {
	// Phonetic is the normalized input.
	Phonetic string
	Units    []Unit
	// Display is the concatenation of every unit's preferred spelling.
	Display string
}

// Compile normalizes phonetic and splits it into typing units using table.
// A nil table means DefaultTable.
func Compile(phonetic string, table Table) (*Compiled, error) {
	if table == nil {
		table = DefaultTable()
	}
	normalized := Normalize(phonetic)
	if normalized == "" {
		return nil, ErrEmptyPhonetic
	}
	for i, r := range normalized {
		if _, ok := NormalizeKey(r); !ok {
			return nil, fmt.Errorf("%w %U at byte %d", ErrUntypable, r, i)
		}
	}

	c := &compiler{table: table, src: []rune(normalized)}
	c.run()

	return &Compiled{
		Phonetic: normalized,
		Units:    c.units,
		Display:  c.display.String(),
	}, nil
}

type compiler struct {
	table   Table
	src     []rune
	units   []Unit
	display strings.Builder
}

func (c *compiler) run() {
	for i := 0; i < len(c.src); {
		source, candidates, width := c.unitAt(i)
		c.emit(source, candidates)
		i += width
	}
}

func (c *compiler) emit(source string, candidates []string) {
	c.units = append(c.units, Unit{
		Candidates:    candidates,
		DisplayOffset: c.display.Len(),
		Source:        source,
	})
	c.display.WriteString(candidates[0])
}

// unitAt compiles the unit starting at src[i] and reports how many source
// runes it consumed.
func (c *compiler) unitAt(i int) (string, []string, int) {
	ch := string(c.src[i])

	if key, ok := c.digraphAt(i); ok {
		return key, c.digraphCandidates(key), 2
	}

	switch ch {
	case sokuon:
		return ch, []string{c.doubledConsonant(i + 1)}, 1
	case nasal:
		return ch, c.nasalCandidates(i), 1
	}

	if cands, ok := c.table.Lookup(ch); ok {
		return ch, cands, 1
	}
	return ch, []string{transliterate(c.src[i])}, 1
}

// digraphAt reports the two-rune table key at src[i] when src[i+1] is a small
// vowel marker that combines with src[i].
func (c *compiler) digraphAt(i int) (string, bool) {
	if i+1 >= len(c.src) || !smallVowels[c.src[i+1]] || smallVowels[c.src[i]] {
		return "", false
	}
	key := string(c.src[i : i+2])
	if _, ok := c.table.Preferred(key); !ok {
		return "", false
	}
	return key, true
}

// digraphCandidates returns the combined spellings followed by the split
// spellings (first kana, then the small kana typed on its own).
func (c *compiler) digraphCandidates(key string) []string {
	cands, _ := c.table.Lookup(key)
	runes := []rune(key)
	heads, okHead := c.table.Lookup(string(runes[0]))
	tails, okTail := c.table.Lookup(string(runes[1]))
	if !okHead || !okTail {
		return cands
	}
	seen := make(map[string]bool, len(cands))
	for _, s := range cands {
		seen[s] = true
	}
	for _, h := range heads {
		for _, t := range tails {
			s := h + t
			if !seen[s] {
				seen[s] = true
				cands = append(cands, s)
			}
		}
	}
	return cands
}

// doubledConsonant returns the spelling of a っ whose following unit starts
// at src[next].
func (c *compiler) doubledConsonant(next int) string {
	if next >= len(c.src) {
		return sokuonFallback
	}
	first, ok := firstLetter(c.preferredAt(next))
	if !ok || !isConsonant(first) {
		return sokuonFallback
	}
	return string(first)
}

// nasalCandidates returns the spellings of ん at src[i]. The short form is
// kept when ん ends the phrase or the next unit starts with a consonant.
func (c *compiler) nasalCandidates(i int) []string {
	all, ok := c.table.Lookup(nasal)
	if !ok {
		all = []string{"nn", "xn", nasalShort}
	}

	var long []string
	hasShort := false
	for _, s := range all {
		if s == nasalShort {
			hasShort = true
			continue
		}
		long = append(long, s)
	}
	if !hasShort {
		return all
	}
	if len(long) == 0 {
		// A table with only the short form leaves nothing to disambiguate.
		return all
	}

	if i+1 < len(c.src) {
		if first, ok := firstLetter(c.preferredAt(i + 1)); ok && isVowelOrSemivowel(first) {
			return long
		}
	}
	return append(long, nasalShort)
}

// preferredAt returns the display spelling of the unit starting at src[i]
// without emitting it.
func (c *compiler) preferredAt(i int) string {
	if key, ok := c.digraphAt(i); ok {
		p, _ := c.table.Preferred(key)
		return p
	}
	ch := string(c.src[i])
	switch ch {
	case sokuon:
		return c.doubledConsonant(i + 1)
	case nasal:
		if p, ok := c.table.Preferred(nasal); ok {
			return p
		}
		return "nn"
	}
	if p, ok := c.table.Preferred(ch); ok {
		return p
	}
	return transliterate(c.src[i])
}

// transliterate is the spelling of a rune the table does not know.
func transliterate(r rune) string {
	if k, ok := NormalizeKey(r); ok {
		return string(k)
	}
	return string(r)
}

func firstLetter(s string) (rune, bool) {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 || r > unicode.MaxASCII || !unicode.IsLetter(r) {
		return 0, false
	}
	return unicode.ToLower(r), true
}

func isVowel(r rune) bool {
	switch r {
	case 'a', 'i', 'u', 'e', 'o':
		return true
	}
	return false
}

func isVowelOrSemivowel(r rune) bool {
	return isVowel(r) || r == 'y' || r == 'w'
}

func isConsonant(r rune) bool {
	return r >= 'a' && r <= 'z' && !isVowel(r)
}
