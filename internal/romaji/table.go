// Package romaji compiles kana phrases into the romaji keystroke spellings a
// typist may use for each of their units.
package romaji

import "sort"

// Table maps a phonetic unit (one or two hiragana) to its accepted spellings.
// The first spelling of every entry is the preferred one and is the one shown
// to the typist.
type Table map[string][]string

// Markers with special meaning to the compiler.
const (
	sokuon = "っ"
	nasal  = "ん"

	// nasalShort is the single-letter spelling of ん. It is dropped when it
	// would merge with a following vowel or semivowel.
	nasalShort = "n"

	// sokuonFallback is used when っ cannot double the next consonant.
	sokuonFallback = "xtu"
)

// smallVowels are the markers that form a digraph with the preceding kana.
var smallVowels = map[rune]bool{
	'ゃ': true, 'ゅ': true, 'ょ': true,
	'ぁ': true, 'ぃ': true, 'ぅ': true, 'ぇ': true, 'ぉ': true,
	'ゎ': true,
}

var defaultEntries = map[string][]string{
	// Vowels.
	"あ": {"a"}, "い": {"i", "yi"}, "う": {"u", "wu", "whu"}, "え": {"e"}, "お": {"o"},

	"か": {"ka", "ca"}, "き": {"ki"}, "く": {"ku", "cu", "qu"}, "け": {"ke"}, "こ": {"ko", "co"},
	"が": {"ga"}, "ぎ": {"gi"}, "ぐ": {"gu"}, "げ": {"ge"}, "ご": {"go"},
	"さ": {"sa"}, "し": {"shi", "si", "ci"}, "す": {"su"}, "せ": {"se", "ce"}, "そ": {"so"},
	"ざ": {"za"}, "じ": {"ji", "zi"}, "ず": {"zu"}, "ぜ": {"ze"}, "ぞ": {"zo"},
	"た": {"ta"}, "ち": {"chi", "ti"}, "つ": {"tsu", "tu"}, "て": {"te"}, "と": {"to"},
	"だ": {"da"}, "ぢ": {"di"}, "づ": {"du"}, "で": {"de"}, "ど": {"do"},
	"な": {"na"}, "に": {"ni"}, "ぬ": {"nu"}, "ね": {"ne"}, "の": {"no"},
	"は": {"ha"}, "ひ": {"hi"}, "ふ": {"fu", "hu"}, "へ": {"he"}, "ほ": {"ho"},
	"ば": {"ba"}, "び": {"bi"}, "ぶ": {"bu"}, "べ": {"be"}, "ぼ": {"bo"},
	"ぱ": {"pa"}, "ぴ": {"pi"}, "ぷ": {"pu"}, "ぺ": {"pe"}, "ぽ": {"po"},
	"ま": {"ma"}, "み": {"mi"}, "む": {"mu"}, "め": {"me"}, "も": {"mo"},
	"や": {"ya"}, "ゆ": {"yu"}, "よ": {"yo"},
	"ら": {"ra"}, "り": {"ri"}, "る": {"ru"}, "れ": {"re"}, "ろ": {"ro"},
	"わ": {"wa"}, "ゐ": {"wi"}, "ゑ": {"we"}, "を": {"wo"},
	"ん": {"nn", "xn", nasalShort},
	"ゔ": {"vu"},

	// Small kana typed on their own.
	"ぁ": {"xa", "la"}, "ぃ": {"xi", "li", "xyi", "lyi"}, "ぅ": {"xu", "lu"},
	"ぇ": {"xe", "le", "xye", "lye"}, "ぉ": {"xo", "lo"},
	"ゃ": {"xya", "lya"}, "ゅ": {"xyu", "lyu"}, "ょ": {"xyo", "lyo"},
	"ゎ": {"xwa", "lwa"}, "ゕ": {"xka", "lka"}, "ゖ": {"xke", "lke"},
	"っ": {"xtu", "ltu", "xtsu", "ltsu"},

	// Digraphs.
	"きゃ": {"kya"}, "きぃ": {"kyi"}, "きゅ": {"kyu"}, "きぇ": {"kye"}, "きょ": {"kyo"},
	"ぎゃ": {"gya"}, "ぎぃ": {"gyi"}, "ぎゅ": {"gyu"}, "ぎぇ": {"gye"}, "ぎょ": {"gyo"},
	"しゃ": {"sha", "sya"}, "しぃ": {"syi"}, "しゅ": {"shu", "syu"}, "しぇ": {"she", "sye"}, "しょ": {"sho", "syo"},
	"じゃ": {"ja", "zya", "jya"}, "じぃ": {"zyi", "jyi"}, "じゅ": {"ju", "zyu", "jyu"}, "じぇ": {"je", "zye", "jye"}, "じょ": {"jo", "zyo", "jyo"},
	"ちゃ": {"cha", "tya", "cya"}, "ちぃ": {"tyi", "cyi"}, "ちゅ": {"chu", "tyu", "cyu"}, "ちぇ": {"che", "tye", "cye"}, "ちょ": {"cho", "tyo", "cyo"},
	"ぢゃ": {"dya"}, "ぢぃ": {"dyi"}, "ぢゅ": {"dyu"}, "ぢぇ": {"dye"}, "ぢょ": {"dyo"},
	"にゃ": {"nya"}, "にぃ": {"nyi"}, "にゅ": {"nyu"}, "にぇ": {"nye"}, "にょ": {"nyo"},
	"ひゃ": {"hya"}, "ひぃ": {"hyi"}, "ひゅ": {"hyu"}, "ひぇ": {"hye"}, "ひょ": {"hyo"},
	"びゃ": {"bya"}, "びぃ": {"byi"}, "びゅ": {"byu"}, "びぇ": {"bye"}, "びょ": {"byo"},
	"ぴゃ": {"pya"}, "ぴぃ": {"pyi"}, "ぴゅ": {"pyu"}, "ぴぇ": {"pye"}, "ぴょ": {"pyo"},
	"みゃ": {"mya"}, "みぃ": {"myi"}, "みゅ": {"myu"}, "みぇ": {"mye"}, "みょ": {"myo"},
	"りゃ": {"rya"}, "りぃ": {"ryi"}, "りゅ": {"ryu"}, "りぇ": {"rye"}, "りょ": {"ryo"},
	"てゃ": {"tha"}, "てぃ": {"thi"}, "てゅ": {"thu"}, "てぇ": {"the"}, "てょ": {"tho"},
	"でゃ": {"dha"}, "でぃ": {"dhi"}, "でゅ": {"dhu"}, "でぇ": {"dhe"}, "でょ": {"dho"},
	"とぁ": {"twa"}, "とぃ": {"twi"}, "とぅ": {"twu"}, "とぇ": {"twe"}, "とぉ": {"two"},
	"どぁ": {"dwa"}, "どぃ": {"dwi"}, "どぅ": {"dwu"}, "どぇ": {"dwe"}, "どぉ": {"dwo"},
	"つぁ": {"tsa"}, "つぃ": {"tsi"}, "つぇ": {"tse"}, "つぉ": {"tso"},
	"ふぁ": {"fa", "fwa"}, "ふぃ": {"fi", "fwi", "fyi"}, "ふぅ": {"fwu"}, "ふぇ": {"fe", "fwe", "fye"}, "ふぉ": {"fo", "fwo"},
	"ふゃ": {"fya"}, "ふゅ": {"fyu"}, "ふょ": {"fyo"},
	"くぁ": {"qa", "kwa", "qwa"}, "くぃ": {"qi", "qwi", "qyi"}, "くぅ": {"qwu"}, "くぇ": {"qe", "qwe", "qye"}, "くぉ": {"qo", "qwo"},
	"くゎ": {"kwa"},
	"ぐぁ": {"gwa"}, "ぐぃ": {"gwi"}, "ぐぅ": {"gwu"}, "ぐぇ": {"gwe"}, "ぐぉ": {"gwo"},
	"すぁ": {"swa"}, "すぃ": {"swi"}, "すぅ": {"swu"}, "すぇ": {"swe"}, "すぉ": {"swo"},
	"うぃ": {"wi", "whi"}, "うぇ": {"we", "whe"}, "うぉ": {"who"},
	"いぇ": {"ye"},
	"ゔぁ": {"va"}, "ゔぃ": {"vi", "vyi"}, "ゔぇ": {"ve", "vye"}, "ゔぉ": {"vo"},
	"ゔゃ": {"vya"}, "ゔゅ": {"vyu"}, "ゔょ": {"vyo"},

	// Marks and punctuation left after NFKC folding.
	"ー": {"-"}, "、": {","}, "。": {"."}, "「": {"["}, "」": {"]"},
	"・": {"/"}, "〜": {"~"},
}

// DefaultTable returns a fresh copy of the built-in hiragana table.
func DefaultTable() Table {
	t := make(Table, len(defaultEntries))
	for k, v := range defaultEntries {
		t[k] = append([]string(nil), v...)
	}
	return t
}

// Lookup returns a copy of the spellings registered for unit.
func (t Table) Lookup(unit string) ([]string, bool) {
	c, ok := t[unit]
	if !ok || len(c) == 0 {
		return nil, false
	}
	return append([]string(nil), c...), true
}

// Preferred returns the display spelling of unit.
func (t Table) Preferred(unit string) (string, bool) {
	c, ok := t[unit]
	if !ok || len(c) == 0 {
		return "", false
	}
	return c[0], true
}

// With returns a copy of t with the given entries replaced. Entries with an
// empty spelling list remove the unit from the copy.
func (t Table) With(overrides map[string][]string) Table {
	out := make(Table, len(t)+len(overrides))
	for k, v := range t {
		out[k] = append([]string(nil), v...)
	}
	for k, v := range overrides {
		if len(v) == 0 {
			delete(out, k)
			continue
		}
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Units returns the table's keys in sorted order.
func (t Table) Units() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
